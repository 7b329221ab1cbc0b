// Command ecopolis runs the city-management game server.
package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/mfeldt/ecopolis/internal/api"
	"github.com/mfeldt/ecopolis/internal/config"
	"github.com/mfeldt/ecopolis/internal/engine"
	"github.com/mfeldt/ecopolis/internal/llm"
	"github.com/mfeldt/ecopolis/internal/persistence"
	"github.com/mfeldt/ecopolis/internal/speech"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	slog.Info("ecopolis town hall server starting")

	db, err := persistence.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", cfg.DBPath)

	client := llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel)
	if client.Enabled() {
		slog.Info("speech pipeline enabled", "model", cfg.LLMModel)
	} else {
		slog.Warn("no LLM API key set, speech submissions will fail")
	}

	pipeline := speech.NewPipeline(client, nil)
	eng := engine.New(db, pipeline, cfg.GenerateMaps)

	server := &api.Server{
		Eng:         eng,
		Port:        cfg.Port,
		CORSOrigins: cfg.CORSOrigins,
	}
	if err := server.Start(); err != nil {
		slog.Error("HTTP server error", "error", err)
		os.Exit(1)
	}
}

func logLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
