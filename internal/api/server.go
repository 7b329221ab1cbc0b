// Package api exposes the game over HTTP JSON. Handlers are thin: parse,
// call the engine, map domain errors to status codes, serialize.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mfeldt/ecopolis/internal/engine"
	"github.com/mfeldt/ecopolis/internal/game"
)

// Server serves the game API.
type Server struct {
	Eng         *engine.Engine
	Port        int
	CORSOrigins []string
}

// Handler builds the route table. Split out from Start so tests can drive it
// with httptest.
func (s *Server) Handler() http.Handler {
	// Speech submissions spend model tokens; everything else is cheap.
	speechLimiter := NewRateLimiter(30, time.Hour)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/games", s.handleCreateGame)
	mux.HandleFunc("GET /api/games/{id}", s.handleGetGame)
	mux.HandleFunc("DELETE /api/games/{id}", s.handleDeleteGame)
	mux.HandleFunc("GET /api/games/{id}/tiles/{x}/{y}/actions", s.handleAvailableActions)
	mux.HandleFunc("POST /api/games/{id}/tiles/{x}/{y}/actions", s.handleTileAction)
	mux.HandleFunc("POST /api/games/{id}/speech", rateLimit(speechLimiter, s.handleSpeech))
	mux.HandleFunc("POST /api/games/{id}/end-turn", s.handleEndTurn)
	mux.HandleFunc("GET /api/games/{id}/promises", s.handlePromises)

	return s.corsMiddleware(mux)
}

// Start runs the HTTP server until it fails.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.Port)
	slog.Info("HTTP API starting", "addr", addr)
	return http.ListenAndServe(addr, s.Handler())
}

// corsMiddleware adds CORS headers for allowed frontend origins. Localhost
// dev servers are always allowed.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:4173": true,
		"http://localhost:3000": true,
	}
	for _, origin := range s.CORSOrigins {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			allowedOrigins[origin] = true
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	g, err := s.Eng.CreateGame()
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, g)
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	g, err := s.Eng.GetGame(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, g)
}

func (s *Server) handleDeleteGame(w http.ResponseWriter, r *http.Request) {
	if err := s.Eng.DeleteGame(r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAvailableActions(w http.ResponseWriter, r *http.Request) {
	x, y, ok := tileCoords(w, r)
	if !ok {
		return
	}
	actions, err := s.Eng.AvailableActions(r.PathValue("id"), x, y)
	if err != nil {
		writeError(w, err)
		return
	}
	if actions == nil {
		actions = []game.ActionType{}
	}
	writeJSON(w, map[string]any{"actions": actions})
}

func (s *Server) handleTileAction(w http.ResponseWriter, r *http.Request) {
	x, y, ok := tileCoords(w, r)
	if !ok {
		return
	}
	var body struct {
		Action game.ActionType `json:"action"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Action == "" {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	g, err := s.Eng.ExecuteTileAction(r.PathValue("id"), x, y, body.Action)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, g)
}

func (s *Server) handleSpeech(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SpeechText string `json:"speech_text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || strings.TrimSpace(body.SpeechText) == "" {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	g, result, err := s.Eng.SubmitSpeech(r.Context(), r.PathValue("id"), body.SpeechText)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]any{
		"game":           g,
		"promises":       result.Promises,
		"contradictions": result.Contradictions,
		"reactions":      result.Reactions,
	})
}

func (s *Server) handleEndTurn(w http.ResponseWriter, r *http.Request) {
	g, err := s.Eng.EndTurn(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, g)
}

func (s *Server) handlePromises(w http.ResponseWriter, r *http.Request) {
	promises, err := s.Eng.ListPromises(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if promises == nil {
		promises = []*game.Promise{}
	}
	writeJSON(w, map[string]any{"promises": promises})
}

func tileCoords(w http.ResponseWriter, r *http.Request) (int, int, bool) {
	x, errX := strconv.Atoi(r.PathValue("x"))
	y, errY := strconv.Atoi(r.PathValue("y"))
	if errX != nil || errY != nil {
		http.Error(w, "invalid tile coordinates", http.StatusBadRequest)
		return 0, 0, false
	}
	return x, y, true
}

// writeError maps domain errors to HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, game.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, game.ErrNotRunning), errors.Is(err, game.ErrBudgetExhausted):
		status = http.StatusConflict
	case errors.Is(err, game.ErrInvalidAction):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, game.ErrPipelineFailure):
		status = http.StatusBadGateway
	}
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "err", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
