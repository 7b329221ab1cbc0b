// Package speech runs the town-hall speech pipeline: the player's speech is
// analyzed for promises and contradictions, the ledger is updated, and every
// citizen gets an in-character reaction that moves their approval.
package speech

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mfeldt/ecopolis/internal/game"
	"github.com/mfeldt/ecopolis/internal/llm"
	"github.com/mfeldt/ecopolis/internal/promises"
)

const (
	extractionMaxTokens = 1500
	reactionMaxTokens   = 2000

	// Reaction deltas outside this band are clamped before applying.
	maxApprovalDelta = 15
)

// Reaction is one citizen's in-character response to a speech.
type Reaction struct {
	CitizenName   string `json:"citizenName"`
	Dialogue      string `json:"dialogue"`
	Tone          string `json:"tone"`
	ApprovalDelta int    `json:"approvalDelta"`
}

// reactionsResult is the parsed payload of the reaction call.
type reactionsResult struct {
	Reactions []Reaction `json:"reactions"`
}

// Result is everything one speech produced.
type Result struct {
	Promises       []*game.Promise
	Contradictions []promises.Contradiction
	Reactions      []Reaction
	BrokenCount    int
}

// Pipeline orchestrates the two sequential model calls and applies their
// output to the game.
type Pipeline struct {
	completer llm.Completer
	matcher   promises.Matcher
}

// NewPipeline wires a pipeline over a completer. A nil matcher falls back to
// the default overlap matcher.
func NewPipeline(completer llm.Completer, matcher promises.Matcher) *Pipeline {
	if matcher == nil {
		matcher = promises.OverlapMatcher{}
	}
	return &Pipeline{completer: completer, matcher: matcher}
}

// Process runs the full pipeline against a game the caller has already
// verified to be running. The speech is stored on the current turn, promises
// are extracted and persisted, contradictions break matching active
// promises, and citizen reactions adjust approvals.
//
// Extraction is best-effort: a malformed analysis response degrades to an
// empty result so the speech still lands. The reaction call is mandatory;
// its failure surfaces as ErrPipelineFailure and the caller must discard the
// mutated game state.
func (p *Pipeline) Process(ctx context.Context, g *game.Game, speechText string) (*Result, error) {
	turn := g.ActiveTurn()
	if turn == nil {
		return nil, fmt.Errorf("no active turn for game %s", g.ID)
	}
	turn.SpeechText = speechText

	extraction := p.extract(ctx, g, speechText)
	added := promises.Persist(g, extraction.Promises)
	broken := promises.MarkBroken(g, extraction.Contradictions, p.matcher)

	reactions, err := p.react(ctx, g, speechText, extraction)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", game.ErrPipelineFailure, err)
	}

	applyReactions(g, reactions.Reactions)

	return &Result{
		Promises:       added,
		Contradictions: extraction.Contradictions,
		Reactions:      reactions.Reactions,
		BrokenCount:    broken,
	}, nil
}

// extract runs the analysis call. Any failure logs and degrades to an empty
// extraction.
func (p *Pipeline) extract(ctx context.Context, g *game.Game, speechText string) extractionResult {
	raw, err := p.completer.Complete(ctx, extractionSystemPrompt, buildExtractionUserPrompt(g, speechText), extractionMaxTokens)
	if err != nil {
		slog.Warn("promise extraction call failed, continuing with empty result", "err", err, "game", g.ID)
		return extractionResult{}
	}

	cleaned := stripFences(raw)
	if cleaned == "" {
		slog.Warn("empty extraction response", "game", g.ID)
		return extractionResult{}
	}

	var result extractionResult
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		slog.Error("failed to parse extraction response", "err", err, "response", cleaned)
		return extractionResult{}
	}
	return result
}

// react runs the reaction call. Unlike extraction this is load-bearing: the
// game is unplayable without citizen reactions, so every failure is an
// error.
func (p *Pipeline) react(ctx context.Context, g *game.Game, speechText string, extraction extractionResult) (reactionsResult, error) {
	system := buildReactionSystemPrompt(g, extraction)
	slog.Debug("generating citizen reactions", "game", g.ID, "turn", g.CurrentTurn, "prompt_len", len(system))

	raw, err := p.completer.Complete(ctx, system, reactionUserPrompt(speechText), reactionMaxTokens)
	if err != nil {
		return reactionsResult{}, fmt.Errorf("reaction call: %w", err)
	}

	cleaned := stripFences(raw)
	if cleaned == "" {
		return reactionsResult{}, fmt.Errorf("empty reaction response")
	}

	var result reactionsResult
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return reactionsResult{}, fmt.Errorf("parse reaction response: %w", err)
	}
	return result, nil
}

// applyReactions clamps each delta and moves the named citizens' approval.
// Reactions naming unknown citizens are logged and skipped.
func applyReactions(g *game.Game, reactions []Reaction) {
	for _, r := range reactions {
		c := g.CitizenByName(r.CitizenName)
		if c == nil {
			slog.Warn("reaction for unknown citizen", "name", r.CitizenName, "game", g.ID)
			continue
		}
		delta := r.ApprovalDelta
		if delta > maxApprovalDelta {
			delta = maxApprovalDelta
		}
		if delta < -maxApprovalDelta {
			delta = -maxApprovalDelta
		}
		old := c.Approval
		c.AdjustApproval(delta)
		slog.Debug("citizen reaction applied", "citizen", c.Name, "tone", r.Tone, "delta", delta, "approval", fmt.Sprintf("%d->%d", old, c.Approval))
	}
}

// stripFences removes markdown code fences a model may wrap around its JSON
// despite instructions.
func stripFences(s string) string {
	cleaned := strings.TrimSpace(s)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimPrefix(cleaned, "```")
		if idx := strings.LastIndex(cleaned, "```"); idx >= 0 {
			cleaned = cleaned[:idx]
		}
		cleaned = strings.TrimSpace(cleaned)
	}
	return cleaned
}
