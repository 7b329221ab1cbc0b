// Package promises keeps the mayor's ledger: every promise extracted from a
// speech is recorded here, and detected contradictions are matched back
// against the active entries to mark them broken.
package promises

import (
	"log/slog"
	"strings"

	"github.com/mfeldt/ecopolis/internal/game"
)

// Severity grades how blatant a detected contradiction is.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Contradiction is one detected conflict between the current speech and the
// mayor's past words or actions.
type Contradiction struct {
	Description         string   `json:"description"`
	SpeechQuote         string   `json:"speechQuote"`
	ContradictingAction string   `json:"contradictingAction"`
	Severity            Severity `json:"severity"`
}

// Extracted is one promise as pulled from a speech, before it becomes a
// ledger entry.
type Extracted struct {
	Text          string `json:"text"`
	Type          string `json:"type"`
	TargetCitizen string `json:"targetCitizen"`
	DeadlineTurn  *int   `json:"deadlineTurn"`
}

// Persist records extracted promises on the game as active ledger entries,
// linking the target citizen when the name matches someone in town. Returns
// the new entries.
func Persist(g *game.Game, extracted []Extracted) []*game.Promise {
	var added []*game.Promise
	for _, e := range extracted {
		if strings.TrimSpace(e.Text) == "" {
			continue
		}
		p := &game.Promise{
			Text:     e.Text,
			TurnMade: g.CurrentTurn,
			Deadline: e.DeadlineTurn,
			Status:   game.PromiseActive,
		}
		if e.TargetCitizen != "" {
			if c := g.CitizenByName(e.TargetCitizen); c != nil {
				p.TargetCitizen = c.Name
			}
		}
		g.Promises = append(g.Promises, p)
		added = append(added, p)
	}
	if len(added) > 0 {
		slog.Info("recorded promises", "count", len(added), "game", g.ID, "turn", g.CurrentTurn)
	}
	return added
}

// Matcher decides whether a contradiction refers to a given promise. The
// default is text-overlap based; a semantic implementation can be swapped in
// without touching the ledger.
type Matcher interface {
	Matches(p *game.Promise, c Contradiction) bool
}

// OverlapMatcher matches on textual containment or significant word overlap
// between the promise text and the contradiction's description or action.
type OverlapMatcher struct{}

func (OverlapMatcher) Matches(p *game.Promise, c Contradiction) bool {
	promise := strings.ToLower(p.Text)
	desc := strings.ToLower(c.Description)
	action := strings.ToLower(c.ContradictingAction)

	return strings.Contains(desc, promise) ||
		strings.Contains(action, promise) ||
		significantOverlap(promise, desc) ||
		significantOverlap(promise, action)
}

// significantOverlap reports whether at least half of the promise's
// significant words (longer than 3 runes) appear in the candidate text.
// Promises under 3 words are too short to match reliably.
func significantOverlap(promise, text string) bool {
	if promise == "" || text == "" {
		return false
	}
	words := strings.Fields(promise)
	if len(words) < 3 {
		return false
	}
	matched := 0
	for _, w := range words {
		if len(w) > 3 && strings.Contains(text, w) {
			matched++
		}
	}
	return float64(matched) >= float64(len(words))/2.0
}

// MarkBroken walks the detected contradictions and breaks matching active
// promises. Low-severity contradictions never break anything, and each
// contradiction breaks at most one promise.
func MarkBroken(g *game.Game, contradictions []Contradiction, m Matcher) int {
	if len(contradictions) == 0 {
		return 0
	}
	broken := 0
	for _, c := range contradictions {
		if strings.EqualFold(string(c.Severity), string(SeverityLow)) {
			continue
		}
		for _, p := range g.Promises {
			if p.Status != game.PromiseActive {
				continue
			}
			if m.Matches(p, c) {
				p.Status = game.PromiseBroken
				broken++
				slog.Info("promise broken", "text", p.Text, "contradiction", c.Description, "game", g.ID)
				break
			}
		}
	}
	return broken
}

// ResolveKept marks every remaining active promise as kept. Called once,
// when the game ends in a win.
func ResolveKept(g *game.Game) int {
	kept := 0
	for _, p := range g.Promises {
		if p.Status == game.PromiseActive {
			p.Status = game.PromiseKept
			kept++
		}
	}
	return kept
}
