// Package game holds the aggregate state for a single playthrough: the tile
// grid, the citizen roster, the promise ledger, and the per-turn records.
// All rule systems (tiles, citizens, promises, speech, engine) operate on
// these types; nothing in here talks to the network or the database.
package game

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxTurns is the number of turns a full playthrough lasts. The win ranking
// is evaluated at the end of turn MaxTurns.
const MaxTurns = 7

// ActionsPerTurn is the tile-action budget granted at the start of each turn.
const ActionsPerTurn = 2

// Status is the lifecycle state of a game.
type Status string

const (
	StatusRunning Status = "running"
	StatusWon     Status = "won"
	StatusLost    Status = "lost"
)

// Rank is the result tier awarded when a game is won.
type Rank string

const (
	RankNone   Rank = "none"
	RankBronze Rank = "bronze"
	RankSilver Rank = "silver"
	RankGold   Rank = "gold"
)

// DefeatReason records why a game was lost.
type DefeatReason string

const (
	DefeatNone               DefeatReason = "none"
	DefeatEcologicalCollapse DefeatReason = "ecological_collapse"
	DefeatEconomicCollapse   DefeatReason = "economic_collapse"
	DefeatVotedOut           DefeatReason = "voted_out"
)

// Resources are the three town meters, each clamped to [0,100]. They are
// patched by action deltas during a turn and fully recomputed from the grid
// at the end of each turn.
type Resources struct {
	Ecology  int `json:"ecology"`
	Economy  int `json:"economy"`
	Research int `json:"research"`
}

// Clamp forces every meter back into [0,100].
func (r *Resources) Clamp() {
	r.Ecology = ClampMeter(r.Ecology)
	r.Economy = ClampMeter(r.Economy)
	r.Research = ClampMeter(r.Research)
}

// ClampMeter clamps a meter or approval value to [0,100]. Out-of-range
// arithmetic is never an error in this game, only a corrected value.
func ClampMeter(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// Game is the aggregate root. It is loaded fresh per request, mutated on a
// working copy, and saved atomically at commit. There is no process-wide
// shared game state.
type Game struct {
	ID           string       `json:"id"`
	CurrentTurn  int          `json:"current_turn"`
	Status       Status       `json:"status"`
	Rank         Rank         `json:"rank"`
	DefeatReason DefeatReason `json:"defeat_reason"`
	Resources    Resources    `json:"resources"`

	Tiles    []*Tile    `json:"tiles"`
	Citizens []*Citizen `json:"citizens"`
	Promises []*Promise `json:"promises"`
	Turns    []*Turn    `json:"turns"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New returns an empty running game with a fresh id. Grid, citizens, and the
// first turn are filled in by the engine's initializer.
func New() *Game {
	now := time.Now().UTC()
	return &Game{
		ID:           uuid.NewString(),
		CurrentTurn:  1,
		Status:       StatusRunning,
		Rank:         RankNone,
		DefeatReason: DefeatNone,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// TileAt returns the tile at (x,y), or nil if the coordinates are off-grid.
func (g *Game) TileAt(x, y int) *Tile {
	for _, t := range g.Tiles {
		if t.X == x && t.Y == y {
			return t
		}
	}
	return nil
}

// Turn returns the record for the given turn number, or nil.
func (g *Game) Turn(number int) *Turn {
	for _, t := range g.Turns {
		if t.Number == number {
			return t
		}
	}
	return nil
}

// ActiveTurn returns the record for the game's current turn, or nil when the
// aggregate is inconsistent (which save/load invariants prevent).
func (g *Game) ActiveTurn() *Turn {
	return g.Turn(g.CurrentTurn)
}

// CitizenByName finds a citizen by case-insensitive name match.
func (g *Game) CitizenByName(name string) *Citizen {
	for _, c := range g.Citizens {
		if strings.EqualFold(c.Name, name) {
			return c
		}
	}
	return nil
}

// CoreCitizens returns the permanent roster members.
func (g *Game) CoreCitizens() []*Citizen {
	var core []*Citizen
	for _, c := range g.Citizens {
		if c.Kind == CitizenCore {
			core = append(core, c)
		}
	}
	return core
}

// ActivePromises returns promises that are neither kept nor broken.
func (g *Game) ActivePromises() []*Promise {
	var active []*Promise
	for _, p := range g.Promises {
		if p.Status == PromiseActive {
			active = append(active, p)
		}
	}
	return active
}

// Clone returns a deep copy of the aggregate. The engine mutates clones and
// only publishes them on successful commit, so a failed operation never
// leaves a half-updated game behind.
func (g *Game) Clone() *Game {
	cp := *g
	cp.Tiles = make([]*Tile, len(g.Tiles))
	for i, t := range g.Tiles {
		tc := *t
		cp.Tiles[i] = &tc
	}
	cp.Citizens = make([]*Citizen, len(g.Citizens))
	for i, c := range g.Citizens {
		cc := *c
		if c.RemainingTurns != nil {
			rt := *c.RemainingTurns
			cc.RemainingTurns = &rt
		}
		cp.Citizens[i] = &cc
	}
	cp.Promises = make([]*Promise, len(g.Promises))
	for i, p := range g.Promises {
		pc := *p
		if p.Deadline != nil {
			d := *p.Deadline
			pc.Deadline = &d
		}
		cp.Promises[i] = &pc
	}
	cp.Turns = make([]*Turn, len(g.Turns))
	for i, t := range g.Turns {
		tc := *t
		cp.Turns[i] = &tc
	}
	return &cp
}
