// Package engine is the turn controller. It owns game lifecycle and the
// rules that glue the subsystems together: action budgets, the speech
// pipeline commit protocol, the end-of-turn tick, and win/lose evaluation.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mfeldt/ecopolis/internal/citizens"
	"github.com/mfeldt/ecopolis/internal/game"
	"github.com/mfeldt/ecopolis/internal/promises"
	"github.com/mfeldt/ecopolis/internal/speech"
	"github.com/mfeldt/ecopolis/internal/tiles"
)

// Loss thresholds, checked at the end of every turn in this order.
const (
	minEcology      = 20
	minEconomy      = 20
	minCoreApproval = 25
)

// Win ranking thresholds, evaluated after the final turn's tick.
const (
	goldEcology   = 80
	goldEconomy   = 80
	goldResearch  = 75
	silverEcology = 65
	silverEconomy = 65
)

// Store is the persistence surface the engine needs. *persistence.DB
// implements it; tests use an in-memory fake.
type Store interface {
	Save(g *game.Game) error
	Load(id string) (*game.Game, error)
	Delete(id string) error
}

// Engine coordinates all game operations. Each operation loads the
// aggregate, mutates a deep working copy under the game's lock, and saves
// atomically. A failed operation leaves the stored game untouched.
type Engine struct {
	store    Store
	pipeline *speech.Pipeline

	// generateMaps switches new games from the fixed map to procedural
	// generation.
	generateMaps bool

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates an engine over a store and a speech pipeline.
func New(store Store, pipeline *speech.Pipeline, generateMaps bool) *Engine {
	return &Engine{
		store:        store,
		pipeline:     pipeline,
		generateMaps: generateMaps,
		locks:        make(map[string]*sync.Mutex),
	}
}

// lockFor returns the per-game mutex, creating it on first use. One writer
// per game id; different games proceed in parallel.
func (e *Engine) lockFor(id string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[id]
	if !ok {
		l = &sync.Mutex{}
		e.locks[id] = l
	}
	return l
}

// CreateGame initializes and persists a new playthrough: starting meters,
// the core roster, the tile grid, and turn 1 with a full action budget.
func (e *Engine) CreateGame() (*game.Game, error) {
	g := game.New()
	g.Resources = game.Resources{Ecology: 45, Economy: 65, Research: 5}
	g.Citizens = citizens.CoreRoster()
	if e.generateMaps {
		g.Tiles = tiles.GenerateMap(tiles.DefaultGenConfig())
	} else {
		g.Tiles = tiles.DefaultMap()
	}
	g.Turns = []*game.Turn{{Number: 1, RemainingActions: game.ActionsPerTurn}}

	if err := e.store.Save(g); err != nil {
		return nil, fmt.Errorf("save new game: %w", err)
	}
	slog.Info("game created", "game", g.ID, "tiles", len(g.Tiles), "map", mapKind(e.generateMaps))
	return g, nil
}

func mapKind(generated bool) string {
	if generated {
		return "generated"
	}
	return "fixed"
}

// GetGame loads a game by id.
func (e *Engine) GetGame(id string) (*game.Game, error) {
	return e.store.Load(id)
}

// DeleteGame removes a game permanently.
func (e *Engine) DeleteGame(id string) error {
	l := e.lockFor(id)
	l.Lock()
	defer l.Unlock()
	if err := e.store.Delete(id); err != nil {
		return err
	}
	slog.Info("game deleted", "game", id)
	return nil
}

// AvailableActions returns the actions currently legal on one tile, given
// the game's research level.
func (e *Engine) AvailableActions(id string, x, y int) ([]game.ActionType, error) {
	g, err := e.store.Load(id)
	if err != nil {
		return nil, err
	}
	t := g.TileAt(x, y)
	if t == nil {
		return nil, fmt.Errorf("tile (%d,%d): %w", x, y, game.ErrNotFound)
	}
	return tiles.AvailableActions(t, g.Resources.Research), nil
}

// ListPromises returns the game's full promise ledger.
func (e *Engine) ListPromises(id string) ([]*game.Promise, error) {
	g, err := e.store.Load(id)
	if err != nil {
		return nil, err
	}
	return g.Promises, nil
}

// ExecuteTileAction performs one tile action: validates budget and legality,
// applies the effect, decrements the budget, and spawns any citizens the
// action triggers. The result is saved atomically.
func (e *Engine) ExecuteTileAction(id string, x, y int, action game.ActionType) (*game.Game, error) {
	l := e.lockFor(id)
	l.Lock()
	defer l.Unlock()

	stored, err := e.store.Load(id)
	if err != nil {
		return nil, err
	}
	g := stored.Clone()

	if g.Status != game.StatusRunning {
		return nil, game.ErrNotRunning
	}
	turn := g.ActiveTurn()
	if turn == nil {
		return nil, fmt.Errorf("no active turn for game %s", g.ID)
	}
	if turn.RemainingActions <= 0 {
		return nil, game.ErrBudgetExhausted
	}
	t := g.TileAt(x, y)
	if t == nil {
		return nil, fmt.Errorf("tile (%d,%d): %w", x, y, game.ErrNotFound)
	}

	previous := t.Type
	if err := tiles.Apply(g, t, action); err != nil {
		return nil, err
	}
	turn.RemainingActions--
	citizens.Spawn(g, previous, action)

	if err := e.store.Save(g); err != nil {
		return nil, fmt.Errorf("save game: %w", err)
	}
	slog.Info("tile action executed",
		"game", g.ID, "x", x, "y", y, "action", action,
		"from", previous, "to", t.Type, "remaining_actions", turn.RemainingActions,
	)
	return g, nil
}

// SubmitSpeech runs the speech pipeline on a working copy and commits only
// on success. A pipeline failure discards every mutation the attempt made,
// including the stored speech text. The action budget is not consumed by
// speeches.
func (e *Engine) SubmitSpeech(ctx context.Context, id, speechText string) (*game.Game, *speech.Result, error) {
	l := e.lockFor(id)
	l.Lock()
	defer l.Unlock()

	stored, err := e.store.Load(id)
	if err != nil {
		return nil, nil, err
	}
	if stored.Status != game.StatusRunning {
		return nil, nil, game.ErrNotRunning
	}

	g := stored.Clone()
	result, err := e.pipeline.Process(ctx, g, speechText)
	if err != nil {
		return nil, nil, err
	}

	if err := e.store.Save(g); err != nil {
		return nil, nil, fmt.Errorf("save game: %w", err)
	}
	slog.Info("speech processed",
		"game", g.ID, "turn", g.CurrentTurn,
		"promises", len(result.Promises), "broken", result.BrokenCount, "reactions", len(result.Reactions),
	)
	return g, result, nil
}

// EndTurn closes the current turn: the grid ticks, dynamic citizens count
// down, and the game is checked for defeat, then for the final-turn win
// ranking, and otherwise advances with a fresh action budget.
func (e *Engine) EndTurn(id string) (*game.Game, error) {
	l := e.lockFor(id)
	l.Lock()
	defer l.Unlock()

	stored, err := e.store.Load(id)
	if err != nil {
		return nil, err
	}
	g := stored.Clone()

	if g.Status != game.StatusRunning {
		return nil, game.ErrNotRunning
	}

	tiles.Tick(g)
	citizens.TickLifecycle(g)

	evaluateOutcome(g)
	if g.Status == game.StatusRunning {
		g.CurrentTurn++
		g.Turns = append(g.Turns, &game.Turn{Number: g.CurrentTurn, RemainingActions: game.ActionsPerTurn})
	}

	if err := e.store.Save(g); err != nil {
		return nil, fmt.Errorf("save game: %w", err)
	}
	slog.Info("turn ended",
		"game", g.ID, "turn", g.CurrentTurn, "status", g.Status,
		"ecology", g.Resources.Ecology, "economy", g.Resources.Economy, "research", g.Resources.Research,
	)
	return g, nil
}

// evaluateOutcome applies the loss checks in precedence order, then the
// final-turn win ranking. Winning resolves all still-active promises as
// kept; losses leave the ledger as it stands.
func evaluateOutcome(g *game.Game) {
	switch {
	case g.Resources.Ecology < minEcology:
		lose(g, game.DefeatEcologicalCollapse)
		return
	case g.Resources.Economy < minEconomy:
		lose(g, game.DefeatEconomicCollapse)
		return
	case votedOut(g):
		lose(g, game.DefeatVotedOut)
		return
	}

	if g.CurrentTurn < game.MaxTurns {
		return
	}

	g.Status = game.StatusWon
	g.Rank = rankFor(g.Resources)
	kept := promises.ResolveKept(g)
	slog.Info("game won", "game", g.ID, "rank", g.Rank, "promises_kept", kept)
}

func lose(g *game.Game, reason game.DefeatReason) {
	g.Status = game.StatusLost
	g.DefeatReason = reason
	slog.Info("game lost", "game", g.ID, "reason", reason)
}

// votedOut is true when every core citizen's approval has fallen below the
// threshold. Dynamic citizens have no vote.
func votedOut(g *game.Game) bool {
	core := g.CoreCitizens()
	if len(core) == 0 {
		return false
	}
	for _, c := range core {
		if c.Approval >= minCoreApproval {
			return false
		}
	}
	return true
}

func rankFor(r game.Resources) game.Rank {
	switch {
	case r.Ecology > goldEcology && r.Economy > goldEconomy && r.Research > goldResearch:
		return game.RankGold
	case r.Ecology > silverEcology && r.Economy > silverEconomy:
		return game.RankSilver
	default:
		return game.RankBronze
	}
}
