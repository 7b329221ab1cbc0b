package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/mfeldt/ecopolis/internal/game"
	"github.com/mfeldt/ecopolis/internal/speech"
)

// memStore is an in-memory Store for tests. It clones on both save and load
// so tests observe the same isolation the SQLite store provides.
type memStore struct {
	mu    sync.Mutex
	games map[string]*game.Game
}

func newMemStore() *memStore {
	return &memStore{games: make(map[string]*game.Game)}
}

func (s *memStore) Save(g *game.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.games[g.ID] = g.Clone()
	return nil
}

func (s *memStore) Load(id string) (*game.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.games[id]
	if !ok {
		return nil, game.ErrNotFound
	}
	return g.Clone(), nil
}

func (s *memStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.games[id]; !ok {
		return game.ErrNotFound
	}
	delete(s.games, id)
	return nil
}

// scriptedCompleter replays responses in call order.
type scriptedCompleter struct {
	responses []string
	fail      bool
	calls     int
}

func (c *scriptedCompleter) Complete(_ context.Context, _, _ string, _ int) (string, error) {
	i := c.calls
	c.calls++
	if c.fail {
		return "", errors.New("scripted failure")
	}
	if i < len(c.responses) {
		return c.responses[i], nil
	}
	return "", fmt.Errorf("unexpected call %d", i)
}

func newTestEngine(completer *scriptedCompleter) (*Engine, *memStore) {
	store := newMemStore()
	return New(store, speech.NewPipeline(completer, nil), false), store
}

func TestCreateGameInitialState(t *testing.T) {
	e, _ := newTestEngine(&scriptedCompleter{})
	g, err := e.CreateGame()
	if err != nil {
		t.Fatalf("CreateGame: %v", err)
	}

	want := game.Resources{Ecology: 45, Economy: 65, Research: 5}
	if g.Resources != want {
		t.Errorf("resources = %+v, want %+v", g.Resources, want)
	}
	if len(g.Citizens) != 3 {
		t.Fatalf("roster size = %d, want 3 core citizens", len(g.Citizens))
	}
	for _, name := range []string{"Karl", "Mia", "Sarah"} {
		if g.CitizenByName(name) == nil {
			t.Errorf("core citizen %s missing", name)
		}
	}
	if len(g.Tiles) != 64 {
		t.Errorf("grid size = %d, want 64", len(g.Tiles))
	}
	if g.CurrentTurn != 1 || g.Status != game.StatusRunning {
		t.Errorf("turn/status = %d/%s", g.CurrentTurn, g.Status)
	}
	turn := g.ActiveTurn()
	if turn == nil || turn.RemainingActions != game.ActionsPerTurn {
		t.Errorf("active turn = %+v, want %d actions", turn, game.ActionsPerTurn)
	}

	loaded, err := e.GetGame(g.ID)
	if err != nil {
		t.Fatalf("GetGame after create: %v", err)
	}
	if loaded.ID != g.ID {
		t.Error("created game not persisted")
	}
}

func TestDeleteGame(t *testing.T) {
	e, _ := newTestEngine(&scriptedCompleter{})
	g, _ := e.CreateGame()

	if err := e.DeleteGame(g.ID); err != nil {
		t.Fatalf("DeleteGame: %v", err)
	}
	if _, err := e.GetGame(g.ID); !errors.Is(err, game.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound after delete", err)
	}
	if err := e.DeleteGame(g.ID); !errors.Is(err, game.ErrNotFound) {
		t.Errorf("double delete err = %v, want ErrNotFound", err)
	}
}

func findTile(g *game.Game, tt game.TileType) *game.Tile {
	for _, tile := range g.Tiles {
		if tile.Type == tt {
			return tile
		}
	}
	return nil
}

func TestActionBudgetExhaustion(t *testing.T) {
	e, _ := newTestEngine(&scriptedCompleter{})
	created, _ := e.CreateGame()

	// Two plant_forest actions on distinct wasteland tiles.
	g, _ := e.GetGame(created.ID)
	first := findTile(g, game.Wasteland)
	if _, err := e.ExecuteTileAction(created.ID, first.X, first.Y, game.PlantForest); err != nil {
		t.Fatalf("action 1: %v", err)
	}

	g, _ = e.GetGame(created.ID)
	second := findTile(g, game.Wasteland)
	g2, err := e.ExecuteTileAction(created.ID, second.X, second.Y, game.PlantForest)
	if err != nil {
		t.Fatalf("action 2: %v", err)
	}
	if g2.ActiveTurn().RemainingActions != 0 {
		t.Errorf("remaining actions = %d, want 0", g2.ActiveTurn().RemainingActions)
	}

	g, _ = e.GetGame(created.ID)
	third := findTile(g, game.Wasteland)
	if _, err := e.ExecuteTileAction(created.ID, third.X, third.Y, game.PlantForest); !errors.Is(err, game.ErrBudgetExhausted) {
		t.Fatalf("action 3 err = %v, want ErrBudgetExhausted", err)
	}
}

func TestExecuteTileActionValidation(t *testing.T) {
	e, _ := newTestEngine(&scriptedCompleter{})
	created, _ := e.CreateGame()

	if _, err := e.ExecuteTileAction("no-such-game", 0, 0, game.PlantForest); !errors.Is(err, game.ErrNotFound) {
		t.Errorf("unknown game err = %v, want ErrNotFound", err)
	}
	if _, err := e.ExecuteTileAction(created.ID, 99, 99, game.PlantForest); !errors.Is(err, game.ErrNotFound) {
		t.Errorf("off-grid tile err = %v, want ErrNotFound", err)
	}

	g, _ := e.GetGame(created.ID)
	forest := findTile(g, game.HealthyForest)
	if _, err := e.ExecuteTileAction(created.ID, forest.X, forest.Y, game.BuildFusion); !errors.Is(err, game.ErrInvalidAction) {
		t.Errorf("illegal action err = %v, want ErrInvalidAction", err)
	}

	// A failed action must not consume budget.
	g, _ = e.GetGame(created.ID)
	if g.ActiveTurn().RemainingActions != game.ActionsPerTurn {
		t.Errorf("budget = %d after failed actions, want untouched %d", g.ActiveTurn().RemainingActions, game.ActionsPerTurn)
	}
}

func TestTileActionSpawnsCitizens(t *testing.T) {
	e, _ := newTestEngine(&scriptedCompleter{})
	created, _ := e.CreateGame()

	g, _ := e.GetGame(created.ID)
	refinery := findTile(g, game.OilRefinery)
	updated, err := e.ExecuteTileAction(created.ID, refinery.X, refinery.Y, game.Demolish)
	if err != nil {
		t.Fatalf("demolish refinery: %v", err)
	}
	if updated.CitizenByName("Oleg") == nil {
		t.Error("demolishing the refinery should spawn Oleg")
	}
	if got := updated.CitizenByName("Karl").Approval; got != 55 {
		t.Errorf("Karl approval = %d, want 55 after worker solidarity", got)
	}
}

func TestAvailableActionsEndpointLogic(t *testing.T) {
	e, _ := newTestEngine(&scriptedCompleter{})
	created, _ := e.CreateGame()

	g, _ := e.GetGame(created.ID)
	farm := findTile(g, game.Farmland)
	actions, err := e.AvailableActions(created.ID, farm.X, farm.Y)
	if err != nil {
		t.Fatalf("AvailableActions: %v", err)
	}
	if len(actions) != 1 || actions[0] != game.ClearFarmland {
		t.Errorf("actions = %v, want [clear_farmland]", actions)
	}

	if _, err := e.AvailableActions(created.ID, -1, -1); !errors.Is(err, game.ErrNotFound) {
		t.Errorf("off-grid err = %v, want ErrNotFound", err)
	}
}

func TestSubmitSpeechCommitsOnSuccess(t *testing.T) {
	completer := &scriptedCompleter{responses: []string{
		`{"promises": [{"text": "I will plant more forest", "type": "explicit"}], "contradictions": []}`,
		`{"reactions": [{"citizenName": "Mia", "dialogue": "About time.", "tone": "hopeful", "approvalDelta": 5}]}`,
	}}
	e, _ := newTestEngine(completer)
	created, _ := e.CreateGame()

	_, result, err := e.SubmitSpeech(context.Background(), created.ID, "I will plant more forest")
	if err != nil {
		t.Fatalf("SubmitSpeech: %v", err)
	}
	if len(result.Promises) != 1 {
		t.Errorf("result promises = %d, want 1", len(result.Promises))
	}

	stored, _ := e.GetGame(created.ID)
	if stored.ActiveTurn().SpeechText != "I will plant more forest" {
		t.Error("speech text not committed")
	}
	if len(stored.Promises) != 1 {
		t.Error("promise not committed")
	}
	if stored.CitizenByName("Mia").Approval != 40 {
		t.Errorf("Mia approval = %d, want 40", stored.CitizenByName("Mia").Approval)
	}
}

func TestSubmitSpeechRollsBackOnPipelineFailure(t *testing.T) {
	e, _ := newTestEngine(&scriptedCompleter{fail: true})
	created, _ := e.CreateGame()

	_, _, err := e.SubmitSpeech(context.Background(), created.ID, "doomed speech")
	if !errors.Is(err, game.ErrPipelineFailure) {
		t.Fatalf("err = %v, want ErrPipelineFailure", err)
	}

	stored, _ := e.GetGame(created.ID)
	if stored.ActiveTurn().SpeechText != "" {
		t.Error("failed pipeline must not commit the speech text")
	}
	if len(stored.Promises) != 0 {
		t.Error("failed pipeline must not commit promises")
	}
	if stored.CitizenByName("Karl").Approval != 60 {
		t.Error("failed pipeline must not commit approval changes")
	}
}

func TestEndTurnAdvancesWithFreshBudget(t *testing.T) {
	e, _ := newTestEngine(&scriptedCompleter{})
	created, _ := e.CreateGame()

	g, err := e.EndTurn(created.ID)
	if err != nil {
		t.Fatalf("EndTurn: %v", err)
	}
	if g.CurrentTurn != 2 {
		t.Errorf("turn = %d, want 2", g.CurrentTurn)
	}
	if g.Status != game.StatusRunning {
		t.Errorf("status = %s, want running", g.Status)
	}
	turn := g.ActiveTurn()
	if turn == nil || turn.RemainingActions != game.ActionsPerTurn {
		t.Errorf("new turn = %+v, want fresh budget %d", turn, game.ActionsPerTurn)
	}
}

func TestEndTurnRequiresRunningGame(t *testing.T) {
	e, store := newTestEngine(&scriptedCompleter{})
	created, _ := e.CreateGame()

	g, _ := store.Load(created.ID)
	g.Status = game.StatusLost
	store.Save(g)

	if _, err := e.EndTurn(created.ID); !errors.Is(err, game.ErrNotRunning) {
		t.Errorf("err = %v, want ErrNotRunning", err)
	}
}

func TestLossPrecedenceEcologyBeforeEconomy(t *testing.T) {
	g := game.New()
	g.Resources = game.Resources{Ecology: 5, Economy: 5, Research: 0}
	g.Citizens = []*game.Citizen{{Name: "Karl", Kind: game.CitizenCore, Approval: 1}}

	evaluateOutcome(g)
	if g.Status != game.StatusLost {
		t.Fatalf("status = %s, want lost", g.Status)
	}
	if g.DefeatReason != game.DefeatEcologicalCollapse {
		t.Errorf("reason = %s, want ecological_collapse (checked before economy)", g.DefeatReason)
	}
}

func TestLossEconomicCollapse(t *testing.T) {
	g := game.New()
	g.Resources = game.Resources{Ecology: 50, Economy: 19, Research: 0}
	g.Citizens = []*game.Citizen{{Name: "Karl", Kind: game.CitizenCore, Approval: 60}}

	evaluateOutcome(g)
	if g.DefeatReason != game.DefeatEconomicCollapse {
		t.Errorf("reason = %s, want economic_collapse", g.DefeatReason)
	}
}

func TestLossVotedOut(t *testing.T) {
	g := game.New()
	g.Resources = game.Resources{Ecology: 50, Economy: 50, Research: 0}
	g.Citizens = []*game.Citizen{
		{Name: "Karl", Kind: game.CitizenCore, Approval: 24},
		{Name: "Mia", Kind: game.CitizenCore, Approval: 10},
		{Name: "Sarah", Kind: game.CitizenCore, Approval: 0},
		// Dynamic citizens have no vote.
		{Name: "Pavel", Kind: game.CitizenDynamic, Approval: 99},
	}

	evaluateOutcome(g)
	if g.DefeatReason != game.DefeatVotedOut {
		t.Errorf("reason = %s, want voted_out", g.DefeatReason)
	}
}

func TestVotedOutNeedsAllCoreBelowThreshold(t *testing.T) {
	g := game.New()
	g.Resources = game.Resources{Ecology: 50, Economy: 50, Research: 0}
	g.Citizens = []*game.Citizen{
		{Name: "Karl", Kind: game.CitizenCore, Approval: 24},
		{Name: "Mia", Kind: game.CitizenCore, Approval: 25},
	}

	evaluateOutcome(g)
	if g.Status != game.StatusRunning {
		t.Errorf("status = %s, want running (one core citizen at the threshold)", g.Status)
	}
}

func TestWinRanking(t *testing.T) {
	cases := []struct {
		res  game.Resources
		want game.Rank
	}{
		{game.Resources{Ecology: 85, Economy: 82, Research: 78}, game.RankGold},
		{game.Resources{Ecology: 70, Economy: 70, Research: 40}, game.RankSilver},
		{game.Resources{Ecology: 50, Economy: 50, Research: 10}, game.RankBronze},
		{game.Resources{Ecology: 81, Economy: 81, Research: 75}, game.RankSilver}, // research misses gold
		{game.Resources{Ecology: 65, Economy: 90, Research: 0}, game.RankBronze},  // ecology misses silver
	}
	for _, c := range cases {
		if got := rankFor(c.res); got != c.want {
			t.Errorf("rankFor(%+v) = %s, want %s", c.res, got, c.want)
		}
	}
}

func TestFinalTurnWinResolvesPromises(t *testing.T) {
	g := game.New()
	g.CurrentTurn = game.MaxTurns
	g.Resources = game.Resources{Ecology: 70, Economy: 70, Research: 40}
	g.Citizens = []*game.Citizen{{Name: "Karl", Kind: game.CitizenCore, Approval: 60}}
	g.Promises = []*game.Promise{
		{Text: "a", Status: game.PromiseActive},
		{Text: "b", Status: game.PromiseBroken},
	}

	evaluateOutcome(g)
	if g.Status != game.StatusWon || g.Rank != game.RankSilver {
		t.Fatalf("status/rank = %s/%s, want won/silver", g.Status, g.Rank)
	}
	if g.Promises[0].Status != game.PromiseKept {
		t.Error("active promise should resolve to kept on win")
	}
	if g.Promises[1].Status != game.PromiseBroken {
		t.Error("broken promise must stay broken")
	}
}

func TestLossLeavesPromisesActive(t *testing.T) {
	g := game.New()
	g.CurrentTurn = game.MaxTurns
	g.Resources = game.Resources{Ecology: 5, Economy: 70, Research: 40}
	g.Citizens = []*game.Citizen{{Name: "Karl", Kind: game.CitizenCore, Approval: 60}}
	g.Promises = []*game.Promise{{Text: "a", Status: game.PromiseActive}}

	evaluateOutcome(g)
	if g.Status != game.StatusLost {
		t.Fatalf("status = %s, want lost", g.Status)
	}
	if g.Promises[0].Status != game.PromiseActive {
		t.Error("losses do not resolve the ledger")
	}
}
