package persistence

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/mfeldt/ecopolis/internal/game"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleGame() *game.Game {
	turns := 2
	deadline := 5
	g := game.New()
	g.CurrentTurn = 3
	g.Resources = game.Resources{Ecology: 40, Economy: 55, Research: 20}
	g.Tiles = []*game.Tile{
		{X: 0, Y: 0, Type: game.HealthyForest, RoundsInState: 1},
		{X: 1, Y: 0, Type: game.Factory},
	}
	g.Citizens = []*game.Citizen{
		{Name: "Karl", Kind: game.CitizenCore, Profession: "Factory Worker", Age: 48, Personality: "stoic", Approval: 58},
		{Name: "Lena", Kind: game.CitizenDynamic, Profession: "Solar Technician", Age: 28, Personality: "upbeat", Approval: 65, RemainingTurns: &turns},
	}
	g.Promises = []*game.Promise{
		{Text: "protect the forest", TurnMade: 1, Status: game.PromiseActive, TargetCitizen: "Karl"},
		{Text: "solar by turn five", TurnMade: 2, Deadline: &deadline, Status: game.PromiseBroken},
	}
	g.Turns = []*game.Turn{
		{Number: 1, SpeechText: "first speech", RemainingActions: 0},
		{Number: 2, SpeechText: "", RemainingActions: 0},
		{Number: 3, RemainingActions: 2},
	}
	return g
}

func TestSaveLoadRoundtrip(t *testing.T) {
	db := openTestDB(t)
	g := sampleGame()

	if err := db.Save(g); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := db.Load(g.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if loaded.CurrentTurn != 3 || loaded.Status != game.StatusRunning {
		t.Errorf("turn/status = %d/%s", loaded.CurrentTurn, loaded.Status)
	}
	if loaded.Resources != g.Resources {
		t.Errorf("resources = %+v, want %+v", loaded.Resources, g.Resources)
	}
	if len(loaded.Tiles) != 2 || loaded.Tiles[0].RoundsInState != 1 {
		t.Errorf("tiles not restored: %+v", loaded.Tiles)
	}
	if len(loaded.Citizens) != 2 {
		t.Fatalf("citizens = %d, want 2", len(loaded.Citizens))
	}
	lena := loaded.CitizenByName("Lena")
	if lena.RemainingTurns == nil || *lena.RemainingTurns != 2 {
		t.Error("dynamic citizen countdown lost")
	}
	if loaded.CitizenByName("Karl").RemainingTurns != nil {
		t.Error("core citizen must load with nil countdown")
	}
	if len(loaded.Promises) != 2 {
		t.Fatalf("promises = %d, want 2", len(loaded.Promises))
	}
	if loaded.Promises[0].TargetCitizen != "Karl" {
		t.Error("promise target lost")
	}
	if loaded.Promises[1].Deadline == nil || *loaded.Promises[1].Deadline != 5 {
		t.Error("promise deadline lost")
	}
	if len(loaded.Turns) != 3 || loaded.Turns[0].SpeechText != "first speech" {
		t.Errorf("turns not restored: %+v", loaded.Turns)
	}
}

func TestSaveReplacesAggregate(t *testing.T) {
	db := openTestDB(t)
	g := sampleGame()
	if err := db.Save(g); err != nil {
		t.Fatalf("Save: %v", err)
	}

	g.Tiles = g.Tiles[:1]
	g.Promises = g.Promises[:1]
	if err := db.Save(g); err != nil {
		t.Fatalf("second Save: %v", err)
	}

	loaded, err := db.Load(g.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded.Tiles) != 1 || len(loaded.Promises) != 1 {
		t.Errorf("stale rows survived replace: %d tiles, %d promises", len(loaded.Tiles), len(loaded.Promises))
	}
}

func TestLoadUnknownGame(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.Load("missing"); !errors.Is(err, game.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDelete(t *testing.T) {
	db := openTestDB(t)
	g := sampleGame()
	if err := db.Save(g); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if err := db.Delete(g.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := db.Load(g.ID); !errors.Is(err, game.ErrNotFound) {
		t.Errorf("load after delete err = %v, want ErrNotFound", err)
	}
	if err := db.Delete(g.ID); !errors.Is(err, game.ErrNotFound) {
		t.Errorf("double delete err = %v, want ErrNotFound", err)
	}
}

func TestGamesAreIsolated(t *testing.T) {
	db := openTestDB(t)
	a := sampleGame()
	b := sampleGame()
	if err := db.Save(a); err != nil {
		t.Fatalf("save a: %v", err)
	}
	if err := db.Save(b); err != nil {
		t.Fatalf("save b: %v", err)
	}

	if err := db.Delete(a.ID); err != nil {
		t.Fatalf("delete a: %v", err)
	}
	loaded, err := db.Load(b.ID)
	if err != nil {
		t.Fatalf("load b after deleting a: %v", err)
	}
	if len(loaded.Tiles) != 2 {
		t.Error("deleting one game clobbered another's rows")
	}
}
