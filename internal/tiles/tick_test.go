package tiles

import (
	"testing"

	"github.com/mfeldt/ecopolis/internal/game"
)

func gameWithTiles(tiles ...*game.Tile) *game.Game {
	g := game.New()
	g.Tiles = tiles
	return g
}

func TestPollutionDegradesOneStepAndHolds(t *testing.T) {
	factory := &game.Tile{X: 0, Y: 0, Type: game.Factory}
	forest := &game.Tile{X: 1, Y: 0, Type: game.HealthyForest}
	g := gameWithTiles(factory, forest)

	Tick(g)
	if forest.Type != game.SickForest {
		t.Fatalf("after tick 1: %s, want sick_forest", forest.Type)
	}

	// Further ticks re-degrade the sick forest to sick (no further step from
	// pollution alone) and advance its death counter instead.
	Tick(g)
	if forest.Type != game.SickForest {
		t.Fatalf("after tick 2: %s, want sick_forest still", forest.Type)
	}
}

func TestPollutionRespectsRange(t *testing.T) {
	factory := &game.Tile{X: 0, Y: 0, Type: game.Factory}
	near := &game.Tile{X: 1, Y: 0, Type: game.CleanRiver}
	far := &game.Tile{X: 2, Y: 0, Type: game.CleanRiver}
	g := gameWithTiles(factory, near, far)

	Tick(g)
	if near.Type != game.PollutedRiver {
		t.Errorf("adjacent river = %s, want polluted_river", near.Type)
	}
	if far.Type != game.CleanRiver {
		t.Errorf("river at distance 2 = %s, want clean_river (factory range is 1)", far.Type)
	}
}

func TestCoalPlantReachesDistanceTwo(t *testing.T) {
	coal := &game.Tile{X: 0, Y: 0, Type: game.CoalPlant}
	farm := &game.Tile{X: 1, Y: 1, Type: game.Farmland}
	g := gameWithTiles(coal, farm)

	Tick(g)
	if farm.Type != game.DeadFarmland {
		t.Errorf("farmland at distance 2 = %s, want dead_farmland", farm.Type)
	}
}

func TestSickForestDiesAfterTwoRounds(t *testing.T) {
	forest := &game.Tile{X: 5, Y: 5, Type: game.SickForest}
	g := gameWithTiles(forest)

	Tick(g) // counter 0 -> 1
	Tick(g) // counter 1 -> 2
	if forest.Type != game.SickForest {
		t.Fatalf("forest died too early: %s", forest.Type)
	}
	Tick(g) // counter >= 2 -> wasteland
	if forest.Type != game.Wasteland {
		t.Errorf("forest = %s, want wasteland after 2 full rounds", forest.Type)
	}
}

func TestRiverRegeneratesAfterTwoCleanTicks(t *testing.T) {
	river := &game.Tile{X: 5, Y: 5, Type: game.PollutedRiver}
	g := gameWithTiles(river)

	Tick(g)
	if river.Type != game.PollutedRiver {
		t.Fatalf("river recovered too early")
	}
	Tick(g)
	if river.Type != game.CleanRiver {
		t.Errorf("river = %s, want clean_river after 2 clean ticks", river.Type)
	}
}

func TestRiverRecoveryResetsWhileSourceInRange(t *testing.T) {
	coal := &game.Tile{X: 0, Y: 0, Type: game.CoalPlant}
	river := &game.Tile{X: 1, Y: 0, Type: game.PollutedRiver}
	g := gameWithTiles(coal, river)

	for i := 0; i < 5; i++ {
		Tick(g)
	}
	if river.Type != game.PollutedRiver {
		t.Errorf("river = %s, want polluted while coal plant stands", river.Type)
	}
	if river.RoundsInState != 0 {
		t.Errorf("recovery counter = %d, want 0 while source in range", river.RoundsInState)
	}

	// Demolish the plant: two clean ticks later the river recovers.
	coal.SetType(game.Wasteland)
	Tick(g)
	Tick(g)
	if river.Type != game.CleanRiver {
		t.Errorf("river = %s, want clean_river after source removed", river.Type)
	}
}

func TestRecomputeSumsContributions(t *testing.T) {
	g := gameWithTiles(
		&game.Tile{X: 0, Y: 0, Type: game.SolarField},     // eco +2, econ +3
		&game.Tile{X: 1, Y: 0, Type: game.ResearchCenter}, // econ -2, research +5
		&game.Tile{X: 2, Y: 0, Type: game.CityInner},      // econ +2
		&game.Tile{X: 3, Y: 0, Type: game.Wasteland},      // nothing
	)
	g.Resources = game.Resources{Ecology: 99, Economy: 99, Research: 99}

	Recompute(g)
	want := game.Resources{Ecology: 2, Economy: 3, Research: 5}
	if g.Resources != want {
		t.Errorf("resources = %+v, want %+v", g.Resources, want)
	}
}

func TestRecomputeClampsNegativeSums(t *testing.T) {
	g := gameWithTiles(
		&game.Tile{X: 0, Y: 0, Type: game.OilRefinery}, // eco -5
		&game.Tile{X: 1, Y: 5, Type: game.CoalPlant},   // eco -4
	)
	Recompute(g)
	if g.Resources.Ecology != 0 {
		t.Errorf("ecology = %d, want clamped to 0", g.Resources.Ecology)
	}
}
