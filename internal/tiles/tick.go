package tiles

import (
	"log/slog"

	"github.com/mfeldt/ecopolis/internal/game"
)

// pollutionRange gives the Manhattan-distance reach of each polluting
// building type. Types absent from the table do not pollute.
var pollutionRange = map[game.TileType]int{
	game.Factory:     1,
	game.OilRefinery: 2,
	game.CoalPlant:   2,
}

// degraded maps a tile type to its polluted successor. Types absent from
// the table are immune to pollution spread.
var degraded = map[game.TileType]game.TileType{
	game.CleanRiver:    game.PollutedRiver,
	game.HealthyForest: game.SickForest,
	game.Farmland:      game.DeadFarmland,
}

// Tick applies one end-of-turn pass over the whole grid. Phase order
// matters: spread before degradation before regeneration, otherwise fresh
// pollution and healing would interact within the same tick. The resource
// meters are recomputed from the grid afterwards.
func Tick(g *game.Game) {
	spreadPollution(g.Tiles)
	degradeSickForests(g.Tiles)
	regenerateRivers(g.Tiles)
	Recompute(g)
}

// spreadPollution degrades every susceptible tile within range of a
// polluting building. A degraded tile has its state counter reset so the
// degradation timer starts fresh.
func spreadPollution(tiles []*game.Tile) {
	for _, source := range tiles {
		r := pollutionRange[source.Type]
		if r == 0 {
			continue
		}
		for _, target := range tiles {
			if target == source {
				continue
			}
			d := game.ManhattanDistance(source, target)
			if d == 0 || d > r {
				continue
			}
			next, ok := degraded[target.Type]
			if !ok {
				continue
			}
			slog.Debug("pollution spread",
				"x", target.X, "y", target.Y,
				"from", target.Type, "to", next,
				"source_x", source.X, "source_y", source.Y, "source", source.Type,
			)
			target.SetType(next)
		}
	}
}

// degradeSickForests collapses a sick forest into wasteland once it has sat
// in that state for 2 ticks; otherwise the timer advances.
func degradeSickForests(tiles []*game.Tile) {
	for _, t := range tiles {
		if t.Type != game.SickForest {
			continue
		}
		if t.RoundsInState >= 2 {
			slog.Debug("forest died", "x", t.X, "y", t.Y, "rounds", t.RoundsInState)
			t.SetType(game.Wasteland)
		} else {
			t.RoundsInState++
		}
	}
}

// regenerateRivers recovers polluted rivers with no active source in threat
// range: 2 consecutive clean ticks revert the tile. A source in range resets
// the recovery timer, so no progress accrues while actively polluted.
func regenerateRivers(tiles []*game.Tile) {
	for _, t := range tiles {
		if t.Type != game.PollutedRiver {
			continue
		}
		if hasPollutionSource(tiles, t) {
			t.RoundsInState = 0
			continue
		}
		t.RoundsInState++
		if t.RoundsInState >= 2 {
			slog.Debug("river recovered", "x", t.X, "y", t.Y)
			t.SetType(game.CleanRiver)
		}
	}
}

// hasPollutionSource reports whether any polluting building can reach the
// tile at its type's range.
func hasPollutionSource(tiles []*game.Tile, target *game.Tile) bool {
	for _, t := range tiles {
		r := pollutionRange[t.Type]
		if r == 0 {
			continue
		}
		if game.ManhattanDistance(t, target) <= r {
			return true
		}
	}
	return false
}
