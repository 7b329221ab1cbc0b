package tiles

import "github.com/mfeldt/ecopolis/internal/game"

// contribution is one tile type's share of the recomputed meters.
type contribution struct {
	Ecology  int
	Economy  int
	Research int
}

// contributions is the ground-truth table the end-of-turn recompute sums
// over the grid. Types absent from the table contribute nothing.
var contributions = map[game.TileType]contribution{
	game.HealthyForest:  {Ecology: 2},
	game.SickForest:     {Ecology: 1},
	game.CleanRiver:     {Ecology: 1},
	game.SolarField:     {Ecology: 2, Economy: 3},
	game.FusionReactor:  {Ecology: 3, Economy: 8},
	game.CleanFactory:   {Ecology: 1, Economy: 2},
	game.Factory:        {Ecology: -3, Economy: 3},
	game.OilRefinery:    {Ecology: -5, Economy: 5},
	game.CoalPlant:      {Ecology: -4, Economy: 4},
	game.PollutedRiver:  {Ecology: -1},
	game.DeadFarmland:   {Ecology: -1},
	game.Farmland:       {Economy: 1},
	game.ResearchCenter: {Economy: -2, Research: 5},
	game.CityInner:      {Economy: 2},
	game.CityOuter:      {Economy: 1},
}

// Recompute derives the resource meters from the grid alone, replacing
// whatever the action deltas accumulated during the turn. This is the only
// point where the meters are tied back to ground truth.
func Recompute(g *game.Game) {
	var eco, econ, res int
	for _, t := range g.Tiles {
		c := contributions[t.Type]
		eco += c.Ecology
		econ += c.Economy
		res += c.Research
	}
	g.Resources.Ecology = game.ClampMeter(eco)
	g.Resources.Economy = game.ClampMeter(econ)
	g.Resources.Research = game.ClampMeter(res)
}
