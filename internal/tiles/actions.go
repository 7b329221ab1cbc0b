// Package tiles implements the grid rules: which actions a tile offers,
// what an action does to the grid and the resource meters, and the passive
// end-of-turn tick (pollution spread, degradation, regeneration) with the
// full resource recompute that follows it.
package tiles

import (
	"github.com/mfeldt/ecopolis/internal/game"
)

// actionRule gates one catalog entry behind a research threshold.
// MinResearch 0 means always available for the tile type.
type actionRule struct {
	Action      game.ActionType
	MinResearch int
}

// actionCatalog lists the actions each tile type offers. Availability is a
// pure function of (tile type, research meter); tiles absent from the table
// offer no actions at all.
var actionCatalog = map[game.TileType][]actionRule{
	game.HealthyForest: {
		{Action: game.Demolish},
		{Action: game.BuildResearchCenter},
	},
	game.SickForest: {
		{Action: game.Demolish},
		{Action: game.BuildResearchCenter},
	},
	game.Factory: {
		{Action: game.Demolish},
		{Action: game.UpgradeCarbonCapture, MinResearch: 35},
		{Action: game.ReplaceWithSolar, MinResearch: 40},
	},
	game.OilRefinery: {
		{Action: game.Demolish},
		{Action: game.ReplaceWithSolar, MinResearch: 40},
	},
	game.CoalPlant: {
		{Action: game.Demolish},
		{Action: game.ReplaceWithSolar, MinResearch: 40},
	},
	game.Wasteland: {
		{Action: game.PlantForest},
		{Action: game.BuildFactory},
		{Action: game.BuildSolar, MinResearch: 40},
		{Action: game.BuildResearchCenter},
		{Action: game.BuildFusion, MinResearch: 80},
	},
	game.Farmland: {
		{Action: game.ClearFarmland},
	},
}

// Effect is the outcome of one (tile type, action) pair: the replacement
// tile type and the immediate deltas added to the live meters.
type Effect struct {
	To       game.TileType
	Ecology  int
	Economy  int
	Research int
}

type effectKey struct {
	From   game.TileType
	Action game.ActionType
}

// effects is the fixed delta table keyed by (old type, action). Deltas are
// applied directly to the meters and clamped; only the end-of-turn tick
// recomputes the meters from the grid.
var effects = map[effectKey]Effect{
	{game.HealthyForest, game.Demolish}:            {To: game.Wasteland, Economy: 1, Ecology: -3},
	{game.HealthyForest, game.BuildResearchCenter}: {To: game.ResearchCenter, Economy: -2, Research: 5, Ecology: -2},
	{game.SickForest, game.Demolish}:               {To: game.Wasteland, Economy: 1, Ecology: -3},
	{game.SickForest, game.BuildResearchCenter}:    {To: game.ResearchCenter, Economy: -2, Research: 5, Ecology: -2},

	{game.Factory, game.Demolish}:             {To: game.Wasteland, Economy: -4, Ecology: 2},
	{game.Factory, game.UpgradeCarbonCapture}: {To: game.CleanFactory, Economy: -1, Ecology: 3},
	{game.Factory, game.ReplaceWithSolar}:     {To: game.SolarField, Economy: -1, Ecology: 4},

	{game.OilRefinery, game.Demolish}:         {To: game.Wasteland, Economy: -5, Ecology: 4},
	{game.OilRefinery, game.ReplaceWithSolar}: {To: game.SolarField, Economy: -2, Ecology: 5},

	{game.CoalPlant, game.Demolish}:         {To: game.Wasteland, Economy: -4, Ecology: 3},
	{game.CoalPlant, game.ReplaceWithSolar}: {To: game.SolarField, Economy: -1, Ecology: 4},

	{game.Wasteland, game.PlantForest}:         {To: game.HealthyForest, Ecology: 2},
	{game.Wasteland, game.BuildFactory}:        {To: game.Factory, Economy: 4, Ecology: -3},
	{game.Wasteland, game.BuildSolar}:          {To: game.SolarField, Economy: 3, Ecology: 2},
	{game.Wasteland, game.BuildResearchCenter}: {To: game.ResearchCenter, Economy: -2, Research: 5},
	{game.Wasteland, game.BuildFusion}:         {To: game.FusionReactor, Economy: 8, Ecology: 3},

	{game.Farmland, game.ClearFarmland}: {To: game.Wasteland},
}

// AvailableActions returns the actions the tile offers at the given research
// level, in catalog order. The slice is empty for tiles with no actions.
func AvailableActions(t *game.Tile, research int) []game.ActionType {
	rules := actionCatalog[t.Type]
	actions := make([]game.ActionType, 0, len(rules))
	for _, r := range rules {
		if research >= r.MinResearch {
			actions = append(actions, r.Action)
		}
	}
	return actions
}

// Apply executes an action on a tile: validates availability against the
// game's research meter, swaps the tile type (resetting its state counter),
// and adds the effect deltas to the live resource meters with clamping.
// Returns ErrInvalidAction when the action is not in the available set.
func Apply(g *game.Game, t *game.Tile, action game.ActionType) error {
	available := false
	for _, a := range AvailableActions(t, g.Resources.Research) {
		if a == action {
			available = true
			break
		}
	}
	if !available {
		return game.ErrInvalidAction
	}

	eff, ok := effects[effectKey{From: t.Type, Action: action}]
	if !ok {
		return game.ErrInvalidAction
	}

	t.SetType(eff.To)
	g.Resources.Ecology += eff.Ecology
	g.Resources.Economy += eff.Economy
	g.Resources.Research += eff.Research
	g.Resources.Clamp()
	return nil
}
