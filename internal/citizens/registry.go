// Package citizens implements the town-hall roster rules: the permanent core
// cast, the spawn templates triggered by tile actions, the solidarity
// adjustments that ripple through the core cast when someone new shows up,
// and the countdown that eventually sends dynamic citizens home.
package citizens

import (
	"log/slog"

	"github.com/mfeldt/ecopolis/internal/game"
)

// MaxCitizens caps the roster. Spawns beyond the cap are silently skipped;
// the town hall only has so many chairs.
const MaxCitizens = 5

// TemplateID names one dynamic-citizen template. Spawn and solidarity rules
// key off template ids rather than display names so the rule set stays
// exhaustively checkable.
type TemplateID string

const (
	TemplateOleg    TemplateID = "oleg"
	TemplateKerstin TemplateID = "kerstin"
	TemplateBernd   TemplateID = "bernd"
	TemplateHenning TemplateID = "henning"
	TemplateLena    TemplateID = "lena"
	TemplateYuki    TemplateID = "yuki"
	TemplatePavel   TemplateID = "pavel"
)

// template is the blueprint for one dynamic citizen.
type template struct {
	Name        string
	Profession  string
	Age         int
	Approval    int
	Personality string
	Turns       int
}

var templates = map[TemplateID]template{
	TemplateOleg: {
		Name: "Oleg", Profession: "Drill Worker", Age: 54, Approval: 15,
		Personality: "Angry, fearful, feels discarded after 20 years of service.",
		Turns:       3,
	},
	TemplateKerstin: {
		Name: "Kerstin", Profession: "Power Plant Worker", Age: 38, Approval: 20,
		Personality: "Desperate single mother, needs an alternative immediately.",
		Turns:       2,
	},
	TemplateBernd: {
		Name: "Bernd", Profession: "Forester", Age: 61, Approval: 25,
		Personality: "Sad, disappointed, lives from the forest.",
		Turns:       2,
	},
	TemplateHenning: {
		Name: "Henning", Profession: "Farmer", Age: 55, Approval: 20,
		Personality: "Bitter, conservative, 3rd generation farmer.",
		Turns:       2,
	},
	TemplateLena: {
		Name: "Lena", Profession: "Solar Technician", Age: 28, Approval: 65,
		Personality: "Optimistic, future-oriented, excited about renewables.",
		Turns:       2,
	},
	TemplateYuki: {
		Name: "Dr. Yuki", Profession: "PhD Student", Age: 29, Approval: 70,
		Personality: "Enthusiastic, idealistic, researches fusion energy.",
		Turns:       2,
	},
	TemplatePavel: {
		Name: "Pavel", Profession: "Fusion Engineer", Age: 45, Approval: 60,
		Personality: "Proud, rational progress-optimist.",
		Turns:       3,
	},
}

// displacement maps a destroyed tile type to the citizen it puts out of
// work. Used by demolish and by the first half of replace_with_solar.
var displacement = map[game.TileType]TemplateID{
	game.OilRefinery:   TemplateOleg,
	game.CoalPlant:     TemplateKerstin,
	game.HealthyForest: TemplateBernd,
}

// builderSpawns maps constructive actions to the citizen the new building
// brings to town.
var builderSpawns = map[game.ActionType]TemplateID{
	game.BuildSolar:          TemplateLena,
	game.BuildResearchCenter: TemplateYuki,
	game.BuildFusion:         TemplatePavel,
}

// solidarityDelta is one approval adjustment to a named core citizen.
type solidarityDelta struct {
	CoreName string
	Delta    int
}

// solidarity maps each template to the approval ripples its arrival causes
// in the core cast. Worker arrivals upset Karl and hand Sarah ammunition;
// Bernd's arrival embarrasses Mia; the optimistic arrivals lift both Mia
// and Karl.
var solidarity = map[TemplateID][]solidarityDelta{
	TemplateOleg:    {{"Karl", -5}, {"Sarah", +3}},
	TemplateKerstin: {{"Karl", -5}, {"Sarah", +3}},
	TemplateHenning: {{"Karl", -5}, {"Sarah", +3}},
	TemplateBernd:   {{"Mia", -3}},
	TemplateLena:    {{"Mia", +3}, {"Karl", +2}},
	TemplateYuki:    {{"Mia", +3}, {"Karl", +2}},
	TemplatePavel:   {{"Mia", +3}, {"Karl", +2}},
}

// SpawnTemplates resolves which templates a (previous tile type, action)
// pair triggers, in spawn order. replace_with_solar triggers both the
// displacement citizen for the destroyed building and the solar technician.
func SpawnTemplates(previous game.TileType, action game.ActionType) []TemplateID {
	switch action {
	case game.ReplaceWithSolar:
		var ids []TemplateID
		if id, ok := displacement[previous]; ok {
			ids = append(ids, id)
		}
		return append(ids, TemplateLena)
	case game.Demolish:
		if id, ok := displacement[previous]; ok {
			return []TemplateID{id}
		}
	case game.ClearFarmland:
		if previous == game.Farmland {
			return []TemplateID{TemplateHenning}
		}
	default:
		if id, ok := builderSpawns[action]; ok {
			return []TemplateID{id}
		}
	}
	return nil
}

// Spawn instantiates and registers the citizens a tile action triggers,
// applying solidarity effects for each. Every template is capacity-checked
// independently; a full roster skips the spawn without error.
func Spawn(g *game.Game, previous game.TileType, action game.ActionType) []*game.Citizen {
	var spawned []*game.Citizen
	for _, id := range SpawnTemplates(previous, action) {
		if len(g.Citizens) >= MaxCitizens {
			slog.Info("skipping citizen spawn, roster full", "template", id, "game", g.ID)
			continue
		}
		c := build(id)
		g.Citizens = append(g.Citizens, c)
		spawned = append(spawned, c)
		applySolidarity(g, id)
		slog.Info("spawned citizen", "name", c.Name, "action", action, "previous_tile", previous, "game", g.ID)
	}
	return spawned
}

func build(id TemplateID) *game.Citizen {
	t := templates[id]
	turns := t.Turns
	return &game.Citizen{
		Name:           t.Name,
		Kind:           game.CitizenDynamic,
		Profession:     t.Profession,
		Age:            t.Age,
		Personality:    t.Personality,
		Approval:       t.Approval,
		RemainingTurns: &turns,
	}
}

// applySolidarity adjusts core citizen approvals for one spawn, each delta
// clamped independently.
func applySolidarity(g *game.Game, id TemplateID) {
	for _, d := range solidarity[id] {
		core := g.CitizenByName(d.CoreName)
		if core == nil {
			continue
		}
		core.AdjustApproval(d.Delta)
		slog.Debug("solidarity adjustment", "citizen", d.CoreName, "delta", d.Delta, "approval", core.Approval)
	}
}

// TickLifecycle advances every dynamic citizen's countdown and removes the
// expired ones from the roster entirely.
func TickLifecycle(g *game.Game) {
	kept := g.Citizens[:0]
	for _, c := range g.Citizens {
		if c.Kind != game.CitizenDynamic || c.RemainingTurns == nil {
			kept = append(kept, c)
			continue
		}
		*c.RemainingTurns--
		if *c.RemainingTurns <= 0 {
			slog.Info("dynamic citizen left town", "name", c.Name, "game", g.ID)
			continue
		}
		kept = append(kept, c)
	}
	g.Citizens = kept
}

// CoreRoster returns the three permanent citizens every new game starts
// with.
func CoreRoster() []*game.Citizen {
	return []*game.Citizen{
		{
			Name: "Karl", Kind: game.CitizenCore, Profession: "Factory Worker", Age: 48,
			Personality: "Conservative, family-oriented, skeptical of change. Values: jobs, stability, providing for his family.",
			Approval:    60,
		},
		{
			Name: "Mia", Kind: game.CitizenCore, Profession: "Climate Activist", Age: 24,
			Personality: "Idealistic, impatient, passionate. Values: immediate climate action, biodiversity, generational justice.",
			Approval:    35,
		},
		{
			Name: "Sarah", Kind: game.CitizenCore, Profession: "Opposition Politician", Age: 42,
			Personality: "Strategic, opportunistic, sharp-tongued. Exploits the mayor's weaknesses, quotes verbatim, instrumentalizes suffering.",
			Approval:    25,
		},
	}
}
