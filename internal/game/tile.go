package game

// TileType enumerates every terrain and building kind on the grid.
type TileType string

const (
	Wasteland      TileType = "wasteland"
	HealthyForest  TileType = "healthy_forest"
	SickForest     TileType = "sick_forest"
	CleanRiver     TileType = "clean_river"
	PollutedRiver  TileType = "polluted_river"
	Farmland       TileType = "farmland"
	DeadFarmland   TileType = "dead_farmland"
	Factory        TileType = "factory"
	CleanFactory   TileType = "clean_factory"
	OilRefinery    TileType = "oil_refinery"
	CoalPlant      TileType = "coal_plant"
	SolarField     TileType = "solar_field"
	FusionReactor  TileType = "fusion_reactor"
	ResearchCenter TileType = "research_center"
	CityInner      TileType = "city_inner"
	CityOuter      TileType = "city_outer"
)

// ActionType enumerates the actions a mayor can take on a tile.
type ActionType string

const (
	Demolish             ActionType = "demolish"
	BuildResearchCenter  ActionType = "build_research_center"
	UpgradeCarbonCapture ActionType = "upgrade_carbon_capture"
	ReplaceWithSolar     ActionType = "replace_with_solar"
	PlantForest          ActionType = "plant_forest"
	BuildFactory         ActionType = "build_factory"
	BuildSolar           ActionType = "build_solar"
	BuildFusion          ActionType = "build_fusion"
	ClearFarmland        ActionType = "clear_farmland"
)

// Tile is one grid cell. RoundsInState counts end-of-turn ticks since the
// tile last changed type; the degradation and regeneration timers run off it.
type Tile struct {
	X             int      `json:"x"`
	Y             int      `json:"y"`
	Type          TileType `json:"type"`
	RoundsInState int      `json:"rounds_in_state"`
}

// SetType changes the tile's type and resets its state counter.
func (t *Tile) SetType(tt TileType) {
	t.Type = tt
	t.RoundsInState = 0
}

// ManhattanDistance between two tiles.
func ManhattanDistance(a, b *Tile) int {
	dx := a.X - b.X
	if dx < 0 {
		dx = -dx
	}
	dy := a.Y - b.Y
	if dy < 0 {
		dy = -dy
	}
	return dx + dy
}
