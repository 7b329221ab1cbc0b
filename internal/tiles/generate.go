package tiles

import (
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/mfeldt/ecopolis/internal/game"
)

// GenConfig holds the parameters for a procedurally generated starting grid.
type GenConfig struct {
	Width  int
	Height int
	Seed   int64 // 0 = random
}

// DefaultGenConfig matches the embedded map's dimensions.
func DefaultGenConfig() GenConfig {
	return GenConfig{Width: 8, Height: 8}
}

// GenerateMap builds a random but playable starting grid from layered
// simplex noise: low elevation carves the river, high growth becomes forest,
// moist mid-ground becomes farmland, the rest starts as wasteland. The town
// core and the three fossil buildings are then stamped deterministically so
// every generated game opens with the same strategic tension as the fixed
// map.
func GenerateMap(cfg GenConfig) []*game.Tile {
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}

	elevNoise := opensimplex.NewNormalized(seed)
	growthNoise := opensimplex.NewNormalized(seed + 1)

	tiles := make([]*game.Tile, 0, cfg.Width*cfg.Height)
	for y := 0; y < cfg.Height; y++ {
		for x := 0; x < cfg.Width; x++ {
			elev := octaveNoise(elevNoise, float64(x), float64(y), 3, 0.35, 0.5)
			growth := octaveNoise(growthNoise, float64(x), float64(y), 2, 0.30, 0.5)

			var tt game.TileType
			switch {
			case elev < 0.30:
				tt = game.CleanRiver
			case growth > 0.60:
				tt = game.HealthyForest
			case growth > 0.45:
				tt = game.Farmland
			default:
				tt = game.Wasteland
			}
			tiles = append(tiles, &game.Tile{X: x, Y: y, Type: tt})
		}
	}

	grid := func(x, y int) *game.Tile {
		if x < 0 || y < 0 || x >= cfg.Width || y >= cfg.Height {
			return nil
		}
		return tiles[y*cfg.Width+x]
	}

	// Town core: a 2x2 inner city ringed by outer city.
	cx, cy := cfg.Width/2-1, cfg.Height/2-1
	for dy := 0; dy < 2; dy++ {
		for dx := 0; dx < 2; dx++ {
			if t := grid(cx+dx, cy+dy); t != nil {
				t.Type = game.CityInner
			}
		}
	}
	for dy := -1; dy <= 2; dy++ {
		for dx := -1; dx <= 2; dx++ {
			t := grid(cx+dx, cy+dy)
			if t != nil && t.Type != game.CityInner && t.Type != game.CleanRiver {
				t.Type = game.CityOuter
			}
		}
	}

	// Fossil industry on seeded spots outside the town ring.
	rng := rand.New(rand.NewSource(seed + 2))
	for _, building := range []game.TileType{game.Factory, game.CoalPlant, game.OilRefinery} {
		for attempts := 0; attempts < 100; attempts++ {
			x, y := rng.Intn(cfg.Width), rng.Intn(cfg.Height)
			t := grid(x, y)
			if t == nil {
				continue
			}
			if t.Type == game.Wasteland || t.Type == game.Farmland {
				t.Type = building
				break
			}
		}
	}

	return tiles
}

// octaveNoise layers several noise frequencies for less uniform output.
func octaveNoise(n opensimplex.Noise, x, y float64, octaves int, freq, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxValue := 0.0
	for i := 0; i < octaves; i++ {
		total += n.Eval2(x*freq, y*freq) * amplitude
		maxValue += amplitude
		amplitude *= persistence
		freq *= 2
	}
	return total / maxValue
}
