package tiles

import (
	"fmt"
	"strings"

	"github.com/mfeldt/ecopolis/internal/game"
)

// tileRunes is the character legend for map files: one rune per tile type,
// lowercase marking the damaged variant where one exists.
var tileRunes = map[rune]game.TileType{
	'.': game.Wasteland,
	'F': game.HealthyForest,
	'f': game.SickForest,
	'R': game.CleanRiver,
	'r': game.PollutedRiver,
	'A': game.Farmland,
	'a': game.DeadFarmland,
	'I': game.Factory,
	'i': game.CleanFactory,
	'O': game.OilRefinery,
	'C': game.CoalPlant,
	'S': game.SolarField,
	'U': game.FusionReactor,
	'L': game.ResearchCenter,
	'X': game.CityInner,
	'x': game.CityOuter,
}

// defaultMap is the fixed starting town: a river splitting the old town from
// the forest belt, farmland in the north, and the fossil industry scattered
// east of the center.
const defaultMap = `
# ecopolis starting map (8x8)
FFFRAA..
FFFRAA..
FFxR..C.
FxXR....
FxXR.Ix.
FFxR..x.
FFFR.O..
FFFRAA..
`

// ParseMap reads a character-grid map. Blank lines and '#' comment lines are
// skipped; every remaining rune must be in the legend.
func ParseMap(s string) ([]*game.Tile, error) {
	var tiles []*game.Tile
	y := 0
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		for x, r := range line {
			tt, ok := tileRunes[r]
			if !ok {
				return nil, fmt.Errorf("invalid tile %q at (%d,%d)", r, x, y)
			}
			tiles = append(tiles, &game.Tile{X: x, Y: y, Type: tt})
		}
		y++
	}
	if len(tiles) == 0 {
		return nil, fmt.Errorf("map is empty")
	}
	return tiles, nil
}

// DefaultMap returns the embedded starting grid.
func DefaultMap() []*game.Tile {
	tiles, err := ParseMap(defaultMap)
	if err != nil {
		// The embedded map is validated by tests; a parse failure here is a
		// programming error.
		panic(err)
	}
	return tiles
}
