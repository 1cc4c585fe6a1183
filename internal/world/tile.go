// Package world provides the floor-plan grid, tile classification and storey geometry.
// Every per-cell field in the simulation is indexed by the Coord defined here.
package world

import "fmt"

// Tile is the static classification of one floor-plan cell.
type Tile uint8

const (
	TileFloor     Tile = iota // Walkable; agents spawn here
	TileWall                  // Blocks movement and smoke
	TileStair                 // Walkable landing of a staircase
	TileElevator              // Walkable, not used for evacuation
	TileDoor                  // Walkable
	TileExit                  // Egress point; blocks smoke
	TileAlarm                 // Walkable fixture
	TileHydrant               // Walkable fixture
	TileDetector              // Walkable fixture
	TileFurniture             // Flammable, blocks movement
	TileStone                 // Outdoor paving, only walkable after evacuation
	TileSavePlace             // Assembly point outside the building
)

// NumTiles is the number of tile kinds.
const NumTiles = 12

var tileNames = [NumTiles]string{
	"Floor", "Wall", "Stair", "Elevator", "Door", "Exit",
	"Alarm", "Hydrant", "Detector", "Furniture", "Stone", "SavePlace",
}

// TileNames returns the textual tile names in enum order.
func TileNames() []string {
	out := make([]string, NumTiles)
	copy(out, tileNames[:])
	return out
}

// String returns the tile name used by floor-plan documents.
func (t Tile) String() string {
	if int(t) < NumTiles {
		return tileNames[t]
	}
	return fmt.Sprintf("Tile(%d)", uint8(t))
}

// ParseTile converts a tile name back to a Tile.
func ParseTile(name string) (Tile, error) {
	for i, n := range tileNames {
		if n == name {
			return Tile(i), nil
		}
	}
	return 0, fmt.Errorf("unknown tile %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (t Tile) MarshalText() ([]byte, error) {
	if int(t) >= NumTiles {
		return nil, fmt.Errorf("unknown tile %d", uint8(t))
	}
	return []byte(tileNames[t]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Tile) UnmarshalText(b []byte) error {
	v, err := ParseTile(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// asciiTiles maps the single-character shorthand used by ParseASCII.
var asciiTiles = map[rune]Tile{
	'.': TileFloor,
	'#': TileWall,
	'S': TileStair,
	'L': TileElevator,
	'D': TileDoor,
	'E': TileExit,
	'A': TileAlarm,
	'H': TileHydrant,
	'T': TileDetector,
	'F': TileFurniture,
	'o': TileStone,
	'P': TileSavePlace,
}

// Rune returns the ASCII shorthand for the tile.
func (t Tile) Rune() rune {
	for r, v := range asciiTiles {
		if v == t {
			return r
		}
	}
	return '?'
}
