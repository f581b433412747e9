package world

import "math"

const (
	// TileSize is the edge length of a tile in world pixels.
	TileSize = 64
	// ChunkSize is the edge length of a simulation chunk in tiles.
	ChunkSize = 8
	// ChunkPixels is the edge length of a simulation chunk in world pixels.
	ChunkPixels = ChunkSize * TileSize
)

type TileType uint8

const (
	Grass TileType = iota
	Dirt
	Water
	Rock
	Sand
	Snow
	Ice
	Sludge
	Magma
	numTileTypes
)

var tileTypeNames = [numTileTypes]string{
	"grass", "dirt", "water", "rock", "sand", "snow", "ice", "sludge", "magma",
}

func (t TileType) String() string {
	if t >= numTileTypes {
		return "unknown"
	}
	return tileTypeNames[t]
}

func (t TileType) Valid() bool { return t < numTileTypes }

// NumTileTypes is the number of defined tile types.
const NumTileTypes = int(numTileTypes)

type Biome uint8

const (
	Grasslands Biome = iota
	Desert
	Tundra
	Swamp
	Mountains
	River
	numBiomes
)

var biomeNames = [numBiomes]string{
	"grasslands", "desert", "tundra", "swamp", "mountains", "river",
}

func (b Biome) String() string {
	if b >= numBiomes {
		return "unknown"
	}
	return biomeNames[b]
}

// Tile is one grid cell. Tiles are owned by the Board and addressed by
// coordinate; nothing outside the board keeps a pointer to one.
type Tile struct {
	X, Y   int
	Type   TileType
	IsWall bool
	Biome  Biome
	// FlowOffset is the river animation phase, FlowDirection the flow angle
	// in radians. Both only matter for water tiles.
	FlowOffset    float32
	FlowDirection float32
	Temperature   float32
	Humidity      float32
}

// PixelBounds returns the world pixel rectangle of the tile.
func (t Tile) PixelBounds() Rect { return TilePixelRect(t.X, t.Y) }

// TilePixelRect returns the world pixel rectangle of the tile at (x, y).
func TilePixelRect(x, y int) Rect {
	return Rect{
		MinX: float64(x * TileSize),
		MinY: float64(y * TileSize),
		MaxX: float64((x + 1) * TileSize),
		MaxY: float64((y + 1) * TileSize),
	}
}

// TileOf returns the tile coordinates containing the world pixel p.
func TileOf(p Point) (int, int) {
	return int(math.Floor(p.X / TileSize)), int(math.Floor(p.Y / TileSize))
}
