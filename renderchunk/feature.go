package renderchunk

import (
	"errors"
	"fmt"

	"tundra/world"
)

// Feature is one precomputed visual layer of a render chunk.
type Feature uint8

const (
	SolidTiles Feature = iota
	Rivers
	AmbientOcclusion
	WallBorders
	Decorations

	NumFeatures
)

var featureNames = [NumFeatures]string{
	SolidTiles:       "solid tiles",
	Rivers:           "rivers",
	AmbientOcclusion: "ambient occlusion",
	WallBorders:      "wall borders",
	Decorations:      "decorations",
}

func (f Feature) String() string {
	if f < NumFeatures {
		return featureNames[f]
	}
	return fmt.Sprintf("feature(%d)", f)
}

// Stride is the number of float32 values per vertex:
//
//	SolidTiles        x y u v layer temperature humidity
//	Rivers            x y u v flowOffset flowDirection
//	AmbientOcclusion  x y u v mask
//	WallBorders       x y u v side
//	Decorations       x y u v slot
func (f Feature) Stride() int {
	switch f {
	case SolidTiles:
		return 7
	case Rivers:
		return 6
	case AmbientOcclusion, WallBorders, Decorations:
		return 5
	default:
		panic(fmt.Sprintf("renderchunk: unknown feature %d", f))
	}
}

var (
	ErrStrideMismatch = errors.New("renderchunk: vertex data does not match stride")
	ErrNoRenderChunk  = errors.New("renderchunk: render chunk out of range")
	ErrMissingTexture = errors.New("renderchunk: texture source not in atlas")
)

// SlotFunc resolves a texture source to its atlas slot.
type SlotFunc func(source string) (int, bool)

// BuildContext is what a builder may read. Rect is already clipped to the
// stored tile range.
type BuildContext struct {
	Board *world.Board
	X, Y  int
	Rect  world.TileRect
	Slot  SlotFunc

	missing func(source string) error
}

// Missing reports a texture source the atlas does not know. It returns a
// non-nil error only when the registry runs in strict mode.
func (c *BuildContext) Missing(source string) error {
	if c.missing == nil {
		return nil
	}
	return c.missing(source)
}

// Builder appends the vertex data of one render chunk to dst. It must be a
// pure function of the context.
type Builder func(ctx *BuildContext, dst []float32) ([]float32, error)

// FeatureSpec binds a feature to its builder. Radius is how far, in tiles,
// the builder looks around each tile; a tile change rebuilds every render
// chunk within Radius of it. A negative Radius means the feature does not
// depend on tiles at all.
type FeatureSpec struct {
	Feature Feature
	Stride  int
	Radius  int
	Build   Builder
}

// DefaultFeatures returns the built in builders for every feature.
func DefaultFeatures() []FeatureSpec {
	return []FeatureSpec{
		{Feature: SolidTiles, Stride: 7, Radius: 0, Build: BuildSolidTiles},
		{Feature: Rivers, Stride: 6, Radius: 0, Build: BuildRivers},
		{Feature: AmbientOcclusion, Stride: 5, Radius: 1, Build: BuildAmbientOcclusion},
		{Feature: WallBorders, Stride: 5, Radius: 1, Build: BuildWallBorders},
		{Feature: Decorations, Stride: 5, Radius: -1, Build: BuildDecorations},
	}
}
