// Package tile describes renderer-facing tiles: the serialized tile
// definition and the binder that turns one into texture, shader and
// animation ids.
package tile

import (
	"fmt"
	"image/color"
)

// AnimationType selects how a tile image holds its frames.
type AnimationType uint8

const (
	AnimationNone AnimationType = iota
	// AnimationVerticalFrames stacks frames top to bottom.
	AnimationVerticalFrames
	// AnimationSheet lays frames out on a grid, row by row.
	AnimationSheet
)

// Animation parameters of a tile.
type Animation struct {
	Type AnimationType
	// Vertical frames: the aspect ratio of one frame and the length of the
	// whole cycle in seconds.
	AspectW, AspectH uint16
	Length           float32
	// Sheet: grid size and the length of one frame in seconds.
	FramesW, FramesH uint8
	FrameLength      float32
}

// AlignStyle is the texture alignment mode of a tile.
type AlignStyle uint8

const (
	AlignNode AlignStyle = iota
	AlignWorld
	AlignUserDefined
	AlignForcedInNodebox
)

func (a AlignStyle) String() string {
	switch a {
	case AlignNode:
		return "node"
	case AlignWorld:
		return "world"
	case AlignUserDefined:
		return "user"
	case AlignForcedInNodebox:
		return "forced_in_nodebox"
	}
	return fmt.Sprintf("align(%d)", uint8(a))
}

// Spec is one tile definition.
type Spec struct {
	// Name is a texture expression.
	Name      string
	Animation Animation

	BackfaceCulling    bool
	TileableHorizontal bool
	TileableVertical   bool

	// Color is a fixed RGB tint, used when HasColor is set.
	HasColor bool
	Color    color.NRGBA
	// Scale is the world-aligned texture scale in nodes; 0 means unset.
	Scale      uint8
	AlignStyle AlignStyle

	// Palette names the palette image param2 indexes into. It belongs to
	// the node, not the tile, and is not serialized.
	Palette string
}
