package shader

import (
	"fmt"

	"voxel-assets/internal/gpu"
)

// Material is the tile material class a shader is built for.
type Material uint8

const (
	MaterialBasic Material = iota
	MaterialAlpha
	MaterialLiquidTransparent
	MaterialLiquidOpaque
	MaterialWavingLeaves
	MaterialWavingPlants
	MaterialOpaque
	MaterialWavingLiquidBasic
	MaterialWavingLiquidTransparent
	MaterialWavingLiquidOpaque
	MaterialPlain
	MaterialPlainAlpha
	materialCount
)

var materialDefines = [materialCount]string{
	"TILE_MATERIAL_BASIC",
	"TILE_MATERIAL_ALPHA",
	"TILE_MATERIAL_LIQUID_TRANSPARENT",
	"TILE_MATERIAL_LIQUID_OPAQUE",
	"TILE_MATERIAL_WAVING_LEAVES",
	"TILE_MATERIAL_WAVING_PLANTS",
	"TILE_MATERIAL_OPAQUE",
	"TILE_MATERIAL_WAVING_LIQUID_BASIC",
	"TILE_MATERIAL_WAVING_LIQUID_TRANSPARENT",
	"TILE_MATERIAL_WAVING_LIQUID_OPAQUE",
	"TILE_MATERIAL_PLAIN",
	"TILE_MATERIAL_PLAIN_ALPHA",
}

// Define returns the preprocessor name of m.
func (m Material) Define() string {
	if m < materialCount {
		return materialDefines[m]
	}
	return fmt.Sprintf("TILE_MATERIAL_%d", m)
}

func (m Material) String() string { return m.Define() }

// BaseMaterial maps a material class to the blend mode it renders with.
func (m Material) BaseMaterial() gpu.BaseMaterial {
	switch m {
	case MaterialAlpha, MaterialPlainAlpha, MaterialLiquidTransparent, MaterialWavingLiquidTransparent:
		return gpu.AlphaChannel
	case MaterialBasic, MaterialPlain, MaterialWavingLeaves, MaterialWavingPlants, MaterialWavingLiquidBasic:
		return gpu.AlphaRef
	default:
		return gpu.Solid
	}
}

// Draw is the node draw type a shader is built for.
type Draw uint8

const (
	DrawNormal Draw = iota
	DrawAirlike
	DrawLiquid
	DrawFlowingLiquid
	DrawGlasslike
	DrawAllFaces
	DrawAllFacesOptional
	DrawTorchlike
	DrawSignlike
	DrawPlantlike
	DrawFencelike
	DrawRaillike
	DrawNodebox
	DrawGlasslikeFramed
	DrawFirelike
	DrawGlasslikeFramedOptional
	DrawMesh
	DrawPlantlikeRooted
	drawCount
)

var drawDefines = [drawCount]string{
	"NDT_NORMAL",
	"NDT_AIRLIKE",
	"NDT_LIQUID",
	"NDT_FLOWINGLIQUID",
	"NDT_GLASSLIKE",
	"NDT_ALLFACES",
	"NDT_ALLFACES_OPTIONAL",
	"NDT_TORCHLIKE",
	"NDT_SIGNLIKE",
	"NDT_PLANTLIKE",
	"NDT_FENCELIKE",
	"NDT_RAILLIKE",
	"NDT_NODEBOX",
	"NDT_GLASSLIKE_FRAMED",
	"NDT_FIRELIKE",
	"NDT_GLASSLIKE_FRAMED_OPTIONAL",
	"NDT_MESH",
	"NDT_PLANTLIKE_ROOTED",
}

// Define returns the preprocessor name of d.
func (d Draw) Define() string {
	if d < drawCount {
		return drawDefines[d]
	}
	return fmt.Sprintf("NDT_%d", d)
}

func (d Draw) String() string { return d.Define() }

// ParseMaterial accepts a TILE_MATERIAL_* name, with or without the prefix,
// in any case.
func ParseMaterial(s string) (Material, error) {
	for i, name := range materialDefines {
		if matchDefine(s, name, "TILE_MATERIAL_") {
			return Material(i), nil
		}
	}
	return 0, fmt.Errorf("shader: unknown material %q", s)
}

// ParseDraw accepts an NDT_* name, with or without the prefix, in any case.
func ParseDraw(s string) (Draw, error) {
	for i, name := range drawDefines {
		if matchDefine(s, name, "NDT_") {
			return Draw(i), nil
		}
	}
	return 0, fmt.Errorf("shader: unknown draw type %q", s)
}
