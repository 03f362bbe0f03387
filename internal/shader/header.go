package shader

import (
	"fmt"
	"strings"
)

func matchDefine(s, define, prefix string) bool {
	s = strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_"))
	return s == define || prefix+s == define
}

// Header returns the #define block prepended to every stage of a shader
// built for material and draw. It carries no #version line; the backend
// adds one.
func Header(opts Options, material Material, draw Draw) string {
	var b strings.Builder
	for i, name := range drawDefines {
		fmt.Fprintf(&b, "#define %s %d\n", name, i)
	}
	for i, name := range materialDefines {
		fmt.Fprintf(&b, "#define %s %d\n", name, i)
	}
	fmt.Fprintf(&b, "#define MATERIAL_TYPE %d\n", material)
	fmt.Fprintf(&b, "#define DRAW_TYPE %d\n", draw)

	if opts.WavingWater {
		b.WriteString("#define ENABLE_WAVING_WATER 1\n")
		fmt.Fprintf(&b, "#define WATER_WAVE_HEIGHT %f\n", opts.WaterWaveHeight)
		fmt.Fprintf(&b, "#define WATER_WAVE_LENGTH %f\n", opts.WaterWaveLength)
		fmt.Fprintf(&b, "#define WATER_WAVE_SPEED %f\n", opts.WaterWaveSpeed)
	} else {
		b.WriteString("#define ENABLE_WAVING_WATER 0\n")
	}
	fmt.Fprintf(&b, "#define ENABLE_WAVING_LEAVES %d\n", btoi(opts.WavingLeaves))
	fmt.Fprintf(&b, "#define ENABLE_WAVING_PLANTS %d\n", btoi(opts.WavingPlants))
	if opts.ToneMapping {
		b.WriteString("#define ENABLE_TONE_MAPPING\n")
	}
	fmt.Fprintf(&b, "#define FOG_START %f\n", opts.FogStart)
	return b.String()
}

func btoi(v bool) int {
	if v {
		return 1
	}
	return 0
}

// numbered prefixes every line of src with its line number, for logs.
func numbered(src string) string {
	var b strings.Builder
	for i, line := range strings.Split(src, "\n") {
		fmt.Fprintf(&b, "%4d: %s\n", i+1, line)
	}
	return b.String()
}
