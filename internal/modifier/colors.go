package modifier

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
)

// ParseColor parses "#RGB", "#RGBA", "#RRGGBB", "#RRGGBBAA" or a CSS colour
// name with an optional "#A" or "#AA" alpha suffix ("red#80").
func ParseColor(s string) (color.NRGBA, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "#") {
		return parseHexColor(s[1:])
	}

	name, alpha, hasAlpha := strings.Cut(s, "#")
	c, ok := colornames.Map[strings.ToLower(name)]
	if !ok {
		return color.NRGBA{}, fmt.Errorf("%w: unknown colour %q", ErrInvalidExpression, s)
	}
	out := color.NRGBA{R: c.R, G: c.G, B: c.B, A: 255}
	if hasAlpha {
		a, err := parseHexChannel(alpha)
		if err != nil || len(alpha) > 2 {
			return color.NRGBA{}, fmt.Errorf("%w: bad alpha in colour %q", ErrInvalidExpression, s)
		}
		out.A = a
	}
	return out, nil
}

func parseHexColor(h string) (color.NRGBA, error) {
	var width int
	switch len(h) {
	case 3, 4:
		width = 1
	case 6, 8:
		width = 2
	default:
		return color.NRGBA{}, fmt.Errorf("%w: bad colour #%s", ErrInvalidExpression, h)
	}

	ch := [4]uint8{0, 0, 0, 255}
	for i := 0; i*width < len(h); i++ {
		v, err := parseHexChannel(h[i*width : (i+1)*width])
		if err != nil {
			return color.NRGBA{}, fmt.Errorf("%w: bad colour #%s", ErrInvalidExpression, h)
		}
		ch[i] = v
	}
	return color.NRGBA{R: ch[0], G: ch[1], B: ch[2], A: ch[3]}, nil
}

// parseHexChannel reads one or two hex digits; a single digit is doubled.
func parseHexChannel(s string) (uint8, error) {
	if len(s) == 1 {
		s += s
	}
	v, err := strconv.ParseUint(s, 16, 8)
	return uint8(v), err
}
