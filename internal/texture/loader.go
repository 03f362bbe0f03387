package texture

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ftrvxmtrx/tga"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// LoadImage reads a PNG, JPEG, BMP, TGA or WebP file and returns it as NRGBA.
// TGA has no magic number, so it is chosen by extension.
func LoadImage(path string) (*image.NRGBA, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("texture: read %s: %w", path, err)
	}

	var img *image.NRGBA
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tga":
		img, err = decodeTGA(bytes.NewReader(raw))
	default:
		img, err = DecodeImage(bytes.NewReader(raw))
	}
	if err != nil {
		return nil, fmt.Errorf("texture: %s: %w", path, err)
	}
	return img, nil
}

// DecodeImage decodes any registered image format into NRGBA, falling back
// to TGA when no registered format matches.
func DecodeImage(r io.Reader) (*image.NRGBA, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("texture: decode: %w", err)
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err == nil {
		return ToNRGBA(img), nil
	}
	if !errors.Is(err, image.ErrFormat) {
		return nil, fmt.Errorf("texture: decode: %w", err)
	}
	return decodeTGA(bytes.NewReader(raw))
}

func decodeTGA(r io.Reader) (*image.NRGBA, error) {
	img, err := tga.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("texture: decode tga: %w", err)
	}
	return ToNRGBA(img), nil
}

// ToNRGBA converts any image to a zero-origin NRGBA image. NRGBA input that
// already starts at the origin is returned as is.
func ToNRGBA(src image.Image) *image.NRGBA {
	b := src.Bounds()
	if n, ok := src.(*image.NRGBA); ok && b.Min == (image.Point{}) {
		return n
	}
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
