// Package image loads texture files and keeps their renderer uploads alive for as long as a material uses them.
package image

import (
	stdimage "image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/Carmen-Shannon/hdrpr/engine/renderer"
	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var (
	// ErrUnsupportedFormat is returned for files no registered decoder understands.
	ErrUnsupportedFormat = errors.New("unsupported image format")
	// ErrEmptyImage is returned for images with a zero dimension.
	ErrEmptyImage = errors.New("image has no pixels")
)

// Pixels is a decoded image in the layout renderer.Context.CreateImage expects.
type Pixels struct {
	Desc renderer.ImageDesc
	Data []byte
}

// Loader decodes an image file. The default is Decode.
type Loader func(path string) (Pixels, error)

// Decode reads png, jpeg, tiff, bmp and webp files and converts them to tightly packed RGBA8.
//
// Parameters:
//   - path: the file to read
//
// Returns:
//   - Pixels: the decoded pixels
//   - error: ErrUnsupportedFormat, ErrEmptyImage or a wrapped I/O error
func Decode(path string) (Pixels, error) {
	f, err := os.Open(path)
	if err != nil {
		return Pixels{}, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	src, _, err := stdimage.Decode(f)
	if err != nil {
		if errors.Is(err, stdimage.ErrFormat) {
			return Pixels{}, errors.Wrapf(ErrUnsupportedFormat, "decode %s", path)
		}
		return Pixels{}, errors.Wrapf(err, "decode %s", path)
	}

	bounds := src.Bounds()
	if bounds.Dx() < 1 || bounds.Dy() < 1 {
		return Pixels{}, errors.Wrapf(ErrEmptyImage, "decode %s", path)
	}

	return ToPixels(src), nil
}

// ToPixels converts any image to RGBA8 with a stride of exactly four bytes per pixel.
//
// Parameters:
//   - src: the source image
//
// Returns:
//   - Pixels: the converted pixels
func ToPixels(src stdimage.Image) Pixels {
	bounds := src.Bounds()
	rgba, ok := src.(*stdimage.RGBA)
	if !ok || rgba.Stride != 4*bounds.Dx() || bounds.Min != (stdimage.Point{}) {
		rgba = stdimage.NewRGBA(stdimage.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(rgba, rgba.Bounds(), src, bounds.Min, draw.Src)
	}

	return Pixels{
		Desc: renderer.ImageDesc{
			Width:  bounds.Dx(),
			Height: bounds.Dy(),
			Format: renderer.ImageFormatRGBA8,
		},
		Data: rgba.Pix,
	}
}
