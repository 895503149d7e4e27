// Package imageio encodes single channel layer images.
package imageio

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// I/O errors.
var (
	// ErrUnsupportedFormat is returned when the file extension names no
	// supported encoder.
	ErrUnsupportedFormat = errors.New("imageio: unsupported format")

	// ErrUnsupportedBitDepth is returned for bit depths other than 1 and 8.
	ErrUnsupportedBitDepth = errors.New("imageio: unsupported bit depth")

	// ErrSizeMismatch is returned when the pixel count does not match the
	// image size.
	ErrSizeMismatch = errors.New("imageio: pixel count does not match size")
)

// GrayscalePalette returns the 256 entry identity grey palette.
func GrayscalePalette() color.Palette {
	p := make(color.Palette, 256)
	for i := range p {
		p[i] = color.Gray{Y: uint8(i)}
	}
	return p
}

// BinaryPalette returns the black and white palette used for 1 bit images.
func BinaryPalette() color.Palette {
	return color.Palette{color.Gray{Y: 0}, color.Gray{Y: 255}}
}

// NewPaletted wraps pix as a paletted image without copying. For bitDepth 1
// the pixels are thresholded at 128 into a new buffer.
func NewPaletted(width, height, bitDepth int, pix []uint8, palette color.Palette) (*image.Paletted, error) {
	if len(pix) != width*height {
		return nil, fmt.Errorf("%w: %d pixels for %dx%d", ErrSizeMismatch, len(pix), width, height)
	}
	switch bitDepth {
	case 8:
		if palette == nil {
			palette = GrayscalePalette()
		}
	case 1:
		if palette == nil {
			palette = BinaryPalette()
		}
		bits := make([]uint8, len(pix))
		for i, v := range pix {
			if v >= 128 {
				bits[i] = 1
			}
		}
		pix = bits
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedBitDepth, bitDepth)
	}
	return &image.Paletted{
		Pix:     pix,
		Stride:  width,
		Rect:    image.Rect(0, 0, width, height),
		Palette: palette,
	}, nil
}

// Supported reports whether ext names a format Encode can write.
func Supported(ext string) bool {
	switch strings.ToLower(ext) {
	case ".png", ".bmp", ".tif", ".tiff":
		return true
	}
	return false
}

// Encode writes img in the format named by ext (".png", ".bmp", ".tiff").
func Encode(w io.Writer, ext string, img image.Image) error {
	switch strings.ToLower(ext) {
	case ".png":
		enc := png.Encoder{CompressionLevel: png.BestSpeed}
		if err := enc.Encode(w, img); err != nil {
			return fmt.Errorf("imageio: encode png: %w", err)
		}
	case ".bmp":
		if err := bmp.Encode(w, img); err != nil {
			return fmt.Errorf("imageio: encode bmp: %w", err)
		}
	case ".tif", ".tiff":
		if err := tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate}); err != nil {
			return fmt.Errorf("imageio: encode tiff: %w", err)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	return nil
}

// Write encodes pix as a paletted image and stores it at path. The format
// follows the file extension.
func Write(path string, width, height, bitDepth int, pix []uint8, palette color.Palette) (err error) {
	ext := filepath.Ext(path)
	if !Supported(ext) {
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	img, err := NewPaletted(width, height, bitDepth, pix, palette)
	if err != nil {
		return err
	}

	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("imageio: create file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("imageio: close file: %w", cerr)
		}
	}()

	bw := bufio.NewWriter(f)
	if err := Encode(bw, ext, img); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("imageio: write file: %w", err)
	}
	return nil
}

// LoadGray decodes the image at path into one byte per pixel.
func LoadGray(path string) (pix []uint8, width, height int, err error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("imageio: open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var img image.Image
	switch strings.ToLower(filepath.Ext(path)) {
	case ".bmp":
		img, err = bmp.Decode(f)
	case ".tif", ".tiff":
		img, err = tiff.Decode(f)
	default:
		img, err = png.Decode(f)
	}
	if err != nil {
		return nil, 0, 0, fmt.Errorf("imageio: decode: %w", err)
	}

	b := img.Bounds()
	width, height = b.Dx(), b.Dy()
	pix = make([]uint8, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			pix[y*width+x] = color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray).Y
		}
	}
	return pix, width, height, nil
}
