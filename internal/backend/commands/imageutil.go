package commands

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
)

// MaxImagePixels caps width*height of any image the pipeline decodes or renders
const MaxImagePixels = 50_000_000

// checkPixelLimit rejects sizes above MaxImagePixels before anything is allocated
func checkPixelLimit(width, height int) error {
	if int64(width)*int64(height) > MaxImagePixels {
		return fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrUnsupportedImage, width, height, MaxImagePixels)
	}
	return nil
}

// decodeBounded reads the header first and only decodes images within MaxImagePixels
func decodeBounded(data []byte) (image.Image, string, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	if err := checkPixelLimit(cfg.Width, cfg.Height); err != nil {
		return nil, "", err
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	return img, format, nil
}

func decodePNG(data []byte) (image.Image, error) {
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if err := checkPixelLimit(cfg.Width, cfg.Height); err != nil {
		return nil, err
	}
	return png.Decode(bytes.NewReader(data))
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	bb := img.Bounds()
	// rough heuristic: 1 byte per pixel
	buf.Grow(bb.Dx() * bb.Dy())
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func createTargetCanvas(w, h int, bg color.Color) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{bg}, image.Point{}, draw.Src)
	return dst
}

// isOpaque reports whether every pixel of img is fully opaque
func isOpaque(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return o.Opaque()
	}
	b := img.Bounds()
	return !parallelForStop(b.Dy(), func(y int) bool {
		for x := b.Min.X; x < b.Max.X; x++ {
			if _, _, _, a := img.At(x, b.Min.Y+y).RGBA(); a != 0xffff {
				return true
			}
		}
		return false
	})
}

// computeFitDimensions returns the largest size with the original aspect ratio
// that fits inside maxWidth x maxHeight. Images already inside the box keep
// their size. A non-positive bound leaves that axis unconstrained.
func computeFitDimensions(originalWidth, originalHeight, maxWidth, maxHeight int) (int, int) {
	if originalWidth <= 0 || originalHeight <= 0 {
		return originalWidth, originalHeight
	}
	scale := 1.0
	if maxWidth > 0 && originalWidth > maxWidth {
		scale = float64(maxWidth) / float64(originalWidth)
	}
	if maxHeight > 0 && originalHeight > maxHeight {
		if s := float64(maxHeight) / float64(originalHeight); s < scale {
			scale = s
		}
	}
	if scale >= 1.0 {
		return originalWidth, originalHeight
	}
	w := int(float64(originalWidth)*scale + 0.5)
	h := int(float64(originalHeight)*scale + 0.5)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}
