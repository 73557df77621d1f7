package commands

import (
	"fmt"
	"image"
	"log/slog"

	"github.com/jo-hoe/visionassist/internal/backend/commandstructure"
	xdraw "golang.org/x/image/draw"
)

const PixelScaleCommandName = "PixelScaleCommand"

// PixelScaleParams represents typed parameters for pixel scale command
type PixelScaleParams struct {
	Height *int // if nil, calculated from width
	Width  *int // if nil, calculated from height
}

// NewPixelScaleParamsFromMap creates PixelScaleParams from a generic map
func NewPixelScaleParamsFromMap(params map[string]any) (*PixelScaleParams, error) {
	_, hasHeight := params["height"]
	_, hasWidth := params["width"]
	if !hasHeight && !hasWidth {
		return nil, fmt.Errorf("at least one of 'height' or 'width' must be specified")
	}

	result := &PixelScaleParams{}
	if hasHeight {
		height := commandstructure.GetIntParam(params, "height", 0)
		if height <= 0 {
			return nil, fmt.Errorf("height must be positive, got %d", height)
		}
		result.Height = &height
	}
	if hasWidth {
		width := commandstructure.GetIntParam(params, "width", 0)
		if width <= 0 {
			return nil, fmt.Errorf("width must be positive, got %d", width)
		}
		result.Width = &width
	}
	return result, nil
}

// PixelScaleCommand scales to exact pixel dimensions. It renders the upload
// thumbnails shown next to a response.
type PixelScaleCommand struct {
	name   string
	params *PixelScaleParams
}

// NewPixelScaleCommand creates a new pixel scale command from configuration parameters
func NewPixelScaleCommand(params map[string]any) (commandstructure.Command, error) {
	typedParams, err := NewPixelScaleParamsFromMap(params)
	if err != nil {
		return nil, err
	}
	return &PixelScaleCommand{
		name:   PixelScaleCommandName,
		params: typedParams,
	}, nil
}

// Name returns the command name
func (c *PixelScaleCommand) Name() string {
	return c.name
}

// Execute scales the PNG input; a missing dimension follows the aspect ratio
func (c *PixelScaleCommand) Execute(imageData []byte) ([]byte, error) {
	img, err := decodePNG(imageData)
	if err != nil {
		return nil, fmt.Errorf("failed to decode PNG image: %w", err)
	}

	b := img.Bounds()
	targetWidth, targetHeight := c.targetDimensions(b.Dx(), b.Dy())
	slog.Debug("PixelScaleCommand: scaling image",
		"original_width", b.Dx(),
		"original_height", b.Dy(),
		"target_width", targetWidth,
		"target_height", targetHeight)

	dst := image.NewRGBA(image.Rect(0, 0, targetWidth, targetHeight))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)

	out, err := encodePNG(dst)
	if err != nil {
		return nil, fmt.Errorf("failed to encode scaled PNG image: %w", err)
	}
	return out, nil
}

func (c *PixelScaleCommand) targetDimensions(originalWidth, originalHeight int) (int, int) {
	aspectRatio := float64(originalWidth) / float64(originalHeight)
	var w, h int
	switch {
	case c.params.Width != nil && c.params.Height != nil:
		w, h = *c.params.Width, *c.params.Height
	case c.params.Width != nil:
		w = *c.params.Width
		h = int(float64(w) / aspectRatio)
	default:
		h = *c.params.Height
		w = int(float64(h) * aspectRatio)
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}

// GetHeight returns the configured height (may be nil if not specified)
func (c *PixelScaleCommand) GetHeight() *int {
	return c.params.Height
}

// GetWidth returns the configured width (may be nil if not specified)
func (c *PixelScaleCommand) GetWidth() *int {
	return c.params.Width
}

func init() {
	if err := commandstructure.DefaultRegistry.Register(PixelScaleCommandName, NewPixelScaleCommand); err != nil {
		panic(fmt.Sprintf("failed to register %s: %v", PixelScaleCommandName, err))
	}
}
