package commands

import (
	"fmt"
	"image"
	"log/slog"

	"github.com/jo-hoe/visionassist/internal/backend/commandstructure"
	xdraw "golang.org/x/image/draw"
)

const FitCommandName = "FitCommand"

// FitParams bounds the output size. A zero value leaves that axis unconstrained.
type FitParams struct {
	MaxWidth  int
	MaxHeight int
}

// NewFitParamsFromMap creates FitParams from a generic map
func NewFitParamsFromMap(params map[string]any) (*FitParams, error) {
	_, hasWidth := params["width"]
	_, hasHeight := params["height"]
	if !hasWidth && !hasHeight {
		return nil, fmt.Errorf("at least one of 'height' or 'width' must be specified")
	}

	result := &FitParams{}
	if hasWidth {
		result.MaxWidth = commandstructure.GetIntParam(params, "width", 0)
		if result.MaxWidth <= 0 {
			return nil, fmt.Errorf("width must be positive, got %d", result.MaxWidth)
		}
	}
	if hasHeight {
		result.MaxHeight = commandstructure.GetIntParam(params, "height", 0)
		if result.MaxHeight <= 0 {
			return nil, fmt.Errorf("height must be positive, got %d", result.MaxHeight)
		}
	}
	return result, nil
}

// FitCommand downscales an image into a bounding box, preserving aspect ratio.
// Images that already fit are passed through untouched.
type FitCommand struct {
	name   string
	params *FitParams
}

// NewFitCommand creates a new fit command from configuration parameters
func NewFitCommand(params map[string]any) (commandstructure.Command, error) {
	typedParams, err := NewFitParamsFromMap(params)
	if err != nil {
		return nil, err
	}
	return &FitCommand{
		name:   FitCommandName,
		params: typedParams,
	}, nil
}

// Name returns the command name
func (c *FitCommand) Name() string {
	return c.name
}

// GetParams returns the typed parameters
func (c *FitCommand) GetParams() *FitParams {
	return c.params
}

func (c *FitCommand) Execute(imageData []byte) ([]byte, error) {
	img, err := decodePNG(imageData)
	if err != nil {
		return nil, fmt.Errorf("failed to decode PNG image: %w", err)
	}

	b := img.Bounds()
	w, h := computeFitDimensions(b.Dx(), b.Dy(), c.params.MaxWidth, c.params.MaxHeight)
	if w == b.Dx() && h == b.Dy() {
		return imageData, nil
	}

	slog.Debug("FitCommand: downscaling",
		"original_width", b.Dx(),
		"original_height", b.Dy(),
		"target_width", w,
		"target_height", h)

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)

	out, err := encodePNG(dst)
	if err != nil {
		return nil, fmt.Errorf("failed to encode scaled PNG image: %w", err)
	}
	return out, nil
}

func init() {
	if err := commandstructure.DefaultRegistry.Register(FitCommandName, NewFitCommand); err != nil {
		panic(fmt.Sprintf("failed to register %s: %v", FitCommandName, err))
	}
}
