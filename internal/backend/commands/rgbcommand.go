package commands

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"log/slog"

	"github.com/jo-hoe/visionassist/internal/backend/commandstructure"
)

const RGBCommandName = "RGBCommand"

// RGBCommand flattens transparency onto a solid background so every upload
// reaches the generator as an opaque RGB image.
type RGBCommand struct {
	name       string
	background color.RGBA
}

// NewRGBCommand creates the command; "background" is an optional #rrggbb color (default white)
func NewRGBCommand(params map[string]any) (commandstructure.Command, error) {
	bg, err := commandstructure.GetColorParam(params, "background", color.RGBA{255, 255, 255, 255})
	if err != nil {
		return nil, err
	}
	return &RGBCommand{
		name:       RGBCommandName,
		background: bg,
	}, nil
}

// Name returns the command name
func (c *RGBCommand) Name() string {
	return c.name
}

// Background returns the configured flattening color
func (c *RGBCommand) Background() color.RGBA {
	return c.background
}

// Execute expects PNG input and returns an opaque PNG of the same size
func (c *RGBCommand) Execute(imageData []byte) ([]byte, error) {
	img, err := decodePNG(imageData)
	if err != nil {
		return nil, fmt.Errorf("failed to decode PNG image: %w", err)
	}

	if _, isRGBA := img.(*image.RGBA); isRGBA && isOpaque(img) {
		slog.Debug("RGBCommand: image already opaque RGBA; returning original bytes")
		return imageData, nil
	}

	b := img.Bounds()
	dst := createTargetCanvas(b.Dx(), b.Dy(), c.background)
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Over)

	out, err := encodePNG(dst)
	if err != nil {
		return nil, fmt.Errorf("failed to encode RGB image: %w", err)
	}
	return out, nil
}

func init() {
	if err := commandstructure.DefaultRegistry.Register(RGBCommandName, NewRGBCommand); err != nil {
		panic(fmt.Sprintf("failed to register %s: %v", RGBCommandName, err))
	}
}
