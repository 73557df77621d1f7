package commands

import (
	"bytes"
	"image/color"
	"testing"
)

func TestNewFitCommand_Params(t *testing.T) {
	tests := []struct {
		name        string
		params      map[string]any
		expectError bool
	}{
		{"width only", map[string]any{"width": 100}, false},
		{"height only", map[string]any{"height": 100}, false},
		{"both", map[string]any{"width": 100, "height": 50}, false},
		{"float64 from json", map[string]any{"width": float64(100)}, false},
		{"neither", map[string]any{}, true},
		{"zero width", map[string]any{"width": 0}, true},
		{"negative height", map[string]any{"height": -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFitCommand(tt.params)
			if tt.expectError != (err != nil) {
				t.Errorf("expectError=%v, got err=%v", tt.expectError, err)
			}
		})
	}
}

func TestComputeFitDimensions(t *testing.T) {
	tests := []struct {
		name             string
		w, h, maxW, maxH int
		wantW, wantH     int
	}{
		{"already fits", 100, 50, 200, 200, 100, 50},
		{"wide", 400, 200, 100, 100, 100, 50},
		{"tall", 200, 400, 100, 100, 50, 100},
		{"width unconstrained", 400, 200, 0, 100, 200, 100},
		{"height unconstrained", 400, 200, 100, 0, 100, 50},
		{"exact", 100, 100, 100, 100, 100, 100},
		{"thin line stays visible", 1000, 1, 10, 10, 10, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotW, gotH := computeFitDimensions(tt.w, tt.h, tt.maxW, tt.maxH)
			if gotW != tt.wantW || gotH != tt.wantH {
				t.Errorf("computeFitDimensions = %dx%d, want %dx%d", gotW, gotH, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestFitCommand_Execute(t *testing.T) {
	command, err := NewFitCommand(map[string]any{"width": 50, "height": 50})
	if err != nil {
		t.Fatalf("Failed to create command: %v", err)
	}

	result, err := command.Execute(pngBytes(t, solidImage(200, 100, color.NRGBA{10, 20, 30, 255})))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	img := decodeTestPNG(t, result)
	if img.Bounds().Dx() != 50 || img.Bounds().Dy() != 25 {
		t.Errorf("Expected 50x25, got %v", img.Bounds())
	}
}

func TestFitCommand_NeverUpscales(t *testing.T) {
	command, _ := NewFitCommand(map[string]any{"width": 500, "height": 500})
	input := pngBytes(t, solidImage(20, 10, color.NRGBA{1, 1, 1, 255}))

	result, err := command.Execute(input)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !bytes.Equal(input, result) {
		t.Error("Expected small image to pass through unchanged")
	}
}

func TestFitCommand_InvalidInput(t *testing.T) {
	command, _ := NewFitCommand(map[string]any{"width": 10})
	if _, err := command.Execute([]byte("nope")); err == nil {
		t.Error("Expected error for non-PNG input")
	}
}
