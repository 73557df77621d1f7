package commandstructure

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// GetStringParam safely extracts a string parameter from the params map
func GetStringParam(params map[string]any, key string, defaultValue string) string {
	if val, ok := params[key]; ok {
		if strVal, ok := val.(string); ok {
			return strVal
		}
	}
	return defaultValue
}

// GetIntParam safely extracts an int parameter from the params map.
// YAML decodes numbers as int, JSON as float64; both are accepted.
func GetIntParam(params map[string]any, key string, defaultValue int) int {
	if val, ok := params[key]; ok {
		switch v := val.(type) {
		case int:
			return v
		case int64:
			return int(v)
		case float64:
			return int(v)
		case string:
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				return n
			}
		}
	}
	return defaultValue
}

// GetBoolParam safely extracts a bool parameter from the params map.
// Accepts native bools and the strings true/false, yes/no, on/off (case-insensitive).
func GetBoolParam(params map[string]any, key string, defaultValue bool) bool {
	val, ok := params[key]
	if !ok {
		return defaultValue
	}
	switch v := val.(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "yes", "on":
			return true
		case "false", "no", "off":
			return false
		}
	}
	return defaultValue
}

// GetColorParam parses a "#rrggbb" parameter into an opaque color
func GetColorParam(params map[string]any, key string, defaultValue color.RGBA) (color.RGBA, error) {
	raw := strings.TrimSpace(GetStringParam(params, key, ""))
	if raw == "" {
		return defaultValue, nil
	}
	hex := strings.TrimPrefix(raw, "#")
	if len(hex) != 6 {
		return defaultValue, fmt.Errorf("%s must be a #rrggbb color, got %q", key, raw)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return defaultValue, fmt.Errorf("%s must be a #rrggbb color, got %q: %w", key, raw, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
}

// ValidateRequiredParams checks that all required parameters are present
func ValidateRequiredParams(params map[string]any, required []string) error {
	for _, key := range required {
		if _, ok := params[key]; !ok {
			return fmt.Errorf("missing required parameter: %s", key)
		}
	}
	return nil
}
