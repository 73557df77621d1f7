package generator

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

var (
	ErrEmptyResponse = errors.New("generator returned no text")
	ErrBlocked       = errors.New("prompt was blocked by the provider")
	ErrMissingAPIKey = errors.New("API key is required")
)

// Image is an encoded image handed to the model
type Image struct {
	MimeType string
	Data     []byte
}

// Request is one text prompt plus zero or more images
type Request struct {
	Prompt string
	Images []Image
}

// Generator turns a multimodal request into generated text
type Generator interface {
	Name() string
	Generate(ctx context.Context, req Request) (string, error)
}

// Config selects and tunes a provider
type Config struct {
	Provider        string        `yaml:"provider"`
	Model           string        `yaml:"model"`
	BaseURL         string        `yaml:"baseURL"`
	Timeout         time.Duration `yaml:"timeout"`
	Temperature     float64       `yaml:"temperature"`
	MaxOutputTokens int           `yaml:"maxOutputTokens"`
}

// HTTPStatusError captures non-2xx upstream responses
type HTTPStatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Provider, e.StatusCode, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// New creates the generator named by cfg.Provider
func New(cfg Config, apiKey string) (Generator, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	switch cfg.Provider {
	case "", ProviderGemini:
		return NewGeminiClient(cfg, apiKey), nil
	case ProviderOpenAI:
		return NewOpenAIClient(cfg, apiKey), nil
	default:
		return nil, fmt.Errorf("unsupported generator provider: %s", cfg.Provider)
	}
}
