package core

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jo-hoe/visionassist/internal/backend/commands"
	"github.com/jo-hoe/visionassist/internal/backend/commandstructure"
	"github.com/jo-hoe/visionassist/internal/backend/credentials"
	"github.com/jo-hoe/visionassist/internal/backend/database"
	"github.com/jo-hoe/visionassist/internal/backend/generator"
)

const (
	defaultPort           = 8080
	defaultLogLevel       = "info"
	defaultMaxUploadSize  = "20M"
	defaultImageMaxWidth  = 1600
	defaultImageMaxHeight = 1600
	defaultThumbnailWidth = 320
	defaultKeywordCount   = 10
	defaultTimeout        = 60 * time.Second
)

// AssistantConfig describes one tab of the UI. Prompt may reference {mode},
// {category}, {tone} and {idea}; DefaultQuestion may reference {mode}.
type AssistantConfig struct {
	Name            string        `yaml:"name"`
	Kind            database.Kind `yaml:"kind"`
	Description     string        `yaml:"description"`
	Prompt          string        `yaml:"prompt"`
	DefaultQuestion string        `yaml:"defaultQuestion"`
	RequireImage    bool          `yaml:"requireImage"`
	Modes           []string      `yaml:"modes"`
	Categories      []string      `yaml:"categories"`
	Tones           []string      `yaml:"tones"`
}

type Database struct {
	Type             string        `yaml:"type"`
	ConnectionString string        `yaml:"connectionString"`
	TTL              time.Duration `yaml:"ttl"`
}

type ServiceConfig struct {
	Port             int    `yaml:"port"`
	LogLevel         string `yaml:"logLevel"`
	ShowErrorDetails *bool  `yaml:"showErrorDetails"`
	MaxUploadSize    string `yaml:"maxUploadSize"`
	ImageMaxWidth    int    `yaml:"imageMaxWidth"`
	ImageMaxHeight   int    `yaml:"imageMaxHeight"`
	ThumbnailWidth   int    `yaml:"thumbnailWidth"`
	KeywordCount     int    `yaml:"keywordCount"`

	ImagePipeline []commandstructure.CommandConfig `yaml:"imagePipeline"`
	Assistants    []AssistantConfig                `yaml:"assistants"`
	Database      Database                         `yaml:"database"`
	Generator     generator.Config                 `yaml:"generator"`
	Credentials   credentials.Config               `yaml:"credentials"`
}

// ErrorDetailsEnabled reports whether the underlying error text is shown to users
func (c *ServiceConfig) ErrorDetailsEnabled() bool {
	return c.ShowErrorDetails == nil || *c.ShowErrorDetails
}

// SlogLevel maps LogLevel to a slog level, defaulting to info
func (c *ServiceConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LoadConfig loads configuration from the specified YAML file. A missing file
// yields the built-in defaults.
func LoadConfig(configPath string) (*ServiceConfig, error) {
	var config ServiceConfig

	data, err := os.ReadFile(configPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		slog.Warn("config file not found, using defaults", "path", configPath)
	case err != nil:
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	default:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
		}
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *ServiceConfig) applyDefaults() {
	if c.Port == 0 {
		c.Port = defaultPort
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	if c.MaxUploadSize == "" {
		c.MaxUploadSize = defaultMaxUploadSize
	}
	if c.ImageMaxWidth == 0 {
		c.ImageMaxWidth = defaultImageMaxWidth
	}
	if c.ImageMaxHeight == 0 {
		c.ImageMaxHeight = defaultImageMaxHeight
	}
	if c.ThumbnailWidth == 0 {
		c.ThumbnailWidth = defaultThumbnailWidth
	}
	if c.KeywordCount == 0 {
		c.KeywordCount = defaultKeywordCount
	}
	if len(c.ImagePipeline) == 0 {
		c.ImagePipeline = DefaultImagePipeline(c.ImageMaxWidth, c.ImageMaxHeight)
	}
	if len(c.Assistants) == 0 {
		c.Assistants = DefaultAssistants()
	}
	if c.Database.Type == "" {
		c.Database.Type = database.TypeMemory
	}
	if c.Generator.Provider == "" {
		c.Generator.Provider = generator.ProviderGemini
	}
	if c.Generator.Timeout == 0 {
		c.Generator.Timeout = defaultTimeout
	}
	if c.Credentials.Source == "" {
		c.Credentials.Source = credentials.SourceEnv
	}
	if c.Credentials.EnvVar == "" {
		c.Credentials.EnvVar = credentials.DefaultEnvVar
	}
}

// Validate checks assistants and the image pipeline
func (c *ServiceConfig) Validate() error {
	if err := validateAssistants(c.Assistants); err != nil {
		return fmt.Errorf("invalid assistant configuration: %w", err)
	}
	if err := validateCommands(c.ImagePipeline); err != nil {
		return fmt.Errorf("invalid command configuration: %w", err)
	}
	return nil
}

// DefaultImagePipeline converts to PNG, drops alpha and bounds the size
func DefaultImagePipeline(maxWidth, maxHeight int) []commandstructure.CommandConfig {
	return []commandstructure.CommandConfig{
		{Name: commands.PngConverterCommandName, Params: map[string]any{"svgMaxWidth": maxWidth, "svgMaxHeight": maxHeight}},
		{Name: commands.RGBCommandName},
		{Name: commands.FitCommandName, Params: map[string]any{"width": maxWidth, "height": maxHeight}},
	}
}

// DefaultAssistants is used when the config file lists none
func DefaultAssistants() []AssistantConfig {
	return []AssistantConfig{
		{
			Name:            "Image Analysis",
			Kind:            database.KindAnalysis,
			Description:     "Upload images and ask a question about them.",
			Prompt:          "You are an expert analyzing images in the selected mode: {mode}.",
			DefaultQuestion: "Analyze the uploaded {mode} images.",
			RequireImage:    true,
			Modes:           []string{"Plants", "Food", "Vehicles"},
		},
		{
			Name:            "Video Scenes",
			Kind:            database.KindScenes,
			Description:     "Turn a topic into a short video outline.",
			Prompt:          "You are a video script writer. Split the video into scenes. Start every scene with 'Scene N: <title>' and give each scene the lines 'Script:', 'Image Prompt:' and 'Narration:'. Style: {mode}.",
			DefaultQuestion: "Create a short {mode} video about the uploaded images.",
			Modes:           []string{"Educational", "Storytelling", "Promotional"},
		},
		{
			Name:        "Idea Refiner",
			Kind:        database.KindIdea,
			Description: "Refine a raw idea into a structured concept.",
			Prompt:      "Refine the following {category} idea in a {tone} tone. Answer with the lines 'Title:', 'Summary:', 'Target Audience:', 'Key Features:' and 'Next Steps:'.\nIdea: {idea}",
			Categories:  []string{"Business", "Technology", "Art", "Education"},
			Tones:       []string{"Professional", "Casual", "Enthusiastic"},
		},
	}
}

func validateAssistants(assistants []AssistantConfig) error {
	seenNames := make(map[string]bool)

	for i, assistant := range assistants {
		if strings.TrimSpace(assistant.Name) == "" {
			return fmt.Errorf("assistant at index %d has empty name", i)
		}
		if seenNames[assistant.Name] {
			return fmt.Errorf("duplicate assistant name: %s", assistant.Name)
		}
		seenNames[assistant.Name] = true

		switch assistant.Kind {
		case database.KindAnalysis, database.KindScenes, database.KindIdea:
		default:
			return fmt.Errorf("assistant %s has unknown kind %q", assistant.Name, assistant.Kind)
		}
	}

	return nil
}

// validateCommands ensures all command configurations have required fields
func validateCommands(configs []commandstructure.CommandConfig) error {
	for i, cmd := range configs {
		if cmd.Name == "" {
			return fmt.Errorf("command at index %d has empty name", i)
		}
		if !commandstructure.DefaultRegistry.IsRegistered(cmd.Name) {
			return fmt.Errorf("unknown command: %s", cmd.Name)
		}
	}

	return nil
}
