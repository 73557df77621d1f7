package core

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jo-hoe/visionassist/internal/backend/database"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
port: 9090
logLevel: debug
showErrorDetails: false
imagePipeline:
  - name: PngConverterCommand
  - name: FitCommand
    width: 800
    height: 600
database:
  type: redis
  connectionString: redis://localhost:6379/0
  ttl: 2h
generator:
  provider: openai
  model: gpt-4o
  timeout: 30s
credentials:
  source: ssm
  ssm:
    parameterName: /visionassist/key
assistants:
  - name: Plants
    kind: analysis
    prompt: "Look at {mode}"
    requireImage: true
    modes: [Leaves, Flowers]
`)

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if config.Port != 9090 {
		t.Errorf("Port = %d", config.Port)
	}
	if config.SlogLevel() != slog.LevelDebug {
		t.Errorf("SlogLevel() = %v", config.SlogLevel())
	}
	if config.ErrorDetailsEnabled() {
		t.Error("ErrorDetailsEnabled() should be false")
	}
	if len(config.ImagePipeline) != 2 || config.ImagePipeline[1].Params["width"] != 800 {
		t.Errorf("unexpected pipeline: %+v", config.ImagePipeline)
	}
	if config.Database.TTL != 2*time.Hour || config.Database.Type != database.TypeRedis {
		t.Errorf("unexpected database config: %+v", config.Database)
	}
	if config.Generator.Timeout != 30*time.Second || config.Generator.Provider != "openai" {
		t.Errorf("unexpected generator config: %+v", config.Generator)
	}
	if config.Credentials.SSM.ParameterName != "/visionassist/key" {
		t.Errorf("unexpected credentials config: %+v", config.Credentials)
	}
	if len(config.Assistants) != 1 || config.Assistants[0].Modes[1] != "Flowers" {
		t.Errorf("unexpected assistants: %+v", config.Assistants)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	config, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if config.Port != defaultPort || config.Database.Type != database.TypeMemory {
		t.Errorf("defaults not applied: %+v", config)
	}
	if !config.ErrorDetailsEnabled() {
		t.Error("error details should be enabled by default")
	}
	if len(config.Assistants) != 3 {
		t.Errorf("expected default assistants, got %d", len(config.Assistants))
	}
	if len(config.ImagePipeline) != 3 {
		t.Errorf("expected default pipeline, got %+v", config.ImagePipeline)
	}
	if config.Credentials.EnvVar != "GOOGLE_API_KEY" {
		t.Errorf("EnvVar = %q", config.Credentials.EnvVar)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "malformed yaml",
			content: "port: [",
			wantErr: "failed to parse",
		},
		{
			name: "duplicate assistant",
			content: `assistants:
  - {name: A, kind: analysis}
  - {name: A, kind: idea}`,
			wantErr: "duplicate assistant name",
		},
		{
			name:    "empty assistant name",
			content: "assistants:\n  - {name: '', kind: analysis}",
			wantErr: "empty name",
		},
		{
			name:    "unknown kind",
			content: "assistants:\n  - {name: A, kind: poem}",
			wantErr: "unknown kind",
		},
		{
			name:    "unknown command",
			content: "imagePipeline:\n  - name: SharpenCommand",
			wantErr: "unknown command",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestSlogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for level, want := range tests {
		config := &ServiceConfig{LogLevel: level}
		if got := config.SlogLevel(); got != want {
			t.Errorf("SlogLevel(%q) = %v, want %v", level, got, want)
		}
	}
}
