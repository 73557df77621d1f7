package credentials

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

const (
	SourceEnv        = "env"
	SourceKubernetes = "kubernetes"
	SourceSSM        = "ssm"

	DefaultEnvVar = "GOOGLE_API_KEY"
)

var ErrMissingAPIKey = errors.New("API key not configured")

// Source resolves the API key of the generative endpoint
type Source interface {
	APIKey(ctx context.Context) (string, error)
	// Describe names where the key is looked up, e.g. "Environment variable GOOGLE_API_KEY"
	Describe() string
}

type KubernetesConfig struct {
	Namespace  string `yaml:"namespace"`
	SecretName string `yaml:"secretName"`
	Key        string `yaml:"key"`
	Kubeconfig string `yaml:"kubeconfig"`
}

type SSMConfig struct {
	ParameterName string `yaml:"parameterName"`
	Region        string `yaml:"region"`
}

type Config struct {
	Source     string           `yaml:"source"`
	EnvVar     string           `yaml:"envVar"`
	Kubernetes KubernetesConfig `yaml:"kubernetes"`
	SSM        SSMConfig        `yaml:"ssm"`
}

// MissingMessage is the text shown to users when no key can be found
func MissingMessage(source Source) string {
	return source.Describe() + " not set."
}

// NewSource builds the configured source wrapped in a cache
func NewSource(ctx context.Context, cfg Config) (Source, error) {
	var (
		source Source
		err    error
	)
	switch cfg.Source {
	case "", SourceEnv:
		source = NewEnvSource(cfg.EnvVar)
	case SourceKubernetes:
		source, err = NewKubernetesSourceFromConfig(cfg.Kubernetes)
	case SourceSSM:
		source, err = NewSSMSourceFromConfig(ctx, cfg.SSM)
	default:
		return nil, fmt.Errorf("unsupported credentials source: %s", cfg.Source)
	}
	if err != nil {
		return nil, err
	}
	slog.Info("credentials source configured", "source", source.Describe())
	return NewCachedSource(source), nil
}

// CachedSource remembers the first successfully resolved key.
// Failed lookups are retried on the next call.
type CachedSource struct {
	source Source
	mu     sync.Mutex
	key    string
}

func NewCachedSource(source Source) *CachedSource {
	return &CachedSource{source: source}
}

func (c *CachedSource) APIKey(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.key != "" {
		return c.key, nil
	}
	key, err := c.source.APIKey(ctx)
	if err != nil {
		return "", err
	}
	c.key = key
	return key, nil
}

func (c *CachedSource) Describe() string {
	return c.source.Describe()
}

func missing(source Source) error {
	return fmt.Errorf("%w: %s", ErrMissingAPIKey, MissingMessage(source))
}
