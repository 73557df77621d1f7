package credentials

import (
	"context"
	"os"
	"strings"
)

type EnvSource struct {
	name   string
	lookup func(string) (string, bool)
}

func NewEnvSource(name string) *EnvSource {
	if name == "" {
		name = DefaultEnvVar
	}
	return &EnvSource{name: name, lookup: os.LookupEnv}
}

func (s *EnvSource) APIKey(_ context.Context) (string, error) {
	value, ok := s.lookup(s.name)
	if !ok || strings.TrimSpace(value) == "" {
		return "", missing(s)
	}
	return strings.TrimSpace(value), nil
}

func (s *EnvSource) Describe() string {
	return "Environment variable " + s.name
}
