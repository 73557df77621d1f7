package credentials

import (
	"context"
	"errors"
	"fmt"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
)

// ssmAPI is the part of *ssm.Client used here
type ssmAPI interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// SSMSource reads the key from an AWS Systems Manager parameter
type SSMSource struct {
	api  ssmAPI
	name string
}

func NewSSMSource(api ssmAPI, name string) (*SSMSource, error) {
	if api == nil {
		return nil, errors.New("ssm api must not be nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("ssm parameter name is required")
	}
	return &SSMSource{api: api, name: name}, nil
}

func NewSSMSourceFromConfig(ctx context.Context, cfg SSMConfig) (*SSMSource, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	return NewSSMSource(ssm.NewFromConfig(awsCfg), cfg.ParameterName)
}

func (s *SSMSource) APIKey(ctx context.Context) (string, error) {
	withDecryption := true
	out, err := s.api.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           &s.name,
		WithDecryption: &withDecryption,
	})
	if err != nil {
		var notFound *types.ParameterNotFound
		if errors.As(err, &notFound) {
			return "", missing(s)
		}
		return "", fmt.Errorf("failed to get parameter %q: %w", s.name, err)
	}
	if out == nil || out.Parameter == nil || out.Parameter.Value == nil || strings.TrimSpace(*out.Parameter.Value) == "" {
		return "", missing(s)
	}
	return strings.TrimSpace(*out.Parameter.Value), nil
}

func (s *SSMSource) Describe() string {
	return "SSM parameter " + s.name
}
