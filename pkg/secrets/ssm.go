package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
)

// SSMOptions configures an AWS SSM Parameter Store backend. When the static
// credential fields are empty the default AWS credential chain applies.
type SSMOptions struct {
	Region          string `mapstructure:"region"`
	Prefix          string `mapstructure:"prefix"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

// SSMClient is the part of the SSM API the store uses.
type SSMClient interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// SSMStore reads bundles from SSM. Each bundle is one SecureString parameter
// whose value is a JSON object mapping key names to string values.
type SSMStore struct {
	client SSMClient
	prefix string
}

// NewSSMStore builds an SSM-backed store from options.
func NewSSMStore(ctx context.Context, options SSMOptions) (*SSMStore, error) {
	if options.Region == "" {
		return nil, errors.New("region is required")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(options.Region),
	}
	if options.AccessKeyID != "" && options.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(options.AccessKeyID, options.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	return &SSMStore{
		client: ssm.NewFromConfig(awsCfg),
		prefix: options.Prefix,
	}, nil
}

// Fetch reads and decrypts the parameter behind path.
func (s *SSMStore) Fetch(ctx context.Context, path string) (Bundle, error) {
	name := s.parameterName(path)

	out, err := s.client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		var notFound *types.ParameterNotFound
		if errors.As(err, &notFound) {
			return Bundle{}, fmt.Errorf("%w: no parameter at %s", ErrFetchFailed, name)
		}
		return Bundle{}, fmt.Errorf("%w: reading parameter %s: %w", ErrFetchFailed, name, err)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return Bundle{}, fmt.Errorf("%w: parameter %s has no value", ErrFetchFailed, name)
	}

	// Decode errors deliberately omit the underlying error so no fragment of
	// the parameter value can reach logs.
	var kv map[string]string
	if err := json.Unmarshal([]byte(*out.Parameter.Value), &kv); err != nil {
		return Bundle{}, fmt.Errorf("%w: parameter %s is not a JSON object of strings", ErrFetchFailed, name)
	}

	return newBundle(path, kv), nil
}

func (s *SSMStore) parameterName(path string) string {
	name := strings.TrimSuffix(s.prefix, "/") + "/" + strings.TrimPrefix(path, "/")
	if !strings.HasPrefix(name, "/") {
		name = "/" + name
	}
	return name
}
