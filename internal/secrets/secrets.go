// Package secrets resolves the oracle signer key from its configured source:
// a literal flag value for local runs, a key file, or AWS Secrets Manager in
// production. Errors never carry key material.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

var (
	ErrInvalidConfig = errors.New("secrets: invalid config")
	ErrNotFound      = errors.New("secrets: not found")
)

// KeySource names where the signer key lives. Exactly one field must be set.
type KeySource struct {
	// Hex is literal key material passed on the command line.
	Hex string
	// File is the path of a file holding the key.
	File string
	// SecretID is an AWS Secrets Manager secret id.
	SecretID string
}

type secretsClient interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// Resolve loads the key from the configured source. The AWS client is only
// constructed when SecretID is the source, so local runs need no AWS
// credentials.
func (s KeySource) Resolve(ctx context.Context) (string, error) {
	return s.resolve(ctx, func() (secretsClient, error) {
		cfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: load aws config: %v", ErrInvalidConfig, err)
		}
		return secretsmanager.NewFromConfig(cfg), nil
	})
}

func (s KeySource) resolve(ctx context.Context, newClient func() (secretsClient, error)) (string, error) {
	hex := strings.TrimSpace(s.Hex)
	file := strings.TrimSpace(s.File)
	secretID := strings.TrimSpace(s.SecretID)

	set := 0
	for _, v := range []string{hex, file, secretID} {
		if v != "" {
			set++
		}
	}
	if set == 0 {
		return "", fmt.Errorf("%w: no key source configured", ErrInvalidConfig)
	}
	if set > 1 {
		return "", fmt.Errorf("%w: multiple key sources configured", ErrInvalidConfig)
	}

	switch {
	case file != "":
		raw, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("secrets: read key file: %w", err)
		}
		key := strings.TrimSpace(string(raw))
		if key == "" {
			return "", fmt.Errorf("%w: key file %q is empty", ErrNotFound, file)
		}
		return key, nil
	case secretID != "":
		client, err := newClient()
		if err != nil {
			return "", err
		}
		return fetchSecret(ctx, client, secretID)
	default:
		return hex, nil
	}
}

func fetchSecret(ctx context.Context, client secretsClient, secretID string) (string, error) {
	out, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: &secretID,
	})
	if err != nil {
		return "", fmt.Errorf("secrets: get secret %q: %w", secretID, err)
	}
	if out.SecretString != nil && strings.TrimSpace(*out.SecretString) != "" {
		return strings.TrimSpace(*out.SecretString), nil
	}
	if len(out.SecretBinary) > 0 {
		return string(out.SecretBinary), nil
	}
	return "", fmt.Errorf("%w: secret %q has no value", ErrNotFound, secretID)
}
