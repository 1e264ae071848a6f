// File: internal/deployer/buildconfig.go
// Brief: Container environment assembly from parameter store and secrets.

package deployer

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/example/liftctl/internal/config"
)

// ParameterStore reads the non-secret configuration keys published under the
// /<environment>/<service>/ path convention.
type ParameterStore interface {
	ServiceParameters(ctx context.Context, environment, service string) (map[string]string, error)
}

// SecretReader resolves a named secret document to its key/value mapping and
// the ARN container secrets must reference.
type SecretReader interface {
	ReadWithARN(ctx context.Context, name string) (map[string]string, string, error)
}

// ContainerConfig is the rendered runtime configuration of one container:
// plain environment values and secret references resolved at task start.
type ContainerConfig struct {
	Environment map[string]string
	// Secrets maps an environment key to the store reference the runtime
	// resolves it from.
	Secrets map[string]string
}

// BuildConfig assembles the container configuration for one service. Keys
// present in the secret document are injected as runtime secret references;
// everything else comes from the parameter store as plain environment. When
// sampleKeys is non-empty every named key must be covered by the union of
// both sources.
func BuildConfig(ctx context.Context, params ParameterStore, secrets SecretReader, environment, service, secretsName string, sampleKeys []string) (*ContainerConfig, error) {
	values, err := params.ServiceParameters(ctx, environment, service)
	if err != nil {
		return nil, fmt.Errorf("read parameters for %s/%s: %w", environment, service, err)
	}

	cfg := &ContainerConfig{
		Environment: make(map[string]string, len(values)),
		Secrets:     map[string]string{},
	}
	for k, v := range values {
		cfg.Environment[k] = v
	}

	if secretsName != "" && secrets != nil {
		doc, arn, err := secrets.ReadWithARN(ctx, secretsName)
		if err != nil {
			return nil, fmt.Errorf("read secrets %s: %w", secretsName, err)
		}
		for k := range doc {
			// Secret keys shadow parameter-store keys.
			delete(cfg.Environment, k)
			cfg.Secrets[k] = fmt.Sprintf("%s:%s::", arn, k)
		}
	}

	if missing := missingKeys(cfg, sampleKeys); len(missing) > 0 {
		return nil, &config.ConfigError{
			Field:  "env.sample",
			Reason: fmt.Sprintf("keys not configured for %s/%s: %s", environment, service, strings.Join(missing, ", ")),
		}
	}
	return cfg, nil
}

func missingKeys(cfg *ContainerConfig, sampleKeys []string) []string {
	var missing []string
	for _, k := range sampleKeys {
		if _, ok := cfg.Environment[k]; ok {
			continue
		}
		if _, ok := cfg.Secrets[k]; ok {
			continue
		}
		missing = append(missing, k)
	}
	sort.Strings(missing)
	return missing
}
