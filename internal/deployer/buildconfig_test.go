// File: internal/deployer/buildconfig_test.go
// Brief: Container configuration assembly and sample-key coverage checks.

package deployer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/example/liftctl/internal/config"
)

type fakeParams struct {
	values map[string]string
	err    error
}

func (p *fakeParams) ServiceParameters(ctx context.Context, environment, service string) (map[string]string, error) {
	return p.values, p.err
}

type fakeSecrets struct {
	doc map[string]string
	arn string
	err error
}

func (s *fakeSecrets) ReadWithARN(ctx context.Context, name string) (map[string]string, string, error) {
	return s.doc, s.arn, s.err
}

func TestBuildConfigSecretsShadowParameters(t *testing.T) {
	params := &fakeParams{values: map[string]string{
		"PORT":         "80",
		"DATABASE_URL": "postgres://stale",
	}}
	secrets := &fakeSecrets{
		doc: map[string]string{"DATABASE_URL": "postgres://real"},
		arn: "arn:aws:secretsmanager:us-east-1:123456789012:secret:staging/api-AbCdEf",
	}

	cfg, err := BuildConfig(context.Background(), params, secrets, "staging", "api", "staging/api", nil)
	if err != nil {
		t.Fatalf("build config: %v", err)
	}
	if _, ok := cfg.Environment["DATABASE_URL"]; ok {
		t.Error("secret key still present as plain environment")
	}
	if cfg.Environment["PORT"] != "80" {
		t.Errorf("PORT = %q", cfg.Environment["PORT"])
	}
	want := secrets.arn + ":DATABASE_URL::"
	if cfg.Secrets["DATABASE_URL"] != want {
		t.Errorf("secret ref = %q, want %q", cfg.Secrets["DATABASE_URL"], want)
	}
}

func TestBuildConfigMissingSampleKeys(t *testing.T) {
	params := &fakeParams{values: map[string]string{"PORT": "80"}}
	secrets := &fakeSecrets{doc: map[string]string{"API_KEY": "x"}, arn: "arn:secret"}

	_, err := BuildConfig(context.Background(), params, secrets, "staging", "api", "staging/api",
		[]string{"PORT", "API_KEY", "REDIS_URL", "DATABASE_URL"})
	var cfgErr *config.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("error type %T, want *ConfigError", err)
	}
	if cfgErr.Field != "env.sample" {
		t.Errorf("field = %q", cfgErr.Field)
	}
	// Missing keys are reported sorted so the message is stable.
	if !strings.Contains(cfgErr.Reason, "DATABASE_URL, REDIS_URL") {
		t.Errorf("reason = %q", cfgErr.Reason)
	}
}

func TestBuildConfigWithoutSecretsDocument(t *testing.T) {
	params := &fakeParams{values: map[string]string{"PORT": "80"}}

	cfg, err := BuildConfig(context.Background(), params, nil, "staging", "worker", "", []string{"PORT"})
	if err != nil {
		t.Fatalf("build config: %v", err)
	}
	if len(cfg.Secrets) != 0 {
		t.Errorf("secrets = %v, want none", cfg.Secrets)
	}
}

func TestBuildConfigParameterReadFailure(t *testing.T) {
	params := &fakeParams{err: errors.New("AccessDeniedException")}
	if _, err := BuildConfig(context.Background(), params, nil, "staging", "api", "", nil); err == nil {
		t.Fatal("expected error")
	}
}
