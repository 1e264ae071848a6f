// File: internal/deployer/verifier.go
// Brief: Optional HTTP smoke check after rollout.

package deployer

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// HTTPVerifier probes each service's health-check URL once after rollout.
// Services without an endpoint are skipped.
type HTTPVerifier struct {
	// Endpoints maps service name to the absolute health-check URL.
	Endpoints map[string]string
	Client    *http.Client
}

func (v *HTTPVerifier) Probe(ctx context.Context, service string) error {
	url, ok := v.Endpoints[service]
	if !ok || url == "" {
		return nil
	}
	client := v.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("probe %s: %w", service, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("probe %s: %w", service, err)
	}
	resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("probe %s: %s returned %d", service, url, resp.StatusCode)
	}
	return nil
}
