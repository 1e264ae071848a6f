// File: internal/secrets/publisher.go
// Brief: Resolve named secret documents and publish them wholesale.

// Package secrets merges a base secret document with an optional override and
// writes the result to a single destination ARN, replacing the previous
// content in one shot. It runs independently of the deploy path; the deployer
// only ever reads what was published here.
package secrets

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

// Store is the narrow secret-store capability the publisher needs.
type Store interface {
	Read(ctx context.Context, name string) (map[string]string, error)
	Write(ctx context.Context, arn string, values map[string]string) error
}

// Error wraps secret-store failures with the document that caused them.
type Error struct {
	Document string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("secrets: %s: %v", e.Document, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Publisher pushes merged secret documents.
type Publisher struct {
	store Store
	log   *zap.Logger

	// Transient store failures are retried a bounded number of times.
	attempts uint64
	backoff  time.Duration
}

func NewPublisher(store Store, log *zap.Logger) *Publisher {
	return &Publisher{store: store, log: log, attempts: 4, backoff: 500 * time.Millisecond}
}

// Request names the documents of one publish.
type Request struct {
	Environment    string
	Service        string
	SecretsName    string
	OverrideName   string
	DestinationARN string
}

// Publish resolves the base document and the optional override, merges them
// (override wins per key), and replaces the destination's content wholesale.
func (p *Publisher) Publish(ctx context.Context, req Request) error {
	if req.SecretsName == "" {
		return &Error{Document: "(base)", Err: fmt.Errorf("secrets name is required")}
	}
	if req.DestinationARN == "" {
		return &Error{Document: req.SecretsName, Err: fmt.Errorf("destination ARN is required")}
	}

	base, err := p.read(ctx, req.SecretsName)
	if err != nil {
		return err
	}
	merged := base
	if req.OverrideName != "" {
		override, err := p.read(ctx, req.OverrideName)
		if err != nil {
			return err
		}
		merged = Merge(base, override)
	}

	err = p.retrying(ctx, func(ctx context.Context) error {
		return p.store.Write(ctx, req.DestinationARN, merged)
	})
	if err != nil {
		return &Error{Document: req.DestinationARN, Err: err}
	}
	p.log.Info("published secrets",
		zap.String("environment", req.Environment),
		zap.String("service", req.Service),
		zap.String("source", req.SecretsName),
		zap.String("override", req.OverrideName),
		zap.Int("keys", len(merged)))
	return nil
}

func (p *Publisher) read(ctx context.Context, name string) (map[string]string, error) {
	var values map[string]string
	err := p.retrying(ctx, func(ctx context.Context) error {
		var err error
		values, err = p.store.Read(ctx, name)
		return err
	})
	if err != nil {
		return nil, &Error{Document: name, Err: err}
	}
	return values, nil
}

func (p *Publisher) retrying(ctx context.Context, fn func(context.Context) error) error {
	b := retry.WithMaxRetries(p.attempts, retry.NewExponential(p.backoff))
	return retry.Do(ctx, b, func(ctx context.Context) error {
		err := fn(ctx)
		if err != nil && IsTransient(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

// Merge combines a base document with an override: keys present in both take
// the override's value; keys present in only one side are preserved.
func Merge(base, override map[string]string) map[string]string {
	out := make(map[string]string, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}
