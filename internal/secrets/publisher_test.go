// File: internal/secrets/publisher_test.go
// Brief: Merge semantics and retry behavior of the secrets publisher.

package secrets

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"go.uber.org/zap"
)

type fakeStore struct {
	docs       map[string]map[string]string
	readErr    error
	written    map[string]string
	writtenARN string
	writeCalls int
	writeErrs  []error
}

func (s *fakeStore) Read(ctx context.Context, name string) (map[string]string, error) {
	if s.readErr != nil {
		return nil, s.readErr
	}
	doc, ok := s.docs[name]
	if !ok {
		return nil, errors.New("ResourceNotFoundException: secret not found")
	}
	return doc, nil
}

func (s *fakeStore) Write(ctx context.Context, arn string, values map[string]string) error {
	s.writeCalls++
	if len(s.writeErrs) > 0 {
		err := s.writeErrs[0]
		s.writeErrs = s.writeErrs[1:]
		return err
	}
	s.writtenARN = arn
	s.written = values
	return nil
}

func fastPublisher(store Store) *Publisher {
	p := NewPublisher(store, zap.NewNop())
	p.backoff = time.Millisecond
	return p
}

func TestMerge(t *testing.T) {
	base := map[string]string{"DATABASE_URL": "postgres://base", "REDIS_URL": "redis://shared"}
	override := map[string]string{"DATABASE_URL": "postgres://override", "API_KEY": "k"}

	got := Merge(base, override)
	want := map[string]string{
		"DATABASE_URL": "postgres://override",
		"REDIS_URL":    "redis://shared",
		"API_KEY":      "k",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("merged = %v, want %v", got, want)
	}
	// Inputs are never mutated.
	if base["DATABASE_URL"] != "postgres://base" {
		t.Error("base document mutated by merge")
	}
}

func TestPublishWithOverride(t *testing.T) {
	store := &fakeStore{docs: map[string]map[string]string{
		"staging/shared": {"DATABASE_URL": "postgres://shared", "REDIS_URL": "redis://shared"},
		"staging/api":    {"DATABASE_URL": "postgres://api"},
	}}

	err := fastPublisher(store).Publish(context.Background(), Request{
		Environment:    "staging",
		Service:        "api",
		SecretsName:    "staging/shared",
		OverrideName:   "staging/api",
		DestinationARN: "arn:aws:secretsmanager:us-east-1:123456789012:secret:staging/api-AbCdEf",
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	want := map[string]string{
		"DATABASE_URL": "postgres://api",
		"REDIS_URL":    "redis://shared",
	}
	if !reflect.DeepEqual(store.written, want) {
		t.Errorf("written = %v, want %v", store.written, want)
	}
}

func TestPublishMissingBaseDocument(t *testing.T) {
	store := &fakeStore{docs: map[string]map[string]string{}}

	err := fastPublisher(store).Publish(context.Background(), Request{
		SecretsName:    "staging/missing",
		DestinationARN: "arn:destination",
	})
	var serr *Error
	if !errors.As(err, &serr) {
		t.Fatalf("error type %T, want *Error", err)
	}
	if serr.Document != "staging/missing" {
		t.Errorf("document = %q", serr.Document)
	}
	if store.writeCalls != 0 {
		t.Error("write attempted after failed read")
	}
}

func TestPublishRetriesTransientWrite(t *testing.T) {
	store := &fakeStore{
		docs:      map[string]map[string]string{"staging/api": {"K": "v"}},
		writeErrs: []error{errors.New("throttling: rate exceeded"), errors.New("request timeout")},
	}

	err := fastPublisher(store).Publish(context.Background(), Request{
		SecretsName:    "staging/api",
		DestinationARN: "arn:destination",
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if store.writeCalls != 3 {
		t.Errorf("write calls = %d, want 3", store.writeCalls)
	}
	if store.writtenARN != "arn:destination" {
		t.Errorf("written ARN = %q", store.writtenARN)
	}
}

func TestPublishDoesNotRetryPermanentWrite(t *testing.T) {
	store := &fakeStore{
		docs:      map[string]map[string]string{"staging/api": {"K": "v"}},
		writeErrs: []error{errors.New("AccessDeniedException: not authorized"), nil, nil, nil, nil},
	}

	err := fastPublisher(store).Publish(context.Background(), Request{
		SecretsName:    "staging/api",
		DestinationARN: "arn:destination",
	})
	var serr *Error
	if !errors.As(err, &serr) {
		t.Fatalf("error type %T, want *Error", err)
	}
	if store.writeCalls != 1 {
		t.Errorf("write calls = %d, want 1", store.writeCalls)
	}
}
