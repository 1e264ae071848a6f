// File: internal/config/document.go
// Brief: YAML round-trip for the editor flow.

package config

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ParseServiceConfig decodes, defaults, and validates a service document.
// Unknown keys are rejected so typos surface before they are silently dropped.
func ParseServiceConfig(raw []byte) (*ServiceConfig, error) {
	var cfg ServiceConfig
	if err := strictUnmarshal(raw, &cfg); err != nil {
		return nil, &ConfigError{Reason: err.Error()}
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ParseEnvironmentConfig decodes, defaults, and validates an environment
// document.
func ParseEnvironmentConfig(raw []byte) (*EnvironmentConfig, error) {
	var cfg EnvironmentConfig
	if err := strictUnmarshal(raw, &cfg); err != nil {
		return nil, &ConfigError{Reason: err.Error()}
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *ServiceConfig) Marshal() ([]byte, error)     { return marshalDoc(c) }
func (e *EnvironmentConfig) Marshal() ([]byte, error) { return marshalDoc(e) }

func marshalDoc(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func strictUnmarshal(raw []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}
