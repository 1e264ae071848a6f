// File: internal/config/validate_test.go
// Brief: Defaulting and validation behavior of the configuration documents.

package config

import (
	"errors"
	"strings"
	"testing"
)

func validService() ServiceSpec {
	return ServiceSpec{
		MemoryReservation: 250,
		HTTPInterface: &HTTPInterface{
			ContainerPort:    80,
			RestrictAccessTo: []string{"0.0.0.0/0"},
		},
	}
}

func validDoc(mutate func(*ServiceConfig)) *ServiceConfig {
	cfg := &ServiceConfig{
		NotificationsARN: "arn:aws:sns:us-east-1:123456789012:alerts",
		Services:         map[string]ServiceSpec{"api": validService()},
	}
	if mutate != nil {
		mutate(cfg)
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestHardMemoryLimit(t *testing.T) {
	cases := []struct {
		soft, explicit, want int
	}{
		{100, 0, 150},
		{10, 0, 15},
		{333, 0, 500},
		{8000, 0, 12000},
		{100, 100, 100},
		{100, 512, 512},
		{100, 50, 150}, // explicit below soft is ignored
	}
	for _, tc := range cases {
		if got := HardMemoryLimit(tc.soft, tc.explicit); got != tc.want {
			t.Errorf("HardMemoryLimit(%d, %d) = %d, want %d", tc.soft, tc.explicit, got, tc.want)
		}
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := validDoc(func(c *ServiceConfig) {
		svc := validService()
		svc.HTTPInterface.ALB = &ALBConfig{Host: "api.example.com"}
		svc.HealthCheck = &ContainerHealth{Command: "curl -f localhost/health"}
		c.Services["api"] = svc
	})
	svc := cfg.Services["api"]

	if svc.MemoryHardLimit != 375 {
		t.Errorf("hard limit = %d, want 375", svc.MemoryHardLimit)
	}
	if got := svc.HTTPInterface.HealthCheckPath; got != DefaultHealthCheckPath {
		t.Errorf("health check path = %q, want %q", got, DefaultHealthCheckPath)
	}
	if svc.Logging == nil || svc.Logging.Driver != DefaultLogDriver {
		t.Errorf("log driver not defaulted: %+v", svc.Logging)
	}
	alarms := svc.HTTPInterface.ALB.Alarms
	if alarms == nil {
		t.Fatal("alarm defaults not applied")
	}
	if *alarms.FiveXXThreshold != DefaultHTTP5xxThreshold {
		t.Errorf("5xx threshold = %v, want %v", *alarms.FiveXXThreshold, DefaultHTTP5xxThreshold)
	}
	if *alarms.P95LatencySeconds != DefaultP95LatencySeconds || *alarms.P99LatencySeconds != DefaultP99LatencySeconds {
		t.Errorf("latency thresholds = %v/%v", *alarms.P95LatencySeconds, *alarms.P99LatencySeconds)
	}
	hc := svc.HealthCheck
	if *hc.Interval != DefaultHealthCheckInterval || *hc.Timeout != DefaultHealthCheckTimeout ||
		*hc.Retries != DefaultHealthCheckRetries || *hc.StartPeriod != DefaultHealthCheckStartPeriod {
		t.Errorf("health check defaults = %d/%d/%d/%d", *hc.Interval, *hc.Timeout, *hc.Retries, *hc.StartPeriod)
	}
}

func TestServiceConfigValidateRejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*ServiceConfig)
		field  string
	}{
		{
			name:   "missing notifications arn",
			mutate: func(c *ServiceConfig) { c.NotificationsARN = "" },
			field:  "notifications_arn",
		},
		{
			name:   "no services",
			mutate: func(c *ServiceConfig) { c.Services = nil },
			field:  "services",
		},
		{
			name: "bad service name",
			mutate: func(c *ServiceConfig) {
				c.Services["9bad"] = validService()
			},
			field: "services.9bad",
		},
		{
			name: "memory reservation below floor",
			mutate: func(c *ServiceConfig) {
				svc := validService()
				svc.MemoryReservation = 5
				c.Services["api"] = svc
			},
			field: "memory_reservation",
		},
		{
			name: "memory reservation above ceiling",
			mutate: func(c *ServiceConfig) {
				svc := validService()
				svc.MemoryReservation = 9000
				c.Services["api"] = svc
			},
			field: "memory_reservation",
		},
		{
			name: "malformed cidr",
			mutate: func(c *ServiceConfig) {
				svc := validService()
				svc.HTTPInterface.RestrictAccessTo = []string{"not-a-cidr"}
				c.Services["api"] = svc
			},
			field: "restrict_access_to",
		},
		{
			name: "create_new with listener_arn",
			mutate: func(c *ServiceConfig) {
				svc := validService()
				svc.HTTPInterface.ALB = &ALBConfig{CreateNew: true, ListenerARN: "arn:aws:elb:..."}
				c.Services["api"] = svc
			},
			field: ".alb",
		},
		{
			name: "reused listener without host or path",
			mutate: func(c *ServiceConfig) {
				svc := validService()
				svc.HTTPInterface.ALB = &ALBConfig{}
				c.Services["api"] = svc
			},
			field: ".alb",
		},
		{
			name: "priority out of range",
			mutate: func(c *ServiceConfig) {
				svc := validService()
				p := 50001
				svc.HTTPInterface.ALB = &ALBConfig{Host: "x", Priority: &p}
				c.Services["api"] = svc
			},
			field: ".alb.priority",
		},
		{
			name: "both autoscaling policies",
			mutate: func(c *ServiceConfig) {
				svc := validService()
				svc.Autoscaling = &Autoscaling{
					MinCapacity:  1,
					MaxCapacity:  2,
					RequestCount: &RequestCountPolicy{TargetValue: 100},
					CustomMetric: &CustomMetricPolicy{Namespace: "x", MetricName: "y", Statistic: "Average", TargetValue: 1},
				}
				c.Services["api"] = svc
			},
			field: ".autoscaling",
		},
		{
			name: "request count without http interface",
			mutate: func(c *ServiceConfig) {
				svc := validService()
				svc.HTTPInterface = nil
				svc.Autoscaling = &Autoscaling{
					MinCapacity:  1,
					MaxCapacity:  2,
					RequestCount: &RequestCountPolicy{TargetValue: 100},
				}
				c.Services["api"] = svc
			},
			field: "request_count_per_target",
		},
		{
			name: "secrets override without name",
			mutate: func(c *ServiceConfig) {
				svc := validService()
				svc.SecretsOverride = "staging-overrides"
				c.Services["api"] = svc
			},
			field: "secrets_override",
		},
		{
			name: "ulimit hard below soft",
			mutate: func(c *ServiceConfig) {
				svc := validService()
				svc.Ulimits = []Ulimit{{Name: "nofile", Soft: 1024, Hard: 512}}
				c.Services["api"] = svc
			},
			field: "ulimits[0]",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validDoc(tc.mutate).Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("error type %T, want *ConfigError", err)
			}
			if !strings.Contains(cfgErr.Field, tc.field) {
				t.Errorf("field path %q does not contain %q", cfgErr.Field, tc.field)
			}
		})
	}
}

func TestServiceConfigValidateAccepts(t *testing.T) {
	if err := validDoc(nil).Validate(); err != nil {
		t.Fatalf("valid document rejected: %v", err)
	}
}

func TestParseServiceConfigRejectsUnknownKeys(t *testing.T) {
	raw := []byte(`
notifications_arn: arn:aws:sns:us-east-1:123456789012:alerts
services:
  api:
    memory_reservation: 100
    memory_reservatoin: 200
`)
	if _, err := ParseServiceConfig(raw); err == nil {
		t.Fatal("expected unknown key to be rejected")
	}
}

func TestEnvironmentConfigValidate(t *testing.T) {
	env := func() *EnvironmentConfig {
		e := &EnvironmentConfig{
			Region:             "us-east-1",
			VPCCIDR:            "10.0.0.0/16",
			PublicSubnetCIDRs:  []string{"10.0.0.0/22", "10.0.4.0/22"},
			PrivateSubnetCIDRs: []string{"10.0.8.0/22", "10.0.12.0/22"},
		}
		e.ApplyDefaults()
		return e
	}

	if err := env().Validate(); err != nil {
		t.Fatalf("valid environment rejected: %v", err)
	}

	bad := env()
	bad.PublicSubnetCIDRs = []string{"10.0.0.0/22"}
	if err := bad.Validate(); err == nil {
		t.Error("expected error for single public subnet")
	}

	bad = env()
	bad.VPCCIDR = "10.0.0.0/99"
	if err := bad.Validate(); err == nil {
		t.Error("expected error for malformed vpc cidr")
	}

	bad = env()
	bad.MaxInstances = 0
	bad.MinInstances = 3
	if err := bad.Validate(); err == nil {
		t.Error("expected error for max below min")
	}
}
