// File: internal/config/validate.go
// Brief: Pure, network-free validation of service and environment documents.

package config

import (
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var serviceNameRe = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9-]*$`)

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		tag := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if tag == "" || tag == "-" {
			return fld.Name
		}
		return tag
	})
	return v
}

// Validate checks the whole service document. Defaults must have been applied
// first; validation itself never mutates and never touches the network.
func (c *ServiceConfig) Validate() error {
	if c.NotificationsARN == "" {
		return errf("notifications_arn", "required field is missing")
	}
	if len(c.Services) == 0 {
		return errf("services", "at least one service must be defined")
	}
	v := newValidator()
	names := make([]string, 0, len(c.Services))
	for name := range c.Services {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if !serviceNameRe.MatchString(name) {
			return errf("services."+name, "service name must match %s", serviceNameRe.String())
		}
		svc := c.Services[name]
		if err := svc.validate(v, "services."+name); err != nil {
			return err
		}
	}
	return nil
}

func (s *ServiceSpec) validate(v *validator.Validate, path string) error {
	if err := translate(v.Struct(s), path); err != nil {
		return err
	}
	if s.MemoryHardLimit < s.MemoryReservation {
		return errf(path+".memory_hard_limit", "hard limit %d is below the reservation %d", s.MemoryHardLimit, s.MemoryReservation)
	}
	if hi := s.HTTPInterface; hi != nil {
		if err := hi.validate(path + ".http_interface"); err != nil {
			return err
		}
	}
	if vol := s.Volume; vol != nil {
		if vol.EFSID == "" || vol.EFSDirectoryPath == "" || vol.ContainerPath == "" {
			return errf(path+".volume", "efs_id, efs_directory_path, and container_path are all required")
		}
	}
	if as := s.Autoscaling; as != nil {
		if err := as.validate(path+".autoscaling", s.HTTPInterface != nil); err != nil {
			return err
		}
	}
	if hc := s.HealthCheck; hc != nil && strings.TrimSpace(hc.Command) == "" {
		return errf(path+".container_health_check.command", "required field is missing")
	}
	if s.SecretsOverride != "" && s.SecretsName == "" {
		return errf(path+".secrets_override", "secrets_override requires secrets_name")
	}
	for i, ul := range s.Ulimits {
		if ul.Name == "" {
			return errf(fmt.Sprintf("%s.ulimits[%d].name", path, i), "required field is missing")
		}
		if ul.Hard < ul.Soft {
			return errf(fmt.Sprintf("%s.ulimits[%d]", path, i), "hard limit %d is below soft limit %d", ul.Hard, ul.Soft)
		}
	}
	return nil
}

func (h *HTTPInterface) validate(path string) error {
	if alb := h.ALB; alb != nil {
		if alb.CreateNew && alb.ListenerARN != "" {
			return errf(path+".alb", "create_new and listener_arn are mutually exclusive")
		}
		if alb.CreateNew && alb.Priority != nil {
			return errf(path+".alb.priority", "priority applies only when attaching to an existing listener")
		}
		if !alb.CreateNew && alb.Host == "" && alb.Path == "" {
			return errf(path+".alb", "reused listener requires at least one of host or path")
		}
		if alb.Priority != nil && (*alb.Priority < 1 || *alb.Priority > 50000) {
			return errf(path+".alb.priority", "priority %d outside [1, 50000]", *alb.Priority)
		}
	}
	return nil
}

func (a *Autoscaling) validate(path string, hasHTTP bool) error {
	if a.MinCapacity > a.MaxCapacity {
		return errf(path, "min_capacity %d exceeds max_capacity %d", a.MinCapacity, a.MaxCapacity)
	}
	switch {
	case a.RequestCount == nil && a.CustomMetric == nil:
		return errf(path, "exactly one of request_count_per_target or custom_metric is required")
	case a.RequestCount != nil && a.CustomMetric != nil:
		return errf(path, "request_count_per_target and custom_metric are mutually exclusive")
	}
	if p := a.RequestCount; p != nil {
		if !hasHTTP {
			return errf(path+".request_count_per_target", "valid only for services with an http_interface")
		}
		if p.TargetValue <= 0 {
			return errf(path+".request_count_per_target.target_value", "must be positive")
		}
		if err := validCooldowns(path+".request_count_per_target", p.ScaleInCooldown, p.ScaleOutCooldown); err != nil {
			return err
		}
	}
	if p := a.CustomMetric; p != nil {
		if p.Namespace == "" || p.MetricName == "" || p.Statistic == "" {
			return errf(path+".custom_metric", "namespace, metric_name, and statistic are required")
		}
		if p.TargetValue <= 0 {
			return errf(path+".custom_metric.target_value", "must be positive")
		}
		if err := validCooldowns(path+".custom_metric", p.ScaleInCooldown, p.ScaleOutCooldown); err != nil {
			return err
		}
	}
	return nil
}

func validCooldowns(path string, in, out *int) error {
	if in != nil && *in < 0 {
		return errf(path+".scale_in_cooldown", "must be non-negative")
	}
	if out != nil && *out < 0 {
		return errf(path+".scale_out_cooldown", "must be non-negative")
	}
	return nil
}

// Validate checks an environment document.
func (e *EnvironmentConfig) Validate() error {
	v := newValidator()
	if err := translate(v.Struct(e), ""); err != nil {
		return err
	}
	if e.MinInstances < 1 {
		return errf("min_instances", "must be at least 1")
	}
	if e.MaxInstances < e.MinInstances {
		return errf("max_instances", "must be at least min_instances (%d)", e.MinInstances)
	}
	if e.AllocatableMemoryMB < 10 {
		return errf("allocatable_memory_mb", "must be at least 10")
	}
	return nil
}

// translate converts the first validator failure into a ConfigError carrying a
// dotted field path rooted at prefix.
func translate(err error, prefix string) error {
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return &ConfigError{Field: prefix, Reason: err.Error()}
	}
	fe := verrs[0]
	// Namespace starts with the struct type name; drop it.
	parts := strings.Split(fe.Namespace(), ".")
	field := strings.Join(parts[1:], ".")
	if prefix != "" {
		field = prefix + "." + field
	}
	switch fe.Tag() {
	case "cidr":
		return errf(field, "%q is not a valid CIDR block", fmt.Sprintf("%v", fe.Value()))
	case "required":
		return errf(field, "required field is missing")
	case "min", "max", "len":
		return errf(field, "value %v violates %s=%s", fe.Value(), fe.Tag(), fe.Param())
	default:
		return errf(field, "failed %s validation", fe.Tag())
	}
}
