// File: internal/config/defaults.go
// Brief: Documented defaults applied before validation and compilation.

package config

// Every optional knob has exactly one default, applied here before any
// downstream component runs. The compiler never re-defaults.
const (
	// Hard memory limit is derived from the soft reservation with a fixed
	// 1.5x multiplier, rounded up.
	MemoryHardLimitNum = 3
	MemoryHardLimitDen = 2

	DefaultHealthCheckPath = "/elb-check"

	DefaultHTTP5xxThreshold      = 3.0
	DefaultHTTP5xxPeriodSeconds  = 60
	DefaultHTTP5xxEvalPeriods    = 1
	DefaultP95LatencySeconds     = 1.0
	DefaultP99LatencySeconds     = 2.5
	DefaultLatencyPeriodSeconds  = 60
	DefaultLatencyEvalPeriods    = 3

	DefaultCooldownSeconds = 300

	DefaultHealthCheckInterval    = 30
	DefaultHealthCheckTimeout     = 5
	DefaultHealthCheckRetries     = 3
	DefaultHealthCheckStartPeriod = 0

	DefaultLogDriver = "awslogs"

	DefaultMetricsPath = "/metrics"

	DefaultAllocatableMemoryMB = 16384
)

// HardMemoryLimit derives the hard limit from a soft reservation. A limit the
// user set explicitly is kept as long as it is at least the reservation.
func HardMemoryLimit(soft, explicit int) int {
	if explicit >= soft && explicit > 0 {
		return explicit
	}
	return (soft*MemoryHardLimitNum + MemoryHardLimitDen - 1) / MemoryHardLimitDen
}

// ApplyDefaults fills every unset optional field of the document in place.
func (c *ServiceConfig) ApplyDefaults() {
	for name, svc := range c.Services {
		svc.applyDefaults()
		c.Services[name] = svc
	}
}

func (s *ServiceSpec) applyDefaults() {
	s.MemoryHardLimit = HardMemoryLimit(s.MemoryReservation, s.MemoryHardLimit)
	if s.HTTPInterface != nil {
		if s.HTTPInterface.HealthCheckPath == "" {
			s.HTTPInterface.HealthCheckPath = DefaultHealthCheckPath
		}
		if alb := s.HTTPInterface.ALB; alb != nil && !alb.CreateNew {
			if alb.Alarms == nil {
				alb.Alarms = &ALBAlarmConfig{}
			}
			alb.Alarms.applyDefaults()
		}
	}
	if s.Logging == nil {
		s.Logging = &LogConfiguration{Driver: DefaultLogDriver}
	}
	if s.CustomMetrics != nil && s.CustomMetrics.MetricsPath == "" {
		s.CustomMetrics.MetricsPath = DefaultMetricsPath
	}
	if hc := s.HealthCheck; hc != nil {
		if hc.Interval == nil {
			hc.Interval = intPtr(DefaultHealthCheckInterval)
		}
		if hc.Timeout == nil {
			hc.Timeout = intPtr(DefaultHealthCheckTimeout)
		}
		if hc.Retries == nil {
			hc.Retries = intPtr(DefaultHealthCheckRetries)
		}
		if hc.StartPeriod == nil {
			hc.StartPeriod = intPtr(DefaultHealthCheckStartPeriod)
		}
	}
	if as := s.Autoscaling; as != nil {
		if p := as.RequestCount; p != nil {
			if p.ScaleInCooldown == nil {
				p.ScaleInCooldown = intPtr(DefaultCooldownSeconds)
			}
			if p.ScaleOutCooldown == nil {
				p.ScaleOutCooldown = intPtr(DefaultCooldownSeconds)
			}
		}
		if p := as.CustomMetric; p != nil {
			if p.ScaleInCooldown == nil {
				p.ScaleInCooldown = intPtr(DefaultCooldownSeconds)
			}
			if p.ScaleOutCooldown == nil {
				p.ScaleOutCooldown = intPtr(DefaultCooldownSeconds)
			}
		}
	}
}

func (a *ALBAlarmConfig) applyDefaults() {
	if a.FiveXXThreshold == nil {
		a.FiveXXThreshold = floatPtr(DefaultHTTP5xxThreshold)
	}
	if a.P95LatencySeconds == nil {
		a.P95LatencySeconds = floatPtr(DefaultP95LatencySeconds)
	}
	if a.P99LatencySeconds == nil {
		a.P99LatencySeconds = floatPtr(DefaultP99LatencySeconds)
	}
	if a.EvaluationPeriods == 0 {
		a.EvaluationPeriods = DefaultLatencyEvalPeriods
	}
	if a.PeriodSeconds == 0 {
		a.PeriodSeconds = DefaultLatencyPeriodSeconds
	}
}

// ApplyDefaults fills unset environment knobs.
func (e *EnvironmentConfig) ApplyDefaults() {
	if e.AllocatableMemoryMB == 0 {
		e.AllocatableMemoryMB = DefaultAllocatableMemoryMB
	}
	if e.MinInstances == 0 {
		e.MinInstances = 1
	}
	if e.MaxInstances == 0 {
		e.MaxInstances = e.MinInstances
	}
}

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }
