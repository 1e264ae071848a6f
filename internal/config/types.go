// File: internal/config/types.go
// Brief: Declarative service and environment configuration documents.

// Package config defines the declarative documents liftctl compiles into
// infrastructure: one ServiceConfig per application (a set of named
// ServiceSpecs plus environment-wide notification wiring) and one
// EnvironmentConfig per environment. Documents round-trip through YAML so the
// editor flow stays outside the core.
package config

type ServiceConfig struct {
	Version          string                 `yaml:"version,omitempty" json:"version,omitempty"`
	NotificationsARN string                 `yaml:"notifications_arn" json:"notifications_arn"`
	Services         map[string]ServiceSpec `yaml:"services" json:"services"`
}

// ServiceSpec describes one deployable container workload.
type ServiceSpec struct {
	Command           *string            `yaml:"command" json:"command"`
	MemoryReservation int                `yaml:"memory_reservation" json:"memory_reservation" validate:"min=10,max=8000"`
	MemoryHardLimit   int                `yaml:"memory_hard_limit,omitempty" json:"memory_hard_limit,omitempty"`
	StopTimeout       *int               `yaml:"stop_timeout,omitempty" json:"stop_timeout,omitempty"`
	HTTPInterface     *HTTPInterface     `yaml:"http_interface,omitempty" json:"http_interface,omitempty"`
	Volume            *Volume            `yaml:"volume,omitempty" json:"volume,omitempty"`
	Autoscaling       *Autoscaling       `yaml:"autoscaling,omitempty" json:"autoscaling,omitempty"`
	CustomMetrics     *CustomMetrics     `yaml:"custom_metrics,omitempty" json:"custom_metrics,omitempty"`
	HealthCheck       *ContainerHealth   `yaml:"container_health_check,omitempty" json:"container_health_check,omitempty"`
	Logging           *LogConfiguration  `yaml:"logging,omitempty" json:"logging,omitempty"`
	Ulimits           []Ulimit           `yaml:"ulimits,omitempty" json:"ulimits,omitempty"`
	Labels            map[string]string  `yaml:"container_labels,omitempty" json:"container_labels,omitempty"`
	SecretsName       string             `yaml:"secrets_name,omitempty" json:"secrets_name,omitempty"`
	SecretsOverride   string             `yaml:"secrets_override,omitempty" json:"secrets_override,omitempty"`
}

type HTTPInterface struct {
	ContainerPort    int        `yaml:"container_port" json:"container_port" validate:"min=1,max=65535"`
	Internal         bool       `yaml:"internal" json:"internal"`
	RestrictAccessTo []string   `yaml:"restrict_access_to" json:"restrict_access_to" validate:"min=1,dive,cidr"`
	HealthCheckPath  string     `yaml:"health_check_path,omitempty" json:"health_check_path,omitempty"`
	ALB              *ALBConfig `yaml:"alb,omitempty" json:"alb,omitempty"`
}

// ALBConfig selects exactly one placement mode: create a dedicated load
// balancer, or attach to an existing listener by rule.
type ALBConfig struct {
	CreateNew   bool             `yaml:"create_new,omitempty" json:"create_new,omitempty"`
	ListenerARN string           `yaml:"listener_arn,omitempty" json:"listener_arn,omitempty"`
	Host        string           `yaml:"host,omitempty" json:"host,omitempty"`
	Path        string           `yaml:"path,omitempty" json:"path,omitempty"`
	Priority    *int             `yaml:"priority,omitempty" json:"priority,omitempty"`
	Alarms      *ALBAlarmConfig  `yaml:"alarms,omitempty" json:"alarms,omitempty"`
}

type ALBAlarmConfig struct {
	FiveXXThreshold   *float64 `yaml:"http_5xx_threshold,omitempty" json:"http_5xx_threshold,omitempty"`
	P95LatencySeconds *float64 `yaml:"p95_latency_seconds,omitempty" json:"p95_latency_seconds,omitempty"`
	P99LatencySeconds *float64 `yaml:"p99_latency_seconds,omitempty" json:"p99_latency_seconds,omitempty"`
	EvaluationPeriods int      `yaml:"evaluation_periods,omitempty" json:"evaluation_periods,omitempty"`
	PeriodSeconds     int      `yaml:"period_seconds,omitempty" json:"period_seconds,omitempty"`
}

type Volume struct {
	EFSID            string `yaml:"efs_id" json:"efs_id"`
	EFSDirectoryPath string `yaml:"efs_directory_path" json:"efs_directory_path"`
	ContainerPath    string `yaml:"container_path" json:"container_path"`
}

// Autoscaling carries exactly one policy variant.
type Autoscaling struct {
	MinCapacity  int                  `yaml:"min_capacity" json:"min_capacity" validate:"min=0"`
	MaxCapacity  int                  `yaml:"max_capacity" json:"max_capacity" validate:"min=0"`
	RequestCount *RequestCountPolicy  `yaml:"request_count_per_target,omitempty" json:"request_count_per_target,omitempty"`
	CustomMetric *CustomMetricPolicy  `yaml:"custom_metric,omitempty" json:"custom_metric,omitempty"`
}

type RequestCountPolicy struct {
	TargetValue      float64 `yaml:"target_value" json:"target_value"`
	ScaleInCooldown  *int    `yaml:"scale_in_cooldown,omitempty" json:"scale_in_cooldown,omitempty"`
	ScaleOutCooldown *int    `yaml:"scale_out_cooldown,omitempty" json:"scale_out_cooldown,omitempty"`
}

type CustomMetricPolicy struct {
	Namespace        string            `yaml:"namespace" json:"namespace"`
	MetricName       string            `yaml:"metric_name" json:"metric_name"`
	Statistic        string            `yaml:"statistic" json:"statistic"`
	Unit             string            `yaml:"unit,omitempty" json:"unit,omitempty"`
	Dimensions       map[string]string `yaml:"dimensions,omitempty" json:"dimensions,omitempty"`
	TargetValue      float64           `yaml:"target_value" json:"target_value"`
	ScaleInCooldown  *int              `yaml:"scale_in_cooldown,omitempty" json:"scale_in_cooldown,omitempty"`
	ScaleOutCooldown *int              `yaml:"scale_out_cooldown,omitempty" json:"scale_out_cooldown,omitempty"`
}

type CustomMetrics struct {
	MetricsPort int    `yaml:"metrics_port" json:"metrics_port"`
	MetricsPath string `yaml:"metrics_path,omitempty" json:"metrics_path,omitempty"`
}

type ContainerHealth struct {
	Command     string `yaml:"command" json:"command"`
	Interval    *int   `yaml:"interval,omitempty" json:"interval,omitempty"`
	Timeout     *int   `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	Retries     *int   `yaml:"retries,omitempty" json:"retries,omitempty"`
	StartPeriod *int   `yaml:"start_period,omitempty" json:"start_period,omitempty"`
}

type LogConfiguration struct {
	Driver  string            `yaml:"driver" json:"driver"`
	Options map[string]string `yaml:"options,omitempty" json:"options,omitempty"`
}

type Ulimit struct {
	Name string `yaml:"name" json:"name"`
	Soft int    `yaml:"soft" json:"soft"`
	Hard int    `yaml:"hard" json:"hard"`
}

// EnvironmentConfig is created by create-environment and mutated only through
// update-environment; the whole document round-trips through the editor and is
// re-validated on save.
type EnvironmentConfig struct {
	Version            string   `yaml:"version,omitempty" json:"version,omitempty"`
	Region             string   `yaml:"region" json:"region" validate:"required"`
	VPCCIDR            string   `yaml:"vpc_cidr" json:"vpc_cidr" validate:"required,cidr"`
	PublicSubnetCIDRs  []string `yaml:"public_subnet_cidrs" json:"public_subnet_cidrs" validate:"len=2,dive,cidr"`
	PrivateSubnetCIDRs []string `yaml:"private_subnet_cidrs" json:"private_subnet_cidrs" validate:"len=2,dive,cidr"`
	NATAllocationID    string   `yaml:"nat_allocation_id" json:"nat_allocation_id"`
	MinInstances       int      `yaml:"min_instances" json:"min_instances"`
	MaxInstances       int      `yaml:"max_instances" json:"max_instances"`
	SSHKeyName         string   `yaml:"ssh_key_name" json:"ssh_key_name"`
	NotificationsARN   string   `yaml:"notifications_arn" json:"notifications_arn"`
	CertificateARN     string   `yaml:"certificate_arn" json:"certificate_arn"`
	DefaultListenerARN string   `yaml:"default_listener_arn,omitempty" json:"default_listener_arn,omitempty"`
	// AllocatableMemoryMB bounds the derived hard memory limit of every task.
	AllocatableMemoryMB int `yaml:"allocatable_memory_mb,omitempty" json:"allocatable_memory_mb,omitempty"`
}
