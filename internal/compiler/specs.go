// File: internal/compiler/specs.go
// Brief: Typed resource payloads emitted into the graph.

package compiler

// TaskDefinitionSpec models one ECS task definition.
type TaskDefinitionSpec struct {
	Family      string          `json:"family"`
	NetworkMode string          `json:"network_mode,omitempty"`
	Volumes     []VolumeSpec    `json:"volumes,omitempty"`
	Containers  []ContainerSpec `json:"containers"`
}

type VolumeSpec struct {
	Name          string `json:"name"`
	EFSID         string `json:"efs_id"`
	RootDirectory string `json:"root_directory,omitempty"`
}

type ContainerSpec struct {
	Name              string            `json:"name"`
	Image             string            `json:"image"`
	Essential         bool              `json:"essential"`
	Command           []string          `json:"command,omitempty"`
	MemoryReservation int               `json:"memory_reservation"`
	MemoryLimit       int               `json:"memory_limit"`
	PortMappings      []int             `json:"port_mappings,omitempty"`
	Environment       map[string]string `json:"environment,omitempty"`
	Secrets           map[string]string `json:"secrets,omitempty"`
	Labels            map[string]string `json:"labels,omitempty"`
	LogDriver         string            `json:"log_driver,omitempty"`
	LogOptions        map[string]string `json:"log_options,omitempty"`
	Ulimits           []UlimitSpec      `json:"ulimits,omitempty"`
	HealthCheck       *HealthCheckSpec  `json:"health_check,omitempty"`
	MountPoints       []MountPointSpec  `json:"mount_points,omitempty"`
	StopTimeout       int               `json:"stop_timeout,omitempty"`
}

type UlimitSpec struct {
	Name string `json:"name"`
	Soft int    `json:"soft"`
	Hard int    `json:"hard"`
}

type HealthCheckSpec struct {
	Command     []string `json:"command"`
	Interval    int      `json:"interval"`
	Timeout     int      `json:"timeout"`
	Retries     int      `json:"retries"`
	StartPeriod int      `json:"start_period"`
}

type MountPointSpec struct {
	SourceVolume  string `json:"source_volume"`
	ContainerPath string `json:"container_path"`
}

// ServiceResourceSpec models one ECS service.
type ServiceResourceSpec struct {
	Cluster              string `json:"cluster"`
	TaskDefinition       string `json:"task_definition"`
	DesiredCount         int    `json:"desired_count"`
	MinimumHealthyPercent int   `json:"minimum_healthy_percent"`
	MaximumPercent       int    `json:"maximum_percent"`
	NetworkMode          string `json:"network_mode,omitempty"`
	TargetGroup          string `json:"target_group,omitempty"`
	ContainerName        string `json:"container_name,omitempty"`
	ContainerPort        int    `json:"container_port,omitempty"`
}

type TargetGroupSpec struct {
	Name                string `json:"name"`
	Port                int    `json:"port"`
	Protocol            string `json:"protocol"`
	TargetType          string `json:"target_type,omitempty"`
	HealthCheckPath     string `json:"health_check_path"`
	HealthyThreshold    int    `json:"healthy_threshold"`
	UnhealthyThreshold  int    `json:"unhealthy_threshold"`
	IntervalSeconds     int    `json:"interval_seconds"`
	TimeoutSeconds      int    `json:"timeout_seconds"`
	DeregistrationDelay int    `json:"deregistration_delay"`
}

type ListenerRuleSpec struct {
	ListenerARN string `json:"listener_arn"`
	Priority    int    `json:"priority"`
	Host        string `json:"host,omitempty"`
	Path        string `json:"path,omitempty"`
	TargetGroup string `json:"target_group"`
}

type LoadBalancerSpec struct {
	Name           string   `json:"name"`
	Scheme         string   `json:"scheme"`
	SubnetTier     string   `json:"subnet_tier"`
	CertificateARN string   `json:"certificate_arn,omitempty"`
	SecurityGroup  string   `json:"security_group"`
	TargetGroup    string   `json:"target_group"`
}

type SecurityGroupSpec struct {
	Name         string        `json:"name"`
	IngressRules []IngressRule `json:"ingress_rules"`
}

type IngressRule struct {
	Protocol string `json:"protocol"`
	FromPort int    `json:"from_port"`
	ToPort   int    `json:"to_port"`
	CIDR     string `json:"cidr"`
}

type AlarmSpec struct {
	Name               string            `json:"name"`
	Namespace          string            `json:"namespace"`
	MetricName         string            `json:"metric_name"`
	Statistic          string            `json:"statistic,omitempty"`
	ExtendedStatistic  string            `json:"extended_statistic,omitempty"`
	Dimensions         map[string]string `json:"dimensions,omitempty"`
	ComparisonOperator string            `json:"comparison_operator"`
	Threshold          float64           `json:"threshold"`
	PeriodSeconds      int               `json:"period_seconds"`
	EvaluationPeriods  int               `json:"evaluation_periods"`
	TreatMissingData   string            `json:"treat_missing_data,omitempty"`
	AlarmActions       []string          `json:"alarm_actions,omitempty"`
	OKActions          []string          `json:"ok_actions,omitempty"`
}

type ScalableTargetSpec struct {
	Service     string `json:"service"`
	MinCapacity int    `json:"min_capacity"`
	MaxCapacity int    `json:"max_capacity"`
	Dimension   string `json:"dimension"`
}

type ScalingPolicySpec struct {
	Target           string            `json:"target"`
	PolicyType       string            `json:"policy_type"`
	PredefinedMetric string            `json:"predefined_metric,omitempty"`
	ResourceLabel    string            `json:"resource_label,omitempty"`
	Namespace        string            `json:"namespace,omitempty"`
	MetricName       string            `json:"metric_name,omitempty"`
	Statistic        string            `json:"statistic,omitempty"`
	Unit             string            `json:"unit,omitempty"`
	Dimensions       map[string]string `json:"dimensions,omitempty"`
	TargetValue      float64           `json:"target_value"`
	ScaleInCooldown  int               `json:"scale_in_cooldown"`
	ScaleOutCooldown int               `json:"scale_out_cooldown"`
}
