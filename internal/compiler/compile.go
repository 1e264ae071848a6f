// File: internal/compiler/compile.go
// Brief: Service document + allocation plan -> resource graph.

package compiler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/example/liftctl/internal/allocator"
	"github.com/example/liftctl/internal/config"
)

// Options carry the per-deploy inputs that are not part of the documents.
type Options struct {
	Environment string
	ClusterName string
	// ImageURIs maps service name to the fully qualified image reference the
	// task definition pins.
	ImageURIs map[string]string
	// DesiredCounts preserves the live desired count per service; services
	// absent from the map start at zero.
	DesiredCounts map[string]int
	// ContainerEnv and ContainerSecrets are resolved at render time from the
	// parameter store and secret store respectively.
	ContainerEnv     map[string]map[string]string
	ContainerSecrets map[string]map[string]string
}

const (
	defaultHealthyThreshold      = 5
	defaultUnhealthyThreshold    = 2
	defaultHealthCheckInterval   = 30
	defaultHealthCheckTimeout    = 10
	defaultDeregistrationDelay   = 60
	defaultMinimumHealthyPercent = 100
	defaultMaximumPercent        = 200
)

// Compile synthesizes the full resource graph for one apply and merges it with
// the previous stack so unmanaged resources survive. Validation has already
// run; anything wrong here is a defect and aborts before any remote call.
func Compile(cfg *config.ServiceConfig, env *config.EnvironmentConfig, plan *allocator.Plan, prior *DeployedStackState, opts Options) (*ResourceGraph, error) {
	if opts.Environment == "" {
		return nil, compileErrf("", "environment name is required")
	}
	g := &ResourceGraph{Stack: fmt.Sprintf("%s-services", opts.Environment)}

	names := make([]string, 0, len(cfg.Services))
	for name := range cfg.Services {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		svc := cfg.Services[name]
		alloc, ok := plan.Services[name]
		if !ok {
			return nil, compileErrf(name, "no allocation for service")
		}
		if err := compileService(g, cfg, env, name, &svc, alloc, opts); err != nil {
			return nil, err
		}
	}

	if err := checkPriorityInvariant(g); err != nil {
		return nil, err
	}
	reconcile(g, prior)
	g.sortStable()
	return g, nil
}

func compileService(g *ResourceGraph, cfg *config.ServiceConfig, env *config.EnvironmentConfig, name string, svc *config.ServiceSpec, alloc allocator.ServiceAllocation, opts Options) error {
	owner := ownerTag(opts.Environment, name)

	td, err := taskDefinition(name, svc, env, opts)
	if err != nil {
		return err
	}
	tdID := resourceID(TypeTaskDefinition, name)
	g.add(Resource{ID: tdID, Type: TypeTaskDefinition, Owner: owner, Spec: td})

	svcSpec := ServiceResourceSpec{
		Cluster:               opts.ClusterName,
		TaskDefinition:        tdID,
		DesiredCount:          opts.DesiredCounts[name],
		MinimumHealthyPercent: defaultMinimumHealthyPercent,
		MaximumPercent:        defaultMaximumPercent,
		NetworkMode:           td.NetworkMode,
	}
	svcDeps := []string{tdID}

	if hi := svc.HTTPInterface; hi != nil {
		tgID, ruleDeps, err := compileHTTP(g, name, svc, hi, alloc, env, opts, owner)
		if err != nil {
			return err
		}
		svcSpec.TargetGroup = tgID
		svcSpec.ContainerName = containerName(name)
		svcSpec.ContainerPort = hi.ContainerPort
		svcDeps = append(svcDeps, ruleDeps...)
	}

	svcID := resourceID(TypeService, name)
	g.add(Resource{ID: svcID, Type: TypeService, Owner: owner, DependsOn: svcDeps, Spec: svcSpec})

	if svc.Autoscaling != nil {
		compileAutoscaling(g, name, svc, alloc, owner, svcID, opts)
	}
	return nil
}

func taskDefinition(name string, svc *config.ServiceSpec, env *config.EnvironmentConfig, opts Options) (TaskDefinitionSpec, error) {
	image, ok := opts.ImageURIs[name]
	if !ok || image == "" {
		return TaskDefinitionSpec{}, compileErrf(name, "no image reference for service")
	}
	if svc.MemoryHardLimit < svc.MemoryReservation {
		return TaskDefinitionSpec{}, compileErrf(name, "hard memory limit %d below reservation %d", svc.MemoryHardLimit, svc.MemoryReservation)
	}
	if svc.MemoryHardLimit > env.AllocatableMemoryMB {
		return TaskDefinitionSpec{}, compileErrf(name, "hard memory limit %d exceeds instance allocatable memory %d", svc.MemoryHardLimit, env.AllocatableMemoryMB)
	}

	c := ContainerSpec{
		Name:              containerName(name),
		Image:             image,
		Essential:         true,
		MemoryReservation: svc.MemoryReservation,
		MemoryLimit:       svc.MemoryHardLimit,
		Environment:       opts.ContainerEnv[name],
		Secrets:           opts.ContainerSecrets[name],
		Labels:            svc.Labels,
	}
	if svc.Command != nil && *svc.Command != "" {
		c.Command = []string{*svc.Command}
	}
	if svc.StopTimeout != nil {
		c.StopTimeout = *svc.StopTimeout
	}
	if hi := svc.HTTPInterface; hi != nil {
		c.PortMappings = []int{hi.ContainerPort}
	}
	if lc := svc.Logging; lc != nil {
		c.LogDriver = lc.Driver
		c.LogOptions = lc.Options
	}
	for _, ul := range svc.Ulimits {
		c.Ulimits = append(c.Ulimits, UlimitSpec(ul))
	}
	if hc := svc.HealthCheck; hc != nil {
		c.HealthCheck = &HealthCheckSpec{
			Command:     []string{"CMD-SHELL", hc.Command},
			Interval:    *hc.Interval,
			Timeout:     *hc.Timeout,
			Retries:     *hc.Retries,
			StartPeriod: *hc.StartPeriod,
		}
	}

	td := TaskDefinitionSpec{
		Family:     fmt.Sprintf("%s-%s", opts.Environment, name),
		Containers: []ContainerSpec{c},
	}
	// Metric scraping needs a per-task network identity.
	if svc.CustomMetrics != nil {
		td.NetworkMode = "awsvpc"
	}
	if vol := svc.Volume; vol != nil {
		volName := name + "-efs"
		td.Volumes = []VolumeSpec{{Name: volName, EFSID: vol.EFSID, RootDirectory: vol.EFSDirectoryPath}}
		td.Containers[0].MountPoints = []MountPointSpec{{SourceVolume: volName, ContainerPath: vol.ContainerPath}}
	}
	return td, nil
}

// checkPriorityInvariant re-verifies that no two listener rules in the final
// graph share a priority on the same listener. The allocator guarantees this;
// a violation here means the allocator raced a concurrent mutation.
func checkPriorityInvariant(g *ResourceGraph) error {
	seen := map[string]string{}
	for _, r := range g.ByType(TypeListenerRule) {
		rule := r.Spec.(ListenerRuleSpec)
		key := fmt.Sprintf("%s#%d", rule.ListenerARN, rule.Priority)
		if prev, ok := seen[key]; ok {
			return compileErrf(r.ID, "listener priority %d already assigned to %s", rule.Priority, prev)
		}
		seen[key] = r.ID
	}
	return nil
}

func resourceID(t ResourceType, service string) string {
	return string(t) + "/" + service
}

func containerName(service string) string {
	return service + "-container"
}

func sanitizeName(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			return r
		default:
			return '-'
		}
	}, s)
}
