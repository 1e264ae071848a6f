// File: internal/allocator/allocator.go
// Brief: Deterministic allocation of shared, order-sensitive identifiers.

// Package allocator assigns listener-rule priorities, target group names, and
// alarm names before compilation. Allocation is a pure function over the spec
// and a snapshot of the environment's prior state: repeated calls over an
// unchanged snapshot return byte-identical plans, so an unchanged deploy
// produces no spurious stack diff.
package allocator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/example/liftctl/internal/config"
)

const (
	// Valid listener-rule priority domain on an ALB listener.
	MinPriority = 1
	MaxPriority = 50000
)

// Conflict reports an explicitly pinned identifier that is already taken in
// the prior state. It is user-fixable: pick a different value or drop the pin.
type Conflict struct {
	Service string
	Kind    string
	Value   string
	HeldBy  string
}

func (e *Conflict) Error() string {
	msg := fmt.Sprintf("allocation conflict: %s %q requested by service %q is already taken", e.Kind, e.Value, e.Service)
	if e.HeldBy != "" {
		msg += " (held by " + e.HeldBy + ")"
	}
	return msg
}

// PriorState is a read-only snapshot of the identifiers already in use in the
// environment. The caller serializes access; the allocator never mutates it.
type PriorState struct {
	// ListenerPriorities maps listener ARN -> occupied priority -> holder.
	ListenerPriorities map[string]map[int]string
	// TargetGroupNames and AlarmNames map name -> holder. Holders owned by a
	// service keep their allocation across runs.
	TargetGroupNames map[string]string
	AlarmNames       map[string]string
}

// AlarmNames are the per-service CloudWatch alarm identities.
type AlarmNames struct {
	HTTP5xx    string
	LatencyP95 string
	LatencyP99 string
}

// ServiceAllocation holds the identifiers assigned to one service.
type ServiceAllocation struct {
	ListenerARN      string
	ListenerPriority int
	TargetGroupName  string
	Alarms           AlarmNames
}

// Plan is the full allocation result, keyed by service name.
type Plan struct {
	Services map[string]ServiceAllocation
}

// Options carry environment-level inputs the spec may rely on implicitly.
type Options struct {
	Environment        string
	DefaultListenerARN string
}

// Allocate assigns identifiers for every service in the document. Services are
// visited in name order and each assignment is recorded into a scratch copy of
// the prior state, so two services in the same document can never collide with
// each other or with pre-existing resources.
func Allocate(cfg *config.ServiceConfig, opts Options, prior PriorState) (*Plan, error) {
	plan := &Plan{Services: make(map[string]ServiceAllocation, len(cfg.Services))}

	taken := scratch(prior)
	names := make([]string, 0, len(cfg.Services))
	for name := range cfg.Services {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		svc := cfg.Services[name]
		alloc := ServiceAllocation{}

		if hi := svc.HTTPInterface; hi != nil {
			tg, err := allocName(taken.targetGroups, targetGroupBase(opts.Environment, name, hi.Internal), name)
			if err != nil {
				return nil, err
			}
			alloc.TargetGroupName = tg

			// A spec without an alb block rides the environment's default
			// listener; only create_new opts out of listener placement.
			if alb := hi.ALB; alb == nil || !alb.CreateNew {
				listener := strings.TrimSpace(opts.DefaultListenerARN)
				var pinned *int
				if alb != nil {
					if l := strings.TrimSpace(alb.ListenerARN); l != "" {
						listener = l
					}
					pinned = alb.Priority
				}
				if listener == "" {
					return nil, &Conflict{Service: name, Kind: "listener", Value: "(none)",
						HeldBy: "no listener_arn set and the environment has no default listener"}
				}
				alloc.ListenerARN = listener
				prio, err := allocPriority(taken.priorities(listener), pinned, name)
				if err != nil {
					return nil, err
				}
				alloc.ListenerPriority = prio

				if alb != nil {
					alarms, err := allocAlarms(taken.alarms, opts.Environment, name)
					if err != nil {
						return nil, err
					}
					alloc.Alarms = alarms
				}
			}
		}
		plan.Services[name] = alloc
	}
	return plan, nil
}

func targetGroupBase(env, service string, internal bool) string {
	base := fmt.Sprintf("%s-%s-tg", env, service)
	if internal {
		base += "-int"
	}
	// Target group names cap at 32 characters; leave room for the numeric
	// collision suffix allocName may append (up to "-1000").
	if len(base) > 27 {
		base = base[:27]
	}
	return strings.Trim(base, "-")
}

type scratchState struct {
	listenerPriorities map[string]map[int]string
	targetGroups       map[string]string
	alarms             map[string]string
}

func scratch(prior PriorState) *scratchState {
	s := &scratchState{
		listenerPriorities: make(map[string]map[int]string, len(prior.ListenerPriorities)),
		targetGroups:       make(map[string]string, len(prior.TargetGroupNames)),
		alarms:             make(map[string]string, len(prior.AlarmNames)),
	}
	for arn, prios := range prior.ListenerPriorities {
		cp := make(map[int]string, len(prios))
		for p, holder := range prios {
			cp[p] = holder
		}
		s.listenerPriorities[arn] = cp
	}
	for k, v := range prior.TargetGroupNames {
		s.targetGroups[k] = v
	}
	for k, v := range prior.AlarmNames {
		s.alarms[k] = v
	}
	return s
}

func (s *scratchState) priorities(listener string) map[int]string {
	m, ok := s.listenerPriorities[listener]
	if !ok {
		m = make(map[int]string)
		s.listenerPriorities[listener] = m
	}
	return m
}

// allocPriority honors an explicit pin or picks the lowest free value in the
// priority domain.
func allocPriority(taken map[int]string, pinned *int, service string) (int, error) {
	if pinned != nil {
		if holder, ok := taken[*pinned]; ok && holder != service {
			return 0, &Conflict{Service: service, Kind: "listener priority", Value: fmt.Sprint(*pinned), HeldBy: holder}
		}
		taken[*pinned] = service
		return *pinned, nil
	}
	for p := MinPriority; p <= MaxPriority; p++ {
		if holder, ok := taken[p]; !ok || holder == service {
			taken[p] = service
			return p, nil
		}
	}
	return 0, &Conflict{Service: service, Kind: "listener priority", Value: "(exhausted)",
		HeldBy: fmt.Sprintf("all priorities in [%d, %d]", MinPriority, MaxPriority)}
}

// allocName keeps a name already held by the same service, otherwise takes the
// base name or the lowest numbered variant that is free.
func allocName(taken map[string]string, base, service string) (string, error) {
	candidate := base
	for i := 2; ; i++ {
		holder, ok := taken[candidate]
		if !ok || holder == service {
			taken[candidate] = service
			return candidate, nil
		}
		if i > 1000 {
			return "", &Conflict{Service: service, Kind: "target group name", Value: base, HeldBy: holder}
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}

func allocAlarms(taken map[string]string, env, service string) (AlarmNames, error) {
	mk := func(suffix string) (string, error) {
		return allocName(taken, fmt.Sprintf("%s-%s-%s", env, service, suffix), service)
	}
	http5xx, err := mk("elb-5xx")
	if err != nil {
		return AlarmNames{}, err
	}
	p95, err := mk("latency-p95")
	if err != nil {
		return AlarmNames{}, err
	}
	p99, err := mk("latency-p99")
	if err != nil {
		return AlarmNames{}, err
	}
	return AlarmNames{HTTP5xx: http5xx, LatencyP95: p95, LatencyP99: p99}, nil
}
