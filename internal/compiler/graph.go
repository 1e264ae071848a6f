// File: internal/compiler/graph.go
// Brief: The compiled resource graph and its deterministic rendering.

// Package compiler maps a validated service document plus an allocation plan
// into the full infrastructure resource graph for one apply, and reconciles it
// against the previously deployed graph so resources outside the compiler's
// ownership boundary are never touched.
package compiler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// OwnerTagKey marks resources emitted by this compiler. Resources without a
// liftctl owner tag are external and outside the deletion boundary.
const OwnerTagKey = "liftctl:owner"

type ResourceType string

const (
	TypeTaskDefinition ResourceType = "ecs:task-definition"
	TypeService        ResourceType = "ecs:service"
	TypeTargetGroup    ResourceType = "elbv2:target-group"
	TypeListenerRule   ResourceType = "elbv2:listener-rule"
	TypeLoadBalancer   ResourceType = "elbv2:load-balancer"
	TypeSecurityGroup  ResourceType = "ec2:security-group"
	TypeAlarm          ResourceType = "cloudwatch:alarm"
	TypeScalableTarget ResourceType = "appautoscaling:target"
	TypeScalingPolicy  ResourceType = "appautoscaling:policy"
)

// Resource is one node of the graph. Owner is "liftctl:<env>:<service>" for
// compiler-emitted resources and empty for external resources carried through
// a merge.
type Resource struct {
	ID        string       `json:"id"`
	Type      ResourceType `json:"type"`
	Owner     string       `json:"owner,omitempty"`
	DependsOn []string     `json:"depends_on,omitempty"`
	Spec      any          `json:"spec"`
}

// ResourceGraph is the complete set of resources for one stack apply, plus the
// identifiers of previously owned resources that this apply removes.
type ResourceGraph struct {
	Stack     string     `json:"stack"`
	Resources []Resource `json:"resources"`
	Removed   []string   `json:"removed,omitempty"`
}

// CompileError is an internal invariant violation surfacing after validation.
// It always indicates a defect, never bad user input, and aborts the deploy
// before any remote call.
type CompileError struct {
	Resource string
	Reason   string
}

func (e *CompileError) Error() string {
	if e.Resource == "" {
		return "compile: " + e.Reason
	}
	return fmt.Sprintf("compile: %s: %s", e.Resource, e.Reason)
}

func compileErrf(resource, format string, args ...any) *CompileError {
	return &CompileError{Resource: resource, Reason: fmt.Sprintf(format, args...)}
}

func ownerTag(env, service string) string {
	return fmt.Sprintf("liftctl:%s:%s", env, service)
}

func (g *ResourceGraph) add(r Resource) {
	g.Resources = append(g.Resources, r)
}

// Resource looks a node up by ID.
func (g *ResourceGraph) Resource(id string) (Resource, bool) {
	for _, r := range g.Resources {
		if r.ID == id {
			return r, true
		}
	}
	return Resource{}, false
}

// ByType returns all nodes of one type in ID order.
func (g *ResourceGraph) ByType(t ResourceType) []Resource {
	var out []Resource
	for _, r := range g.Resources {
		if r.Type == t {
			out = append(out, r)
		}
	}
	return out
}

func (g *ResourceGraph) sortStable() {
	sort.Slice(g.Resources, func(i, j int) bool { return g.Resources[i].ID < g.Resources[j].ID })
	sort.Strings(g.Removed)
	for i := range g.Resources {
		sort.Strings(g.Resources[i].DependsOn)
	}
}

// Render serializes the graph deterministically: compiling twice against the
// same inputs yields byte-identical output.
func (g *ResourceGraph) Render() ([]byte, error) {
	g.sortStable()
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(g); err != nil {
		return nil, fmt.Errorf("render graph: %w", err)
	}
	return buf.Bytes(), nil
}

// PriorResource is the identity of one resource in the previously applied
// stack: everything the merge needs, nothing more.
type PriorResource struct {
	ID    string       `json:"id"`
	Type  ResourceType `json:"type"`
	Owner string       `json:"owner,omitempty"`
	Spec  any          `json:"spec,omitempty"`
}

// DeployedStackState is the merge baseline: the resource identities of the
// previous apply. Network and cluster resources are excluded by construction.
type DeployedStackState struct {
	Resources []PriorResource `json:"resources"`
}
