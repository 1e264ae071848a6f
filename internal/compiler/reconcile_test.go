// File: internal/compiler/reconcile_test.go
// Brief: Ownership boundary of the merge against the prior stack.

package compiler

import (
	"testing"

	"github.com/example/liftctl/internal/config"
)

func TestReconcileRemovesOnlyOwnedResources(t *testing.T) {
	cfg := testDoc(map[string]config.ServiceSpec{
		"api": {MemoryReservation: 100},
	})
	env := testEnv()
	prior := &DeployedStackState{
		Resources: []PriorResource{
			// Previously compiled for a service the document no longer names.
			{ID: "ecs:service/retired", Type: TypeService, Owner: "liftctl:staging:retired"},
			{ID: "ecs:task-definition/retired", Type: TypeTaskDefinition, Owner: "liftctl:staging:retired"},
			// Manually created, outside the ownership boundary.
			{ID: "elbv2:load-balancer/legacy", Type: TypeLoadBalancer, Owner: ""},
		},
	}

	g, err := Compile(cfg, env, allocate(t, cfg, env), prior, testOpts("api"))
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	removed := map[string]bool{}
	for _, id := range g.Removed {
		removed[id] = true
	}
	if !removed["ecs:service/retired"] || !removed["ecs:task-definition/retired"] {
		t.Errorf("owned stale resources not removed: %v", g.Removed)
	}
	if removed["elbv2:load-balancer/legacy"] {
		t.Error("externally owned resource entered the removal set")
	}
	if _, ok := g.Resource("elbv2:load-balancer/legacy"); !ok {
		t.Error("externally owned resource was not carried through the merge")
	}
}

func TestReconcileKeepsReemittedResources(t *testing.T) {
	cfg := testDoc(map[string]config.ServiceSpec{
		"api": {MemoryReservation: 100},
	})
	env := testEnv()
	prior := &DeployedStackState{
		Resources: []PriorResource{
			{ID: "ecs:service/api", Type: TypeService, Owner: "liftctl:staging:api"},
		},
	}
	g, err := Compile(cfg, env, allocate(t, cfg, env), prior, testOpts("api"))
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if len(g.Removed) != 0 {
		t.Errorf("re-emitted resource scheduled for removal: %v", g.Removed)
	}
}

// Regardless of how the document changes, an external resource can never be
// scheduled for deletion.
func TestExternalResourceNeverDeleted(t *testing.T) {
	external := PriorResource{ID: "elbv2:load-balancer/shared", Type: TypeLoadBalancer, Owner: ""}
	env := testEnv()

	for _, services := range []map[string]config.ServiceSpec{
		{"api": {MemoryReservation: 100}},
		{"web": {MemoryReservation: 200}, "worker": {MemoryReservation: 300}},
	} {
		cfg := testDoc(services)
		opts := testOpts()
		for name := range services {
			opts.ImageURIs[name] = "123456789012.dkr.ecr.us-east-1.amazonaws.com/repo:tag"
		}
		g, err := Compile(cfg, env, allocate(t, cfg, env), &DeployedStackState{Resources: []PriorResource{external}}, opts)
		if err != nil {
			t.Fatalf("compile: %v", err)
		}
		for _, id := range g.Removed {
			if id == external.ID {
				t.Fatalf("external resource deleted with services %v", services)
			}
		}
	}
}
