// File: internal/deployer/orchestrator_test.go
// Brief: State machine behavior of the deploy orchestrator with fake collaborators.

package deployer

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/example/liftctl/internal/compiler"
)

type fakeBuilder struct {
	calls int
	err   error
}

func (b *fakeBuilder) Build(ctx context.Context, ref string, buildArgs map[string]string) error {
	b.calls++
	return b.err
}

type fakeRegistry struct {
	exists    bool
	existsErr error
	pushCalls int
	pushErr   error
}

func (r *fakeRegistry) ImageExists(ctx context.Context, ref string) (bool, error) {
	return r.exists, r.existsErr
}

func (r *fakeRegistry) Push(ctx context.Context, ref string) error {
	r.pushCalls++
	return r.pushErr
}

type fakeApplier struct {
	calls int
	graph *compiler.ResourceGraph
	err   error
}

func (a *fakeApplier) Apply(ctx context.Context, stack string, graph *compiler.ResourceGraph) error {
	a.calls++
	a.graph = graph
	return a.err
}

type fakeWatcher struct {
	err error
}

func (w *fakeWatcher) Wait(ctx context.Context, cluster string, services []string, timeout time.Duration) error {
	return w.err
}

type fakeVerifier struct {
	probed []string
	err    error
}

func (v *fakeVerifier) Probe(ctx context.Context, service string) error {
	v.probed = append(v.probed, service)
	return v.err
}

type fakeMetrics struct {
	recorded []string
}

func (m *fakeMetrics) RecordFailedDeployment(ctx context.Context, environment, service string) error {
	m.recorded = append(m.recorded, environment+"/"+service)
	return nil
}

func testRequest(graph *compiler.ResourceGraph) Request {
	return Request{
		Environment:    "staging",
		StackName:      "staging-services",
		ClusterName:    "staging-cluster",
		ImageRef:       "123456789012.dkr.ecr.us-east-1.amazonaws.com/api-repo:abc123",
		Graph:          graph,
		Services:       []string{"api"},
		RolloutTimeout: time.Minute,
	}
}

func TestDeploySuccessPath(t *testing.T) {
	builder := &fakeBuilder{}
	registry := &fakeRegistry{}
	verifier := &fakeVerifier{}
	o := &Orchestrator{
		Builder:  builder,
		Registry: registry,
		Applier:  &fakeApplier{},
		Watcher:  &fakeWatcher{},
		Verifier: verifier,
	}

	res := o.Deploy(context.Background(), testRequest(&compiler.ResourceGraph{}))
	if res.State != StateSucceeded || res.Err != nil {
		t.Fatalf("state = %s, err = %v", res.State, res.Err)
	}
	want := []State{
		StateIdle, StateBuilding, StatePublishing, StateGraphApplying,
		StateRolloutWaiting, StateVerifying, StateSucceeded,
	}
	if !reflect.DeepEqual(res.Path(), want) {
		t.Errorf("path = %v, want %v", res.Path(), want)
	}
	if builder.calls != 1 || registry.pushCalls != 1 {
		t.Errorf("build calls = %d, push calls = %d", builder.calls, registry.pushCalls)
	}
	if !reflect.DeepEqual(verifier.probed, []string{"api"}) {
		t.Errorf("probed = %v", verifier.probed)
	}
}

func TestDeployBuildFailureNeverPublishes(t *testing.T) {
	registry := &fakeRegistry{}
	applier := &fakeApplier{}
	metrics := &fakeMetrics{}
	o := &Orchestrator{
		Builder:  &fakeBuilder{err: errors.New("compile step exited 1")},
		Registry: registry,
		Applier:  applier,
		Watcher:  &fakeWatcher{},
		Metrics:  metrics,
	}

	res := o.Deploy(context.Background(), testRequest(&compiler.ResourceGraph{}))
	if res.State != StateFailed || res.Err == nil {
		t.Fatalf("state = %s, err = %v", res.State, res.Err)
	}
	for _, tr := range res.Transitions {
		if tr.To == StatePublishing || tr.From == StatePublishing {
			t.Fatalf("publishing reached after build failure: %v", res.Transitions)
		}
	}
	if registry.pushCalls != 0 {
		t.Errorf("push called %d times after build failure", registry.pushCalls)
	}
	if applier.calls != 0 {
		t.Errorf("stack applied after build failure")
	}
	if !reflect.DeepEqual(metrics.recorded, []string{"staging/api"}) {
		t.Errorf("failure metric = %v", metrics.recorded)
	}
}

func TestDeployRolloutTimeoutLeavesGraphAsApplied(t *testing.T) {
	graph := &compiler.ResourceGraph{Stack: "staging-services"}
	applier := &fakeApplier{}
	o := &Orchestrator{
		Builder:  &fakeBuilder{},
		Registry: registryWithTag(false),
		Applier:  applier,
		Watcher:  &fakeWatcher{err: &RolloutTimeout{Service: "api", Elapsed: time.Minute}},
	}

	res := o.Deploy(context.Background(), testRequest(graph))
	if res.State != StateFailed {
		t.Fatalf("state = %s", res.State)
	}
	var timeout *RolloutTimeout
	if !errors.As(res.Err, &timeout) {
		t.Fatalf("err = %v, want *RolloutTimeout", res.Err)
	}

	// The timed-out rollout is reported, not reverted: the applier saw the
	// submitted graph exactly once and nothing was applied afterwards.
	if applier.calls != 1 {
		t.Errorf("apply calls = %d, want 1", applier.calls)
	}
	if applier.graph != graph {
		t.Error("applier received a different graph than the one submitted")
	}
	last := res.Transitions[len(res.Transitions)-1]
	if last.From != StateRolloutWaiting || last.To != StateFailed {
		t.Errorf("final transition = %+v", last)
	}
}

func registryWithTag(exists bool) *fakeRegistry {
	return &fakeRegistry{exists: exists}
}

func TestDeploySkipsBuildForPublishedTag(t *testing.T) {
	builder := &fakeBuilder{}
	registry := registryWithTag(true)
	o := &Orchestrator{
		Builder:  builder,
		Registry: registry,
		Applier:  &fakeApplier{},
		Watcher:  &fakeWatcher{},
	}

	res := o.Deploy(context.Background(), testRequest(&compiler.ResourceGraph{}))
	if res.State != StateSucceeded {
		t.Fatalf("state = %s, err = %v", res.State, res.Err)
	}
	if !res.BuildSkipped {
		t.Error("BuildSkipped not set for an already published tag")
	}
	if builder.calls != 0 {
		t.Errorf("build called %d times for a published tag", builder.calls)
	}
	if registry.pushCalls != 0 {
		t.Errorf("push called %d times for a published tag", registry.pushCalls)
	}
}

func TestDeployForceBuildIgnoresPublishedTag(t *testing.T) {
	builder := &fakeBuilder{}
	registry := registryWithTag(true)
	o := &Orchestrator{
		Builder:  builder,
		Registry: registry,
		Applier:  &fakeApplier{},
		Watcher:  &fakeWatcher{},
	}
	req := testRequest(&compiler.ResourceGraph{})
	req.ForceBuild = true

	res := o.Deploy(context.Background(), req)
	if res.State != StateSucceeded {
		t.Fatalf("state = %s, err = %v", res.State, res.Err)
	}
	if res.BuildSkipped {
		t.Error("BuildSkipped set despite ForceBuild")
	}
	if builder.calls != 1 || registry.pushCalls != 1 {
		t.Errorf("build calls = %d, push calls = %d", builder.calls, registry.pushCalls)
	}
}

func TestDeployInfrastructureOnlySkipsImagePhases(t *testing.T) {
	o := &Orchestrator{
		Applier: &fakeApplier{},
		Watcher: &fakeWatcher{},
	}
	req := testRequest(&compiler.ResourceGraph{})
	req.ImageRef = ""

	res := o.Deploy(context.Background(), req)
	if res.State != StateSucceeded {
		t.Fatalf("state = %s, err = %v", res.State, res.Err)
	}
	want := []State{StateIdle, StateGraphApplying, StateRolloutWaiting, StateSucceeded}
	if !reflect.DeepEqual(res.Path(), want) {
		t.Errorf("path = %v, want %v", res.Path(), want)
	}
}

func TestDeployVerificationFailureDoesNotFail(t *testing.T) {
	o := &Orchestrator{
		Builder:  &fakeBuilder{},
		Registry: registryWithTag(false),
		Applier:  &fakeApplier{},
		Watcher:  &fakeWatcher{},
		Verifier: &fakeVerifier{err: errors.New("503 from /")},
	}

	res := o.Deploy(context.Background(), testRequest(&compiler.ResourceGraph{}))
	if res.State != StateSucceeded || res.Err != nil {
		t.Fatalf("state = %s, err = %v", res.State, res.Err)
	}
}

func TestDeployStackRejection(t *testing.T) {
	o := &Orchestrator{
		Builder:  &fakeBuilder{},
		Registry: registryWithTag(false),
		Applier:  &fakeApplier{err: &RemoteRejection{Stack: "staging-services", Code: "ValidationError", Message: "template invalid"}},
		Watcher:  &fakeWatcher{},
	}

	res := o.Deploy(context.Background(), testRequest(&compiler.ResourceGraph{}))
	var rejection *RemoteRejection
	if res.State != StateFailed || !errors.As(res.Err, &rejection) {
		t.Fatalf("state = %s, err = %v", res.State, res.Err)
	}
	last := res.Transitions[len(res.Transitions)-1]
	if last.From != StateGraphApplying {
		t.Errorf("failed from %s, want GraphApplying", last.From)
	}
}

func TestPushRetriesTransientFailures(t *testing.T) {
	registry := &fakeRegistry{pushErr: errors.New("request timed out")}
	o := &Orchestrator{
		Registry:     registry,
		PushAttempts: 2,
		PushBackoff:  time.Millisecond,
	}

	err := o.push(context.Background(), "repo:tag")
	var regErr *RegistryError
	if !errors.As(err, &regErr) {
		t.Fatalf("err = %v, want *RegistryError", err)
	}
	if registry.pushCalls != 3 {
		t.Errorf("push calls = %d, want 3", registry.pushCalls)
	}
}

func TestPushDoesNotRetryPermanentFailures(t *testing.T) {
	registry := &fakeRegistry{pushErr: errors.New("denied: not authorized")}
	o := &Orchestrator{
		Registry:     registry,
		PushAttempts: 4,
		PushBackoff:  time.Millisecond,
	}

	if err := o.push(context.Background(), "repo:tag"); err == nil {
		t.Fatal("expected error")
	}
	if registry.pushCalls != 1 {
		t.Errorf("push calls = %d, want 1", registry.pushCalls)
	}
}
