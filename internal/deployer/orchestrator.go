// File: internal/deployer/orchestrator.go
// Brief: Drives one deploy from build through verification.

// Package deployer sequences a deploy as an explicit state machine:
// Idle, Building, Publishing, GraphApplying, RolloutWaiting, Verifying, then
// Succeeded or Failed. All remote work goes through narrow collaborator
// interfaces so the sequencing logic is testable without cloud access.
//
// Failure policy: nothing below the orchestrator rolls back. A rejected stack
// apply or a rollout timeout leaves the remote state as-is for inspection;
// the orchestrator reports, it never reverts.
package deployer

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/example/liftctl/internal/compiler"
)

// ImageBuilder produces a local image for a tag from a build context.
type ImageBuilder interface {
	Build(ctx context.Context, ref string, buildArgs map[string]string) error
}

// Registry is the image registry collaborator. Push of an already present
// tag must be a no-op success.
type Registry interface {
	ImageExists(ctx context.Context, ref string) (bool, error)
	Push(ctx context.Context, ref string) error
}

// StackApplier submits a compiled resource graph as a stack update. Re-apply
// of an unchanged graph must be a no-op success.
type StackApplier interface {
	Apply(ctx context.Context, stack string, graph *compiler.ResourceGraph) error
}

// RolloutWatcher blocks until every named service runs the desired revision
// at its minimum healthy percentage, or the deadline passes.
type RolloutWatcher interface {
	Wait(ctx context.Context, cluster string, services []string, timeout time.Duration) error
}

// Verifier is the optional post-rollout smoke check.
type Verifier interface {
	Probe(ctx context.Context, service string) error
}

// MetricSink records deploy outcomes. Failures to record are logged, never
// propagated.
type MetricSink interface {
	RecordFailedDeployment(ctx context.Context, environment, service string) error
}

// Request describes one deploy.
type Request struct {
	Environment string
	StackName   string
	ClusterName string

	// ImageRef is the fully qualified tag to build and publish. Empty when
	// the deploy only changes infrastructure.
	ImageRef string
	// ForceBuild rebuilds even when the tag already exists. Dirty working
	// trees deploy this way so local edits are never silently dropped.
	ForceBuild bool
	BuildArgs  map[string]string

	Graph    *compiler.ResourceGraph
	Services []string

	RolloutTimeout time.Duration
}

// Orchestrator runs deploys. Collaborators left nil disable the matching
// phase: no Builder/Registry skips straight to GraphApplying, no Verifier
// skips Verifying.
type Orchestrator struct {
	Builder  ImageBuilder
	Registry Registry
	Applier  StackApplier
	Watcher  RolloutWatcher
	Verifier Verifier
	Metrics  MetricSink

	Log *zap.Logger

	// Reporter, when set, observes every state transition as it happens.
	// It is called synchronously on the deploy goroutine.
	Reporter func(Transition)

	// PushAttempts bounds retries of transient registry failures.
	PushAttempts uint64
	PushBackoff  time.Duration
}

const defaultRolloutTimeout = 10 * time.Minute

// Deploy runs the state machine to a terminal state. The returned Result
// always carries the full transition sequence; Result.Err is set exactly
// when the terminal state is Failed.
func (o *Orchestrator) Deploy(ctx context.Context, req Request) *Result {
	res := &Result{State: StateIdle, ImageURI: req.ImageRef}
	log := o.Log
	if log == nil {
		log = zap.NewNop()
	}

	step := func(s State) {
		prev := res.State
		res.transition(s)
		log.Info("deploy state change",
			zap.String("environment", req.Environment),
			zap.String("from", string(prev)),
			zap.String("to", string(s)))
		if o.Reporter != nil {
			o.Reporter(Transition{From: prev, To: s})
		}
	}
	fail := func(err error) *Result {
		step(StateFailed)
		res.Err = err
		log.Error("deploy failed", zap.String("environment", req.Environment), zap.Error(err))
		if o.Metrics != nil {
			for _, svc := range req.Services {
				if merr := o.Metrics.RecordFailedDeployment(ctx, req.Environment, svc); merr != nil {
					log.Warn("failed-deployment metric not recorded", zap.Error(merr))
				}
			}
		}
		return res
	}

	if req.ImageRef != "" && o.Builder != nil && o.Registry != nil {
		step(StateBuilding)
		exists, err := o.Registry.ImageExists(ctx, req.ImageRef)
		if err != nil {
			return fail(&RegistryError{Op: "lookup", Ref: req.ImageRef, Err: err})
		}
		if exists && !req.ForceBuild {
			res.BuildSkipped = true
			log.Info("image tag already published, skipping build", zap.String("ref", req.ImageRef))
		} else {
			if err := o.Builder.Build(ctx, req.ImageRef, req.BuildArgs); err != nil {
				return fail(err)
			}
		}

		step(StatePublishing)
		if !res.BuildSkipped {
			if err := o.push(ctx, req.ImageRef); err != nil {
				return fail(err)
			}
		}
	}

	step(StateGraphApplying)
	if err := o.Applier.Apply(ctx, req.StackName, req.Graph); err != nil {
		return fail(err)
	}

	step(StateRolloutWaiting)
	timeout := req.RolloutTimeout
	if timeout <= 0 {
		timeout = defaultRolloutTimeout
	}
	if err := o.Watcher.Wait(ctx, req.ClusterName, req.Services, timeout); err != nil {
		return fail(err)
	}

	if o.Verifier != nil {
		step(StateVerifying)
		for _, svc := range req.Services {
			if err := o.Verifier.Probe(ctx, svc); err != nil {
				// Verification failure is reported but the completed rollout
				// is not reversed.
				log.Warn("post-rollout verification failed",
					zap.String("service", svc), zap.Error(err))
			}
		}
	}

	step(StateSucceeded)
	return res
}

func (o *Orchestrator) push(ctx context.Context, ref string) error {
	attempts := o.PushAttempts
	if attempts == 0 {
		attempts = 3
	}
	backoff := o.PushBackoff
	if backoff <= 0 {
		backoff = time.Second
	}
	b := retry.WithMaxRetries(attempts, retry.NewExponential(backoff))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		err := o.Registry.Push(ctx, ref)
		if err != nil && transient(err) {
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return &RegistryError{Op: "push", Ref: ref, Err: err}
	}
	return nil
}
