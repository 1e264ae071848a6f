// File: internal/awsapi/ecs.go
// Brief: Service rollout polling and desired-count lookup.

package awsapi

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	"go.uber.org/zap"

	"github.com/example/liftctl/internal/deployer"
)

// RolloutWatcher polls ECS until services reach steady state.
type RolloutWatcher struct {
	ECS *ecs.Client
	Log *zap.Logger

	// PollInterval defaults to 15s.
	PollInterval time.Duration
}

// Wait blocks until every service runs only its newest deployment at full
// strength, or the timeout passes. Timeout yields RolloutTimeout; the active
// task definition is left as-is.
func (w *RolloutWatcher) Wait(ctx context.Context, cluster string, services []string, timeout time.Duration) error {
	if len(services) == 0 {
		return nil
	}
	interval := w.PollInterval
	if interval <= 0 {
		interval = 15 * time.Second
	}
	log := w.Log
	if log == nil {
		log = zap.NewNop()
	}

	deadline := time.Now().Add(timeout)
	pending := append([]string(nil), services...)
	for {
		var still []string
		for _, svc := range pending {
			settled, err := w.settled(ctx, cluster, svc)
			if err != nil {
				return err
			}
			if !settled {
				still = append(still, svc)
			}
		}
		if len(still) == 0 {
			return nil
		}
		if time.Now().After(deadline) {
			return &deployer.RolloutTimeout{Service: still[0], Elapsed: timeout}
		}
		log.Info("waiting for rollout",
			zap.String("cluster", cluster),
			zap.Strings("services", still))
		pending = still

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

// settled reports whether the service has exactly one deployment with all
// desired tasks running.
func (w *RolloutWatcher) settled(ctx context.Context, cluster, service string) (bool, error) {
	out, err := w.ECS.DescribeServices(ctx, &ecs.DescribeServicesInput{
		Cluster:  aws.String(cluster),
		Services: []string{service},
	})
	if err != nil {
		return false, fmt.Errorf("describe service %s: %w", service, err)
	}
	if len(out.Services) == 0 {
		return false, fmt.Errorf("service %s not found in cluster %s", service, cluster)
	}
	s := out.Services[0]
	return len(s.Deployments) == 1 && s.RunningCount == s.DesiredCount, nil
}

// DesiredCounts returns the live desired count per service so redeploys keep
// operator-set scaling. Services that do not exist yet map to zero.
func DesiredCounts(ctx context.Context, c *ecs.Client, cluster string, services []string) (map[string]int, error) {
	counts := make(map[string]int, len(services))
	for _, svc := range services {
		counts[svc] = 0
	}
	if len(services) == 0 {
		return counts, nil
	}
	out, err := c.DescribeServices(ctx, &ecs.DescribeServicesInput{
		Cluster:  aws.String(cluster),
		Services: services,
	})
	if err != nil {
		return nil, fmt.Errorf("describe services in %s: %w", cluster, err)
	}
	for _, s := range out.Services {
		if aws.ToString(s.Status) == "INACTIVE" {
			continue
		}
		counts[aws.ToString(s.ServiceName)] = int(s.DesiredCount)
	}
	return counts, nil
}
