// File: internal/compiler/autoscaling.go
// Brief: Scalable target and target-tracking policy synthesis.

package compiler

import (
	"github.com/example/liftctl/internal/allocator"
	"github.com/example/liftctl/internal/config"
)

func compileAutoscaling(g *ResourceGraph, name string, svc *config.ServiceSpec, alloc allocator.ServiceAllocation, owner, svcID string, opts Options) {
	as := svc.Autoscaling

	targetID := resourceID(TypeScalableTarget, name)
	g.add(Resource{ID: targetID, Type: TypeScalableTarget, Owner: owner, DependsOn: []string{svcID}, Spec: ScalableTargetSpec{
		Service:     svcID,
		MinCapacity: as.MinCapacity,
		MaxCapacity: as.MaxCapacity,
		Dimension:   "ecs:service:DesiredCount",
	}})

	policyID := resourceID(TypeScalingPolicy, name)
	spec := ScalingPolicySpec{
		Target:     targetID,
		PolicyType: "TargetTrackingScaling",
	}
	switch {
	case as.RequestCount != nil:
		p := as.RequestCount
		spec.PredefinedMetric = "ALBRequestCountPerTarget"
		spec.ResourceLabel = alloc.TargetGroupName
		spec.TargetValue = p.TargetValue
		spec.ScaleInCooldown = *p.ScaleInCooldown
		spec.ScaleOutCooldown = *p.ScaleOutCooldown
	case as.CustomMetric != nil:
		p := as.CustomMetric
		spec.Namespace = p.Namespace
		spec.MetricName = p.MetricName
		spec.Statistic = p.Statistic
		spec.Unit = p.Unit
		spec.Dimensions = p.Dimensions
		spec.TargetValue = p.TargetValue
		spec.ScaleInCooldown = *p.ScaleInCooldown
		spec.ScaleOutCooldown = *p.ScaleOutCooldown
	}
	g.add(Resource{ID: policyID, Type: TypeScalingPolicy, Owner: owner, DependsOn: []string{targetID}, Spec: spec})
}
