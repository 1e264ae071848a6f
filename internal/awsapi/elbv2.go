// File: internal/awsapi/elbv2.go
// Brief: Live listener and target-group state for the allocator.

package awsapi

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"

	"github.com/example/liftctl/internal/allocator"
	"github.com/example/liftctl/internal/compiler"
)

// ExternalHolder marks occupancy by a resource the tool does not manage. It
// can never collide with a service name, which must start with a letter.
const ExternalHolder = "(external)"

// EnvironmentState reads the shared-resource occupancy the allocator needs:
// listener-rule priorities, target-group names, and alarm names.
type EnvironmentState struct {
	ELBv2      *elasticloadbalancingv2.Client
	CloudWatch *cloudwatch.Client
}

// PriorState assembles the allocator baseline for one environment. Resources
// carrying a liftctl owner tag are attributed to their service; anything else
// is recorded as externally held.
func (s *EnvironmentState) PriorState(ctx context.Context, environment string, listenerARNs []string) (*allocator.PriorState, error) {
	prior := &allocator.PriorState{
		ListenerPriorities: map[string]map[int]string{},
		TargetGroupNames:   map[string]string{},
		AlarmNames:         map[string]string{},
	}
	for _, arn := range listenerARNs {
		held, err := s.listenerPriorities(ctx, environment, arn)
		if err != nil {
			return nil, err
		}
		prior.ListenerPriorities[arn] = held
	}
	if err := s.targetGroups(ctx, environment, prior.TargetGroupNames); err != nil {
		return nil, err
	}
	if err := s.alarms(ctx, environment, prior.AlarmNames); err != nil {
		return nil, err
	}
	return prior, nil
}

func (s *EnvironmentState) listenerPriorities(ctx context.Context, environment, listenerARN string) (map[int]string, error) {
	held := map[int]string{}
	var marker *string
	for {
		out, err := s.ELBv2.DescribeRules(ctx, &elasticloadbalancingv2.DescribeRulesInput{
			ListenerArn: aws.String(listenerARN),
			Marker:      marker,
		})
		if err != nil {
			return nil, fmt.Errorf("describe rules on %s: %w", listenerARN, err)
		}
		var ruleARNs []string
		for _, r := range out.Rules {
			if aws.ToBool(r.IsDefault) {
				continue
			}
			ruleARNs = append(ruleARNs, aws.ToString(r.RuleArn))
		}
		owners, err := s.ownersByTag(ctx, environment, ruleARNs)
		if err != nil {
			return nil, err
		}
		for _, r := range out.Rules {
			if aws.ToBool(r.IsDefault) {
				continue
			}
			p, err := strconv.Atoi(aws.ToString(r.Priority))
			if err != nil {
				continue
			}
			holder := owners[aws.ToString(r.RuleArn)]
			if holder == "" {
				holder = ExternalHolder
			}
			held[p] = holder
		}
		if out.NextMarker == nil {
			return held, nil
		}
		marker = out.NextMarker
	}
}

func (s *EnvironmentState) targetGroups(ctx context.Context, environment string, names map[string]string) error {
	var marker *string
	for {
		out, err := s.ELBv2.DescribeTargetGroups(ctx, &elasticloadbalancingv2.DescribeTargetGroupsInput{Marker: marker})
		if err != nil {
			return fmt.Errorf("describe target groups: %w", err)
		}
		var arns []string
		byARN := map[string]string{}
		for _, tg := range out.TargetGroups {
			arn := aws.ToString(tg.TargetGroupArn)
			arns = append(arns, arn)
			byARN[arn] = aws.ToString(tg.TargetGroupName)
		}
		owners, err := s.ownersByTag(ctx, environment, arns)
		if err != nil {
			return err
		}
		for arn, name := range byARN {
			holder := owners[arn]
			if holder == "" {
				holder = ExternalHolder
			}
			names[name] = holder
		}
		if out.NextMarker == nil {
			return nil
		}
		marker = out.NextMarker
	}
}

// ownersByTag maps resource ARNs to the service named in their liftctl owner
// tag, scoped to the environment. DescribeTags accepts at most 20 ARNs per
// call.
func (s *EnvironmentState) ownersByTag(ctx context.Context, environment string, arns []string) (map[string]string, error) {
	owners := make(map[string]string, len(arns))
	for len(arns) > 0 {
		batch := arns
		if len(batch) > 20 {
			batch = batch[:20]
		}
		arns = arns[len(batch):]

		out, err := s.ELBv2.DescribeTags(ctx, &elasticloadbalancingv2.DescribeTagsInput{ResourceArns: batch})
		if err != nil {
			return nil, fmt.Errorf("describe tags: %w", err)
		}
		for _, desc := range out.TagDescriptions {
			for _, tag := range desc.Tags {
				if aws.ToString(tag.Key) != compiler.OwnerTagKey {
					continue
				}
				// Tag value is liftctl:<environment>:<service>.
				parts := strings.SplitN(aws.ToString(tag.Value), ":", 3)
				if len(parts) == 3 && parts[1] == environment {
					owners[aws.ToString(desc.ResourceArn)] = parts[2]
				}
			}
		}
	}
	return owners, nil
}

func (s *EnvironmentState) alarms(ctx context.Context, environment string, names map[string]string) error {
	prefix := environment + "-"
	var next *string
	for {
		out, err := s.CloudWatch.DescribeAlarms(ctx, &cloudwatch.DescribeAlarmsInput{
			AlarmNamePrefix: aws.String(prefix),
			NextToken:       next,
		})
		if err != nil {
			return fmt.Errorf("describe alarms: %w", err)
		}
		for _, a := range out.MetricAlarms {
			name := aws.ToString(a.AlarmName)
			names[name] = alarmHolder(name, prefix)
		}
		if out.NextToken == nil {
			return nil
		}
		next = out.NextToken
	}
}

// alarmHolder recovers the service name from an alarm named
// <environment>-<service>-<kind>. Alarms outside that shape are external.
func alarmHolder(name, prefix string) string {
	rest := strings.TrimPrefix(name, prefix)
	for _, suffix := range []string{"-elb-5xx", "-latency-p95", "-latency-p99"} {
		if svc, ok := strings.CutSuffix(rest, suffix); ok {
			return svc
		}
	}
	return ExternalHolder
}
