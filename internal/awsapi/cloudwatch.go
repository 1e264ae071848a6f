// File: internal/awsapi/cloudwatch.go
// Brief: Deployment outcome metrics.

package awsapi

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

const (
	metricNamespace    = "ECS/DeploymentMetrics"
	failedDeployMetric = "FailedLiftctlDeployments"
)

// DeploymentMetrics records deploy outcomes to CloudWatch.
type DeploymentMetrics struct {
	CloudWatch *cloudwatch.Client
}

// RecordFailedDeployment emits one datapoint for a failed deploy of the
// service, dimensioned by environment and service name.
func (m *DeploymentMetrics) RecordFailedDeployment(ctx context.Context, environment, service string) error {
	_, err := m.CloudWatch.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(metricNamespace),
		MetricData: []cwtypes.MetricDatum{{
			MetricName: aws.String(failedDeployMetric),
			Value:      aws.Float64(1),
			Unit:       cwtypes.StandardUnitCount,
			Timestamp:  aws.Time(time.Now()),
			Dimensions: []cwtypes.Dimension{
				{Name: aws.String("Environment"), Value: aws.String(environment)},
				{Name: aws.String("Service"), Value: aws.String(service)},
			},
		}},
	})
	if err != nil {
		return fmt.Errorf("put %s metric: %w", failedDeployMetric, err)
	}
	return nil
}
