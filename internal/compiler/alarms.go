// File: internal/compiler/alarms.go
// Brief: CloudWatch alarms for services attached to a shared listener.

package compiler

import "github.com/example/liftctl/internal/allocator"
import "github.com/example/liftctl/internal/config"

// compileALBAlarms emits the 5xx-rate and latency alarms a reused-listener
// service carries. Defaults were applied at config load; the pointers are
// always set here.
func compileALBAlarms(g *ResourceGraph, name string, alb *config.ALBConfig, alloc allocator.ServiceAllocation, env *config.EnvironmentConfig, owner string) {
	a := alb.Alarms
	dims := map[string]string{"TargetGroup": alloc.TargetGroupName}
	actions := []string{env.NotificationsARN}

	g.add(Resource{ID: resourceID(TypeAlarm, name) + "/5xx", Type: TypeAlarm, Owner: owner, Spec: AlarmSpec{
		Name:               alloc.Alarms.HTTP5xx,
		Namespace:          "AWS/ApplicationELB",
		MetricName:         "HTTPCode_Target_5XX_Count",
		Statistic:          "Sum",
		Dimensions:         dims,
		ComparisonOperator: "GreaterThanOrEqualToThreshold",
		Threshold:          *a.FiveXXThreshold,
		PeriodSeconds:      config.DefaultHTTP5xxPeriodSeconds,
		EvaluationPeriods:  config.DefaultHTTP5xxEvalPeriods,
		TreatMissingData:   "notBreaching",
		AlarmActions:       actions,
		OKActions:          actions,
	}})

	latency := func(id, alarmName, stat string, threshold float64) {
		g.add(Resource{ID: id, Type: TypeAlarm, Owner: owner, Spec: AlarmSpec{
			Name:               alarmName,
			Namespace:          "AWS/ApplicationELB",
			MetricName:         "TargetResponseTime",
			ExtendedStatistic:  stat,
			Dimensions:         dims,
			ComparisonOperator: "GreaterThanThreshold",
			Threshold:          threshold,
			PeriodSeconds:      a.PeriodSeconds,
			EvaluationPeriods:  a.EvaluationPeriods,
			TreatMissingData:   "notBreaching",
			AlarmActions:       actions,
			OKActions:          actions,
		}})
	}
	latency(resourceID(TypeAlarm, name)+"/latency-p95", alloc.Alarms.LatencyP95, "p95", *a.P95LatencySeconds)
	latency(resourceID(TypeAlarm, name)+"/latency-p99", alloc.Alarms.LatencyP99, "p99", *a.P99LatencySeconds)
}
