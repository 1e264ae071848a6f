// File: internal/compiler/loadbalancer.go
// Brief: Target group, listener rule, and dedicated ALB synthesis.

package compiler

import (
	"fmt"

	"github.com/example/liftctl/internal/allocator"
	"github.com/example/liftctl/internal/config"
)

// compileHTTP emits the HTTP-facing resources for one service and returns the
// target group ID plus the IDs the ECS service must wait on.
func compileHTTP(g *ResourceGraph, name string, svc *config.ServiceSpec, hi *config.HTTPInterface, alloc allocator.ServiceAllocation, env *config.EnvironmentConfig, opts Options, owner string) (string, []string, error) {
	if alloc.TargetGroupName == "" {
		return "", nil, compileErrf(name, "allocator produced no target group name")
	}
	tgID := resourceID(TypeTargetGroup, name)
	tg := TargetGroupSpec{
		Name:                alloc.TargetGroupName,
		Port:                hi.ContainerPort,
		Protocol:            "HTTP",
		HealthCheckPath:     hi.HealthCheckPath,
		HealthyThreshold:    defaultHealthyThreshold,
		UnhealthyThreshold:  defaultUnhealthyThreshold,
		IntervalSeconds:     defaultHealthCheckInterval,
		TimeoutSeconds:      defaultHealthCheckTimeout,
		DeregistrationDelay: defaultDeregistrationDelay,
	}
	if svc.CustomMetrics != nil {
		tg.TargetType = "ip"
	}
	g.add(Resource{ID: tgID, Type: TypeTargetGroup, Owner: owner, Spec: tg})

	deps := []string{tgID}
	alb := hi.ALB
	if alb != nil && alb.CreateNew {
		lbID, sgID := compileNewALB(g, name, hi, env, opts, owner, tgID)
		deps = append(deps, lbID, sgID)
		return tgID, deps, nil
	}

	// Without an alb block the service still gets a rule on the environment's
	// default listener, matching every path.
	host, path := "", defaultRulePath
	if alb != nil {
		host, path = alb.Host, alb.Path
	}
	ruleID, err := compileListenerRule(g, name, host, path, alloc, owner, tgID)
	if err != nil {
		return "", nil, err
	}
	deps = append(deps, ruleID)
	if alb != nil {
		compileALBAlarms(g, name, alb, alloc, env, owner)
	}
	return tgID, deps, nil
}

// defaultRulePath is the catch-all match used when a service names no host or
// path of its own.
const defaultRulePath = "/*"

func compileNewALB(g *ResourceGraph, name string, hi *config.HTTPInterface, env *config.EnvironmentConfig, opts Options, owner, tgID string) (string, string) {
	scheme := "internet-facing"
	tier := "public"
	if hi.Internal {
		scheme = "internal"
		tier = "private"
	}

	sgID := resourceID(TypeSecurityGroup, name)
	sg := SecurityGroupSpec{Name: sanitizeName(fmt.Sprintf("%s-%s-alb", opts.Environment, name))}
	for _, cidr := range hi.RestrictAccessTo {
		sg.IngressRules = append(sg.IngressRules,
			IngressRule{Protocol: "tcp", FromPort: 80, ToPort: 80, CIDR: cidr},
			IngressRule{Protocol: "tcp", FromPort: 443, ToPort: 443, CIDR: cidr},
		)
	}
	g.add(Resource{ID: sgID, Type: TypeSecurityGroup, Owner: owner, Spec: sg})

	lbName := sanitizeName(fmt.Sprintf("%s-%s", opts.Environment, name))
	if len(lbName) > 32 {
		lbName = lbName[:32]
	}
	lbID := resourceID(TypeLoadBalancer, name)
	g.add(Resource{ID: lbID, Type: TypeLoadBalancer, Owner: owner, DependsOn: []string{sgID}, Spec: LoadBalancerSpec{
		Name:           lbName,
		Scheme:         scheme,
		SubnetTier:     tier,
		CertificateARN: env.CertificateARN,
		SecurityGroup:  sgID,
		TargetGroup:    tgID,
	}})
	return lbID, sgID
}

func compileListenerRule(g *ResourceGraph, name, host, path string, alloc allocator.ServiceAllocation, owner, tgID string) (string, error) {
	if alloc.ListenerARN == "" || alloc.ListenerPriority == 0 {
		return "", compileErrf(name, "allocator produced no listener placement")
	}
	ruleID := resourceID(TypeListenerRule, name)
	g.add(Resource{ID: ruleID, Type: TypeListenerRule, Owner: owner, DependsOn: []string{tgID}, Spec: ListenerRuleSpec{
		ListenerARN: alloc.ListenerARN,
		Priority:    alloc.ListenerPriority,
		Host:        host,
		Path:        path,
		TargetGroup: tgID,
	}})
	return ruleID, nil
}
