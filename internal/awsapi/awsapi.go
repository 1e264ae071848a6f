// File: internal/awsapi/awsapi.go
// Brief: AWS client construction shared by all collaborators.

// Package awsapi implements the remote collaborators the rest of the tool
// programs against: stack apply, registry, rollout watching, parameter and
// secret stores, and configuration persistence. Nothing outside this package
// imports an AWS SDK service client directly.
package awsapi

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/ecr"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	"github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// Clients bundles the service clients built from one shared credential chain.
type Clients struct {
	Region string

	CloudFormation *cloudformation.Client
	CloudWatch     *cloudwatch.Client
	DynamoDB       *dynamodb.Client
	ECR            *ecr.Client
	ECS            *ecs.Client
	ELBv2          *elasticloadbalancingv2.Client
	Secrets        *secretsmanager.Client
	SSM            *ssm.Client
	STS            *sts.Client
}

// NewClients loads the default credential chain for the region. Profiles that
// require MFA prompt on stdin when their role is assumed.
func NewClients(ctx context.Context, region string) (*Clients, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithAssumeRoleCredentialOptions(func(o *stscreds.AssumeRoleOptions) {
			o.TokenProvider = stscreds.StdinTokenProvider
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return newClients(cfg), nil
}

func newClients(cfg aws.Config) *Clients {
	return &Clients{
		Region:         cfg.Region,
		CloudFormation: cloudformation.NewFromConfig(cfg),
		CloudWatch:     cloudwatch.NewFromConfig(cfg),
		DynamoDB:       dynamodb.NewFromConfig(cfg),
		ECR:            ecr.NewFromConfig(cfg),
		ECS:            ecs.NewFromConfig(cfg),
		ELBv2:          elasticloadbalancingv2.NewFromConfig(cfg),
		Secrets:        secretsmanager.NewFromConfig(cfg),
		SSM:            ssm.NewFromConfig(cfg),
		STS:            sts.NewFromConfig(cfg),
	}
}
