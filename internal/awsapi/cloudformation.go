// File: internal/awsapi/cloudformation.go
// Brief: Stack apply and prior-stack retrieval over CloudFormation.

package awsapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	cftypes "github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"

	"github.com/example/liftctl/internal/compiler"
	"github.com/example/liftctl/internal/deployer"
)

// StackApplier submits rendered resource graphs as CloudFormation stacks and
// reads back the previous apply as the merge baseline.
type StackApplier struct {
	CFN *cloudformation.Client
	Log *zap.Logger

	// WaitTimeout bounds the create/update completion wait.
	WaitTimeout time.Duration
}

const defaultStackWaitTimeout = 30 * time.Minute

// Apply creates or updates the named stack with the rendered graph. Applying
// an unchanged graph is a no-op success. Remote refusals surface as
// RemoteRejection with the service diagnostic carried verbatim.
func (a *StackApplier) Apply(ctx context.Context, stack string, graph *compiler.ResourceGraph) error {
	body, err := graph.Render()
	if err != nil {
		return err
	}
	template := aws.String(string(body))

	exists, err := a.stackExists(ctx, stack)
	if err != nil {
		return err
	}

	if !exists {
		_, err = a.CFN.CreateStack(ctx, &cloudformation.CreateStackInput{
			StackName:    aws.String(stack),
			TemplateBody: template,
			Capabilities: []cftypes.Capability{cftypes.CapabilityCapabilityNamedIam},
		})
		if err != nil {
			return rejection(stack, err)
		}
		return a.waitCreate(ctx, stack)
	}

	_, err = a.CFN.UpdateStack(ctx, &cloudformation.UpdateStackInput{
		StackName:    aws.String(stack),
		TemplateBody: template,
		Capabilities: []cftypes.Capability{cftypes.CapabilityCapabilityNamedIam},
	})
	if err != nil {
		if noUpdates(err) {
			a.log().Info("stack unchanged, nothing to apply", zap.String("stack", stack))
			return nil
		}
		return rejection(stack, err)
	}
	return a.waitUpdate(ctx, stack)
}

// PriorStack fetches the previously applied graph for the stack. A stack that
// does not exist yet yields an empty baseline, not an error.
func (a *StackApplier) PriorStack(ctx context.Context, stack string) (*compiler.DeployedStackState, error) {
	out, err := a.CFN.GetTemplate(ctx, &cloudformation.GetTemplateInput{
		StackName: aws.String(stack),
	})
	if err != nil {
		if stackMissing(err) {
			return &compiler.DeployedStackState{}, nil
		}
		return nil, fmt.Errorf("get template for %s: %w", stack, err)
	}
	var prev compiler.ResourceGraph
	if err := json.Unmarshal([]byte(aws.ToString(out.TemplateBody)), &prev); err != nil {
		return nil, fmt.Errorf("decode prior template for %s: %w", stack, err)
	}
	state := &compiler.DeployedStackState{}
	for _, r := range prev.Resources {
		state.Resources = append(state.Resources, compiler.PriorResource{
			ID: r.ID, Type: r.Type, Owner: r.Owner, Spec: r.Spec,
		})
	}
	return state, nil
}

func (a *StackApplier) stackExists(ctx context.Context, stack string) (bool, error) {
	_, err := a.CFN.DescribeStacks(ctx, &cloudformation.DescribeStacksInput{
		StackName: aws.String(stack),
	})
	if err != nil {
		if stackMissing(err) {
			return false, nil
		}
		return false, fmt.Errorf("describe stack %s: %w", stack, err)
	}
	return true, nil
}

func (a *StackApplier) waitCreate(ctx context.Context, stack string) error {
	w := cloudformation.NewStackCreateCompleteWaiter(a.CFN)
	in := &cloudformation.DescribeStacksInput{StackName: aws.String(stack)}
	if err := w.Wait(ctx, in, a.waitTimeout()); err != nil {
		return rejection(stack, err)
	}
	a.log().Info("stack created", zap.String("stack", stack))
	return nil
}

func (a *StackApplier) waitUpdate(ctx context.Context, stack string) error {
	w := cloudformation.NewStackUpdateCompleteWaiter(a.CFN)
	in := &cloudformation.DescribeStacksInput{StackName: aws.String(stack)}
	if err := w.Wait(ctx, in, a.waitTimeout()); err != nil {
		return rejection(stack, err)
	}
	a.log().Info("stack updated", zap.String("stack", stack))
	return nil
}

func (a *StackApplier) waitTimeout() time.Duration {
	if a.WaitTimeout > 0 {
		return a.WaitTimeout
	}
	return defaultStackWaitTimeout
}

func (a *StackApplier) log() *zap.Logger {
	if a.Log != nil {
		return a.Log
	}
	return zap.NewNop()
}

func rejection(stack string, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return &deployer.RemoteRejection{
			Stack:   stack,
			Code:    apiErr.ErrorCode(),
			Message: apiErr.ErrorMessage(),
		}
	}
	return &deployer.RemoteRejection{Stack: stack, Message: err.Error()}
}

func noUpdates(err error) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) &&
		strings.Contains(apiErr.ErrorMessage(), "No updates are to be performed")
}

func stackMissing(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.ErrorCode() == "ValidationError" &&
		strings.Contains(apiErr.ErrorMessage(), "does not exist")
}
