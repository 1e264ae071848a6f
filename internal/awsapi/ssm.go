// File: internal/awsapi/ssm.go
// Brief: Parameter store access under the /<environment>/<service>/ convention.

package awsapi

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"
)

// ParameterStore reads and writes the non-secret configuration keys consumed
// at task-definition render time.
type ParameterStore struct {
	SSM *ssm.Client
}

func servicePath(environment, service string) string {
	return fmt.Sprintf("/%s/%s/", environment, service)
}

// ServiceParameters returns every key under /<environment>/<service>/ with
// secure strings decrypted and the path prefix stripped.
func (p *ParameterStore) ServiceParameters(ctx context.Context, environment, service string) (map[string]string, error) {
	prefix := servicePath(environment, service)
	values := map[string]string{}
	var next *string
	for {
		out, err := p.SSM.GetParametersByPath(ctx, &ssm.GetParametersByPathInput{
			Path:           aws.String(prefix),
			Recursive:      aws.Bool(false),
			WithDecryption: aws.Bool(true),
			NextToken:      next,
		})
		if err != nil {
			return nil, fmt.Errorf("get parameters under %s: %w", prefix, err)
		}
		for _, param := range out.Parameters {
			key := strings.TrimPrefix(aws.ToString(param.Name), prefix)
			values[key] = aws.ToString(param.Value)
		}
		if out.NextToken == nil {
			return values, nil
		}
		next = out.NextToken
	}
}

// SetParameters upserts the given keys as encrypted parameters and deletes
// keys present remotely but absent from values when prune is set. It returns
// the keys changed, in sorted order.
func (p *ParameterStore) SetParameters(ctx context.Context, environment, service string, values map[string]string, prune bool) ([]string, error) {
	prefix := servicePath(environment, service)
	current, err := p.ServiceParameters(ctx, environment, service)
	if err != nil {
		return nil, err
	}

	var changed []string
	for key, value := range values {
		if current[key] == value {
			continue
		}
		_, err := p.SSM.PutParameter(ctx, &ssm.PutParameterInput{
			Name:      aws.String(prefix + key),
			Value:     aws.String(value),
			Type:      ssmtypes.ParameterTypeSecureString,
			Overwrite: aws.Bool(true),
		})
		if err != nil {
			return nil, fmt.Errorf("put parameter %s%s: %w", prefix, key, err)
		}
		changed = append(changed, key)
	}

	if prune {
		for key := range current {
			if _, keep := values[key]; keep {
				continue
			}
			_, err := p.SSM.DeleteParameter(ctx, &ssm.DeleteParameterInput{
				Name: aws.String(prefix + key),
			})
			if err != nil {
				return nil, fmt.Errorf("delete parameter %s%s: %w", prefix, key, err)
			}
			changed = append(changed, key)
		}
	}
	sort.Strings(changed)
	return changed, nil
}
