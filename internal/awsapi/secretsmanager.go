// File: internal/awsapi/secretsmanager.go
// Brief: Secrets Manager backing for the secrets publisher.

package awsapi

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// SecretStore reads and writes whole secret documents. Documents are JSON
// objects of string keys to string values; Write replaces the previous
// content wholesale.
type SecretStore struct {
	Secrets *secretsmanager.Client
}

func (s *SecretStore) Read(ctx context.Context, name string) (map[string]string, error) {
	values, _, err := s.ReadWithARN(ctx, name)
	return values, err
}

// ReadWithARN also returns the document's ARN, which task definitions need
// for runtime secret references.
func (s *SecretStore) ReadWithARN(ctx context.Context, name string) (map[string]string, string, error) {
	out, err := s.Secrets.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(name),
	})
	if err != nil {
		return nil, "", fmt.Errorf("get secret %s: %w", name, err)
	}
	values := map[string]string{}
	if raw := aws.ToString(out.SecretString); raw != "" {
		if err := json.Unmarshal([]byte(raw), &values); err != nil {
			return nil, "", fmt.Errorf("decode secret %s: %w", name, err)
		}
	}
	return values, aws.ToString(out.ARN), nil
}

func (s *SecretStore) Write(ctx context.Context, arn string, values map[string]string) error {
	body, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("encode secret document: %w", err)
	}
	_, err = s.Secrets.PutSecretValue(ctx, &secretsmanager.PutSecretValueInput{
		SecretId:     aws.String(arn),
		SecretString: aws.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("put secret %s: %w", arn, err)
	}
	return nil
}
