// File: internal/awsapi/ecr.go
// Brief: ECR repository management and registry auth.

package awsapi

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecr"
	ecrtypes "github.com/aws/aws-sdk-go-v2/service/ecr/types"
)

// Repository is one service's image repository in ECR.
type Repository struct {
	ECR  *ecr.Client
	Name string
}

// Ensure creates the repository if it does not exist and returns its URI.
func (r *Repository) Ensure(ctx context.Context) (string, error) {
	out, err := r.ECR.DescribeRepositories(ctx, &ecr.DescribeRepositoriesInput{
		RepositoryNames: []string{r.Name},
	})
	if err == nil && len(out.Repositories) > 0 {
		return aws.ToString(out.Repositories[0].RepositoryUri), nil
	}
	var notFound *ecrtypes.RepositoryNotFoundException
	if err != nil && !errors.As(err, &notFound) {
		return "", fmt.Errorf("describe repository %s: %w", r.Name, err)
	}
	created, err := r.ECR.CreateRepository(ctx, &ecr.CreateRepositoryInput{
		RepositoryName: aws.String(r.Name),
	})
	if err != nil {
		return "", fmt.Errorf("create repository %s: %w", r.Name, err)
	}
	return aws.ToString(created.Repository.RepositoryUri), nil
}

// TagExists reports whether the tag is already published.
func (r *Repository) TagExists(ctx context.Context, tag string) (bool, error) {
	_, err := r.ECR.DescribeImages(ctx, &ecr.DescribeImagesInput{
		RepositoryName: aws.String(r.Name),
		ImageIds:       []ecrtypes.ImageIdentifier{{ImageTag: aws.String(tag)}},
	})
	if err == nil {
		return true, nil
	}
	var notFound *ecrtypes.ImageNotFoundException
	if errors.As(err, &notFound) {
		return false, nil
	}
	var repoMissing *ecrtypes.RepositoryNotFoundException
	if errors.As(err, &repoMissing) {
		return false, nil
	}
	return false, fmt.Errorf("describe image %s:%s: %w", r.Name, tag, err)
}

// AuthToken returns the registry username and password for docker pushes.
func (r *Repository) AuthToken(ctx context.Context) (user, password string, err error) {
	out, err := r.ECR.GetAuthorizationToken(ctx, &ecr.GetAuthorizationTokenInput{})
	if err != nil {
		return "", "", fmt.Errorf("get ecr authorization token: %w", err)
	}
	if len(out.AuthorizationData) == 0 {
		return "", "", fmt.Errorf("get ecr authorization token: empty response")
	}
	raw, err := base64.StdEncoding.DecodeString(aws.ToString(out.AuthorizationData[0].AuthorizationToken))
	if err != nil {
		return "", "", fmt.Errorf("decode ecr authorization token: %w", err)
	}
	user, password, ok := strings.Cut(string(raw), ":")
	if !ok {
		return "", "", fmt.Errorf("malformed ecr authorization token")
	}
	return user, password, nil
}
