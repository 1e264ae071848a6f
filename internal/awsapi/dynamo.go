// File: internal/awsapi/dynamo.go
// Brief: DynamoDB persistence for service and environment documents.

package awsapi

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Table names hold one row per document; the stored body is the YAML text
// the operator edits, not a decomposed item.
const (
	ServiceConfigTable     = "liftctl_service_configurations"
	EnvironmentConfigTable = "liftctl_environment_configurations"
)

// ErrRevisionConflict means the document changed under the writer. The caller
// re-reads, re-edits, and retries.
var ErrRevisionConflict = errors.New("configuration changed since it was read")

// ConfigStore persists the editable configuration documents.
type ConfigStore struct {
	DB *dynamodb.Client
	// ToolVersion stamps every write and guards against older binaries
	// overwriting documents written by newer ones.
	ToolVersion string
}

type configRecord struct {
	Environment string `dynamodbav:"environment"`
	ServiceName string `dynamodbav:"service_name,omitempty"`
	Body        string `dynamodbav:"configuration"`
	ToolVersion string `dynamodbav:"tool_version"`
	Revision    int64  `dynamodbav:"revision"`
	UpdatedAt   string `dynamodbav:"updated_at"`
}

// Document is one stored configuration with its optimistic-lock revision.
type Document struct {
	Body     []byte
	Revision int64
}

// GetServiceConfig loads the service document. A missing document returns
// ok=false, not an error.
func (s *ConfigStore) GetServiceConfig(ctx context.Context, environment, service string) (Document, bool, error) {
	return s.get(ctx, ServiceConfigTable, map[string]ddbtypes.AttributeValue{
		"environment":  &ddbtypes.AttributeValueMemberS{Value: environment},
		"service_name": &ddbtypes.AttributeValueMemberS{Value: service},
	})
}

// PutServiceConfig saves the document, expecting the revision it was read at.
// Pass revision 0 for a brand-new document.
func (s *ConfigStore) PutServiceConfig(ctx context.Context, environment, service string, body []byte, revision int64) error {
	return s.put(ctx, ServiceConfigTable, configRecord{
		Environment: environment,
		ServiceName: service,
		Body:        string(body),
	}, revision)
}

func (s *ConfigStore) GetEnvironmentConfig(ctx context.Context, environment string) (Document, bool, error) {
	return s.get(ctx, EnvironmentConfigTable, map[string]ddbtypes.AttributeValue{
		"environment": &ddbtypes.AttributeValueMemberS{Value: environment},
	})
}

func (s *ConfigStore) PutEnvironmentConfig(ctx context.Context, environment string, body []byte, revision int64) error {
	return s.put(ctx, EnvironmentConfigTable, configRecord{
		Environment: environment,
		Body:        string(body),
	}, revision)
}

func (s *ConfigStore) get(ctx context.Context, table string, key map[string]ddbtypes.AttributeValue) (Document, bool, error) {
	out, err := s.DB.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(table),
		Key:            key,
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return Document{}, false, fmt.Errorf("get item from %s: %w", table, err)
	}
	if len(out.Item) == 0 {
		return Document{}, false, nil
	}
	var rec configRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return Document{}, false, fmt.Errorf("decode item from %s: %w", table, err)
	}
	if newerVersion(rec.ToolVersion, s.ToolVersion) {
		return Document{}, false, fmt.Errorf(
			"configuration was written by liftctl %s, this binary is %s: upgrade before editing",
			rec.ToolVersion, s.ToolVersion)
	}
	return Document{Body: []byte(rec.Body), Revision: rec.Revision}, true, nil
}

func (s *ConfigStore) put(ctx context.Context, table string, rec configRecord, revision int64) error {
	rec.ToolVersion = s.ToolVersion
	rec.Revision = revision + 1
	rec.UpdatedAt = time.Now().UTC().Format(time.RFC3339)

	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("encode item for %s: %w", table, err)
	}
	in := &dynamodb.PutItemInput{
		TableName: aws.String(table),
		Item:      item,
	}
	if revision == 0 {
		in.ConditionExpression = aws.String("attribute_not_exists(revision)")
	} else {
		in.ConditionExpression = aws.String("revision = :expected")
		in.ExpressionAttributeValues = map[string]ddbtypes.AttributeValue{
			":expected": &ddbtypes.AttributeValueMemberN{Value: strconv.FormatInt(revision, 10)},
		}
	}
	if _, err := s.DB.PutItem(ctx, in); err != nil {
		var conflict *ddbtypes.ConditionalCheckFailedException
		if errors.As(err, &conflict) {
			return ErrRevisionConflict
		}
		return fmt.Errorf("put item to %s: %w", table, err)
	}
	return nil
}

// newerVersion reports whether a is a strictly newer dotted version than b.
// Non-numeric segments (dev builds) never count as newer.
func newerVersion(a, b string) bool {
	as := strings.Split(strings.TrimPrefix(a, "v"), ".")
	bs := strings.Split(strings.TrimPrefix(b, "v"), ".")
	for i := 0; i < len(as) && i < len(bs); i++ {
		an, aerr := strconv.Atoi(as[i])
		bn, berr := strconv.Atoi(bs[i])
		if aerr != nil || berr != nil {
			return false
		}
		if an != bn {
			return an > bn
		}
	}
	return len(as) > len(bs)
}
