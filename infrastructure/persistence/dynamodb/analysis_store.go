// Package dynamodb implements the analysis store on a single DynamoDB
// table, partitioned by owner.
package dynamodb

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"jdbuilder/application/ports"
	"jdbuilder/domain/jd"
	apperrors "jdbuilder/pkg/errors"
)

// AnalysisStore persists analyses as single-table items:
// PK = OWNER#<ownerID>, SK = ANALYSIS#<id>.
type AnalysisStore struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

// NewAnalysisStore creates a DynamoDB-backed analysis store.
func NewAnalysisStore(client *dynamodb.Client, tableName string, logger *zap.Logger) *AnalysisStore {
	return &AnalysisStore{client: client, tableName: tableName, logger: logger}
}

type analysisItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	EntityType string `dynamodbav:"EntityType"`
	AnalysisID string `dynamodbav:"AnalysisID"`
	OwnerID    string `dynamodbav:"OwnerID"`
	Title      string `dynamodbav:"Title"`
	Document   string `dynamodbav:"Document"`
	Version    int    `dynamodbav:"Version"`
	CreatedAt  string `dynamodbav:"CreatedAt"`
	UpdatedAt  string `dynamodbav:"UpdatedAt"`
}

func ownerKey(ownerID string) string {
	return fmt.Sprintf("OWNER#%s", ownerID)
}

func analysisKey(id string) string {
	return fmt.Sprintf("ANALYSIS#%s", id)
}

// Save persists an analysis. New analyses get an ID and Version 1; updates
// are guarded by a conditional write on the stored version.
func (s *AnalysisStore) Save(ctx context.Context, analysis *ports.Analysis) (string, error) {
	if analysis == nil || analysis.OwnerID == "" {
		return "", apperrors.NewValidationError("analysis owner is required")
	}

	now := time.Now().UTC()
	isNew := analysis.ID == ""
	if isNew {
		analysis.ID = uuid.New().String()
		analysis.Version = 1
		analysis.CreatedAt = now
	} else if analysis.CreatedAt.IsZero() {
		existing, err := s.GetByID(ctx, analysis.OwnerID, analysis.ID)
		if err != nil {
			return "", err
		}
		analysis.CreatedAt = existing.CreatedAt
	}
	analysis.UpdatedAt = now

	docJSON, err := json.Marshal(analysis.Document)
	if err != nil {
		return "", apperrors.NewInternalError("marshal analysis document").WithCause(err)
	}

	version := analysis.Version
	if !isNew {
		version = analysis.Version + 1
	}

	item := analysisItem{
		PK:         ownerKey(analysis.OwnerID),
		SK:         analysisKey(analysis.ID),
		EntityType: "ANALYSIS",
		AnalysisID: analysis.ID,
		OwnerID:    analysis.OwnerID,
		Title:      analysis.Title,
		Document:   string(docJSON),
		Version:    version,
		CreatedAt:  analysis.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  analysis.UpdatedAt.Format(time.RFC3339),
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return "", apperrors.NewDatabaseError("marshal analysis item", err)
	}

	input := &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      av,
	}
	if isNew {
		input.ConditionExpression = aws.String("attribute_not_exists(PK)")
	} else {
		input.ConditionExpression = aws.String("Version = :expected")
		input.ExpressionAttributeValues = map[string]types.AttributeValue{
			":expected": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", analysis.Version)},
		}
	}

	if _, err := s.client.PutItem(ctx, input); err != nil {
		var condFailed *types.ConditionalCheckFailedException
		if errors.As(err, &condFailed) {
			return "", apperrors.NewConflictError("analysis was modified by a concurrent request")
		}
		return "", apperrors.NewDatabaseError("save analysis", err)
	}

	analysis.Version = version
	return analysis.ID, nil
}

// GetByID fetches one analysis scoped to its owner.
func (s *AnalysisStore) GetByID(ctx context.Context, ownerID, id string) (*ports.Analysis, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: ownerKey(ownerID)},
			"SK": &types.AttributeValueMemberS{Value: analysisKey(id)},
		},
	})
	if err != nil {
		return nil, apperrors.NewDatabaseError("get analysis", err)
	}
	if out.Item == nil {
		return nil, apperrors.NewNotFoundError("analysis")
	}

	var item analysisItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, apperrors.NewDatabaseError("unmarshal analysis item", err)
	}
	return item.toAnalysis()
}

// ListByOwner queries the owner partition, newest first, with an optional
// case-sensitive title filter applied server-side.
func (s *AnalysisStore) ListByOwner(ctx context.Context, ownerID string, filter ports.ListFilter) (*ports.AnalysisPage, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}

	keyCond := expression.Key("PK").Equal(expression.Value(ownerKey(ownerID))).
		And(expression.Key("SK").BeginsWith("ANALYSIS#"))

	builder := expression.NewBuilder().WithKeyCondition(keyCond)
	if filter.Search != "" {
		builder = builder.WithFilter(expression.Contains(expression.Name("Title"), filter.Search))
	}
	expr, err := builder.Build()
	if err != nil {
		return nil, apperrors.NewDatabaseError("build list expression", err)
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(s.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		Limit:                     aws.Int32(int32(limit)),
		ScanIndexForward:          aws.Bool(false),
	}
	if filter.Cursor != "" {
		startKey, err := decodeCursor(filter.Cursor)
		if err != nil {
			return nil, apperrors.NewValidationError("invalid cursor")
		}
		input.ExclusiveStartKey = startKey
	}

	out, err := s.client.Query(ctx, input)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list analyses", err)
	}

	page := &ports.AnalysisPage{}
	for _, raw := range out.Items {
		var item analysisItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			s.logger.Warn("skipping unreadable analysis item", zap.Error(err))
			continue
		}
		analysis, err := item.toAnalysis()
		if err != nil {
			s.logger.Warn("skipping corrupt analysis document",
				zap.String("analysisID", item.AnalysisID),
				zap.Error(err),
			)
			continue
		}
		page.Items = append(page.Items, analysis)
	}

	if out.LastEvaluatedKey != nil {
		cursor, err := encodeCursor(out.LastEvaluatedKey)
		if err != nil {
			return nil, apperrors.NewDatabaseError("encode cursor", err)
		}
		page.NextCursor = cursor
	}
	return page, nil
}

// DeleteByID removes one analysis scoped to its owner.
func (s *AnalysisStore) DeleteByID(ctx context.Context, ownerID, id string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: ownerKey(ownerID)},
			"SK": &types.AttributeValueMemberS{Value: analysisKey(id)},
		},
		ConditionExpression: aws.String("attribute_exists(PK)"),
	})
	if err != nil {
		var condFailed *types.ConditionalCheckFailedException
		if errors.As(err, &condFailed) {
			return apperrors.NewNotFoundError("analysis")
		}
		return apperrors.NewDatabaseError("delete analysis", err)
	}
	return nil
}

func (item *analysisItem) toAnalysis() (*ports.Analysis, error) {
	var doc jd.Document
	if err := json.Unmarshal([]byte(item.Document), &doc); err != nil {
		return nil, fmt.Errorf("decode stored document: %w", err)
	}
	createdAt, _ := time.Parse(time.RFC3339, item.CreatedAt)
	updatedAt, _ := time.Parse(time.RFC3339, item.UpdatedAt)
	return &ports.Analysis{
		ID:        item.AnalysisID,
		OwnerID:   item.OwnerID,
		Title:     item.Title,
		Document:  &doc,
		Version:   item.Version,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}, nil
}

// Cursors are the base64-encoded JSON of DynamoDB's LastEvaluatedKey.
func encodeCursor(key map[string]types.AttributeValue) (string, error) {
	plain := make(map[string]string, len(key))
	for k, v := range key {
		s, ok := v.(*types.AttributeValueMemberS)
		if !ok {
			return "", fmt.Errorf("unexpected key attribute type for %s", k)
		}
		plain[k] = s.Value
	}
	raw, err := json.Marshal(plain)
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(raw), nil
}

func decodeCursor(cursor string) (map[string]types.AttributeValue, error) {
	raw, err := base64.URLEncoding.DecodeString(cursor)
	if err != nil {
		return nil, err
	}
	var plain map[string]string
	if err := json.Unmarshal(raw, &plain); err != nil {
		return nil, err
	}
	key := make(map[string]types.AttributeValue, len(plain))
	for k, v := range plain {
		key[k] = &types.AttributeValueMemberS{Value: v}
	}
	return key, nil
}
