package kvstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type dynamoAPI interface {
	PutItem(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

// dynamoItem is the row layout: one item per key, the document serialized as a JSON string.
type dynamoItem struct {
	Key       string `dynamodbav:"key"`
	Value     string `dynamodbav:"value"`
	UpdatedAt string `dynamodbav:"updatedAt"`
}

// DynamoStore persists documents to a DynamoDB table keyed by "key".
type DynamoStore struct {
	client    dynamoAPI
	tableName string
	now       func() time.Time
}

// NewDynamoStore creates a store for the given table.
func NewDynamoStore(client *dynamodb.Client, tableName string) *DynamoStore {
	if client == nil {
		panic("kvstore: dynamodb client required")
	}
	return newDynamoStore(client, tableName)
}

func newDynamoStore(client dynamoAPI, tableName string) *DynamoStore {
	return &DynamoStore{client: client, tableName: tableName, now: time.Now}
}

// Get implements Store.
func (s *DynamoStore) Get(ctx context.Context, key string, dst any) (bool, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"key": &types.AttributeValueMemberS{Value: key},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return false, fmt.Errorf("kvstore: dynamodb get %s: %w", key, err)
	}
	if out.Item == nil {
		return false, nil
	}
	var item dynamoItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return true, fmt.Errorf("kvstore: dynamodb decode item %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(item.Value), dst); err != nil {
		return true, fmt.Errorf("kvstore: dynamodb decode %s: %w", key, err)
	}
	return true, nil
}

// Set implements Store.
func (s *DynamoStore) Set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("kvstore: dynamodb encode %s: %w", key, err)
	}
	item, err := attributevalue.MarshalMap(dynamoItem{
		Key:       key,
		Value:     string(data),
		UpdatedAt: s.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("kvstore: dynamodb marshal item %s: %w", key, err)
	}
	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("kvstore: dynamodb put %s: %w", key, err)
	}
	return nil
}
