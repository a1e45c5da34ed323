package database

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// ErrItemNotFound is returned by Get when the key has no item.
var ErrItemNotFound = errors.New("item not found")

const (
	// maxBatchWrite is DynamoDB's limit of requests per BatchWriteItem call.
	maxBatchWrite      = 25
	unprocessedRetries = 3
	retryBackoff       = 100 * time.Millisecond
)

// dynamoAPI is the part of *dynamodb.Client the repository helpers use.
type dynamoAPI interface {
	dynamodb.QueryAPIClient
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

// Key identifies one item.
type Key map[string]types.AttributeValue

func StringKey(name, value string) Key {
	return Key{name: &types.AttributeValueMemberS{Value: value}}
}

func (c *DynamoDBClient) Put(ctx context.Context, table string, item any) error {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("marshal %s item: %w", table, err)
	}
	if _, err := c.svc.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(table),
		Item:      av,
	}); err != nil {
		return fmt.Errorf("put %s: %w", table, err)
	}
	return nil
}

// Get unmarshals the item at key into out.
func (c *DynamoDBClient) Get(ctx context.Context, table string, key Key, out any) error {
	res, err := c.svc.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(table),
		Key:       key,
	})
	if err != nil {
		return fmt.Errorf("get %s: %w", table, err)
	}
	if res.Item == nil {
		return fmt.Errorf("%w in %s", ErrItemNotFound, table)
	}
	if err := attributevalue.UnmarshalMap(res.Item, out); err != nil {
		return fmt.Errorf("unmarshal %s item: %w", table, err)
	}
	return nil
}

func (c *DynamoDBClient) Delete(ctx context.Context, table string, key Key) error {
	if _, err := c.svc.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(table),
		Key:       key,
	}); err != nil {
		return fmt.Errorf("delete %s: %w", table, err)
	}
	return nil
}

// QueryIndex reads every item of index whose attr equals value, following
// pagination, and unmarshals them into out (a pointer to a slice).
func (c *DynamoDBClient) QueryIndex(ctx context.Context, table, index, attr, value string, out any) error {
	paginator := dynamodb.NewQueryPaginator(c.svc, &dynamodb.QueryInput{
		TableName:                 aws.String(table),
		IndexName:                 aws.String(index),
		KeyConditionExpression:    aws.String("#k = :v"),
		ExpressionAttributeNames:  map[string]string{"#k": attr},
		ExpressionAttributeValues: map[string]types.AttributeValue{":v": &types.AttributeValueMemberS{Value: value}},
	})

	var items []map[string]types.AttributeValue
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("query %s[%s]: %w", table, index, err)
		}
		items = append(items, page.Items...)
	}
	if err := attributevalue.UnmarshalListOfMaps(items, out); err != nil {
		return fmt.Errorf("unmarshal %s items: %w", table, err)
	}
	return nil
}

// WriteBatch puts items and deletes keys in chunks of maxBatchWrite,
// resubmitting unprocessed requests with backoff.
func (c *DynamoDBClient) WriteBatch(ctx context.Context, table string, puts []any, deletes []Key) error {
	requests := make([]types.WriteRequest, 0, len(puts)+len(deletes))
	for _, item := range puts {
		av, err := attributevalue.MarshalMap(item)
		if err != nil {
			return fmt.Errorf("marshal %s item: %w", table, err)
		}
		requests = append(requests, types.WriteRequest{PutRequest: &types.PutRequest{Item: av}})
	}
	for _, key := range deletes {
		requests = append(requests, types.WriteRequest{DeleteRequest: &types.DeleteRequest{Key: key}})
	}

	for chunk := range slices.Chunk(requests, maxBatchWrite) {
		if err := c.writeChunk(ctx, table, chunk); err != nil {
			return fmt.Errorf("batch write %s: %w", table, err)
		}
	}
	return nil
}

func (c *DynamoDBClient) writeChunk(ctx context.Context, table string, chunk []types.WriteRequest) error {
	pending := map[string][]types.WriteRequest{table: chunk}
	for attempt := 0; ; attempt++ {
		res, err := c.svc.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{RequestItems: pending})
		if err != nil {
			return err
		}
		pending = res.UnprocessedItems
		left := len(pending[table])
		if left == 0 {
			return nil
		}
		if attempt+1 >= unprocessedRetries {
			return fmt.Errorf("%d requests unprocessed after %d attempts", left, unprocessedRetries)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryBackoff << attempt):
		}
	}
}
