package database

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDynamo struct {
	mu sync.Mutex

	items       map[string]map[string]types.AttributeValue
	queryPages  [][]map[string]types.AttributeValue
	queries     []*dynamodb.QueryInput
	batchSizes  []int
	unprocessed func(call int, reqs []types.WriteRequest) []types.WriteRequest
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.items == nil {
		f.items = make(map[string]map[string]types.AttributeValue)
	}
	pk := in.Item["pk"].(*types.AttributeValueMemberS).Value
	f.items[pk] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pk := in.Key["pk"].(*types.AttributeValueMemberS).Value
	return &dynamodb.GetItemOutput{Item: f.items[pk]}, nil
}

func (f *fakeDynamo) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.items, in.Key["pk"].(*types.AttributeValueMemberS).Value)
	return &dynamodb.DeleteItemOutput{}, nil
}

func (f *fakeDynamo) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, in)
	page := len(f.queries) - 1
	out := &dynamodb.QueryOutput{Items: f.queryPages[page]}
	if page+1 < len(f.queryPages) {
		out.LastEvaluatedKey = map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: fmt.Sprintf("page-%d", page)},
		}
	}
	return out, nil
}

func (f *fakeDynamo) BatchWriteItem(_ context.Context, in *dynamodb.BatchWriteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var reqs []types.WriteRequest
	var table string
	for t, r := range in.RequestItems {
		table, reqs = t, r
	}
	call := len(f.batchSizes)
	f.batchSizes = append(f.batchSizes, len(reqs))

	out := &dynamodb.BatchWriteItemOutput{}
	if f.unprocessed != nil {
		if left := f.unprocessed(call, reqs); len(left) > 0 {
			out.UnprocessedItems = map[string][]types.WriteRequest{table: left}
		}
	}
	return out, nil
}

type testItem struct {
	PK   string `dynamodbav:"pk"`
	Name string `dynamodbav:"name"`
}

func testItems(n int) []any {
	items := make([]any, 0, n)
	for i := range n {
		items = append(items, testItem{PK: fmt.Sprintf("t#%02d", i)})
	}
	return items
}

func TestPutGetDelete(t *testing.T) {
	fake := &fakeDynamo{}
	c := &DynamoDBClient{svc: fake}
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "Items", testItem{PK: "t#1", Name: "Ann"}))

	var got testItem
	require.NoError(t, c.Get(ctx, "Items", StringKey("pk", "t#1"), &got))
	assert.Equal(t, "Ann", got.Name)

	require.NoError(t, c.Delete(ctx, "Items", StringKey("pk", "t#1")))
	err := c.Get(ctx, "Items", StringKey("pk", "t#1"), &got)
	assert.True(t, errors.Is(err, ErrItemNotFound))
}

func TestQueryIndexFollowsPages(t *testing.T) {
	item := func(pk string) map[string]types.AttributeValue {
		return map[string]types.AttributeValue{"pk": &types.AttributeValueMemberS{Value: pk}}
	}
	fake := &fakeDynamo{queryPages: [][]map[string]types.AttributeValue{
		{item("t#1"), item("t#2")},
		{item("t#3")},
	}}
	c := &DynamoDBClient{svc: fake}

	var out []testItem
	require.NoError(t, c.QueryIndex(context.Background(), "Items", "byTenant", "tenantId", "t", &out))

	require.Len(t, out, 3)
	assert.Equal(t, "t#3", out[2].PK)
	require.Len(t, fake.queries, 2)
	assert.Equal(t, "byTenant", aws.ToString(fake.queries[0].IndexName))
	assert.Equal(t, "tenantId", fake.queries[0].ExpressionAttributeNames["#k"])
	assert.Nil(t, fake.queries[0].ExclusiveStartKey)
	assert.NotNil(t, fake.queries[1].ExclusiveStartKey)
}

func TestWriteBatchChunks(t *testing.T) {
	fake := &fakeDynamo{}
	c := &DynamoDBClient{svc: fake}

	err := c.WriteBatch(context.Background(), "Items", testItems(40), []Key{StringKey("pk", "a"), StringKey("pk", "b")})
	require.NoError(t, err)
	assert.Equal(t, []int{25, 17}, fake.batchSizes)

	require.NoError(t, c.WriteBatch(context.Background(), "Items", nil, nil))
	assert.Len(t, fake.batchSizes, 2, "nothing to write makes no call")
}

func TestWriteBatchResubmitsUnprocessed(t *testing.T) {
	fake := &fakeDynamo{unprocessed: func(call int, reqs []types.WriteRequest) []types.WriteRequest {
		if call == 0 {
			return reqs[:2]
		}
		return nil
	}}
	c := &DynamoDBClient{svc: fake}

	require.NoError(t, c.WriteBatch(context.Background(), "Items", testItems(5), nil))
	assert.Equal(t, []int{5, 2}, fake.batchSizes)
}

func TestWriteBatchGivesUpOnPersistentBacklog(t *testing.T) {
	fake := &fakeDynamo{unprocessed: func(_ int, reqs []types.WriteRequest) []types.WriteRequest {
		return reqs[:1]
	}}
	c := &DynamoDBClient{svc: fake}

	err := c.WriteBatch(context.Background(), "Items", testItems(3), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 requests unprocessed")
	assert.Len(t, fake.batchSizes, unprocessedRetries)
}

func TestWriteBatchStopsOnCancel(t *testing.T) {
	fake := &fakeDynamo{unprocessed: func(_ int, reqs []types.WriteRequest) []types.WriteRequest {
		return reqs
	}}
	c := &DynamoDBClient{svc: fake}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.WriteBatch(ctx, "Items", testItems(1), nil)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Len(t, fake.batchSizes, 1)
}
