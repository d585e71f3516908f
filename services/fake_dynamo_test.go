package services

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"vibin_client/models"
)

// fakeDynamo is an in-memory DynamoAPI that understands the key schemas and
// the expressions this package issues.
type fakeDynamo struct {
	mu      sync.Mutex
	keys    map[string][]string
	tables  map[string][]map[string]types.AttributeValue
	fail    map[string]error
	batches int
	// pageSize caps Query pages. Zero returns one page.
	pageSize int
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{
		keys: map[string][]string{
			models.UserProfilesTable: {"userId"},
			models.InteractionsTable: {"senderId", "receiverId"},
			models.MatchesTable:      {"matchId"},
			models.MessagesTable:     {"matchId", "createdAt"},
		},
		tables: map[string][]map[string]types.AttributeValue{},
		fail:   map[string]error{},
	}
}

func scalar(av types.AttributeValue) string {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return v.Value
	case *types.AttributeValueMemberN:
		return v.Value
	}
	return ""
}

func (f *fakeDynamo) find(table string, key map[string]types.AttributeValue) int {
	for i, item := range f.tables[table] {
		match := true
		for _, k := range f.keys[table] {
			if scalar(item[k]) != scalar(key[k]) {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

func (f *fakeDynamo) put(table string, item map[string]types.AttributeValue) {
	if i := f.find(table, item); i >= 0 {
		f.tables[table][i] = item
		return
	}
	f.tables[table] = append(f.tables[table], item)
}

func (f *fakeDynamo) item(table string, key map[string]types.AttributeValue) map[string]types.AttributeValue {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i := f.find(table, key); i >= 0 {
		return f.tables[table][i]
	}
	return nil
}

func (f *fakeDynamo) count(table string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tables[table])
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail["GetItem"]; err != nil {
		return nil, err
	}
	i := f.find(*in.TableName, in.Key)
	if i < 0 {
		return &dynamodb.GetItemOutput{}, nil
	}
	return &dynamodb.GetItemOutput{Item: f.tables[*in.TableName][i]}, nil
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail["PutItem"]; err != nil {
		return nil, err
	}
	f.put(*in.TableName, in.Item)
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail["UpdateItem"]; err != nil {
		return nil, err
	}
	table := *in.TableName
	var item map[string]types.AttributeValue
	if i := f.find(table, in.Key); i >= 0 {
		item = f.tables[table][i]
	} else {
		item = map[string]types.AttributeValue{}
		for k, v := range in.Key {
			item[k] = v
		}
		f.tables[table] = append(f.tables[table], item)
	}

	expr := strings.TrimPrefix(*in.UpdateExpression, "SET ")
	for _, part := range strings.Split(expr, ",") {
		lhs, rhs, _ := strings.Cut(part, "=")
		name := strings.TrimSpace(lhs)
		if resolved, ok := in.ExpressionAttributeNames[name]; ok {
			name = resolved
		}
		item[name] = in.ExpressionAttributeValues[strings.TrimSpace(rhs)]
	}
	return &dynamodb.UpdateItemOutput{}, nil
}

func (f *fakeDynamo) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail["Query"]; err != nil {
		return nil, err
	}
	table := *in.TableName
	schema := f.keys[table]
	pk := scalar(in.ExpressionAttributeValues[":pk"])

	var items []map[string]types.AttributeValue
	for _, item := range f.tables[table] {
		if scalar(item[schema[0]]) == pk {
			items = append(items, item)
		}
	}
	if len(schema) > 1 {
		sort.SliceStable(items, func(i, j int) bool {
			return scalar(items[i][schema[1]]) < scalar(items[j][schema[1]])
		})
	}
	if in.ScanIndexForward != nil && !*in.ScanIndexForward {
		for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
			items[i], items[j] = items[j], items[i]
		}
	}
	if len(in.ExclusiveStartKey) > 0 {
		for i, item := range items {
			if f.sameKey(schema, item, in.ExclusiveStartKey) {
				items = items[i+1:]
				break
			}
		}
	}

	size := len(items)
	if in.Limit != nil && int(*in.Limit) < size {
		size = int(*in.Limit)
	}
	if f.pageSize > 0 && f.pageSize < size {
		size = f.pageSize
	}
	out := &dynamodb.QueryOutput{Items: items[:size]}
	if size < len(items) {
		last := items[size-1]
		out.LastEvaluatedKey = map[string]types.AttributeValue{}
		for _, k := range schema {
			out.LastEvaluatedKey[k] = last[k]
		}
	}
	return out, nil
}

func (f *fakeDynamo) sameKey(schema []string, item, key map[string]types.AttributeValue) bool {
	for _, k := range schema {
		if scalar(item[k]) != scalar(key[k]) {
			return false
		}
	}
	return true
}

func (f *fakeDynamo) Scan(_ context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail["Scan"]; err != nil {
		return nil, err
	}
	items := append([]map[string]types.AttributeValue(nil), f.tables[*in.TableName]...)
	return &dynamodb.ScanOutput{Items: items}, nil
}

func (f *fakeDynamo) BatchWriteItem(_ context.Context, in *dynamodb.BatchWriteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail["BatchWriteItem"]; err != nil {
		return nil, err
	}
	f.batches++
	for table, reqs := range in.RequestItems {
		for _, r := range reqs {
			if r.PutRequest != nil {
				f.put(table, r.PutRequest.Item)
			}
		}
	}
	return &dynamodb.BatchWriteItemOutput{}, nil
}
