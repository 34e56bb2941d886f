// In-memory DynamoDB client used by the backend tests.
package dynamodb

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/cockroachdb/errors"
)

// fakeClient keeps tables in memory. It understands the single-attribute
// keys and the festival_id key condition the backend issues, and returns
// query and scan results in pages of pageSize items.
type fakeClient struct {
	mu       sync.Mutex
	keys     map[string]string // table -> key attribute
	tables   map[string]map[string]item
	pageSize int
	failOn   map[string]error // operation name -> error
	calls    []string
}

func newFakeClient(prefix string) *fakeClient {
	return &fakeClient{
		keys: map[string]string{
			prefix + "festivals":  "festival_id",
			prefix + "categories": "category_id",
			prefix + "places":     "place_id",
		},
		tables:   map[string]map[string]item{},
		pageSize: 2,
		failOn:   map[string]error{},
	}
}

func (f *fakeClient) record(op string) error {
	f.calls = append(f.calls, op)
	return f.failOn[op]
}

func (f *fakeClient) keyOf(table string, it item) (string, error) {
	attr, ok := f.keys[table]
	if !ok {
		return "", errors.Newf("ResourceNotFoundException: table %s", table)
	}
	s, ok := it[attr].(*ddbtypes.AttributeValueMemberS)
	if !ok {
		return "", errors.Newf("ValidationException: missing key %s", attr)
	}
	return s.Value, nil
}

func (f *fakeClient) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("GetItem"); err != nil {
		return nil, err
	}
	table := aws.ToString(in.TableName)
	key, err := f.keyOf(table, in.Key)
	if err != nil {
		return nil, err
	}
	return &dynamodb.GetItemOutput{Item: f.tables[table][key]}, nil
}

func (f *fakeClient) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("PutItem"); err != nil {
		return nil, err
	}
	table := aws.ToString(in.TableName)
	key, err := f.keyOf(table, in.Item)
	if err != nil {
		return nil, err
	}
	if f.tables[table] == nil {
		f.tables[table] = map[string]item{}
	}
	f.tables[table][key] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeClient) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("DeleteItem"); err != nil {
		return nil, err
	}
	table := aws.ToString(in.TableName)
	key, err := f.keyOf(table, in.Key)
	if err != nil {
		return nil, err
	}
	delete(f.tables[table], key)
	return &dynamodb.DeleteItemOutput{}, nil
}

func (f *fakeClient) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("Query"); err != nil {
		return nil, err
	}
	if aws.ToString(in.IndexName) != FestivalIndex || aws.ToString(in.KeyConditionExpression) != "festival_id = :f" {
		return nil, errors.New("ValidationException: unsupported query")
	}
	want := in.ExpressionAttributeValues[":f"].(*ddbtypes.AttributeValueMemberS).Value

	var matched []item
	for _, it := range f.sorted(aws.ToString(in.TableName)) {
		if s, ok := it["festival_id"].(*ddbtypes.AttributeValueMemberS); ok && s.Value == want {
			matched = append(matched, it)
		}
	}
	page, last := f.page(aws.ToString(in.TableName), matched, in.ExclusiveStartKey)
	return &dynamodb.QueryOutput{Items: page, Count: int32(len(page)), LastEvaluatedKey: last}, nil
}

func (f *fakeClient) Scan(_ context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("Scan"); err != nil {
		return nil, err
	}
	table := aws.ToString(in.TableName)
	page, last := f.page(table, f.sorted(table), in.ExclusiveStartKey)
	return &dynamodb.ScanOutput{Items: page, Count: int32(len(page)), LastEvaluatedKey: last}, nil
}

func (f *fakeClient) sorted(table string) []item {
	keys := make([]string, 0, len(f.tables[table]))
	for k := range f.tables[table] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	items := make([]item, len(keys))
	for i, k := range keys {
		items[i] = f.tables[table][k]
	}
	return items
}

// page returns the items after start and, when more remain, the key of the
// last returned item.
func (f *fakeClient) page(table string, items []item, start item) ([]item, item) {
	if start != nil {
		after, _ := f.keyOf(table, start)
		i := sort.Search(len(items), func(i int) bool {
			k, _ := f.keyOf(table, items[i])
			return strings.Compare(k, after) > 0
		})
		items = items[i:]
	}
	if len(items) <= f.pageSize {
		return items, nil
	}
	items = items[:f.pageSize]
	return items, item{f.keys[table]: items[len(items)-1][f.keys[table]]}
}

// put stores a raw item, bypassing the backend.
func (f *fakeClient) put(table string, it item) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key, _ := f.keyOf(table, it)
	if f.tables[table] == nil {
		f.tables[table] = map[string]item{}
	}
	f.tables[table][key] = it
}

func (f *fakeClient) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == op {
			n++
		}
	}
	return n
}
