// This file implements item, query and scan helpers shared by the DynamoDB tables.
package dynamodb

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/cockroachdb/errors"

	"github.com/mesh-intelligence/festivals/pkg/types"
)

type item = map[string]ddbtypes.AttributeValue

func stringKey(attr, id string) item {
	return item{attr: &ddbtypes.AttributeValueMemberS{Value: id}}
}

// hasAttr reports whether the attribute is present, NULL included.
func hasAttr(it item, attr string) bool {
	_, ok := it[attr]
	return ok
}

func getItem(ctx context.Context, c Client, table *string, key item) (item, error) {
	out, err := c.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      table,
		Key:            key,
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "getting item from %s", aws.ToString(table))
	}
	if out.Item == nil {
		return nil, types.ErrNotFound
	}
	return out.Item, nil
}

func putItem(ctx context.Context, c Client, table *string, v any) error {
	av, err := attributevalue.MarshalMap(v)
	if err != nil {
		return errors.Wrap(err, "marshaling item")
	}
	if _, err := c.PutItem(ctx, &dynamodb.PutItemInput{TableName: table, Item: av}); err != nil {
		return errors.Wrapf(err, "putting item into %s", aws.ToString(table))
	}
	return nil
}

func deleteItem(ctx context.Context, c Client, table *string, key item) error {
	if _, err := c.DeleteItem(ctx, &dynamodb.DeleteItemInput{TableName: table, Key: key}); err != nil {
		return errors.Wrapf(err, "deleting item from %s", aws.ToString(table))
	}
	return nil
}

// queryFestival returns every item of a festival through the by_festival
// index, following pagination.
func queryFestival(ctx context.Context, c Client, table *string, festivalID string) ([]item, error) {
	paginator := dynamodb.NewQueryPaginator(c, &dynamodb.QueryInput{
		TableName:              table,
		IndexName:              aws.String(FestivalIndex),
		KeyConditionExpression: aws.String("festival_id = :f"),
		ExpressionAttributeValues: item{
			":f": &ddbtypes.AttributeValueMemberS{Value: festivalID},
		},
	})

	var items []item
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, errors.Wrapf(err, "querying %s for festival %s", aws.ToString(table), festivalID)
		}
		items = append(items, page.Items...)
	}
	return items, nil
}

// scanTable returns every item of a table, following pagination.
func scanTable(ctx context.Context, c Client, table *string) ([]item, error) {
	paginator := dynamodb.NewScanPaginator(c, &dynamodb.ScanInput{TableName: table})

	var items []item
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, errors.Wrapf(err, "scanning %s", aws.ToString(table))
		}
		items = append(items, page.Items...)
	}
	return items, nil
}

// paginate applies the offset and limit filters to an ordered result.
func paginate(results []any, filter types.Filter) ([]any, error) {
	offset, _, err := filter.FilterInt("offset")
	if err != nil {
		return nil, err
	}
	limit, _, err := filter.FilterInt("limit")
	if err != nil {
		return nil, err
	}
	if offset > 0 {
		if offset >= len(results) {
			return []any{}, nil
		}
		results = results[offset:]
	}
	if limit > 0 && limit < len(results) {
		results = results[:limit]
	}
	return results, nil
}
