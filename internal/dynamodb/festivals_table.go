// This file implements the festivals table accessor for the DynamoDB backend.
package dynamodb

import (
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/mesh-intelligence/festivals/pkg/types"
)

var _ types.Table = (*festivalsTable)(nil)

type festivalsTable struct {
	backend *Backend
}

func decodeFestival(it item) (*types.Festival, error) {
	var f types.Festival
	if err := attributevalue.UnmarshalMap(it, &f); err != nil {
		return nil, errors.Wrap(err, "decoding festival")
	}
	return &f, nil
}

func (ft *festivalsTable) Get(id string) (any, error) {
	if id == "" {
		return nil, types.ErrInvalidID
	}
	c, ctx, cancel, err := ft.backend.op()
	if err != nil {
		return nil, err
	}
	defer cancel()

	it, err := getItem(ctx, c, ft.backend.tableName(types.TableFestivals), stringKey("festival_id", id))
	if err != nil {
		return nil, err
	}
	return decodeFestival(it)
}

func (ft *festivalsTable) Set(id string, data any) (string, error) {
	f, ok := data.(*types.Festival)
	if !ok || f == nil {
		return "", types.ErrInvalidData
	}
	if err := f.Validate(); err != nil {
		return "", err
	}

	ft.backend.writeMu.Lock()
	defer ft.backend.writeMu.Unlock()
	c, ctx, cancel, err := ft.backend.op()
	if err != nil {
		return "", err
	}
	defer cancel()
	table := ft.backend.tableName(types.TableFestivals)

	now := time.Now().UTC()
	created := now
	if id == "" {
		uid, err := uuid.NewV7()
		if err != nil {
			return "", errors.Wrap(err, "generating UUID v7")
		}
		id = uid.String()
	} else {
		it, err := getItem(ctx, c, table, stringKey("festival_id", id))
		switch {
		case err == nil:
			prev, err := decodeFestival(it)
			if err != nil {
				return "", err
			}
			created = prev.CreatedAt
		case !errors.Is(err, types.ErrNotFound):
			return "", err
		}
	}

	f.FestivalID = id
	f.CreatedAt = created
	f.UpdatedAt = now
	if err := putItem(ctx, c, table, f); err != nil {
		return "", err
	}
	return id, nil
}

// Delete removes a festival that owns no categories or places.
func (ft *festivalsTable) Delete(id string) error {
	if id == "" {
		return types.ErrInvalidID
	}

	ft.backend.writeMu.Lock()
	defer ft.backend.writeMu.Unlock()
	c, ctx, cancel, err := ft.backend.op()
	if err != nil {
		return err
	}
	defer cancel()
	table := ft.backend.tableName(types.TableFestivals)

	if _, err := getItem(ctx, c, table, stringKey("festival_id", id)); err != nil {
		return err
	}
	for _, owned := range []string{types.TableCategories, types.TablePlaces} {
		items, err := queryFestival(ctx, c, ft.backend.tableName(owned), id)
		if err != nil {
			return err
		}
		if len(items) > 0 {
			return errors.Wrapf(types.ErrHasChildren, "festival %s owns %s", id, owned)
		}
	}
	return deleteItem(ctx, c, table, stringKey("festival_id", id))
}

// Fetch scans all festivals, ordered by creation time. Supported filters:
// name, limit, offset.
func (ft *festivalsTable) Fetch(filter types.Filter) ([]any, error) {
	name, byName, err := filter.FilterString("name")
	if err != nil {
		return nil, err
	}
	c, ctx, cancel, err := ft.backend.op()
	if err != nil {
		return nil, err
	}
	defer cancel()

	items, err := scanTable(ctx, c, ft.backend.tableName(types.TableFestivals))
	if err != nil {
		return nil, err
	}
	festivals := make([]*types.Festival, 0, len(items))
	for _, it := range items {
		f, err := decodeFestival(it)
		if err != nil {
			return nil, err
		}
		if byName && f.Name != name {
			continue
		}
		festivals = append(festivals, f)
	}
	sort.SliceStable(festivals, func(i, j int) bool {
		if !festivals[i].CreatedAt.Equal(festivals[j].CreatedAt) {
			return festivals[i].CreatedAt.Before(festivals[j].CreatedAt)
		}
		return festivals[i].FestivalID < festivals[j].FestivalID
	})

	results := make([]any, len(festivals))
	for i, f := range festivals {
		results[i] = f
	}
	return paginate(results, filter)
}
