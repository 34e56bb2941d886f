// Package dynamodb implements the festival directory on Amazon DynamoDB.
// Each standard table maps to one DynamoDB table; categories and places
// carry a by_festival global secondary index keyed on festival_id.
package dynamodb

import (
	"context"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/cockroachdb/errors"

	"github.com/mesh-intelligence/festivals/pkg/types"
)

// FestivalIndex is the global secondary index on festival_id.
const FestivalIndex = "by_festival"

// DefaultTimeout bounds each table operation.
const DefaultTimeout = 10 * time.Second

// Client is the subset of *dynamodb.Client the backend uses.
type Client interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, in *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

var _ Client = (*dynamodb.Client)(nil)

// Backend implements types.Directory over DynamoDB.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	client   Client
	prefix   string
	timeout  time.Duration
	tables   map[string]types.Table

	// injected is set when the client came from NewBackendWithClient and
	// must survive Detach.
	injected bool

	// writeMu serializes writes so parent checks and puts do not interleave
	// within this process.
	writeMu sync.Mutex
}

var _ types.Directory = (*Backend)(nil)

// NewBackend creates a detached backend. Attach builds the AWS client from
// the default credential chain and Config.DynamoDB.
func NewBackend() *Backend {
	return &Backend{timeout: DefaultTimeout, tables: map[string]types.Table{}}
}

// NewBackendWithClient creates a detached backend that talks to client.
func NewBackendWithClient(client Client) *Backend {
	b := NewBackend()
	b.client = client
	b.injected = true
	return b
}

// GetTable returns the accessor for a standard table.
func (b *Backend) GetTable(name string) (types.Table, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrDirectoryDetached
	}
	table, ok := b.tables[name]
	if !ok {
		return nil, errors.Wrapf(types.ErrTableNotFound, "%q", name)
	}
	return table, nil
}

// Attach connects to DynamoDB. No request is made until the first table
// operation.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}
	if config.Backend != types.BackendDynamoDB {
		return errors.Wrapf(types.ErrBackendUnknown, "dynamodb backend cannot attach %q", config.Backend)
	}

	if b.client == nil {
		client, err := newClient(config.DynamoDB)
		if err != nil {
			return err
		}
		b.client = client
	}

	b.prefix = config.TablePrefix()
	b.attached = true
	b.tables = map[string]types.Table{
		types.TableFestivals:  &festivalsTable{backend: b},
		types.TableCategories: newNodeTable(b, categoryKind),
		types.TablePlaces:     newNodeTable(b, placeKind),
	}
	return nil
}

// Detach drops the tables. An injected client is kept for the next Attach.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}
	b.attached = false
	b.tables = map[string]types.Table{}
	if !b.injected {
		b.client = nil
	}
	return nil
}

func newClient(cfg *types.DynamoDBConfig) (*dynamodb.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), DefaultTimeout)
	defer cancel()

	var opts []func(*awsconfig.LoadOptions) error
	if cfg != nil && cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "loading AWS config")
	}

	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg != nil && cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}), nil
}

// tableName returns the physical DynamoDB table for a standard table.
func (b *Backend) tableName(name string) *string {
	return aws.String(b.prefix + name)
}

// op returns the client and a context bounded by the operation timeout.
func (b *Backend) op() (Client, context.Context, context.CancelFunc, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, nil, nil, types.ErrDirectoryDetached
	}
	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	return b.client, ctx, cancel, nil
}
