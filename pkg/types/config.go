// Backend selection for Directory.Attach.
package types

import "github.com/cockroachdb/errors"

// Config holds backend selection and parameters for Directory.Attach.
type Config struct {
	Backend  string          `json:"backend" yaml:"backend"`
	DataDir  string          `json:"data_dir" yaml:"data_dir"`
	DynamoDB *DynamoDBConfig `json:"dynamodb,omitempty" yaml:"dynamodb,omitempty"`
}

// DynamoDBConfig carries the parameters of the DynamoDB backend. Region and
// Endpoint fall back to the AWS SDK defaults when empty.
type DynamoDBConfig struct {
	Region      string `json:"region,omitempty" yaml:"region,omitempty"`
	Endpoint    string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	TablePrefix string `json:"table_prefix,omitempty" yaml:"table_prefix,omitempty"`
}

// Supported backend names.
const (
	BackendSQLite   = "sqlite"
	BackendDynamoDB = "dynamodb"
)

// Config validation errors.
var (
	ErrBackendEmpty   = errors.New("backend must not be empty")
	ErrBackendUnknown = errors.New("unknown backend")
)

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendSQLite:   true,
	BackendDynamoDB: true,
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return errors.Wrapf(ErrBackendUnknown, "backend %q", c.Backend)
	}
	return nil
}

// TablePrefix returns the DynamoDB table name prefix, or "" when unset.
func (c Config) TablePrefix() string {
	if c.DynamoDB == nil {
		return ""
	}
	return c.DynamoDB.TablePrefix
}
