// Backend attachment and service wiring for the festivals CLI.
package cli

import (
	"encoding/json"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/mesh-intelligence/festivals/internal/directory"
	"github.com/mesh-intelligence/festivals/internal/dynamodb"
	"github.com/mesh-intelligence/festivals/pkg/sqlite"
	"github.com/mesh-intelligence/festivals/pkg/types"
)

// validTableNamesStr is a comma-separated list of valid table names for error output.
var validTableNamesStr = strings.Join(types.StandardTableNames, ", ")

// attach creates the configured backend and attaches it. The caller must
// Detach it.
func (a *app) attach() (types.Directory, error) {
	var dir types.Directory
	cfg := types.Config{Backend: a.cfg.Backend}
	switch a.cfg.Backend {
	case types.BackendDynamoDB:
		ddb := a.cfg.DynamoDB
		cfg.DynamoDB = &ddb
		dir = dynamodb.NewBackend()
	default:
		cfg.DataDir = a.cfg.DataDir
		dir = sqlite.NewBackend()
	}
	if err := dir.Attach(cfg); err != nil {
		return nil, sysError(errors.Wrap(err, "attach backend"))
	}
	a.log.Debugw("Directory attached", "backend", a.cfg.Backend, "data_dir", cfg.DataDir)
	return dir, nil
}

// newService builds the breadcrumb service over dir.
func (a *app) newService(dir types.Directory) (*directory.Service, error) {
	svc, err := directory.NewService(dir, directory.Config{
		OnFailure:  a.cfg.OnFailure,
		ScopeLimit: a.cfg.ScopeLimit,
		Interval:   a.cfg.Interval,
		Logger:     a.log,
	})
	if err != nil {
		return nil, sysError(err)
	}
	return svc, nil
}

// table returns the named table, classifying the error for the exit code.
func table(dir types.Directory, name string) (types.Table, error) {
	t, err := dir.GetTable(name)
	if err != nil {
		if errors.Is(err, types.ErrTableNotFound) {
			return nil, userError(errors.Newf("unknown table %q (valid: %s)", name, validTableNamesStr))
		}
		return nil, sysError(errors.Wrap(err, "get table"))
	}
	return t, nil
}

// classify wraps a table error as a user error when the input was at
// fault and as a system error otherwise.
func classify(err error, msg string) error {
	err = errors.Wrap(err, msg)
	switch {
	case errors.Is(err, types.ErrNotFound),
		errors.Is(err, types.ErrHasChildren),
		errors.Is(err, types.ErrInvalidName),
		errors.Is(err, types.ErrInvalidFestival),
		errors.Is(err, types.ErrInvalidParent),
		errors.Is(err, types.ErrParentNotFound),
		errors.Is(err, types.ErrInvalidPeriod),
		errors.Is(err, types.ErrInvalidData),
		errors.Is(err, types.ErrInvalidID),
		errors.Is(err, types.ErrInvalidFilter):
		return userError(err)
	default:
		return sysError(err)
	}
}

// parseEntityJSON unmarshals data into the entity struct of tableName and
// returns it together with the ID it carries, if any.
func parseEntityJSON(tableName string, data []byte) (any, string, error) {
	switch tableName {
	case types.TableFestivals:
		var e types.Festival
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, "", err
		}
		return &e, e.FestivalID, nil
	case types.TableCategories:
		var e types.Category
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, "", err
		}
		return &e, e.CategoryID, nil
	case types.TablePlaces:
		var e types.Place
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, "", err
		}
		return &e, e.PlaceID, nil
	default:
		return nil, "", errors.Newf("unknown table %q (valid: %s)", tableName, validTableNamesStr)
	}
}
