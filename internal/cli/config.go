// Config loading for the festivals CLI.
package cli

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/festivals/internal/breadcrumbs"
	"github.com/mesh-intelligence/festivals/internal/paths"
	"github.com/mesh-intelligence/festivals/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"
	envPrefix      = "FESTIVALS"
)

// Config keys.
const (
	cfgKeyBackend           = "backend"
	cfgKeyDataDir           = "data_dir"
	cfgKeyListenAddr        = "listen_addr"
	cfgKeyLogJSON           = "log.json"
	cfgKeyLogLevel          = "log.level"
	cfgKeyOnFailure         = "rebuild.on_failure"
	cfgKeyInterval          = "rebuild.interval"
	cfgKeyScopeLimit        = "rebuild.scope_limit"
	cfgKeyRatePerMinute     = "rebuild.rate_per_minute"
	cfgKeyWatch             = "watch"
	cfgKeyDynamoRegion      = "dynamodb.region"
	cfgKeyDynamoEndpoint    = "dynamodb.endpoint"
	cfgKeyDynamoTablePrefix = "dynamodb.table_prefix"
)

// fileConfig is the shape of config.yaml as written on first run.
type fileConfig struct {
	Backend    string               `yaml:"backend"`
	DataDir    string               `yaml:"data_dir,omitempty"`
	ListenAddr string               `yaml:"listen_addr"`
	Log        logConfig            `yaml:"log"`
	Rebuild    rebuildConfig        `yaml:"rebuild"`
	Watch      bool                 `yaml:"watch"`
	DynamoDB   types.DynamoDBConfig `yaml:"dynamodb"`
}

type logConfig struct {
	JSON  bool   `yaml:"json"`
	Level string `yaml:"level"`
}

type rebuildConfig struct {
	OnFailure     string  `yaml:"on_failure"`
	Interval      string  `yaml:"interval"`
	ScopeLimit    int     `yaml:"scope_limit"`
	RatePerMinute float64 `yaml:"rate_per_minute"`
}

func defaultFileConfig() fileConfig {
	return fileConfig{
		Backend:    types.BackendSQLite,
		ListenAddr: "127.0.0.1:8080",
		Log:        logConfig{Level: "info"},
		Rebuild: rebuildConfig{
			OnFailure:     string(breadcrumbs.AbortOnFailure),
			Interval:      "5m",
			RatePerMinute: 6,
		},
		Watch: true,
	}
}

// settings is the resolved configuration of one invocation.
type settings struct {
	Backend       string
	DataDir       string
	ListenAddr    string
	LogJSON       bool
	LogLevel      string
	OnFailure     breadcrumbs.FailurePolicy
	Interval      time.Duration
	ScopeLimit    int
	RatePerMinute float64
	Watch         bool
	DynamoDB      types.DynamoDBConfig
}

// loadConfig reads config.yaml from configDir using Viper. It creates the
// directory and a default config.yaml on first run. Every key can be
// overridden with a FESTIVALS_ environment variable, for example
// FESTIVALS_REBUILD_ON_FAILURE.
func loadConfig(configDir string) (*viper.Viper, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "ensure config dir")
	}
	if err := ensureDefaultConfigFile(configDir); err != nil {
		return nil, errors.Wrap(err, "ensure default config")
	}

	d := defaultFileConfig()
	v := viper.New()
	v.SetDefault(cfgKeyBackend, d.Backend)
	v.SetDefault(cfgKeyDataDir, "")
	v.SetDefault(cfgKeyListenAddr, d.ListenAddr)
	v.SetDefault(cfgKeyLogJSON, d.Log.JSON)
	v.SetDefault(cfgKeyLogLevel, d.Log.Level)
	v.SetDefault(cfgKeyOnFailure, d.Rebuild.OnFailure)
	v.SetDefault(cfgKeyInterval, d.Rebuild.Interval)
	v.SetDefault(cfgKeyScopeLimit, d.Rebuild.ScopeLimit)
	v.SetDefault(cfgKeyRatePerMinute, d.Rebuild.RatePerMinute)
	v.SetDefault(cfgKeyWatch, d.Watch)
	v.SetDefault(cfgKeyDynamoRegion, "")
	v.SetDefault(cfgKeyDynamoEndpoint, "")
	v.SetDefault(cfgKeyDynamoTablePrefix, "")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return v, nil
		}
		return nil, errors.Wrap(err, "read config")
	}
	return v, nil
}

// readSettings validates the loaded values. flagDataDir wins over the
// configured data_dir.
func readSettings(v *viper.Viper, flagDataDir string) (settings, error) {
	policy, err := breadcrumbs.ParseFailurePolicy(v.GetString(cfgKeyOnFailure))
	if err != nil {
		return settings{}, errors.Wrap(err, cfgKeyOnFailure)
	}
	var interval time.Duration
	if raw := v.GetString(cfgKeyInterval); raw != "" && raw != "0" {
		interval, err = time.ParseDuration(raw)
		if err != nil || interval < 0 {
			return settings{}, errors.Newf("%s: invalid duration %q", cfgKeyInterval, raw)
		}
	}
	scopeLimit := v.GetInt(cfgKeyScopeLimit)
	if scopeLimit < 0 {
		return settings{}, errors.Newf("%s must not be negative", cfgKeyScopeLimit)
	}

	backend := v.GetString(cfgKeyBackend)
	if err := (types.Config{Backend: backend}).Validate(); err != nil {
		return settings{}, err
	}
	dataDir, err := paths.ResolveDataDir(flagDataDir, v.GetString(cfgKeyDataDir))
	if err != nil {
		return settings{}, errors.Wrap(err, "resolve data dir")
	}

	return settings{
		Backend:       backend,
		DataDir:       dataDir,
		ListenAddr:    v.GetString(cfgKeyListenAddr),
		LogJSON:       v.GetBool(cfgKeyLogJSON),
		LogLevel:      v.GetString(cfgKeyLogLevel),
		OnFailure:     policy,
		Interval:      interval,
		ScopeLimit:    scopeLimit,
		RatePerMinute: v.GetFloat64(cfgKeyRatePerMinute),
		Watch:         v.GetBool(cfgKeyWatch),
		DynamoDB: types.DynamoDBConfig{
			Region:      v.GetString(cfgKeyDynamoRegion),
			Endpoint:    v.GetString(cfgKeyDynamoEndpoint),
			TablePrefix: v.GetString(cfgKeyDynamoTablePrefix),
		},
	}, nil
}

// ensureDefaultConfigFile writes config.yaml with the defaults when the
// config directory has none.
func ensureDefaultConfigFile(configDir string) error {
	path := filepath.Join(configDir, configFileExt)
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return errors.Wrap(err, "stat config file")
	}

	body, err := yaml.Marshal(defaultFileConfig())
	if err != nil {
		return errors.Wrap(err, "marshal default config")
	}
	header := "# festivals configuration\n# Every key can be overridden with FESTIVALS_<KEY>, dots replaced by underscores.\n\n"
	return os.WriteFile(path, append([]byte(header), body...), 0o644)
}
