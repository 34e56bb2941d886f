// Package cli implements the festivals command-line interface.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/festivals/internal/logger"
	"github.com/mesh-intelligence/festivals/internal/paths"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// Version is overridden at build time with -ldflags "-X ...cli.Version=...".
var Version = "v0.1.0"

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	jsonMode  bool
}

// app is the state one invocation of the root command shares between its
// subcommands.
type app struct {
	flags     rootFlags
	configDir string
	v         *viper.Viper
	cfg       settings
	log       *zap.SugaredLogger
}

// exitError carries the process exit code for an error.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func userError(err error) error { return &exitError{code: exitUserError, err: err} }
func sysError(err error) error  { return &exitError{code: exitSysError, err: err} }

// exitCode maps an error returned by a command to a process exit code.
// Errors not classified by a command are usage errors from cobra.
func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return exitUserError
}

// NewRootCmd creates the top-level "festivals" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "festivals",
		Short: "Festival directory with materialized breadcrumbs",
		Long: "festivals stores festivals with their category and place trees and\n" +
			"serves each entity together with its ancestors and children.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return a.load(cmd.ErrOrStderr())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	root.PersistentFlags().StringVar(&a.flags.dataDir, "data-dir", "", "data directory (default: $(CWD)/.festivals-db)")
	root.PersistentFlags().BoolVar(&a.flags.jsonMode, "json", false, "output as JSON")

	root.AddCommand(newVersionCmd())
	root.AddCommand(a.newInitCmd())
	root.AddCommand(a.newServeCmd())
	root.AddCommand(a.newRebuildCmd())
	root.AddCommand(a.newTreeCmd())
	root.AddCommand(a.newBreadcrumbCmd())
	root.AddCommand(a.newGetCmd())
	root.AddCommand(a.newListCmd())
	root.AddCommand(a.newSetCmd())
	root.AddCommand(a.newDeleteCmd())

	return root
}

// Execute runs the root command with os.Args and returns the exit code.
func Execute() int {
	return run(NewRootCmd(), os.Args[1:], os.Stderr)
}

func run(root *cobra.Command, args []string, stderr io.Writer) int {
	root.SetArgs(args)
	err := root.Execute()
	if err != nil {
		fmt.Fprintln(stderr, "festivals:", err)
	}
	return exitCode(err)
}

// load resolves directories, reads config.yaml and builds the logger.
func (a *app) load(logOut io.Writer) error {
	configDir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return sysError(errors.Wrap(err, "resolve config dir"))
	}
	v, err := loadConfig(configDir)
	if err != nil {
		return sysError(err)
	}
	cfg, err := readSettings(v, a.flags.dataDir)
	if err != nil {
		return userError(err)
	}
	log, err := logger.NewWithWriter(logOut, cfg.LogJSON, cfg.LogLevel)
	if err != nil {
		return userError(errors.Wrap(err, "log.level"))
	}

	a.configDir = configDir
	a.v = v
	a.cfg = cfg
	a.log = log
	return nil
}
