// Package cli implements the timecard command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/timecard/internal/logging"
	"github.com/mesh-intelligence/timecard/internal/paths"
	"github.com/mesh-intelligence/timecard/internal/sqlite"
	"github.com/mesh-intelligence/timecard/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dbPath    string
	jsonMode  bool
}

// app is the state shared by the commands of one invocation.
type app struct {
	flags     rootFlags
	configDir string
	cfg       types.Config
	logger    *slog.Logger
	logCloser io.Closer
	conn      *sqlite.Conn
}

// NewRootCmd creates the top-level "timecard" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&app{})
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "timecard",
		Short: "A personal task list with time tracking",
		Long: "Timecard keeps a tree of tasks in a local SQLite file and records\n" +
			"the time spent on them.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations[annotationNoStore] != "" {
				return nil
			}
			return a.setup(cmd)
		},
	}

	root.PersistentFlags().StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	root.PersistentFlags().StringVar(&a.flags.dbPath, "db", "", "database file (default: platform data dir)")
	root.PersistentFlags().BoolVar(&a.flags.jsonMode, "json", false, "output in JSON format")
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error { return userError(err) })

	root.AddCommand(
		newVersionCmd(),
		newInitCmd(a),
		newResetCmd(a),
		newDBCmd(a),
		newTaskCmd(a),
		newWorkCmd(a),
		newSettingCmd(a),
		newExportCmd(a),
		newImportCmd(a),
	)
	return root
}

// annotationNoStore marks commands that run without config or database.
const annotationNoStore = "timecard/no-store"

// setup resolves configuration, builds the logger and prepares the
// connection. The database file is opened by the first statement.
func (a *app) setup(cmd *cobra.Command) error {
	configDir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return fmt.Errorf("resolve config dir: %w", err)
	}
	v, err := loadConfig(configDir)
	if err != nil {
		return err
	}
	dbPath, err := paths.ResolveDBPath(a.flags.dbPath, v.GetString(cfgKeyDBPath))
	if err != nil {
		return fmt.Errorf("resolve database path: %w", err)
	}

	cfg := types.Config{
		DBPath:   dbPath,
		LogLevel: v.GetString(cfgKeyLogLevel),
		LogFile:  v.GetString(cfgKeyLogFile),
		PageSize: v.GetInt(cfgKeyPageSize),
	}
	if err := cfg.Validate(); err != nil {
		return userError(fmt.Errorf("invalid configuration in %s: %w", configDir, err))
	}

	logger, closer, err := logging.Open(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		return err
	}
	logger = logger.With(
		slog.String("run", uuid.Must(uuid.NewV7()).String()),
		slog.String("command", cmd.CommandPath()),
	)

	a.configDir = configDir
	a.cfg = cfg
	a.logger = logger
	a.logCloser = closer
	a.conn = sqlite.NewConn(cfg.DBPath, sqlite.WithQueryLogger(sqlite.NewSlogQueryLogger(logger)))
	cmd.SetContext(logging.WithLogger(cmd.Context(), logger))

	logger.Debug("configured", slog.String("config_dir", configDir), slog.String("db", cfg.DBPath))
	return nil
}

// close releases the connection and the log file.
func (a *app) close() error {
	var errs []error
	if a.conn != nil {
		errs = append(errs, a.conn.Close())
	}
	if a.logCloser != nil {
		errs = append(errs, a.logCloser.Close())
	}
	return errors.Join(errs...)
}

// Run executes the command line args and returns the process exit code.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &app{}
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if cerr := a.close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		if a.logger != nil {
			a.logger.Error("command failed", slog.String("error", err.Error()))
		}
		fmt.Fprintln(stderr, "timecard:", err)
	}
	return exitCode(err)
}

// Execute runs the root command with the process arguments and exits with
// the appropriate code.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// exitError carries the exit code for a failure.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }

func (e *exitError) Unwrap() error { return e.err }

// userError marks err as caused by the invocation rather than the system.
func userError(err error) error {
	return &exitError{code: exitUserError, err: err}
}

// exitCode maps a command error to an exit code. Lookup misses and
// validation failures are user errors; everything else is a system error.
func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	var se *types.StatusError
	if errors.As(err, &se) {
		return exitUserError
	}
	for _, target := range []error{types.ErrInvalidName, types.ErrInvalidStatus, types.ErrInvalidID} {
		if errors.Is(err, target) {
			return exitUserError
		}
	}
	return exitSysError
}

// usageArgs wraps a cobra positional-argument validator so that its
// failures exit as user errors.
func usageArgs(fn cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := fn(cmd, args); err != nil {
			return userError(err)
		}
		return nil
	}
}

// parseID parses a positional task or record id.
func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, userError(fmt.Errorf("invalid id %q", s))
	}
	return id, nil
}
