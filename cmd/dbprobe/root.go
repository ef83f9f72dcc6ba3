package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/BigKAA/dbprobe/dbprobe"
	_ "github.com/BigKAA/dbprobe/dbprobe/checks"
	"github.com/BigKAA/dbprobe/internal/config"
	"github.com/BigKAA/dbprobe/internal/logging"
)

// Exit codes.
const (
	exitOK          = 0
	exitProbeFailed = 1
	exitConfigError = 2
)

var cfgFile string

// exitError carries a process exit code through cobra.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dbprobe",
		Short: "Database connectivity checker",
		Long: `dbprobe attempts a connection to MongoDB, PostgreSQL, MySQL and Redis
endpoints and reports, for each one, whether it is reachable. Failures are
classified (timeout, refused, authentication, TLS, ...) and come with
remediation steps. Credentials never appear in the output.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default $"+config.EnvConfigPath+")")

	cmd.AddCommand(newCheckCmd(), newServeCmd(), newVersionCmd())
	return cmd
}

// Execute runs the root command and exits with its status.
func Execute() {
	os.Exit(run(newRootCmd(), os.Args[1:], os.Stderr))
}

func run(cmd *cobra.Command, args []string, stderr io.Writer) int {
	cmd.SetArgs(args)
	err := cmd.Execute()
	if err == nil {
		return exitOK
	}

	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			fmt.Fprintln(stderr, "Error:", ee.err)
		}
		return ee.code
	}
	fmt.Fprintln(stderr, "Error:", err)
	return exitConfigError
}

// env is what every subcommand needs after loading configuration.
type env struct {
	cfg    *config.Config
	logger *zap.Logger
}

func loadEnv(logOut io.Writer) (*env, error) {
	cfg, errs := config.Load(cfgFile)
	if len(errs) > 0 {
		return nil, &exitError{code: exitConfigError, err: fmt.Errorf("invalid configuration: %w", errors.Join(errs...))}
	}
	z, err := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, File: cfg.Log.File}, logOut)
	if err != nil {
		return nil, &exitError{code: exitConfigError, err: err}
	}
	return &env{cfg: cfg, logger: z}, nil
}

func (e *env) prober(extra ...dbprobe.Option) *dbprobe.Prober {
	opts := []dbprobe.Option{
		dbprobe.WithLogger(logging.Slog(e.logger)),
		dbprobe.WithOverallTimeout(e.cfg.Timeout),
		dbprobe.WithSecondaryDiagnostic(e.cfg.Diagnose),
	}
	return dbprobe.New(append(opts, extra...)...)
}
