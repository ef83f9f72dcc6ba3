package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/BigKAA/dbprobe/dbprobe"
	"github.com/BigKAA/dbprobe/internal/config"
	"github.com/BigKAA/dbprobe/internal/render"
)

func newCheckCmd() *cobra.Command {
	var (
		output  string
		timeout time.Duration
		noColor bool
	)

	cmd := &cobra.Command{
		Use:   "check [name...]",
		Short: "Probe configured endpoints once and print the reports",
		Long: `Probe the named endpoints (all of them when no name is given) one after
another. Exits 1 when any probe fails and 2 when the configuration is invalid.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := render.ParseFormat(output)
			if err != nil {
				return &exitError{code: exitConfigError, err: err}
			}
			if timeout < 0 {
				return &exitError{code: exitConfigError, err: fmt.Errorf("%w, got %s", config.ErrInvalidTimeout, timeout)}
			}

			e, err := loadEnv(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() { _ = e.logger.Sync() }()
			if cmd.Flags().Changed("timeout") {
				e.cfg.Timeout = timeout
			}

			endpoints, err := selectEndpoints(e.cfg, args)
			if err != nil {
				return &exitError{code: exitConfigError, err: err}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			p := e.prober()
			reports := make([]dbprobe.HealthReport, 0, len(endpoints))
			for _, ep := range endpoints {
				reports = append(reports, p.Check(ctx, ep))
			}

			out := cmd.OutOrStdout()
			if err := render.Write(out, format, reports, render.Options{Color: !noColor && isTerminal(out)}); err != nil {
				return err
			}
			for _, r := range reports {
				if !r.Success {
					return &exitError{code: exitProbeFailed}
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", string(render.FormatText), "output format: text or json")
	cmd.Flags().DurationVar(&timeout, "timeout", config.DefaultTimeout, "bound for each whole probe, 0 disables it")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored status in text output")
	return cmd
}

// selectEndpoints returns the named endpoints in argument order, or all of
// them when names is empty.
func selectEndpoints(cfg *config.Config, names []string) ([]dbprobe.EndpointConfig, error) {
	if len(names) == 0 {
		return cfg.Endpoints, nil
	}
	var (
		out     []dbprobe.EndpointConfig
		missing []error
	)
	for _, name := range names {
		ep, ok := cfg.Endpoint(name)
		if !ok {
			missing = append(missing, fmt.Errorf("unknown endpoint %q", name))
			continue
		}
		out = append(out, ep)
	}
	return out, errors.Join(missing...)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
