// Package main is the entry point for the wavestorm edit-script runner.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"

	"github.com/dshills/wavestorm/internal/config"
	"github.com/dshills/wavestorm/internal/engine/history"
	"github.com/dshills/wavestorm/internal/logging"
	"github.com/dshills/wavestorm/internal/script"
	"github.com/dshills/wavestorm/internal/watch"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// options holds the persistent flags.
type options struct {
	configPath  string
	logLevel    string
	lang        string
	peaks       bool
	metricsPath string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func execute(ctx context.Context, args []string, out, errOut io.Writer) int {
	cmd := newRootCmd(out, errOut)
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(errOut, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "wavestorm",
		Short:         "Replay multitrack edit scripts and follow the selection",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.SetErr(errOut)

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "path to a TOML settings file")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error); overrides the settings file")
	flags.StringVar(&opts.lang, "lang", "en", "language used to format numbers in reports")
	flags.BoolVar(&opts.peaks, "peaks", false, "print overview peaks after every step")
	flags.StringVar(&opts.metricsPath, "metrics", "", "write undo history metrics to this file in Prometheus text format")

	root.AddCommand(
		&cobra.Command{
			Use:   "run <script>",
			Short: "Run an edit script once",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runScript(cmd.Context(), opts, args[0], out, errOut)
			},
		},
		&cobra.Command{
			Use:   "watch <script>",
			Short: "Run an edit script and run it again whenever it or the settings file changes",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return watchScript(cmd.Context(), opts, args[0], out, errOut)
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintf(out, "wavestorm %s\n", version)
				fmt.Fprintf(out, "Commit: %s\n", commit)
				fmt.Fprintf(out, "Built: %s\n", date)
			},
		},
	)
	return root
}

// runScript loads settings and the script, runs it and prints a report per
// step.
func runScript(ctx context.Context, opts *options, path string, out, errOut io.Writer) error {
	settings, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	level := settings.Logging.Level
	if opts.logLevel != "" {
		level = opts.logLevel
	}
	logger := logging.New(level, errOut)

	tag, err := language.Parse(opts.lang)
	if err != nil {
		return fmt.Errorf("invalid language %q: %w", opts.lang, err)
	}

	sc, err := script.Load(path)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	runner := script.NewRunner(
		script.WithSettings(settings),
		script.WithLogger(logger),
		script.WithMetrics(history.NewMetrics(reg)),
	)

	printer := script.NewPrinter(tag, opts.peaks)
	var printErr error
	runErr := runner.Run(ctx, sc, func(rep script.Report) {
		if printErr == nil {
			printErr = printer.Fprint(out, rep)
		}
	})

	if opts.metricsPath != "" {
		if err := prometheus.WriteToTextfile(opts.metricsPath, reg); err != nil {
			logger.Error("failed to write metrics", slog.String("path", opts.metricsPath), slog.Any("error", err))
		}
	}
	if runErr != nil {
		return runErr
	}
	return printErr
}

// watchScript runs the script and reruns it after every change to the script
// or the settings file. Run errors are reported without stopping the watch.
func watchScript(ctx context.Context, opts *options, path string, out, errOut io.Writer) error {
	rerun := func() {
		if err := runScript(ctx, opts, path, out, errOut); err != nil && ctx.Err() == nil {
			fmt.Fprintf(errOut, "Error: %v\n", err)
		}
	}
	rerun()

	w, err := watch.New([]string{path, opts.configPath}, watch.WithLogger(logging.New(opts.logLevel, errOut)))
	if err != nil {
		return err
	}
	defer w.Close()

	err = w.Run(ctx, func(changed []string) {
		fmt.Fprintf(out, "--- changed: %s\n", strings.Join(changed, ", "))
		rerun()
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
