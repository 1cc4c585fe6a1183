// Command firedrill runs building fire evacuation drills.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

func main() {
	var logLevel string

	rootCmd := &cobra.Command{
		Use:           "firedrill",
		Short:         "Fire, smoke and crowd evacuation simulator",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return setupLogging(logLevel)
		},
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(demoCmd())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		slog.Error("firedrill failed", "error", err)
		os.Exit(1)
	}
}

// setupLogging installs a text handler on a terminal and JSON otherwise.
func setupLogging(level string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		return fmt.Errorf("log level %q: %w", level, err)
	}
	opts := &slog.HandlerOptions{Level: lvl}

	var handler slog.Handler
	if fd := os.Stdout.Fd(); isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
	return nil
}

func runCmd() *cobra.Command {
	var o runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a drill headless until everyone is dead or safe",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDrill(cmd.Context(), o)
		},
	}

	cmd.Flags().StringVar(&o.plan, "plan", "", "floor plan document (default: generated demo building)")
	cmd.Flags().StringVar(&o.params, "params", "", "YAML parameter file (default: built-in)")
	cmd.Flags().StringVar(&o.db, "db", "", "SQLite path or postgres:// DSN for run records")
	cmd.Flags().StringVar(&o.frames, "frames", "", "directory for the compressed frame log")
	cmd.Flags().IntVar(&o.frameEvery, "frame-every", 6, "ticks between recorded frames")
	return cmd
}

func validateCmd() *cobra.Command {
	var o runOptions

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a floor plan and parameters without running the drill",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runValidate(o)
		},
	}

	cmd.Flags().StringVar(&o.plan, "plan", "", "floor plan document (default: generated demo building)")
	cmd.Flags().StringVar(&o.params, "params", "", "YAML parameter file (default: built-in)")
	return cmd
}

func serveCmd() *cobra.Command {
	var o runOptions
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a drill in real time behind the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), o, port)
		},
	}

	cmd.Flags().StringVar(&o.plan, "plan", "", "floor plan document (default: generated demo building)")
	cmd.Flags().StringVar(&o.params, "params", "", "YAML parameter file (default: built-in)")
	cmd.Flags().StringVar(&o.db, "db", "", "SQLite path or postgres:// DSN for run records")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "HTTP server port")
	return cmd
}

func demoCmd() *cobra.Command {
	var out string
	var seed int64
	var rows, cols int

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Write a generated two-storey office as a floor plan document",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runDemo(out, seed, rows, cols)
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "office.json", "output path")
	cmd.Flags().Int64Var(&seed, "seed", 0, "generation seed (0 = random)")
	cmd.Flags().IntVar(&rows, "rows", 0, "rows including the yard (0 = default)")
	cmd.Flags().IntVar(&cols, "cols", 0, "columns (0 = default)")
	return cmd
}
