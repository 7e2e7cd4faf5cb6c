package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aweiler/vitalog/internal/config"
	"github.com/aweiler/vitalog/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose  bool
	Format   string // "json" | "text"
	Database string

	cfg config.Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// Execute resolves the environment configuration, runs the root command,
// and returns the process exit code.
func Execute() int {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return ExitCommandError
	}

	if err := NewRootCommand(cfg).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return GetExitCode(err)
	}
	return ExitSuccess
}

// NewRootCommand creates the root command for the vitalog CLI.
// cfg seeds the flag defaults; explicit flags override it.
func NewRootCommand(cfg config.Config) *cobra.Command {
	opts := &RootOptions{cfg: cfg}

	cmd := &cobra.Command{
		Use:   "vitalog",
		Short: "vitalog - personal health journal",
		Long: `Imports external health data into a local journal database.

Data arrives as vendor portal exports (per-metric delimited files) or
aggregator snapshot backups (relational database files, optionally zip
or gzip wrapped), gets previewed, and merges into one canonical record
per day. Nothing is written before the preview is confirmed.`,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Validate format flag
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			setupLogging(opts)
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", cfg.DBPath, "path to the journal database")

	// Add subcommands
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewPurgeCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))

	return cmd
}

// setupLogging installs the process logger: the configured handler on
// stderr, dropped to Debug when --verbose is set. Stdout stays reserved
// for command output.
func setupLogging(opts *RootOptions) {
	cfg := opts.cfg
	if opts.Verbose {
		cfg.LogLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(cfg.Handler(os.Stderr)))
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// openStore opens the journal database named by the global --db flag.
func openStore(opts *RootOptions) (*store.Store, error) {
	st, err := store.Open(opts.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "open journal database", err)
	}
	return st, nil
}

// closeStore closes st, logging rather than returning the error so that
// deferred closes cannot mask a command's real failure.
func closeStore(st *store.Store) {
	if err := st.Close(); err != nil {
		slog.Error("closing journal database", "error", err)
	}
}

// commandContext returns the command's context, falling back to
// context.Background for commands constructed outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
