package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/aweiler/vitalog/internal/importer"
	"github.com/aweiler/vitalog/internal/record"
)

// ImportOptions holds flags shared by the import subcommands.
type ImportOptions struct {
	*RootOptions
	Yes           bool
	DryRun        bool
	RetentionDays int
	Since         string // snapshot only

	// Tokens overrides the run token generator (for testing).
	// If nil, defaults to UUIDv7Tokens.
	Tokens importer.TokenGenerator
	// Now overrides the retention clock (for testing).
	Now func() time.Time
}

// NewImportCommand creates the import command and its source subcommands.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import external health data",
		Long: `Import external health data into the journal.

An import parses the input, renders a preview of what it would touch,
asks for confirmation, then merges one record at a time. Nothing is
written before the confirmation.`,
	}

	cmd.PersistentFlags().BoolVar(&opts.Yes, "yes", false, "commit without asking for confirmation")
	cmd.PersistentFlags().BoolVar(&opts.DryRun, "dry-run", false, "render the preview and stop")
	cmd.PersistentFlags().IntVar(&opts.RetentionDays, "retention-days", rootOpts.cfg.RetentionDays, "intraday sample retention window in days")

	cmd.AddCommand(newImportPortalCommand(opts))
	cmd.AddCommand(newImportSnapshotCommand(opts))

	return cmd
}

func newImportPortalCommand(opts *ImportOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "portal <file>...",
		Short: "Import portal export files",
		Long: `Import per-metric delimited files exported from the device web portal.

Files covering the same dates compose into single per-day records
before the merge, so steps and calories exports can be imported
together.

Examples:
  vitalog import portal steps.csv calories.csv
  vitalog import portal --yes --db ./journal.db sleep.csv`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(opts, cmd, importer.PortalFiles(args...))
		},
	}
}

func newImportSnapshotCommand(opts *ImportOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot <file>",
		Short: "Import an aggregator snapshot backup",
		Long: `Import a relational snapshot backup produced by a mobile health-data
aggregator. Zip and gzip wrapped backups are unwrapped automatically.

Examples:
  vitalog import snapshot backup.db
  vitalog import snapshot --since 2024-05-01 backup.zip`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			src := importer.SnapshotFile(args[0])
			if opts.Since != "" {
				since, err := record.ParseDate(opts.Since)
				if err != nil {
					return WrapExitError(ExitCommandError, "invalid --since date", err)
				}
				src = importer.SnapshotFileSince(args[0], since)
			}
			return runImport(opts, cmd, src)
		},
	}

	cmd.Flags().StringVar(&opts.Since, "since", "", "only extract dates at or after this day (YYYY-MM-DD)")

	return cmd
}

// runImport drives one import run: parse, preview, confirm, commit.
func runImport(opts *ImportOptions, cmd *cobra.Command, src importer.Source) error {
	if opts.RetentionDays < 1 {
		return NewExitError(ExitCommandError, fmt.Sprintf("retention window must be at least one day, got %d", opts.RetentionDays))
	}

	st, err := openStore(opts.RootOptions)
	if err != nil {
		return err
	}
	defer closeStore(st)

	impOpts := []importer.Option{importer.WithRetentionDays(opts.RetentionDays)}
	if opts.Tokens != nil {
		impOpts = append(impOpts, importer.WithTokens(opts.Tokens))
	}
	if opts.Now != nil {
		impOpts = append(impOpts, importer.WithClock(opts.Now))
	}
	imp := importer.New(st, impOpts...)

	ctx := commandContext(cmd)
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

	preview, err := imp.Start(ctx, src)
	if err != nil {
		return reportImportFailure(formatter, nil, err)
	}

	if opts.Format != "json" {
		renderPreview(cmd.OutOrStdout(), preview)
	}

	if opts.DryRun {
		imp.Abandon()
		if opts.Format == "json" {
			return formatter.Success(ImportReport{Preview: preview, DryRun: true})
		}
		fmt.Fprintln(cmd.OutOrStdout())
		fmt.Fprintln(cmd.OutOrStdout(), "Dry run; nothing written.")
		return nil
	}

	if !opts.Yes {
		ok, err := confirm(cmd)
		if err != nil {
			imp.Abandon()
			return WrapExitError(ExitCommandError, "read confirmation", err)
		}
		if !ok {
			imp.Abandon()
			if opts.Format == "json" {
				return formatter.Success(ImportReport{Preview: preview, Aborted: true})
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Import abandoned; nothing written.")
			return nil
		}
	}

	sum, err := imp.Commit(ctx)
	if err != nil {
		return reportImportFailure(formatter, &sum, err)
	}

	if opts.Format == "json" {
		return formatter.Success(ImportReport{Preview: preview, Summary: &sum})
	}
	fmt.Fprintln(cmd.OutOrStdout())
	renderSummary(cmd.OutOrStdout(), sum)
	return nil
}

// confirm asks on stderr and reads one line from the command's stdin.
// Anything but y/yes declines; EOF (no terminal) declines.
func confirm(cmd *cobra.Command) (bool, error) {
	fmt.Fprint(cmd.ErrOrStderr(), "Proceed with import? [y/N] ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// reportImportFailure renders a pipeline failure in the configured format
// and maps it to exit code 1. sum carries whatever was written before a
// commit-phase stop; nil means the run never reached Commit.
func reportImportFailure(f *OutputFormatter, sum *importer.Summary, err error) error {
	code := "IMPORT_FAILED"
	var warnings []string
	var impErr *importer.Error
	if errors.As(err, &impErr) {
		code = string(impErr.Code)
		warnings = impErr.Warnings
	}

	if f.Format == "json" {
		var details interface{}
		if sum != nil {
			details = ImportReport{Summary: sum}
		}
		_ = f.Error(code, err.Error(), details)
	} else {
		fmt.Fprintf(f.Writer, "✗ Import failed: %v\n", err)
		if sum != nil && (sum.Added > 0 || sum.Updated > 0 || sum.SampleDays > 0) {
			fmt.Fprintf(f.Writer, "  kept writes from before the failure: added=%d updated=%d sample_days=%d\n",
				sum.Added, sum.Updated, sum.SampleDays)
		}
		renderWarnings(f.Writer, warnings)
	}

	return NewExitError(ExitFailure, fmt.Sprintf("import failed (%s)", code))
}
