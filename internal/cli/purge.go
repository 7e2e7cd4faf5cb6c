package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/aweiler/vitalog/internal/record"
)

// PurgeOptions holds flags for the purge command.
type PurgeOptions struct {
	*RootOptions
	RetentionDays int

	// Now overrides the retention clock (for testing).
	Now func() time.Time
}

// NewPurgeCommand creates the purge command.
func NewPurgeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PurgeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Purge intraday samples past the retention window",
		Long: `Purge stored intraday samples older than the retention window.

The same sweep runs automatically at the end of every import; this
command runs it on its own. Daily aggregates and weight readings are
never purged.

Examples:
  vitalog purge --db ./journal.db
  vitalog purge --retention-days 30`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPurge(opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.RetentionDays, "retention-days", rootOpts.cfg.RetentionDays, "intraday sample retention window in days")

	return cmd
}

func runPurge(opts *PurgeOptions, cmd *cobra.Command) error {
	if opts.RetentionDays < 1 {
		return NewExitError(ExitCommandError, fmt.Sprintf("retention window must be at least one day, got %d", opts.RetentionDays))
	}

	st, err := openStore(opts.RootOptions)
	if err != nil {
		return err
	}
	defer closeStore(st)

	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	cutoff := record.DateOf(now()).AddDays(-opts.RetentionDays)

	ctx := commandContext(cmd)
	report := PurgeReport{
		Cutoff: cutoff,
		Purged: make(map[record.SampleKind]int64),
	}
	for _, kind := range record.SampleKinds {
		purged, err := st.DeleteSamplesBefore(ctx, kind, cutoff)
		if err != nil {
			return WrapExitError(ExitFailure, fmt.Sprintf("purge %s samples", kind), err)
		}
		report.Purged[kind] = purged
		report.Total += purged
	}

	if opts.Format == "json" {
		formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
		return formatter.Success(report)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "✓ Purge complete (cutoff %s)\n", report.Cutoff)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== Purged days ===")
	for _, kind := range record.SampleKinds {
		fmt.Fprintf(w, "  %s: %d\n", kind, report.Purged[kind])
	}
	return nil
}
