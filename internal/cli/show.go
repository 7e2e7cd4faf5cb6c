package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aweiler/vitalog/internal/record"
)

// NewShowCommand creates the show command and its record subcommands.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show stored journal records",
		Long: `Show records stored in the journal database.

Absent fields are omitted from the output, so a day missing a
measurement reads differently from a day with a measured zero.`,
	}

	cmd.AddCommand(newShowDayCommand(rootOpts))
	cmd.AddCommand(newShowWeightCommand(rootOpts))
	cmd.AddCommand(newShowSamplesCommand(rootOpts))

	return cmd
}

func newShowDayCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "day <date>",
		Short: "Show the activity record for one day",
		Long: `Show the stored daily activity aggregate for one date.

Example:
  vitalog show day 2024-06-01`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShowDay(opts, cmd, args[0])
		},
	}
}

func newShowWeightCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "weight <date>",
		Short: "Show the weight reading for one day",
		Long: `Show the stored body-composition reading for one date.

Example:
  vitalog show weight 2024-06-01`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShowWeight(opts, cmd, args[0])
		},
	}
}

func newShowSamplesCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "samples <kind> <date>",
		Short: "Show one day's intraday samples",
		Long: fmt.Sprintf(`Show the stored intraday series of one kind for one date.

Kinds: %v

Example:
  vitalog show samples heart_rate 2024-06-01`, record.SampleKinds),
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShowSamples(opts, cmd, args[0], args[1])
		},
	}
}

func runShowDay(opts *RootOptions, cmd *cobra.Command, rawDate string) error {
	date, err := record.ParseDate(rawDate)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid date", err)
	}

	st, err := openStore(opts)
	if err != nil {
		return err
	}
	defer closeStore(st)

	act, err := st.GetActivityByDate(commandContext(cmd), date)
	if err != nil {
		return WrapExitError(ExitFailure, "read activity day", err)
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
	if opts.Format == "json" {
		return formatter.Success(act)
	}
	if act == nil {
		fmt.Fprintf(cmd.OutOrStdout(), "No activity stored for %s\n", date)
		return nil
	}
	renderDay(cmd.OutOrStdout(), *act)
	return nil
}

func runShowWeight(opts *RootOptions, cmd *cobra.Command, rawDate string) error {
	date, err := record.ParseDate(rawDate)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid date", err)
	}

	st, err := openStore(opts)
	if err != nil {
		return err
	}
	defer closeStore(st)

	reading, err := st.GetWeightByDate(commandContext(cmd), date)
	if err != nil {
		return WrapExitError(ExitFailure, "read weight day", err)
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
	if opts.Format == "json" {
		return formatter.Success(reading)
	}
	if reading == nil {
		fmt.Fprintf(cmd.OutOrStdout(), "No weight stored for %s\n", date)
		return nil
	}
	renderWeightReading(cmd.OutOrStdout(), *reading)
	return nil
}

func runShowSamples(opts *RootOptions, cmd *cobra.Command, rawKind, rawDate string) error {
	kind := record.SampleKind(rawKind)
	if !kind.Valid() {
		return NewExitError(ExitCommandError, fmt.Sprintf("unknown sample kind %q: must be one of %v", rawKind, record.SampleKinds))
	}
	date, err := record.ParseDate(rawDate)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid date", err)
	}

	st, err := openStore(opts)
	if err != nil {
		return err
	}
	defer closeStore(st)

	series, ok, err := st.GetSampleDay(commandContext(cmd), kind, date)
	if err != nil {
		return WrapExitError(ExitFailure, "read sample day", err)
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
	if !ok {
		if opts.Format == "json" {
			return formatter.Success(nil)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "No %s samples stored for %s\n", kind, date)
		return nil
	}
	if opts.Format == "json" {
		return formatter.Success(SampleDayReport{Kind: kind, Date: date, Count: series.Len(), Series: series})
	}
	renderSampleDay(cmd.OutOrStdout(), kind, date, series)
	return nil
}
