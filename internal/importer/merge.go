package importer

import (
	"context"
	"fmt"

	"github.com/aweiler/vitalog/internal/normalize"
	"github.com/aweiler/vitalog/internal/reconcile"
	"github.com/aweiler/vitalog/internal/record"
)

// mergeRecords reconciles daily activities and then weights against the
// store, one record at a time in ascending date order. A record that
// fails validation is downgraded to a warning and counted as skipped;
// a store error stops the run with everything written so far retained.
func (imp *Importer) mergeRecords(ctx context.Context, r *run, b *normalize.Bundle, sum *Summary) error {
	for _, act := range b.Activities {
		if err := ctx.Err(); err != nil {
			r.log.Warn("merge interrupted", "error", err)
			return fmt.Errorf("merge interrupted: %w", err)
		}
		if !act.Date.Valid() {
			imp.recordFailure(r, sum, "activity with unusable date %q not merged", act.Date)
			continue
		}

		existing, err := imp.store.GetActivityByDate(ctx, act.Date)
		if err != nil {
			return imp.storageFailure(r, sum, fmt.Errorf("read day %s: %w", act.Date, err))
		}
		merged, outcome := reconcile.MergeActivity(existing, act)
		if outcome == reconcile.Added || outcome == reconcile.Updated {
			if err := imp.store.UpsertActivity(ctx, merged); err != nil {
				return imp.storageFailure(r, sum, fmt.Errorf("write day %s: %w", act.Date, err))
			}
		}
		sum.count(outcome)
		r.log.Debug("day merged", "date", act.Date, "outcome", outcome)
	}

	for _, w := range b.Weights {
		if err := ctx.Err(); err != nil {
			r.log.Warn("merge interrupted", "error", err)
			return fmt.Errorf("merge interrupted: %w", err)
		}
		if !w.Date.Valid() || w.WeightKG <= 0 {
			imp.recordFailure(r, sum, "unusable weight reading for %q not merged", w.Date)
			continue
		}

		existing, err := imp.store.GetWeightByDate(ctx, w.Date)
		if err != nil {
			return imp.storageFailure(r, sum, fmt.Errorf("read weight %s: %w", w.Date, err))
		}
		merged, outcome := reconcile.MergeWeight(existing, w)
		if outcome == reconcile.Added || outcome == reconcile.Updated {
			if err := imp.store.UpsertWeight(ctx, merged); err != nil {
				return imp.storageFailure(r, sum, fmt.Errorf("write weight %s: %w", w.Date, err))
			}
		}
		sum.count(outcome)
		r.log.Debug("weight merged", "date", w.Date, "outcome", outcome)
	}

	return nil
}

// persistSamples writes intraday sample days. Each day is a full
// replace, never a field merge.
func (imp *Importer) persistSamples(ctx context.Context, r *run, b *normalize.Bundle, sum *Summary) error {
	for _, kind := range record.SampleKinds {
		for _, date := range b.SampleDates(kind) {
			if err := ctx.Err(); err != nil {
				r.log.Warn("persist interrupted", "error", err)
				return fmt.Errorf("persist interrupted: %w", err)
			}
			if err := imp.store.ReplaceSamples(ctx, kind, date, b.Samples[kind][date]); err != nil {
				return imp.storageFailure(r, sum, fmt.Errorf("replace %s samples for %s: %w", kind, date, err))
			}
			sum.SampleDays++
		}
	}
	return nil
}

// purgeSamples drops sample days strictly older than the retention
// cutoff, so the cutoff day itself survives.
func (imp *Importer) purgeSamples(ctx context.Context, r *run, sum *Summary) error {
	cutoff := record.DateOf(imp.now()).AddDays(-imp.retentionDays)
	for _, kind := range record.SampleKinds {
		if err := ctx.Err(); err != nil {
			r.log.Warn("cleanup interrupted", "error", err)
			return fmt.Errorf("cleanup interrupted: %w", err)
		}
		purged, err := imp.store.DeleteSamplesBefore(ctx, kind, cutoff)
		if err != nil {
			return imp.storageFailure(r, sum, fmt.Errorf("purge %s samples before %s: %w", kind, cutoff, err))
		}
		if purged > 0 {
			r.log.Info("old samples purged", "kind", kind, "cutoff", cutoff, "days", purged)
		}
		sum.PurgedSampleDays += int(purged)
	}
	return nil
}

// recordFailure downgrades a single record's failure to a warning and
// counts the record as skipped. The remaining records still merge.
func (imp *Importer) recordFailure(r *run, sum *Summary, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	r.log.Warn("record not merged", "code", CodePartialMergeFailure, "reason", msg)
	sum.Warnings = append(sum.Warnings, msg)
	sum.Skipped++
}

// storageFailure wraps a store error fatally. Records already written
// stay written; the caller returns the partial summary alongside.
func (imp *Importer) storageFailure(r *run, sum *Summary, err error) *Error {
	r.log.Error("storage failure", "error", err)
	return &Error{
		Code:     CodeStorageFailure,
		Message:  err.Error(),
		RunToken: r.token,
		Warnings: sum.Warnings,
		Err:      err,
	}
}
