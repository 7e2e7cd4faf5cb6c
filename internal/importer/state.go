package importer

// State identifies where an import run is in its lifecycle.
type State int

const (
	// StateIdle means no run is underway.
	StateIdle State = iota

	// StateParsing means Start is reading the input.
	StateParsing

	// StatePreviewReady means a parsed run is waiting on Commit or
	// Abandon. The only state that waits on a human decision.
	StatePreviewReady

	// StateNormalizing means Commit is converting raw fields into
	// canonical records.
	StateNormalizing

	// StateMerging means daily activities and weights are being
	// reconciled against the store, one record at a time.
	StateMerging

	// StatePersisting means intraday sample days are being written.
	StatePersisting

	// StateCleaningUp means the retention sweep is running.
	StateCleaningUp

	// StateSummarized means the run completed and produced a summary.
	StateSummarized

	// StateFailed means the run stopped on a fatal error.
	StateFailed
)

// String returns the state name used in logs and error messages.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateParsing:
		return "parsing"
	case StatePreviewReady:
		return "preview-ready"
	case StateNormalizing:
		return "normalizing"
	case StateMerging:
		return "merging"
	case StatePersisting:
		return "persisting"
	case StateCleaningUp:
		return "cleaning-up"
	case StateSummarized:
		return "summarized"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
