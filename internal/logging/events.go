package logging

import "log/slog"

// Outcome values recorded on pipeline events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "fail"
)

// Event records one attempted pipeline action (download, convert, merge,
// summary) with its subject and outcome. Failed events log at warn level.
// Event is the sole observability surface of the pipeline and must never
// fail the run, so panics from broken handlers are swallowed here.
func Event(logger *slog.Logger, action, outcome string, attrs ...Attr) {
	if logger == nil {
		return
	}
	defer func() {
		_ = recover()
	}()

	args := Args(append([]Attr{String(FieldAction, action), String(FieldOutcome, outcome)}, attrs...)...)
	if outcome == OutcomeSuccess {
		logger.Info("pipeline event", args...)
		return
	}
	logger.Warn("pipeline event", args...)
}
