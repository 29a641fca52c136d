package dispatchqueue

import (
	"io"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// Logger is the structured-logging type used throughout this package:
// logiface's generic facade, backed by stumpy's zero-allocation JSON
// encoder, exactly as the teacher's sibling logiface-stumpy module wires
// them together (stumpy.L.New(stumpy.WithStumpy(...))).
type Logger = logiface.Logger[*stumpy.Event]

// defaultLogger returns a Logger that discards everything, so a Queue
// created without an explicit Config.Logger has zero observable logging
// overhead beyond the level check each call site already performs.
func defaultLogger() *Logger {
	return stumpy.L.New(stumpy.WithStumpy(stumpy.WithWriter(io.Discard)))
}

// logLaneAcquired logs a Debug event when a worker is bound to a lane.
func (q *Queue) logLaneAcquired(lane int, priority int) {
	q.cfg.logger.Debug().
		Str(`event`, `lane_acquired`).
		Int(`lane`, lane).
		Int(`priority`, priority).
		Log(`acquired concurrency lane`)
}

// logLaneRelinquished logs a Debug event when a worker detaches from its lane.
func (q *Queue) logLaneRelinquished(lane int) {
	q.cfg.logger.Debug().
		Str(`event`, `lane_relinquished`).
		Int(`lane`, lane).
		Log(`relinquished concurrency lane`)
}

// logTerminationPhase logs a Debug event on each termination phase transition.
func (q *Queue) logTerminationPhase(phase string) {
	q.cfg.logger.Debug().
		Str(`event`, `termination_phase`).
		Str(`phase`, phase).
		Log(`queue termination phase transition`)
}

// logSoftError logs a Warning event for a non-fatal worker-loop error
// (spec.md §7: "worker-loop internal errors ... are treated as soft and
// do not terminate the queue").
func (q *Queue) logSoftError(op string, err error) {
	q.cfg.logger.Warning().
		Str(`event`, `soft_error`).
		Str(`op`, op).
		Err(err).
		Log(`non-fatal worker loop error`)
}
