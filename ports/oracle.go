package ports

import (
	"feastbench/domain/calendar"
)

// Oracle computes canonical ground-truth resolutions per calendar system.
// Implementations hold read-only tables after construction and are safe for
// concurrent callers.
//
// Resolve fails with core.ErrConventionAmbiguous when the holiday admits
// multiple civil conventions and none was pinned (Easter), and returns a
// Resolution flagged Ambiguous for known calendrical anomaly years rather
// than a silent best guess.
type Oracle interface {
	Resolve(holiday calendar.Holiday, year int, convention calendar.Convention) (calendar.Resolution, error)

	// Definitions returns the frozen holiday registry backing this oracle
	Definitions() calendar.Registry
}
