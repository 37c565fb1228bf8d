package application

import (
	"github.com/felixgeelhaar/sourcequery/domain/dbagent"
)

// runnerOptions collects the overridable knobs of a runner. Fields are
// pointers so one Option type serves both runners; a nil field means the
// runner has no such knob.
type runnerOptions struct {
	ranker *dbagent.Ranker
	newID  *func() string
}

// Option customizes a runner at construction time.
type Option func(*runnerOptions)

// WithRanker replaces the default table ranker. Only the database runner
// has one; the option is a no-op elsewhere.
func WithRanker(ranker dbagent.Ranker) Option {
	return func(o *runnerOptions) {
		if o.ranker != nil && ranker != nil {
			*o.ranker = ranker
		}
	}
}

// WithIDGenerator replaces the run ID generator. Tests use it for stable
// IDs.
func WithIDGenerator(newID func() string) Option {
	return func(o *runnerOptions) {
		if o.newID != nil && newID != nil {
			*o.newID = newID
		}
	}
}
