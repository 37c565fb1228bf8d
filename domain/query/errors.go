package query

import (
	"errors"
	"fmt"
)

// ErrorKind is the machine-readable classification carried by every
// terminal failure.
type ErrorKind string

const (
	KindConnection         ErrorKind = "connection"
	KindEmptySchema        ErrorKind = "empty_schema"
	KindPlanning           ErrorKind = "planning"
	KindSafetyRejection    ErrorKind = "safety_rejection"
	KindExecution          ErrorKind = "execution"
	KindTimeout            ErrorKind = "timeout"
	KindDiscovery          ErrorKind = "discovery"
	KindMissingCredentials ErrorKind = "missing_credentials"
	KindRequest            ErrorKind = "request"
	KindAnalysis           ErrorKind = "analysis"
	KindReasoning          ErrorKind = "reasoning_unavailable"
	KindInternal           ErrorKind = "internal"
)

// Sentinel errors for the pipeline components. Components wrap these with
// %w so callers can classify with errors.Is.
var (
	ErrConnection         = errors.New("source unreachable")
	ErrEmptySchema        = errors.New("source has no tables")
	ErrPlanning           = errors.New("planning failed")
	ErrSafetyRejection    = errors.New("statement rejected by safety gate")
	ErrExecution          = errors.New("execution failed")
	ErrTimeout            = errors.New("operation timed out")
	ErrDiscovery          = errors.New("no endpoints discovered")
	ErrMissingCredentials = errors.New("credentials missing for detected scheme")
	ErrRequest            = errors.New("request failed")
	ErrAnalysis           = errors.New("analysis produced no usable completion")
	ErrReasoning          = errors.New("reasoning engine unavailable")
)

// Failure is the user-visible terminal failure of a run: a machine-readable
// kind, the state the pipeline failed in, and a human-readable reason.
type Failure struct {
	Kind   ErrorKind
	State  string
	Reason string
}

// Error implements the error interface.
func (f *Failure) Error() string {
	return fmt.Sprintf("%s failed in state %s: %s", f.Kind, f.State, f.Reason)
}

// NewFailure builds a failure from a component error, classifying it
// against the sentinel taxonomy.
func NewFailure(state string, err error) *Failure {
	return &Failure{
		Kind:   Classify(err),
		State:  state,
		Reason: err.Error(),
	}
}

// Classify maps an error to its taxonomy kind via the sentinel chain.
func Classify(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrConnection):
		return KindConnection
	case errors.Is(err, ErrEmptySchema):
		return KindEmptySchema
	case errors.Is(err, ErrSafetyRejection):
		return KindSafetyRejection
	case errors.Is(err, ErrPlanning):
		return KindPlanning
	case errors.Is(err, ErrTimeout):
		return KindTimeout
	case errors.Is(err, ErrExecution):
		return KindExecution
	case errors.Is(err, ErrDiscovery):
		return KindDiscovery
	case errors.Is(err, ErrMissingCredentials):
		return KindMissingCredentials
	case errors.Is(err, ErrRequest):
		return KindRequest
	case errors.Is(err, ErrAnalysis):
		return KindAnalysis
	case errors.Is(err, ErrReasoning):
		return KindReasoning
	default:
		return KindInternal
	}
}
