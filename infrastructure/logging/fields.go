package logging

import (
	"time"

	"github.com/felixgeelhaar/bolt/v3"
)

// Field is a function that applies structured data to a log event.
type Field func(*bolt.Event) *bolt.Event

// Common field constructors for pipeline logging. Secret material (tokens,
// connection credentials) must never be passed through these.

// RunID adds a run ID field.
func RunID(id string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("run_id", id)
	}
}

// State adds a state field.
func State(s string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("state", s)
	}
}

// FromState adds a from_state field for transitions.
func FromState(s string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("from_state", s)
	}
}

// ToState adds a to_state field for transitions.
func ToState(s string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("to_state", s)
	}
}

// Table adds a table name field.
func Table(name string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("table", name)
	}
}

// TableCount adds a selected table count field.
func TableCount(n int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int("table_count", n)
	}
}

// Endpoint adds an endpoint identifier field.
func Endpoint(id string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("endpoint", id)
	}
}

// EndpointCount adds a discovered endpoint count field.
func EndpointCount(n int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int("endpoint_count", n)
	}
}

// AuthScheme adds the detected auth scheme field.
func AuthScheme(scheme string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("auth_scheme", scheme)
	}
}

// Attempt adds a retry attempt field.
func Attempt(n int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int("attempt", n)
	}
}

// Cycle adds a plan/validate cycle field.
func Cycle(n int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int("cycle", n)
	}
}

// RowCount adds a row count field.
func RowCount(n int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int("row_count", n)
	}
}

// Truncated adds a truncated field.
func Truncated(truncated bool) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Bool("truncated", truncated)
	}
}

// StatusCode adds an HTTP status code field.
func StatusCode(code int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int("status_code", code)
	}
}

// Provider adds a reasoning provider name field.
func Provider(name string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("provider", name)
	}
}

// Duration adds a duration field in milliseconds.
func Duration(d time.Duration) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int64("duration_ms", d.Milliseconds())
	}
}

// Reason adds a reason field.
func Reason(reason string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("reason", reason)
	}
}

// Kind adds an error kind field.
func Kind(kind string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("kind", kind)
	}
}

// ErrorField adds an error field.
func ErrorField(err error) Field {
	return func(e *bolt.Event) *bolt.Event {
		if err == nil {
			return e
		}
		return e.Err(err)
	}
}
