// Package application orchestrates the two query pipelines: it wires the
// reasoning engine, the source repositories and the statecharts into runs
// that turn a natural-language question into a report or a classified
// failure.
package application

import (
	"context"
	"time"

	"github.com/felixgeelhaar/sourcequery/domain/apiagent"
	"github.com/felixgeelhaar/sourcequery/domain/dbagent"
)

// SchemaSource is the database session consumed by the database runner.
// *dbrepo.Session is the concrete implementation.
type SchemaSource interface {
	// Introspect lists every table in declaration order.
	Introspect(ctx context.Context, timeout time.Duration) ([]dbagent.Table, error)

	// Execute runs one validated statement under the row cap.
	Execute(ctx context.Context, sql string, rowLimit int, timeout time.Duration) (dbagent.Result, error)

	// Name labels the source for prompts and logs.
	Name() string

	Close() error
}

// Connector opens a database session for a run. Sessions are scoped to
// the run and released when it ends.
type Connector func(ctx context.Context, connectionURL string, timeout time.Duration) (SchemaSource, error)

// Discoverer builds the endpoint catalog for a base URL.
// *apirepo.Discoverer is the concrete implementation.
type Discoverer interface {
	Discover(ctx context.Context, baseURL, question string) (apiagent.Catalog, error)
}

// RequestExecutor executes a planned API call with auth decoration.
// *apirepo.Client is the concrete implementation.
type RequestExecutor interface {
	Do(ctx context.Context, baseURL string, plan apiagent.RequestPlan, decorate apiagent.Decoration) (apiagent.Response, error)
}
