package application

import (
	"context"
	"fmt"
	"time"

	"github.com/felixgeelhaar/statekit"
	"github.com/google/uuid"

	"github.com/felixgeelhaar/sourcequery/domain/dbagent"
	"github.com/felixgeelhaar/sourcequery/domain/query"
	"github.com/felixgeelhaar/sourcequery/infrastructure/config"
	"github.com/felixgeelhaar/sourcequery/infrastructure/logging"
	"github.com/felixgeelhaar/sourcequery/infrastructure/reasoning"
	"github.com/felixgeelhaar/sourcequery/infrastructure/statemachine"
)

// DatabaseRunner drives the database pipeline: crawl the schema, select
// relevant tables, plan a statement, gate it, execute it and analyze the
// rows. Every run gets its own session and statechart.
type DatabaseRunner struct {
	connector Connector
	planner   *SQLPlanner
	analyzer  *Analyzer
	ranker    dbagent.Ranker
	limits    config.Limits
	newID     func() string
}

// NewDatabaseRunner creates a runner. The connector opens the run-scoped
// session; provider backs both planning and analysis.
func NewDatabaseRunner(connector Connector, provider reasoning.Provider, limits config.Limits, opts ...Option) *DatabaseRunner {
	r := &DatabaseRunner{
		connector: connector,
		planner:   NewSQLPlanner(provider),
		analyzer:  NewAnalyzer(provider),
		ranker:    dbagent.TokenOverlapRanker{},
		limits:    limits,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(&runnerOptions{ranker: &r.ranker, newID: &r.newID})
	}
	return r
}

// Run executes one request to a terminal state. The returned result
// carries either a report or a classified failure, never both.
func (r *DatabaseRunner) Run(ctx context.Context, req query.Request) query.RunResult {
	start := time.Now()
	runID := r.newID()

	logging.Info().
		Add(logging.RunID(runID)).
		Msg("database run started")

	machine, err := statemachine.NewDatabaseMachine()
	if err != nil {
		return query.RunResult{
			RunID:    runID,
			Failure:  query.NewFailure(string(dbagent.StateInit), fmt.Errorf("building statechart: %w", err)),
			Duration: time.Since(start),
		}
	}

	interp := statemachine.NewInterpreter(machine,
		statemachine.NewContext(runID, string(dbagent.StateInit), r.limits.PlanCycles),
		func(to string) statekit.EventType {
			return statemachine.DatabaseEventFor(dbagent.State(to))
		})
	interp.Start()
	defer interp.Stop()

	fail := func(err error) query.RunResult {
		state := interp.State()
		_ = interp.Transition(string(dbagent.StateFailed), err.Error())
		failure := query.NewFailure(state, err)
		logging.Warn().
			Add(logging.RunID(runID)).
			Add(logging.State(state)).
			Add(logging.Kind(string(failure.Kind))).
			Add(logging.ErrorField(err)).
			Msg("database run failed")
		return query.RunResult{RunID: runID, Failure: failure, Duration: time.Since(start)}
	}

	// Connect and crawl.
	_ = interp.Transition(string(dbagent.StateSchemaLoading), "run started")
	session, err := r.connector(ctx, req.DatabaseURL, r.limits.ConnectTimeout)
	if err != nil {
		return fail(err)
	}
	defer session.Close()

	tables, err := session.Introspect(ctx, r.limits.QueryTimeout)
	if err != nil {
		return fail(err)
	}

	// Select the bounded subset.
	selected := dbagent.SelectTables(req.Question, tables, r.ranker, r.limits.MaxTables)
	schema, err := dbagent.NewSchema(session.Name(), selected,
		fmt.Sprintf("top %d of %d tables by relevance", len(selected), len(tables)))
	if err != nil {
		return fail(err)
	}
	_ = interp.Transition(string(dbagent.StateTableSelected), "schema subset selected")
	logging.Debug().
		Add(logging.RunID(runID)).
		Add(logging.TableCount(len(schema.Tables))).
		Msg("tables selected")
	for _, table := range schema.Tables {
		logging.Trace().
			Add(logging.RunID(runID)).
			Add(logging.Table(table.Name)).
			Msg("table in scope")
	}

	// Plan/validate loop, bounded by the cycle budget.
	var plan dbagent.Plan
	feedback := ""
	_ = interp.Transition(string(dbagent.StatePlanning), "first planning round")
	for {
		plan, err = r.planner.Plan(ctx, req.Question, schema, feedback)
		if err != nil {
			return fail(err)
		}
		_ = interp.Transition(string(dbagent.StateValidating), "candidate produced")

		verdict := dbagent.CheckReadOnly(plan.SQL)
		if verdict.Allowed {
			break
		}

		logging.Warn().
			Add(logging.RunID(runID)).
			Add(logging.Cycle(interp.PlanCycles() + 1)).
			Add(logging.Reason(verdict.Reason)).
			Msg("statement rejected by safety gate")

		interp.ConsumePlanCycle()
		if err := interp.Transition(string(dbagent.StatePlanning), verdict.Reason); err != nil {
			return fail(fmt.Errorf("%w: %s (after %d rounds)",
				query.ErrSafetyRejection, verdict.Reason, interp.PlanCycles()))
		}
		feedback = verdict.Reason
	}

	// Execute under the row cap.
	_ = interp.Transition(string(dbagent.StateExecuting), "statement passed the gate")
	result, err := session.Execute(ctx, plan.SQL, r.limits.RowLimit, r.limits.QueryTimeout)
	if err != nil {
		return fail(err)
	}
	logging.Debug().
		Add(logging.RunID(runID)).
		Add(logging.RowCount(result.RowCount)).
		Add(logging.Truncated(result.Truncated)).
		Add(logging.Duration(result.Duration)).
		Msg("statement executed")

	// Analyze.
	_ = interp.Transition(string(dbagent.StateAnalyzing), "rows collected")
	report, err := r.analyzer.AnalyzeRows(ctx, req.Question, plan, result)
	if err != nil {
		return fail(err)
	}

	_ = interp.Transition(string(dbagent.StateDone), "report ready")
	logging.Info().
		Add(logging.RunID(runID)).
		Add(logging.Duration(time.Since(start))).
		Msg("database run finished")
	return query.RunResult{RunID: runID, Report: &report, Duration: time.Since(start)}
}
