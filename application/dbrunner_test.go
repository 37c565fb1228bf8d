package application

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/felixgeelhaar/sourcequery/domain/dbagent"
	"github.com/felixgeelhaar/sourcequery/domain/query"
	"github.com/felixgeelhaar/sourcequery/infrastructure/config"
	"github.com/felixgeelhaar/sourcequery/infrastructure/reasoning"
)

func testLimits() config.Limits {
	return config.Limits{
		MaxTables:      10,
		RowLimit:       500,
		PlanCycles:     3,
		ConnectTimeout: time.Second,
		QueryTimeout:   time.Second,
	}
}

// fakeSession is an in-memory SchemaSource.
type fakeSession struct {
	tables       []dbagent.Table
	introspctErr error
	result       dbagent.Result
	execErr      error
	executed     []string
	closed       bool
}

func (s *fakeSession) Introspect(context.Context, time.Duration) ([]dbagent.Table, error) {
	if s.introspctErr != nil {
		return nil, s.introspctErr
	}
	if len(s.tables) == 0 {
		return nil, query.ErrEmptySchema
	}
	return s.tables, nil
}

func (s *fakeSession) Execute(_ context.Context, sql string, _ int, _ time.Duration) (dbagent.Result, error) {
	s.executed = append(s.executed, sql)
	if s.execErr != nil {
		return dbagent.Result{}, s.execErr
	}
	return s.result, nil
}

func (s *fakeSession) Name() string { return "testdb" }

func (s *fakeSession) Close() error {
	s.closed = true
	return nil
}

func connectorFor(session *fakeSession, err error) Connector {
	return func(context.Context, string, time.Duration) (SchemaSource, error) {
		if err != nil {
			return nil, err
		}
		return session, nil
	}
}

func usersTables() []dbagent.Table {
	return []dbagent.Table{
		{Name: "users", Columns: []dbagent.Column{
			{Name: "id", Type: "integer", Key: dbagent.KeyPrimary},
			{Name: "name", Type: "text"},
		}},
		{Name: "orders", Columns: []dbagent.Column{
			{Name: "id", Type: "integer", Key: dbagent.KeyPrimary},
			{Name: "user_id", Type: "integer", Key: dbagent.KeyForeign},
		}},
	}
}

const (
	goodPlanJSON     = `{"sql": "SELECT count(*) FROM users", "tables": ["users"], "rationale": "count rows"}`
	mutatingPlanJSON = `{"sql": "DELETE FROM users", "tables": ["users"], "rationale": "oops"}`
	goodAnalysisJSON = `{"summary": "There are 42 users.", "findings": [{"label": "count", "value": "42"}]}`
)

func dbRequest(t *testing.T) query.Request {
	t.Helper()
	req, err := query.NewDatabaseRequest("how many users are there", "sqlite://test.db")
	if err != nil {
		t.Fatalf("NewDatabaseRequest() error = %v", err)
	}
	return req
}

func TestDatabaseRunnerHappyPath(t *testing.T) {
	t.Parallel()

	session := &fakeSession{
		tables: usersTables(),
		result: dbagent.Result{
			Columns:  []string{"count"},
			Rows:     [][]any{{int64(42)}},
			RowCount: 1,
		},
	}
	provider := reasoning.NewScriptedProvider(
		reasoning.ScriptStep{Text: goodPlanJSON},
		reasoning.ScriptStep{Text: goodAnalysisJSON},
	)

	runner := NewDatabaseRunner(connectorFor(session, nil), provider, testLimits(),
		WithIDGenerator(func() string { return "run-1" }))
	result := runner.Run(context.Background(), dbRequest(t))

	if !result.Succeeded() {
		t.Fatalf("run failed: %v", result.Failure)
	}
	if result.RunID != "run-1" {
		t.Errorf("RunID = %q, want run-1", result.RunID)
	}
	if result.Report.Summary != "There are 42 users." {
		t.Errorf("Summary = %q", result.Report.Summary)
	}
	if result.Report.Source.Kind != query.SourceDatabase {
		t.Errorf("Source.Kind = %s, want database", result.Report.Source.Kind)
	}
	if result.Report.Source.SQL != "SELECT count(*) FROM users" {
		t.Errorf("Source.SQL = %q", result.Report.Source.SQL)
	}
	if result.Report.Source.RowCount != 1 {
		t.Errorf("Source.RowCount = %d, want 1", result.Report.Source.RowCount)
	}
	if !session.closed {
		t.Error("session was not released")
	}
	if len(session.executed) != 1 {
		t.Errorf("executed %d statements, want 1", len(session.executed))
	}
}

func TestDatabaseRunnerRecoversFromSafetyRejection(t *testing.T) {
	t.Parallel()

	session := &fakeSession{
		tables: usersTables(),
		result: dbagent.Result{Columns: []string{"count"}, Rows: [][]any{{int64(42)}}, RowCount: 1},
	}
	provider := reasoning.NewScriptedProvider(
		reasoning.ScriptStep{Text: mutatingPlanJSON},
		reasoning.ScriptStep{Text: goodPlanJSON},
		reasoning.ScriptStep{Text: goodAnalysisJSON},
	)

	runner := NewDatabaseRunner(connectorFor(session, nil), provider, testLimits())
	result := runner.Run(context.Background(), dbRequest(t))

	if !result.Succeeded() {
		t.Fatalf("run failed: %v", result.Failure)
	}

	// The second planning prompt must carry the rejection reason.
	if len(provider.Requests) != 3 {
		t.Fatalf("provider calls = %d, want 3", len(provider.Requests))
	}
	if !strings.Contains(provider.Requests[1].Prompt, "rejected") {
		t.Errorf("re-planning prompt lacks rejection feedback:\n%s", provider.Requests[1].Prompt)
	}

	// The rejected statement never reached the executor.
	for _, sql := range session.executed {
		if strings.Contains(strings.ToUpper(sql), "DELETE") {
			t.Errorf("mutating statement was executed: %s", sql)
		}
	}
}

func TestDatabaseRunnerExhaustsPlanCycles(t *testing.T) {
	t.Parallel()

	session := &fakeSession{tables: usersTables()}
	provider := reasoning.NewScriptedProvider(
		reasoning.ScriptStep{Text: mutatingPlanJSON},
		reasoning.ScriptStep{Text: mutatingPlanJSON},
		reasoning.ScriptStep{Text: mutatingPlanJSON},
	)

	limits := testLimits()
	limits.PlanCycles = 3
	runner := NewDatabaseRunner(connectorFor(session, nil), provider, limits)
	result := runner.Run(context.Background(), dbRequest(t))

	if result.Succeeded() {
		t.Fatal("run should have failed")
	}
	if result.Failure.Kind != query.KindSafetyRejection {
		t.Errorf("Failure.Kind = %s, want safety_rejection", result.Failure.Kind)
	}
	if result.Failure.State != string(dbagent.StateValidating) {
		t.Errorf("Failure.State = %s, want validating", result.Failure.State)
	}
	// Exactly three planning rounds, no analysis call.
	if provider.Calls() != 3 {
		t.Errorf("provider calls = %d, want 3", provider.Calls())
	}
	if len(session.executed) != 0 {
		t.Errorf("executed %d statements, want 0", len(session.executed))
	}
}

func TestDatabaseRunnerConnectionFailure(t *testing.T) {
	t.Parallel()

	connectErr := fmt.Errorf("%w: dial tcp: refused", query.ErrConnection)
	runner := NewDatabaseRunner(connectorFor(nil, connectErr),
		reasoning.NewScriptedProvider(), testLimits())
	result := runner.Run(context.Background(), dbRequest(t))

	if result.Succeeded() {
		t.Fatal("run should have failed")
	}
	if result.Failure.Kind != query.KindConnection {
		t.Errorf("Failure.Kind = %s, want connection", result.Failure.Kind)
	}
	if result.Failure.State != string(dbagent.StateSchemaLoading) {
		t.Errorf("Failure.State = %s, want schema_loading", result.Failure.State)
	}
}

func TestDatabaseRunnerEmptySchema(t *testing.T) {
	t.Parallel()

	session := &fakeSession{}
	runner := NewDatabaseRunner(connectorFor(session, nil),
		reasoning.NewScriptedProvider(), testLimits())
	result := runner.Run(context.Background(), dbRequest(t))

	if result.Succeeded() {
		t.Fatal("run should have failed")
	}
	if result.Failure.Kind != query.KindEmptySchema {
		t.Errorf("Failure.Kind = %s, want empty_schema", result.Failure.Kind)
	}
	if !session.closed {
		t.Error("session was not released on failure")
	}
}

func TestDatabaseRunnerPlanReferencesUnknownTable(t *testing.T) {
	t.Parallel()

	session := &fakeSession{tables: usersTables()}
	provider := reasoning.NewScriptedProvider(
		reasoning.ScriptStep{Text: `{"sql": "SELECT 1 FROM secrets", "tables": ["secrets"], "rationale": "x"}`},
	)

	runner := NewDatabaseRunner(connectorFor(session, nil), provider, testLimits())
	result := runner.Run(context.Background(), dbRequest(t))

	if result.Succeeded() {
		t.Fatal("run should have failed")
	}
	if result.Failure.Kind != query.KindPlanning {
		t.Errorf("Failure.Kind = %s, want planning", result.Failure.Kind)
	}
}

func TestDatabaseRunnerAnalysisReprompt(t *testing.T) {
	t.Parallel()

	session := &fakeSession{
		tables: usersTables(),
		result: dbagent.Result{Columns: []string{"count"}, Rows: [][]any{{int64(42)}}, RowCount: 1},
	}
	provider := reasoning.NewScriptedProvider(
		reasoning.ScriptStep{Text: goodPlanJSON},
		reasoning.ScriptStep{Text: "I think there are about 42 users."}, // not JSON
		reasoning.ScriptStep{Text: goodAnalysisJSON},
	)

	runner := NewDatabaseRunner(connectorFor(session, nil), provider, testLimits())
	result := runner.Run(context.Background(), dbRequest(t))

	if !result.Succeeded() {
		t.Fatalf("run failed: %v", result.Failure)
	}
	if provider.Calls() != 3 {
		t.Errorf("provider calls = %d, want 3", provider.Calls())
	}
}

func TestDatabaseRunnerAnalysisFailsAfterReprompt(t *testing.T) {
	t.Parallel()

	session := &fakeSession{
		tables: usersTables(),
		result: dbagent.Result{Columns: []string{"count"}, Rows: [][]any{{int64(42)}}, RowCount: 1},
	}
	provider := reasoning.NewScriptedProvider(
		reasoning.ScriptStep{Text: goodPlanJSON},
		reasoning.ScriptStep{Text: "not json"},
		reasoning.ScriptStep{Text: "still not json"},
	)

	runner := NewDatabaseRunner(connectorFor(session, nil), provider, testLimits())
	result := runner.Run(context.Background(), dbRequest(t))

	if result.Succeeded() {
		t.Fatal("run should have failed")
	}
	if result.Failure.Kind != query.KindAnalysis {
		t.Errorf("Failure.Kind = %s, want analysis", result.Failure.Kind)
	}
	if result.Failure.State != string(dbagent.StateAnalyzing) {
		t.Errorf("Failure.State = %s, want analyzing", result.Failure.State)
	}
}

func TestDatabaseRunnerReasoningUnavailable(t *testing.T) {
	t.Parallel()

	session := &fakeSession{tables: usersTables()}
	// No steps: the provider fails every completion.
	runner := NewDatabaseRunner(connectorFor(session, nil),
		reasoning.NewScriptedProvider(), testLimits())
	result := runner.Run(context.Background(), dbRequest(t))

	if result.Succeeded() {
		t.Fatal("run should have failed")
	}
	if result.Failure.Kind != query.KindReasoning {
		t.Errorf("Failure.Kind = %s, want reasoning_unavailable", result.Failure.Kind)
	}
}
