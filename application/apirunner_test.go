package application

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/felixgeelhaar/sourcequery/domain/apiagent"
	"github.com/felixgeelhaar/sourcequery/domain/query"
	"github.com/felixgeelhaar/sourcequery/infrastructure/reasoning"
)

type fakeDiscoverer struct {
	catalog apiagent.Catalog
	err     error
}

func (d *fakeDiscoverer) Discover(context.Context, string, string) (apiagent.Catalog, error) {
	if d.err != nil {
		return apiagent.Catalog{}, d.err
	}
	return d.catalog, nil
}

// fakeExecutor replays a response sequence and records the auth header
// each decoration produced.
type fakeExecutor struct {
	responses   []apiagent.Response
	index       int
	plans       []apiagent.RequestPlan
	authHeaders []string
}

func (e *fakeExecutor) Do(_ context.Context, _ string, plan apiagent.RequestPlan, decorate apiagent.Decoration) (apiagent.Response, error) {
	e.plans = append(e.plans, plan)

	probe := httptest.NewRequest(http.MethodGet, "http://example.test/", nil)
	if decorate != nil {
		decorate(probe)
	}
	e.authHeaders = append(e.authHeaders, probe.Header.Get("Authorization"))

	if e.index >= len(e.responses) {
		return apiagent.Response{}, query.ErrRequest
	}
	resp := e.responses[e.index]
	e.index++
	return resp, nil
}

func testCatalog(t *testing.T, auth apiagent.AuthScheme) apiagent.Catalog {
	t.Helper()
	catalog, err := apiagent.NewCatalog("http://example.test", []apiagent.Endpoint{
		{Method: http.MethodGet, Path: "/users", Description: "list users"},
		{Method: http.MethodGet, Path: "/orders", Description: "list orders"},
	}, auth)
	if err != nil {
		t.Fatalf("NewCatalog() error = %v", err)
	}
	return catalog
}

func apiRequest(t *testing.T) query.Request {
	t.Helper()
	req, err := query.NewAPIRequest("how many users are there", "http://example.test")
	if err != nil {
		t.Fatalf("NewAPIRequest() error = %v", err)
	}
	return req
}

const (
	usersPlanJSON  = `{"method": "GET", "path": "/users", "values": {}, "rationale": "list users"}`
	ordersPlanJSON = `{"method": "GET", "path": "/orders", "values": {}, "rationale": "list orders"}`
)

func okResponse(body string) apiagent.Response {
	return apiagent.Response{StatusCode: http.StatusOK, Body: []byte(body)}
}

func TestAPIRunnerHappyPath(t *testing.T) {
	t.Parallel()

	executor := &fakeExecutor{responses: []apiagent.Response{okResponse(`[{"id": 1}]`)}}
	provider := reasoning.NewScriptedProvider(
		reasoning.ScriptStep{Text: usersPlanJSON},
		reasoning.ScriptStep{Text: goodAnalysisJSON},
	)

	runner := NewAPIRunner(&fakeDiscoverer{catalog: testCatalog(t, apiagent.AuthNone)},
		executor, provider, apiagent.Credentials{}, nil, testLimits(),
		WithIDGenerator(func() string { return "run-2" }))
	result := runner.Run(context.Background(), apiRequest(t))

	if !result.Succeeded() {
		t.Fatalf("run failed: %v", result.Failure)
	}
	if result.RunID != "run-2" {
		t.Errorf("RunID = %q, want run-2", result.RunID)
	}
	if result.Report.Source.Kind != query.SourceAPI {
		t.Errorf("Source.Kind = %s, want api", result.Report.Source.Kind)
	}
	if result.Report.Source.Endpoint != "GET /users" {
		t.Errorf("Source.Endpoint = %q", result.Report.Source.Endpoint)
	}
	if result.Report.Source.StatusCode != http.StatusOK {
		t.Errorf("Source.StatusCode = %d, want 200", result.Report.Source.StatusCode)
	}
}

func TestAPIRunnerReauthOnceAfter401(t *testing.T) {
	t.Parallel()

	executor := &fakeExecutor{responses: []apiagent.Response{
		{StatusCode: http.StatusUnauthorized},
		okResponse(`[{"id": 1}]`),
	}}
	provider := reasoning.NewScriptedProvider(
		reasoning.ScriptStep{Text: usersPlanJSON},
		reasoning.ScriptStep{Text: goodAnalysisJSON},
	)

	creds := apiagent.Credentials{Token: "tok-1"}
	runner := NewAPIRunner(&fakeDiscoverer{catalog: testCatalog(t, apiagent.AuthBearer)},
		executor, provider, creds, nil, testLimits())
	result := runner.Run(context.Background(), apiRequest(t))

	if !result.Succeeded() {
		t.Fatalf("run failed: %v", result.Failure)
	}
	// Same plan retried with refreshed credentials, no second planner call.
	if len(executor.plans) != 2 {
		t.Fatalf("executor calls = %d, want 2", len(executor.plans))
	}
	if executor.plans[0].Endpoint.Path != executor.plans[1].Endpoint.Path {
		t.Error("re-auth retry switched endpoints")
	}
	for i, header := range executor.authHeaders {
		if header != "Bearer tok-1" {
			t.Errorf("call %d auth header = %q", i, header)
		}
	}
	if provider.Calls() != 2 {
		t.Errorf("provider calls = %d, want 2 (plan + analysis)", provider.Calls())
	}
}

// cachingTokens mimics a caching token source: it serves the same token
// until invalidated.
type cachingTokens struct {
	issued      int
	invalidated int
	current     string
}

func (s *cachingTokens) AccessToken(string, string, string, []string) (string, error) {
	if s.current == "" {
		s.issued++
		s.current = fmt.Sprintf("tok-%d", s.issued)
	}
	return s.current, nil
}

func (s *cachingTokens) Invalidate(string, string, []string) {
	s.invalidated++
	s.current = ""
}

func TestAPIRunnerReauthExchangesFreshOAuth2Token(t *testing.T) {
	t.Parallel()

	executor := &fakeExecutor{responses: []apiagent.Response{
		{StatusCode: http.StatusUnauthorized},
		okResponse(`[{"id": 1}]`),
	}}
	provider := reasoning.NewScriptedProvider(
		reasoning.ScriptStep{Text: usersPlanJSON},
		reasoning.ScriptStep{Text: goodAnalysisJSON},
	)

	tokens := &cachingTokens{}
	creds := apiagent.Credentials{ClientID: "id", ClientSecret: "s", TokenURL: "http://auth.test/token"}
	runner := NewAPIRunner(&fakeDiscoverer{catalog: testCatalog(t, apiagent.AuthOAuth2)},
		executor, provider, creds, tokens, testLimits())
	result := runner.Run(context.Background(), apiRequest(t))

	if !result.Succeeded() {
		t.Fatalf("run failed: %v", result.Failure)
	}
	// The 401 drops the cached token, so the retry carries a new one.
	if tokens.invalidated != 1 {
		t.Errorf("invalidations = %d, want 1", tokens.invalidated)
	}
	if tokens.issued != 2 {
		t.Errorf("token exchanges = %d, want 2", tokens.issued)
	}
	want := []string{"Bearer tok-1", "Bearer tok-2"}
	for i, header := range executor.authHeaders {
		if header != want[i] {
			t.Errorf("call %d auth header = %q, want %q", i, header, want[i])
		}
	}
}

func TestAPIRunnerFailsOnSecond401(t *testing.T) {
	t.Parallel()

	executor := &fakeExecutor{responses: []apiagent.Response{
		{StatusCode: http.StatusUnauthorized},
		{StatusCode: http.StatusUnauthorized},
	}}
	provider := reasoning.NewScriptedProvider(
		reasoning.ScriptStep{Text: usersPlanJSON},
	)

	creds := apiagent.Credentials{Token: "tok-1"}
	runner := NewAPIRunner(&fakeDiscoverer{catalog: testCatalog(t, apiagent.AuthBearer)},
		executor, provider, creds, nil, testLimits())
	result := runner.Run(context.Background(), apiRequest(t))

	if result.Succeeded() {
		t.Fatal("run should have failed")
	}
	if result.Failure.Kind != query.KindRequest {
		t.Errorf("Failure.Kind = %s, want request", result.Failure.Kind)
	}
	if len(executor.plans) != 2 {
		t.Errorf("executor calls = %d, want 2", len(executor.plans))
	}
}

func TestAPIRunnerReplansAfterFailedCall(t *testing.T) {
	t.Parallel()

	executor := &fakeExecutor{responses: []apiagent.Response{
		{StatusCode: http.StatusNotFound},
		okResponse(`[{"id": 7}]`),
	}}
	provider := reasoning.NewScriptedProvider(
		reasoning.ScriptStep{Text: usersPlanJSON},
		reasoning.ScriptStep{Text: ordersPlanJSON},
		reasoning.ScriptStep{Text: goodAnalysisJSON},
	)

	runner := NewAPIRunner(&fakeDiscoverer{catalog: testCatalog(t, apiagent.AuthNone)},
		executor, provider, apiagent.Credentials{}, nil, testLimits())
	result := runner.Run(context.Background(), apiRequest(t))

	if !result.Succeeded() {
		t.Fatalf("run failed: %v", result.Failure)
	}
	if result.Report.Source.Endpoint != "GET /orders" {
		t.Errorf("Source.Endpoint = %q, want GET /orders", result.Report.Source.Endpoint)
	}
	// The re-planning prompt carries the failed call's status.
	if !strings.Contains(provider.Requests[1].Prompt, "404") {
		t.Errorf("re-planning prompt lacks failure feedback:\n%s", provider.Requests[1].Prompt)
	}
}

func TestAPIRunnerExhaustsPlanCycles(t *testing.T) {
	t.Parallel()

	executor := &fakeExecutor{responses: []apiagent.Response{
		{StatusCode: http.StatusNotFound},
		{StatusCode: http.StatusNotFound},
		{StatusCode: http.StatusNotFound},
	}}
	provider := reasoning.NewScriptedProvider(
		reasoning.ScriptStep{Text: usersPlanJSON},
		reasoning.ScriptStep{Text: ordersPlanJSON},
		reasoning.ScriptStep{Text: usersPlanJSON},
	)

	runner := NewAPIRunner(&fakeDiscoverer{catalog: testCatalog(t, apiagent.AuthNone)},
		executor, provider, apiagent.Credentials{}, nil, testLimits())
	result := runner.Run(context.Background(), apiRequest(t))

	if result.Succeeded() {
		t.Fatal("run should have failed")
	}
	if result.Failure.Kind != query.KindRequest {
		t.Errorf("Failure.Kind = %s, want request", result.Failure.Kind)
	}
	if len(executor.plans) != 3 {
		t.Errorf("executor calls = %d, want 3", len(executor.plans))
	}
}

func TestAPIRunnerDiscoveryFailure(t *testing.T) {
	t.Parallel()

	runner := NewAPIRunner(&fakeDiscoverer{err: query.ErrDiscovery},
		&fakeExecutor{}, reasoning.NewScriptedProvider(),
		apiagent.Credentials{}, nil, testLimits())
	result := runner.Run(context.Background(), apiRequest(t))

	if result.Succeeded() {
		t.Fatal("run should have failed")
	}
	if result.Failure.Kind != query.KindDiscovery {
		t.Errorf("Failure.Kind = %s, want discovery", result.Failure.Kind)
	}
	if result.Failure.State != string(apiagent.StateDiscovering) {
		t.Errorf("Failure.State = %s, want discovering", result.Failure.State)
	}
}

func TestAPIRunnerMissingCredentials(t *testing.T) {
	t.Parallel()

	// Bearer detected but no token supplied.
	runner := NewAPIRunner(&fakeDiscoverer{catalog: testCatalog(t, apiagent.AuthBearer)},
		&fakeExecutor{}, reasoning.NewScriptedProvider(),
		apiagent.Credentials{}, nil, testLimits())
	result := runner.Run(context.Background(), apiRequest(t))

	if result.Succeeded() {
		t.Fatal("run should have failed")
	}
	if result.Failure.Kind != query.KindMissingCredentials {
		t.Errorf("Failure.Kind = %s, want missing_credentials", result.Failure.Kind)
	}
	if result.Failure.State != string(apiagent.StateAuthResolving) {
		t.Errorf("Failure.State = %s, want auth_resolving", result.Failure.State)
	}
}
