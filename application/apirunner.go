package application

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/felixgeelhaar/statekit"
	"github.com/google/uuid"

	"github.com/felixgeelhaar/sourcequery/domain/apiagent"
	"github.com/felixgeelhaar/sourcequery/domain/query"
	"github.com/felixgeelhaar/sourcequery/infrastructure/config"
	"github.com/felixgeelhaar/sourcequery/infrastructure/logging"
	"github.com/felixgeelhaar/sourcequery/infrastructure/reasoning"
	"github.com/felixgeelhaar/sourcequery/infrastructure/statemachine"
)

// APIRunner drives the API pipeline: discover endpoints, resolve auth,
// plan a call, execute it and analyze the response. A 401 earns exactly
// one re-auth cycle; other failed calls re-plan within the cycle budget.
type APIRunner struct {
	discoverer Discoverer
	executor   RequestExecutor
	planner    *RequestPlanner
	analyzer   *Analyzer
	creds      apiagent.Credentials
	tokens     apiagent.TokenSource
	limits     config.Limits
	newID      func() string
}

// NewAPIRunner creates a runner. tokens may be nil when oauth2 is not in
// play.
func NewAPIRunner(discoverer Discoverer, executor RequestExecutor, provider reasoning.Provider,
	creds apiagent.Credentials, tokens apiagent.TokenSource, limits config.Limits, opts ...Option) *APIRunner {
	r := &APIRunner{
		discoverer: discoverer,
		executor:   executor,
		planner:    NewRequestPlanner(provider),
		analyzer:   NewAnalyzer(provider),
		creds:      creds,
		tokens:     tokens,
		limits:     limits,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(&runnerOptions{newID: &r.newID})
	}
	return r
}

// Run executes one request to a terminal state.
func (r *APIRunner) Run(ctx context.Context, req query.Request) query.RunResult {
	start := time.Now()
	runID := r.newID()

	logging.Info().
		Add(logging.RunID(runID)).
		Msg("api run started")

	machine, err := statemachine.NewAPIMachine()
	if err != nil {
		return query.RunResult{
			RunID:    runID,
			Failure:  query.NewFailure(string(apiagent.StateInit), fmt.Errorf("building statechart: %w", err)),
			Duration: time.Since(start),
		}
	}

	interp := statemachine.NewInterpreter(machine,
		statemachine.NewContext(runID, string(apiagent.StateInit), r.limits.PlanCycles),
		func(to string) statekit.EventType {
			return statemachine.APIEventFor(apiagent.State(to))
		})
	interp.Start()
	defer interp.Stop()

	fail := func(err error) query.RunResult {
		state := interp.State()
		_ = interp.Transition(string(apiagent.StateFailed), err.Error())
		failure := query.NewFailure(state, err)
		logging.Warn().
			Add(logging.RunID(runID)).
			Add(logging.State(state)).
			Add(logging.Kind(string(failure.Kind))).
			Add(logging.ErrorField(err)).
			Msg("api run failed")
		return query.RunResult{RunID: runID, Failure: failure, Duration: time.Since(start)}
	}

	// Discover the catalog.
	_ = interp.Transition(string(apiagent.StateDiscovering), "run started")
	catalog, err := r.discoverer.Discover(ctx, req.BaseURL, req.Question)
	if err != nil {
		return fail(err)
	}
	_ = interp.Transition(string(apiagent.StateCatalogReady), "catalog assembled")

	// Resolve auth for the detected scheme.
	_ = interp.Transition(string(apiagent.StateAuthResolving), "scheme detected")
	logging.Debug().
		Add(logging.RunID(runID)).
		Add(logging.AuthScheme(string(catalog.Auth))).
		Add(logging.Reason(r.creds.Describe())).
		Msg("resolving credentials")
	decorate, err := apiagent.Resolve(catalog.Auth, r.creds, r.tokens)
	if err != nil {
		return fail(err)
	}

	// Plan/execute loop. replan controls whether the planner runs again;
	// after a re-auth the same plan is retried with fresh credentials.
	var (
		plan     apiagent.RequestPlan
		resp     apiagent.Response
		feedback string
		replan   = true
	)
	_ = interp.Transition(string(apiagent.StatePlanning), "first planning round")
	for {
		if replan {
			plan, err = r.planner.Plan(ctx, req.Question, catalog, feedback)
			if err != nil {
				return fail(err)
			}
		}

		_ = interp.Transition(string(apiagent.StateExecuting), "plan validated")
		resp, err = r.executor.Do(ctx, req.BaseURL, plan, decorate)
		if err != nil {
			return fail(err)
		}
		if resp.OK() {
			break
		}

		if resp.StatusCode == http.StatusUnauthorized {
			// One re-auth cycle per run: refresh credentials and retry
			// the same plan.
			if rerr := interp.Transition(string(apiagent.StateAuthResolving), "unauthorized"); rerr != nil {
				return fail(fmt.Errorf("%w: %s returned 401 after re-auth", query.ErrRequest, plan.Endpoint.ID()))
			}
			interp.ConsumeReauth()
			// The target rejected the token, so a cached one must not be
			// served again on resolution.
			if inv, ok := r.tokens.(apiagent.TokenInvalidator); ok {
				inv.Invalidate(r.creds.TokenURL, r.creds.ClientID, r.creds.Scopes)
			}
			decorate, err = apiagent.Resolve(catalog.Auth, r.creds, r.tokens)
			if err != nil {
				return fail(err)
			}
			_ = interp.Transition(string(apiagent.StatePlanning), "retrying with fresh credentials")
			replan = false
			continue
		}

		// Any other failed call earns a re-plan within the cycle budget.
		reason := fmt.Sprintf("%s returned status %d", plan.Endpoint.ID(), resp.StatusCode)
		logging.Warn().
			Add(logging.RunID(runID)).
			Add(logging.Cycle(interp.PlanCycles() + 1)).
			Add(logging.StatusCode(resp.StatusCode)).
			Msg("call failed, re-planning")
		interp.ConsumePlanCycle()
		if rerr := interp.Transition(string(apiagent.StatePlanning), reason); rerr != nil {
			return fail(fmt.Errorf("%w: %s (after %d rounds)", query.ErrRequest, reason, interp.PlanCycles()))
		}
		feedback = reason
		replan = true
	}

	// Analyze.
	_ = interp.Transition(string(apiagent.StateAnalyzing), "response collected")
	report, err := r.analyzer.AnalyzeResponse(ctx, req.Question, plan, resp)
	if err != nil {
		return fail(err)
	}

	_ = interp.Transition(string(apiagent.StateDone), "report ready")
	logging.Info().
		Add(logging.RunID(runID)).
		Add(logging.StatusCode(resp.StatusCode)).
		Add(logging.Duration(time.Since(start))).
		Msg("api run finished")
	return query.RunResult{RunID: runID, Report: &report, Duration: time.Since(start)}
}
