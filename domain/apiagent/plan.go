package apiagent

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/felixgeelhaar/sourcequery/domain/query"
)

// RequestPlan binds one catalog endpoint to concrete parameter values.
type RequestPlan struct {
	Endpoint  Endpoint
	Values    map[string]string
	Rationale string
}

// NewRequestPlan validates a planned call against the catalog: the chosen
// endpoint must be a catalog entry, every bound value must be a declared
// parameter, and every required parameter must be bound.
func NewRequestPlan(catalog Catalog, method, path string, values map[string]string, rationale string) (RequestPlan, error) {
	endpoint, ok := catalog.Find(method, path)
	if !ok {
		return RequestPlan{}, fmt.Errorf("%w: endpoint %s %s is not in the catalog",
			query.ErrPlanning, strings.ToUpper(method), path)
	}

	for name := range values {
		if _, declared := endpoint.Parameter(name); !declared {
			return RequestPlan{}, fmt.Errorf("%w: parameter %q is not declared on %s",
				query.ErrPlanning, name, endpoint.ID())
		}
	}
	for _, required := range endpoint.RequiredParameters() {
		if v, bound := values[required]; !bound || v == "" {
			return RequestPlan{}, fmt.Errorf("%w: required parameter %q is unbound on %s",
				query.ErrPlanning, required, endpoint.ID())
		}
	}

	bound := make(map[string]string, len(values))
	for k, v := range values {
		bound[k] = v
	}
	return RequestPlan{Endpoint: endpoint, Values: bound, Rationale: rationale}, nil
}

// ResolvePath substitutes path parameters into the endpoint's template.
func (p RequestPlan) ResolvePath() string {
	path := p.Endpoint.Path
	for _, param := range p.Endpoint.Parameters {
		if param.In != InPath {
			continue
		}
		if v, ok := p.Values[param.Name]; ok {
			path = strings.ReplaceAll(path, "{"+param.Name+"}", v)
		}
	}
	return path
}

// QueryValues returns the bound query-string parameters.
func (p RequestPlan) QueryValues() map[string]string {
	out := make(map[string]string)
	for _, param := range p.Endpoint.Parameters {
		if param.In != InQuery {
			continue
		}
		if v, ok := p.Values[param.Name]; ok {
			out[param.Name] = v
		}
	}
	return out
}

// HeaderValues returns the bound header parameters.
func (p RequestPlan) HeaderValues() map[string]string {
	out := make(map[string]string)
	for _, param := range p.Endpoint.Parameters {
		if param.In != InHeader {
			continue
		}
		if v, ok := p.Values[param.Name]; ok {
			out[param.Name] = v
		}
	}
	return out
}

// Response is the outcome of an executed call. StatusCode is recorded
// whenever a response was received, even for non-2xx outcomes.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte

	// Payload holds the decoded JSON body when the response was
	// structured; nil otherwise.
	Payload any
}

// OK reports whether the call succeeded at the HTTP level.
func (r Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}
