package apiagent

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ParameterIn locates a parameter within a request.
type ParameterIn string

const (
	InQuery  ParameterIn = "query"
	InPath   ParameterIn = "path"
	InHeader ParameterIn = "header"
	InBody   ParameterIn = "body"
)

// Parameter declares one parameter of a discovered endpoint.
type Parameter struct {
	Name     string
	In       ParameterIn
	Required bool
	Type     string
}

// Endpoint is one discovered operation of an API.
type Endpoint struct {
	Method      string
	Path        string
	Description string
	Parameters  []Parameter
	// Relevance is the ranking score assigned during catalog assembly.
	Relevance float64
}

// ID identifies the endpoint within a catalog.
func (e Endpoint) ID() string {
	return strings.ToUpper(e.Method) + " " + e.Path
}

// Parameter returns the declared parameter with the given name.
func (e Endpoint) Parameter(name string) (Parameter, bool) {
	for _, p := range e.Parameters {
		if p.Name == name {
			return p, true
		}
	}
	return Parameter{}, false
}

// RequiredParameters returns the names of all required parameters.
func (e Endpoint) RequiredParameters() []string {
	var names []string
	for _, p := range e.Parameters {
		if p.Required {
			names = append(names, p.Name)
		}
	}
	return names
}

// Catalog is the bounded set of endpoints discovered for one base URL,
// ordered by descending relevance. Non-empty on successful discovery.
type Catalog struct {
	BaseURL   string
	Endpoints []Endpoint
	// Auth is the scheme detected by the unauthenticated probe.
	Auth AuthScheme
}

// NewCatalog validates uniqueness of method+path and orders endpoints by
// relevance, ties broken by discovery order.
func NewCatalog(baseURL string, endpoints []Endpoint, auth AuthScheme) (Catalog, error) {
	if len(endpoints) == 0 {
		return Catalog{}, errors.New("catalog must not be empty")
	}

	seen := make(map[string]struct{}, len(endpoints))
	for _, e := range endpoints {
		id := e.ID()
		if _, dup := seen[id]; dup {
			return Catalog{}, fmt.Errorf("duplicate endpoint %s", id)
		}
		seen[id] = struct{}{}
	}

	ordered := make([]Endpoint, len(endpoints))
	copy(ordered, endpoints)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Relevance > ordered[j].Relevance
	})

	return Catalog{BaseURL: baseURL, Endpoints: ordered, Auth: auth}, nil
}

// Find returns the endpoint matching method+path.
func (c Catalog) Find(method, path string) (Endpoint, bool) {
	for _, e := range c.Endpoints {
		if strings.EqualFold(e.Method, method) && e.Path == path {
			return e, true
		}
	}
	return Endpoint{}, false
}

// Summary renders the catalog for a planner prompt, one endpoint per line.
func (c Catalog) Summary() string {
	var sb strings.Builder
	for _, e := range c.Endpoints {
		sb.WriteString("- ")
		sb.WriteString(e.ID())
		if len(e.Parameters) > 0 {
			sb.WriteString(" (params:")
			for _, p := range e.Parameters {
				sb.WriteString(" ")
				sb.WriteString(p.Name)
				if p.Required {
					sb.WriteString("*")
				}
			}
			sb.WriteString(")")
		}
		if e.Description != "" {
			sb.WriteString(" - ")
			sb.WriteString(e.Description)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
