// Package query provides the shared domain model for natural-language
// query runs: the incoming request, the final analysis report, and the
// error taxonomy used by both agent pipelines.
package query

import (
	"errors"
	"strings"
	"time"
)

// SourceKind identifies the kind of data source a request targets.
type SourceKind string

const (
	SourceDatabase SourceKind = "database"
	SourceAPI      SourceKind = "api"
)

// Request is the immutable input to an agent run.
type Request struct {
	// Question is the natural-language query to answer.
	Question string

	// Source identifies which pipeline handles the request.
	Source SourceKind

	// DatabaseURL is the connection string for database requests.
	DatabaseURL string

	// BaseURL is the API base URL for api requests.
	BaseURL string
}

// NewDatabaseRequest creates a request against a SQL source.
func NewDatabaseRequest(question, databaseURL string) (Request, error) {
	if strings.TrimSpace(question) == "" {
		return Request{}, errors.New("question must not be empty")
	}
	if strings.TrimSpace(databaseURL) == "" {
		return Request{}, errors.New("database URL must not be empty")
	}
	return Request{
		Question:    strings.TrimSpace(question),
		Source:      SourceDatabase,
		DatabaseURL: databaseURL,
	}, nil
}

// NewAPIRequest creates a request against an HTTP API.
func NewAPIRequest(question, baseURL string) (Request, error) {
	if strings.TrimSpace(question) == "" {
		return Request{}, errors.New("question must not be empty")
	}
	if strings.TrimSpace(baseURL) == "" {
		return Request{}, errors.New("base URL must not be empty")
	}
	return Request{
		Question: strings.TrimSpace(question),
		Source:   SourceAPI,
		BaseURL:  baseURL,
	}, nil
}

// RunResult is the terminal outcome of an agent run.
// Exactly one of Report or Failure is set.
type RunResult struct {
	RunID    string
	Report   *Report
	Failure  *Failure
	Duration time.Duration
}

// Succeeded returns true when the run reached a report.
func (r RunResult) Succeeded() bool {
	return r.Report != nil && r.Failure == nil
}
