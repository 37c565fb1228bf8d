package query

// SourceRef identifies the single execution result a report was derived
// from: either one database QueryResult or one API Response.
type SourceRef struct {
	Kind SourceKind `json:"kind"`

	// SQL is set for database sources.
	SQL string `json:"sql,omitempty"`

	// Endpoint is "METHOD /path" for api sources.
	Endpoint string `json:"endpoint,omitempty"`

	// RowCount mirrors the result's row count for database sources.
	RowCount int `json:"row_count,omitempty"`

	// StatusCode mirrors the response status for api sources.
	StatusCode int `json:"status_code,omitempty"`
}

// Finding is one structured observation extracted by the analyzer.
type Finding struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Report is the final answer of a run. It always references exactly one
// execution result.
type Report struct {
	Question string    `json:"question"`
	Summary  string    `json:"summary"`
	Findings []Finding `json:"findings,omitempty"`
	Source   SourceRef `json:"source"`
}
