package apirepo

import (
	"encoding/json"
	"testing"

	"github.com/felixgeelhaar/sourcequery/domain/apiagent"
)

func parseDoc(t *testing.T, raw string) map[string]any {
	t.Helper()
	var doc map[string]any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		t.Fatalf("unmarshal document: %v", err)
	}
	return doc
}

func TestParseOpenAPIKeepsOnlyGET(t *testing.T) {
	t.Parallel()

	doc := parseDoc(t, `{
		"openapi": "3.0.0",
		"paths": {
			"/users": {
				"get": {"summary": "list users"},
				"post": {"summary": "create a user"},
				"delete": {"summary": "purge users"}
			},
			"/admin": {
				"post": {"summary": "admin action"}
			}
		}
	}`)

	endpoints, _, err := parseOpenAPI(doc)
	if err != nil {
		t.Fatalf("parseOpenAPI() error = %v", err)
	}
	if len(endpoints) != 1 {
		t.Fatalf("endpoint count = %d, want 1", len(endpoints))
	}
	if endpoints[0].Method != "GET" || endpoints[0].Path != "/users" {
		t.Errorf("endpoint = %s %s", endpoints[0].Method, endpoints[0].Path)
	}
	if endpoints[0].Description != "list users" {
		t.Errorf("Description = %q", endpoints[0].Description)
	}
}

func TestParseOpenAPIParameters(t *testing.T) {
	t.Parallel()

	doc := parseDoc(t, `{
		"openapi": "3.0.0",
		"paths": {
			"/users/{id}": {
				"get": {"parameters": [
					{"name": "id", "in": "path", "required": true, "schema": {"type": "integer"}},
					{"name": "expand", "in": "query", "schema": {"type": "string"}}
				]}
			}
		}
	}`)

	endpoints, _, err := parseOpenAPI(doc)
	if err != nil {
		t.Fatalf("parseOpenAPI() error = %v", err)
	}
	params := endpoints[0].Parameters
	if len(params) != 2 {
		t.Fatalf("parameter count = %d, want 2", len(params))
	}
	if params[0].Name != "id" || params[0].In != apiagent.InPath || !params[0].Required || params[0].Type != "integer" {
		t.Errorf("params[0] = %+v", params[0])
	}
	if params[1].Name != "expand" || params[1].In != apiagent.InQuery || params[1].Required {
		t.Errorf("params[1] = %+v", params[1])
	}
}

func TestParseSwagger2Parameters(t *testing.T) {
	t.Parallel()

	doc := parseDoc(t, `{
		"swagger": "2.0",
		"paths": {
			"/items": {
				"get": {"parameters": [
					{"name": "limit", "in": "query", "type": "integer"}
				]}
			}
		}
	}`)

	endpoints, _, err := parseOpenAPI(doc)
	if err != nil {
		t.Fatalf("parseOpenAPI() error = %v", err)
	}
	if got := endpoints[0].Parameters[0].Type; got != "integer" {
		t.Errorf("Type = %q, want integer", got)
	}
}

func TestParseOpenAPIEmptyDocuments(t *testing.T) {
	t.Parallel()

	if _, _, err := parseOpenAPI(parseDoc(t, `{"openapi": "3.0.0"}`)); err == nil {
		t.Error("document without paths should fail")
	}
	if _, _, err := parseOpenAPI(parseDoc(t, `{"openapi": "3.0.0", "paths": {"/x": {"post": {}}}}`)); err == nil {
		t.Error("document without GET operations should fail")
	}
}

func TestSpecAuthScheme(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		doc  string
		want apiagent.AuthScheme
	}{
		{
			"openapi bearer",
			`{"components": {"securitySchemes": {"jwt": {"type": "http", "scheme": "bearer"}}}}`,
			apiagent.AuthBearer,
		},
		{
			"openapi basic",
			`{"components": {"securitySchemes": {"login": {"type": "http", "scheme": "basic"}}}}`,
			apiagent.AuthBasic,
		},
		{
			"openapi api key",
			`{"components": {"securitySchemes": {"key": {"type": "apiKey", "in": "header", "name": "X-Key"}}}}`,
			apiagent.AuthAPIKey,
		},
		{
			"openapi oauth2",
			`{"components": {"securitySchemes": {"oauth": {"type": "oauth2"}}}}`,
			apiagent.AuthOAuth2,
		},
		{
			"swagger basic",
			`{"securityDefinitions": {"login": {"type": "basic"}}}`,
			apiagent.AuthBasic,
		},
		{
			"no schemes",
			`{"openapi": "3.0.0"}`,
			apiagent.AuthNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := specAuthScheme(parseDoc(t, tt.doc)); got != tt.want {
				t.Errorf("specAuthScheme() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestIsOpenAPIDocument(t *testing.T) {
	t.Parallel()

	if !isOpenAPIDocument(parseDoc(t, `{"openapi": "3.1.0"}`)) {
		t.Error("openapi marker not recognized")
	}
	if !isOpenAPIDocument(parseDoc(t, `{"swagger": "2.0"}`)) {
		t.Error("swagger marker not recognized")
	}
	if isOpenAPIDocument(parseDoc(t, `{"data": []}`)) {
		t.Error("plain JSON mistaken for a spec document")
	}
}
