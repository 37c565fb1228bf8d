package apirepo

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/felixgeelhaar/sourcequery/domain/apiagent"
)

// isOpenAPIDocument recognizes OpenAPI 3.x and Swagger 2.0 documents.
func isOpenAPIDocument(doc map[string]any) bool {
	if _, ok := doc["openapi"]; ok {
		return true
	}
	if _, ok := doc["swagger"]; ok {
		return true
	}
	_, ok := doc["paths"]
	return ok
}

// parseOpenAPI converts a spec document into catalog endpoints. Only GET
// operations are kept. The document's security schemes, when declared,
// name the auth scheme more precisely than probing can.
func parseOpenAPI(doc map[string]any) ([]apiagent.Endpoint, apiagent.AuthScheme, error) {
	paths, ok := doc["paths"].(map[string]any)
	if !ok || len(paths) == 0 {
		return nil, apiagent.AuthNone, fmt.Errorf("spec document declares no paths")
	}

	// Iterate deterministically; catalog ordering must be stable.
	pathKeys := make([]string, 0, len(paths))
	for p := range paths {
		pathKeys = append(pathKeys, p)
	}
	sort.Strings(pathKeys)

	var endpoints []apiagent.Endpoint
	for _, path := range pathKeys {
		operations, ok := paths[path].(map[string]any)
		if !ok {
			continue
		}
		op, ok := operations["get"].(map[string]any)
		if !ok {
			continue
		}

		endpoint := apiagent.Endpoint{
			Method:      http.MethodGet,
			Path:        path,
			Description: operationDescription(op),
			Parameters:  parseParameters(op),
		}
		endpoints = append(endpoints, endpoint)
	}

	if len(endpoints) == 0 {
		return nil, apiagent.AuthNone, fmt.Errorf("spec document declares no GET operations")
	}
	return endpoints, specAuthScheme(doc), nil
}

func operationDescription(op map[string]any) string {
	if s, ok := op["summary"].(string); ok && s != "" {
		return s
	}
	if s, ok := op["description"].(string); ok {
		if len(s) > 100 {
			return s[:100]
		}
		return s
	}
	return ""
}

func parseParameters(op map[string]any) []apiagent.Parameter {
	raw, ok := op["parameters"].([]any)
	if !ok {
		return nil
	}

	var params []apiagent.Parameter
	for _, entry := range raw {
		p, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		name, _ := p["name"].(string)
		if name == "" {
			continue
		}
		in, _ := p["in"].(string)
		required, _ := p["required"].(bool)

		paramType, _ := p["type"].(string) // Swagger 2.0
		if schema, ok := p["schema"].(map[string]any); ok {
			if t, ok := schema["type"].(string); ok {
				paramType = t // OpenAPI 3.x
			}
		}

		params = append(params, apiagent.Parameter{
			Name:     name,
			In:       apiagent.ParameterIn(in),
			Required: required,
			Type:     paramType,
		})
	}
	return params
}

// specAuthScheme reads security schemes from OpenAPI 3.x
// (components.securitySchemes) or Swagger 2.0 (securityDefinitions).
func specAuthScheme(doc map[string]any) apiagent.AuthScheme {
	var schemes map[string]any
	if components, ok := doc["components"].(map[string]any); ok {
		schemes, _ = components["securitySchemes"].(map[string]any)
	}
	if schemes == nil {
		schemes, _ = doc["securityDefinitions"].(map[string]any)
	}
	if len(schemes) == 0 {
		return apiagent.AuthNone
	}

	// Deterministic choice when several schemes are declared.
	names := make([]string, 0, len(schemes))
	for name := range schemes {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		scheme, ok := schemes[name].(map[string]any)
		if !ok {
			continue
		}
		schemeType, _ := scheme["type"].(string)
		switch strings.ToLower(schemeType) {
		case "http":
			httpScheme, _ := scheme["scheme"].(string)
			if strings.EqualFold(httpScheme, "bearer") {
				return apiagent.AuthBearer
			}
			if strings.EqualFold(httpScheme, "basic") {
				return apiagent.AuthBasic
			}
		case "apikey":
			return apiagent.AuthAPIKey
		case "oauth2":
			return apiagent.AuthOAuth2
		case "basic":
			return apiagent.AuthBasic
		}
	}
	return apiagent.AuthNone
}
