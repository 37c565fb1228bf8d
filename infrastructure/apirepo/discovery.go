package apirepo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/felixgeelhaar/sourcequery/domain/apiagent"
	"github.com/felixgeelhaar/sourcequery/domain/query"
	"github.com/felixgeelhaar/sourcequery/infrastructure/logging"
)

// wellKnownSpecPaths are tried in order during machine-readable discovery.
var wellKnownSpecPaths = []string{
	"/openapi.json",
	"/swagger.json",
	"/v3/api-docs",
	"/v2/api-docs",
	"/api-docs",
	"/swagger/v1/swagger.json",
	"/api/swagger.json",
}

// guessablePaths are probed during the heuristic fallback.
var guessablePaths = []string{
	"/api",
	"/users",
	"/items",
	"/products",
	"/orders",
	"/posts",
	"/customers",
	"/events",
	"/status",
	"/health",
}

// specURLPatterns extract the spec location from a Swagger UI HTML page.
var specURLPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)url\s*[=:]\s*["']([^"']+\.json)["']`),
	regexp.MustCompile(`(?i)url\s*[=:]\s*["']([^"']+/api-docs[^"']*)["']`),
	regexp.MustCompile(`(?i)url\s*[=:]\s*["']([^"']+openapi[^"']*)["']`),
	regexp.MustCompile(`(?i)spec-url\s*=\s*["']([^"']+)["']`),
}

var htmlLinkPattern = regexp.MustCompile(`(?i)href\s*=\s*["'](/[^"'#?]*)["']`)

// Discoverer builds an endpoint catalog for a base URL. Machine-readable
// discovery (an OpenAPI document at a well-known path) is attempted first;
// heuristic crawling of linked and guessable paths is the fallback. Only
// GET operations enter the catalog; the system only ever reads.
type Discoverer struct {
	http   *http.Client
	ranker EndpointRanker
}

// EndpointRanker scores endpoint relevance to a question. Deterministic
// by contract, like the table ranker.
type EndpointRanker interface {
	Score(question string, endpoint apiagent.Endpoint) float64
}

// NewDiscoverer creates a discoverer.
func NewDiscoverer(timeout time.Duration, ranker EndpointRanker) *Discoverer {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if ranker == nil {
		ranker = PathTokenRanker{}
	}
	return &Discoverer{
		http:   &http.Client{Timeout: timeout},
		ranker: ranker,
	}
}

// Discover probes the base URL and assembles the catalog. The question is
// used only for relevance ordering. Fails with query.ErrDiscovery when
// neither method yields endpoints.
func (d *Discoverer) Discover(ctx context.Context, baseURL, question string) (apiagent.Catalog, error) {
	auth := d.probeAuth(ctx, baseURL)

	endpoints, specAuth, err := d.fromSpec(ctx, baseURL)
	if err != nil {
		logging.Debug().
			Add(logging.ErrorField(err)).
			Msg("machine-readable discovery failed, falling back to crawl")
		endpoints = d.crawl(ctx, baseURL)
	}
	if specAuth != apiagent.AuthNone && specAuth != "" {
		// The spec document knows the scheme more precisely than the
		// probe classification.
		auth = specAuth
	}

	if len(endpoints) == 0 {
		return apiagent.Catalog{}, fmt.Errorf("%w: no spec document and no crawlable resources at %s",
			query.ErrDiscovery, baseURL)
	}

	for i := range endpoints {
		endpoints[i].Relevance = d.ranker.Score(question, endpoints[i])
	}

	catalog, err := apiagent.NewCatalog(baseURL, endpoints, auth)
	if err != nil {
		return apiagent.Catalog{}, fmt.Errorf("%w: %v", query.ErrDiscovery, err)
	}

	logging.Info().
		Add(logging.EndpointCount(len(catalog.Endpoints))).
		Add(logging.AuthScheme(string(auth))).
		Msg("catalog assembled")
	return catalog, nil
}

// probeAuth sends one unauthenticated request and classifies the response.
func (d *Discoverer) probeAuth(ctx context.Context, baseURL string) apiagent.AuthScheme {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL, nil)
	if err != nil {
		return apiagent.AuthNone
	}
	resp, err := d.http.Do(req)
	if err != nil {
		return apiagent.AuthNone
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))

	return ClassifyAuthResponse(resp.StatusCode, resp.Header)
}

// ClassifyAuthResponse infers the auth scheme from an unauthenticated
// probe: 401/403 means auth is required, and the challenge header narrows
// the scheme.
func ClassifyAuthResponse(statusCode int, headers http.Header) apiagent.AuthScheme {
	if statusCode != http.StatusUnauthorized && statusCode != http.StatusForbidden {
		return apiagent.AuthNone
	}

	challenge := strings.ToLower(headers.Get("WWW-Authenticate"))
	switch {
	case strings.HasPrefix(challenge, "bearer"):
		return apiagent.AuthBearer
	case strings.HasPrefix(challenge, "basic"):
		return apiagent.AuthBasic
	case challenge != "":
		return apiagent.AuthAPIKey
	case statusCode == http.StatusUnauthorized:
		// 401 without a challenge: a bearer token is the most common
		// expectation.
		return apiagent.AuthBearer
	default:
		// 403 without a challenge usually means a key in a header or
		// query parameter.
		return apiagent.AuthAPIKey
	}
}

// fromSpec attempts machine-readable discovery.
func (d *Discoverer) fromSpec(ctx context.Context, baseURL string) ([]apiagent.Endpoint, apiagent.AuthScheme, error) {
	// The base URL itself may already point at a spec document or a
	// Swagger UI page.
	if doc, err := d.fetchSpec(ctx, baseURL); err == nil {
		return parseOpenAPI(doc)
	}

	root, err := url.Parse(baseURL)
	if err != nil {
		return nil, apiagent.AuthNone, fmt.Errorf("invalid base URL: %w", err)
	}
	origin := root.Scheme + "://" + root.Host

	for _, path := range wellKnownSpecPaths {
		doc, err := d.fetchSpec(ctx, origin+path)
		if err != nil {
			continue
		}
		return parseOpenAPI(doc)
	}
	return nil, apiagent.AuthNone, fmt.Errorf("no spec document found")
}

// fetchSpec retrieves a spec document, following a Swagger UI HTML page to
// its spec URL when needed.
func (d *Discoverer) fetchSpec(ctx context.Context, specURL string) (map[string]any, error) {
	body, contentType, err := d.get(ctx, specURL)
	if err != nil {
		return nil, err
	}

	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err == nil {
		if isOpenAPIDocument(doc) {
			return doc, nil
		}
		return nil, fmt.Errorf("JSON at %s is not an OpenAPI document", specURL)
	}

	if strings.Contains(contentType, "text/html") || strings.HasPrefix(strings.TrimSpace(string(body)), "<!") {
		if extracted := extractSpecURL(string(body), specURL); extracted != "" {
			body, _, err = d.get(ctx, extracted)
			if err != nil {
				return nil, err
			}
			if err := json.Unmarshal(body, &doc); err == nil && isOpenAPIDocument(doc) {
				return doc, nil
			}
		}
	}
	return nil, fmt.Errorf("no spec document at %s", specURL)
}

func (d *Discoverer) get(ctx context.Context, target string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := d.http.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
		return nil, "", fmt.Errorf("GET %s returned %d", target, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, "", err
	}
	return body, resp.Header.Get("Content-Type"), nil
}

// extractSpecURL pulls the spec location out of a Swagger UI page.
func extractSpecURL(html, pageURL string) string {
	for _, pattern := range specURLPatterns {
		if m := pattern.FindStringSubmatch(html); m != nil {
			base, err := url.Parse(pageURL)
			if err != nil {
				return ""
			}
			ref, err := url.Parse(m[1])
			if err != nil {
				continue
			}
			return base.ResolveReference(ref).String()
		}
	}
	return ""
}

// crawl is the heuristic fallback: links on the root page plus guessable
// resource paths, kept when they answer with JSON.
func (d *Discoverer) crawl(ctx context.Context, baseURL string) []apiagent.Endpoint {
	root, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}
	origin := root.Scheme + "://" + root.Host

	candidates := make([]string, 0, len(guessablePaths)+8)
	seen := make(map[string]struct{})
	add := func(path string) {
		if path == "" {
			return
		}
		if _, dup := seen[path]; dup {
			return
		}
		seen[path] = struct{}{}
		candidates = append(candidates, path)
	}

	// Links on the root page come first: they are declared, not guessed.
	if body, contentType, err := d.get(ctx, baseURL); err == nil {
		if strings.Contains(contentType, "text/html") {
			for _, m := range htmlLinkPattern.FindAllStringSubmatch(string(body), 32) {
				add(m[1])
			}
		} else if strings.Contains(contentType, "application/json") {
			// A JSON root is itself a readable resource.
			add(pathOrRoot(root.Path))
		}
	}
	for _, path := range guessablePaths {
		add(path)
	}

	var endpoints []apiagent.Endpoint
	for _, path := range candidates {
		body, contentType, err := d.get(ctx, origin+path)
		if err != nil {
			continue
		}
		if !looksLikeJSON(contentType, body) {
			continue
		}
		endpoints = append(endpoints, apiagent.Endpoint{
			Method:      http.MethodGet,
			Path:        path,
			Description: "crawled resource",
		})
	}
	return endpoints
}

func pathOrRoot(path string) string {
	if path == "" {
		return "/"
	}
	return path
}

// PathTokenRanker is the default endpoint ranker: token overlap between
// the question and the endpoint's path and description.
type PathTokenRanker struct{}

// Score implements EndpointRanker.
func (PathTokenRanker) Score(question string, endpoint apiagent.Endpoint) float64 {
	if question == "" {
		return 0
	}
	words := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(question)) {
		words[strings.Trim(w, ".,!?")] = struct{}{}
	}

	var score float64
	for _, segment := range strings.FieldsFunc(strings.ToLower(endpoint.Path), func(r rune) bool {
		return r == '/' || r == '{' || r == '}' || r == '-' || r == '_'
	}) {
		if _, ok := words[segment]; ok {
			score += 2
			continue
		}
		if _, ok := words[singular(segment)]; ok {
			score += 2
			continue
		}
		for w := range words {
			if singular(w) == singular(segment) {
				score += 2
				break
			}
		}
	}
	for _, w := range strings.Fields(strings.ToLower(endpoint.Description)) {
		if _, ok := words[w]; ok {
			score += 0.5
		}
	}
	return score
}

func singular(w string) string {
	if len(w) > 3 && strings.HasSuffix(w, "s") && !strings.HasSuffix(w, "ss") {
		return w[:len(w)-1]
	}
	return w
}
