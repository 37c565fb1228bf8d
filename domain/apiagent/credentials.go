package apiagent

import (
	"encoding/base64"
	"fmt"
	"net/http"

	"github.com/felixgeelhaar/sourcequery/domain/query"
)

// AuthScheme classifies how an API expects callers to authenticate.
type AuthScheme string

const (
	AuthNone   AuthScheme = "none"
	AuthAPIKey AuthScheme = "api_key"
	AuthBearer AuthScheme = "bearer"
	AuthBasic  AuthScheme = "basic"
	AuthOAuth2 AuthScheme = "oauth2"
)

// Injection locates credential material within a request.
type Injection string

const (
	InjectHeader Injection = "header"
	InjectQuery  Injection = "query"
)

// Credentials holds the auth material available to a run. Secrets are kept
// only for the process lifetime and are never logged; log output uses
// Describe.
type Credentials struct {
	Scheme Injection // where api_key material is injected

	// APIKey material. HeaderName defaults to X-API-Key, QueryParam to
	// api_key, depending on Scheme.
	APIKey     string
	HeaderName string
	QueryParam string

	// Bearer token material.
	Token string

	// Basic auth material.
	Username string
	Password string

	// OAuth2 client-credentials material. TokenURL is where the exchange
	// happens; the obtained access token is injected as a bearer token.
	ClientID     string
	ClientSecret string
	TokenURL     string
	Scopes       []string
}

// Describe returns a loggable description that never contains secrets.
func (c Credentials) Describe() string {
	has := func(s string) string {
		if s == "" {
			return "unset"
		}
		return "set"
	}
	return fmt.Sprintf("api_key=%s bearer=%s basic=%s oauth2=%s",
		has(c.APIKey), has(c.Token), has(c.Username), has(c.ClientID))
}

// Decoration applies resolved auth material to an outgoing request.
type Decoration func(*http.Request)

// TokenSource exchanges oauth2 client credentials for an access token.
// The concrete implementation lives in infrastructure.
type TokenSource interface {
	AccessToken(tokenURL, clientID, clientSecret string, scopes []string) (string, error)
}

// TokenInvalidator is implemented by token sources that cache access
// tokens. Invalidate drops the cached token for the given exchange so the
// next AccessToken call reaches the authorization server; callers use it
// when the target rejects a token before its recorded expiry.
type TokenInvalidator interface {
	Invalidate(tokenURL, clientID string, scopes []string)
}

// Resolve maps a detected scheme to a request decoration using the
// available credentials. It fails with query.ErrMissingCredentials when
// the scheme requires material that was not supplied.
func Resolve(scheme AuthScheme, creds Credentials, tokens TokenSource) (Decoration, error) {
	switch scheme {
	case AuthNone, "":
		return func(*http.Request) {}, nil

	case AuthAPIKey:
		if creds.APIKey == "" {
			return nil, fmt.Errorf("%w: api key required", query.ErrMissingCredentials)
		}
		if creds.Scheme == InjectQuery {
			param := creds.QueryParam
			if param == "" {
				param = "api_key"
			}
			key := creds.APIKey
			return func(req *http.Request) {
				q := req.URL.Query()
				q.Set(param, key)
				req.URL.RawQuery = q.Encode()
			}, nil
		}
		header := creds.HeaderName
		if header == "" {
			header = "X-API-Key"
		}
		key := creds.APIKey
		return func(req *http.Request) {
			req.Header.Set(header, key)
		}, nil

	case AuthBearer:
		if creds.Token == "" {
			return nil, fmt.Errorf("%w: bearer token required", query.ErrMissingCredentials)
		}
		token := creds.Token
		return func(req *http.Request) {
			req.Header.Set("Authorization", "Bearer "+token)
		}, nil

	case AuthBasic:
		if creds.Username == "" || creds.Password == "" {
			return nil, fmt.Errorf("%w: username and password required", query.ErrMissingCredentials)
		}
		encoded := base64.StdEncoding.EncodeToString([]byte(creds.Username + ":" + creds.Password))
		return func(req *http.Request) {
			req.Header.Set("Authorization", "Basic "+encoded)
		}, nil

	case AuthOAuth2:
		if creds.ClientID == "" || creds.ClientSecret == "" || creds.TokenURL == "" {
			return nil, fmt.Errorf("%w: oauth2 client id, secret and token URL required", query.ErrMissingCredentials)
		}
		if tokens == nil {
			return nil, fmt.Errorf("%w: no oauth2 token source configured", query.ErrMissingCredentials)
		}
		access, err := tokens.AccessToken(creds.TokenURL, creds.ClientID, creds.ClientSecret, creds.Scopes)
		if err != nil {
			return nil, fmt.Errorf("%w: token exchange: %v", query.ErrMissingCredentials, err)
		}
		return func(req *http.Request) {
			req.Header.Set("Authorization", "Bearer "+access)
		}, nil

	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q", query.ErrMissingCredentials, scheme)
	}
}
