package apirepo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// TokenProvider exchanges oauth2 client credentials for access tokens and
// caches them until shortly before expiry. It implements
// apiagent.TokenSource and is safe for concurrent use.
type TokenProvider struct {
	http *http.Client

	mu    sync.Mutex
	cache map[string]cachedToken

	// now is injected for deterministic expiry tests.
	now func() time.Time
}

type cachedToken struct {
	token     string
	expiresAt time.Time
}

// expirySlack refreshes tokens this long before they actually expire.
const expirySlack = 30 * time.Second

// NewTokenProvider creates an oauth2 token provider.
func NewTokenProvider(timeout time.Duration) *TokenProvider {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &TokenProvider{
		http:  &http.Client{Timeout: timeout},
		cache: make(map[string]cachedToken),
		now:   time.Now,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Error       string `json:"error"`
	ErrorDesc   string `json:"error_description"`
}

func cacheKey(tokenURL, clientID string, scopes []string) string {
	return tokenURL + "|" + clientID + "|" + strings.Join(scopes, " ")
}

// Invalidate implements apiagent.TokenInvalidator: it drops the cached
// token for the exchange so the next AccessToken call performs a fresh
// exchange. A 401 from the target means the token is no longer accepted
// regardless of its recorded expiry.
func (p *TokenProvider) Invalidate(tokenURL, clientID string, scopes []string) {
	p.mu.Lock()
	delete(p.cache, cacheKey(tokenURL, clientID, scopes))
	p.mu.Unlock()
}

// AccessToken implements apiagent.TokenSource using the client-credentials
// grant.
func (p *TokenProvider) AccessToken(tokenURL, clientID, clientSecret string, scopes []string) (string, error) {
	key := cacheKey(tokenURL, clientID, scopes)

	p.mu.Lock()
	if cached, ok := p.cache[key]; ok && p.now().Before(cached.expiresAt) {
		token := cached.token
		p.mu.Unlock()
		return token, nil
	}
	p.mu.Unlock()

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", clientID)
	form.Set("client_secret", clientSecret)
	if len(scopes) > 0 {
		form.Set("scope", strings.Join(scopes, " "))
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.http.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		if tr.ErrorDesc != "" {
			return "", fmt.Errorf("token request failed: %s", tr.ErrorDesc)
		}
		return "", fmt.Errorf("token request returned status %d", resp.StatusCode)
	}
	if tr.AccessToken == "" {
		return "", fmt.Errorf("token response missing access_token")
	}

	if tr.ExpiresIn > 0 {
		p.mu.Lock()
		p.cache[key] = cachedToken{
			token:     tr.AccessToken,
			expiresAt: p.now().Add(time.Duration(tr.ExpiresIn)*time.Second - expirySlack),
		}
		p.mu.Unlock()
	}
	return tr.AccessToken, nil
}
