package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/felixgeelhaar/sourcequery/application"
	"github.com/felixgeelhaar/sourcequery/domain/apiagent"
	"github.com/felixgeelhaar/sourcequery/infrastructure/apirepo"
	"github.com/felixgeelhaar/sourcequery/infrastructure/config"
	"github.com/felixgeelhaar/sourcequery/infrastructure/dbrepo"
	"github.com/felixgeelhaar/sourcequery/infrastructure/reasoning"
)

// buildProvider creates the configured reasoning provider wrapped with
// bounded retries.
func buildProvider(cfg config.Reasoning) (reasoning.Provider, error) {
	rc := reasoning.Config{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		Timeout: int(cfg.Timeout.Seconds()),
	}

	var inner reasoning.Provider
	switch cfg.Provider {
	case "anthropic":
		inner = reasoning.NewAnthropicProvider(rc)
	case "openai", "":
		inner = reasoning.NewOpenAIProvider(rc)
	case "ollama":
		inner = reasoning.NewOllamaProvider(rc)
	default:
		return nil, fmt.Errorf("unknown reasoning provider %q (anthropic, openai, ollama)", cfg.Provider)
	}

	return reasoning.WithRetry(inner, reasoning.RetryConfig{
		MaxAttempts: cfg.MaxAttempts,
	}), nil
}

// buildDatabaseRunner wires the database pipeline from settings.
func buildDatabaseRunner(settings config.Settings) (*application.DatabaseRunner, error) {
	provider, err := buildProvider(settings.Reasoning)
	if err != nil {
		return nil, err
	}

	connector := func(ctx context.Context, url string, timeout time.Duration) (application.SchemaSource, error) {
		return dbrepo.Connect(ctx, url, timeout)
	}
	return application.NewDatabaseRunner(connector, provider, settings.Limits), nil
}

// buildAPIRunner wires the API pipeline from settings.
func buildAPIRunner(settings config.Settings) (*application.APIRunner, error) {
	provider, err := buildProvider(settings.Reasoning)
	if err != nil {
		return nil, err
	}

	discoverer := apirepo.NewDiscoverer(settings.Limits.HTTPTimeout, nil)
	client := apirepo.NewClient(apirepo.ClientConfig{
		Timeout:     settings.Limits.HTTPTimeout,
		MaxAttempts: settings.Limits.HTTPMaxAttempts,
		RetryDelay:  settings.Limits.HTTPRetryDelay,
	})
	tokens := apirepo.NewTokenProvider(settings.Limits.HTTPTimeout)

	return application.NewAPIRunner(discoverer, client, provider,
		credentialsFrom(settings.Credentials), tokens, settings.Limits), nil
}

// credentialsFrom maps config credential references to the domain type.
func credentialsFrom(c config.Credentials) apiagent.Credentials {
	creds := apiagent.Credentials{
		APIKey:       c.APIKey,
		HeaderName:   c.APIKeyHeader,
		QueryParam:   c.APIKeyQuery,
		Token:        c.BearerToken,
		Username:     c.Username,
		Password:     c.Password,
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		TokenURL:     c.TokenURL,
		Scopes:       c.Scopes,
	}
	if c.APIKeyQuery != "" && c.APIKeyHeader == "" {
		creds.Scheme = apiagent.InjectQuery
	}
	return creds
}
