package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/sourcequery/domain/query"
	"github.com/felixgeelhaar/sourcequery/interfaces/presenter"
)

// newAPICmd creates the api command.
func (a *App) newAPICmd() *cobra.Command {
	var baseURL string

	cmd := &cobra.Command{
		Use:   "api [question]",
		Short: "Answer a question against an HTTP API",
		Long: `Answer a natural-language question against an HTTP API.

Endpoints are discovered at run time from an OpenAPI document when one is
published, or by heuristic crawling otherwise. Only GET calls are ever
made. Credentials come from configuration; a detected auth scheme without
matching credentials fails the run before any authenticated call.

Examples:
  sourcequery api --base-url https://api.example.com "which repos gained stars this month"
  sourcequery api --base-url https://api.example.com --format markdown "list open incidents"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runAPI(cmd.Context(), args[0], baseURL)
		},
	}

	cmd.Flags().StringVar(&baseURL, "base-url", "", "API base URL (overrides config)")
	return cmd
}

func (a *App) runAPI(ctx context.Context, question, baseURL string) error {
	settings, err := a.loadSettings()
	if err != nil {
		return err
	}
	if baseURL != "" {
		settings.APIBaseURL = baseURL
	}
	if settings.APIBaseURL == "" {
		return fmt.Errorf("no API base URL: set --base-url or SOURCEQUERY_API_BASE_URL")
	}

	pres, err := presenter.ForFormat(a.format)
	if err != nil {
		return err
	}

	req, err := query.NewAPIRequest(question, settings.APIBaseURL)
	if err != nil {
		return err
	}

	runner, err := buildAPIRunner(settings)
	if err != nil {
		return err
	}

	result := runner.Run(ctx, req)
	if err := pres.Present(a.stdout, result); err != nil {
		return err
	}
	if result.Failure != nil {
		return fmt.Errorf("run failed: %s", result.Failure.Kind)
	}
	return nil
}
