package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/sourcequery/domain/query"
	"github.com/felixgeelhaar/sourcequery/interfaces/presenter"
)

// newDBCmd creates the db command.
func (a *App) newDBCmd() *cobra.Command {
	var databaseURL string

	cmd := &cobra.Command{
		Use:   "db [question]",
		Short: "Answer a question against a SQL database",
		Long: `Answer a natural-language question against a SQL database.

The database is introspected at run time; no schema knowledge is
configured up front. The generated statement must pass a read-only safety
gate before it executes.

Examples:
  sourcequery db --url postgres://localhost/shop "how many orders shipped last week"
  sourcequery db --url sqlite://data.db --format json "which product sells best"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runDB(cmd.Context(), args[0], databaseURL)
		},
	}

	cmd.Flags().StringVar(&databaseURL, "url", "", "Database connection URL (overrides config)")
	return cmd
}

func (a *App) runDB(ctx context.Context, question, databaseURL string) error {
	settings, err := a.loadSettings()
	if err != nil {
		return err
	}
	if databaseURL != "" {
		settings.DatabaseURL = databaseURL
	}
	if settings.DatabaseURL == "" {
		return fmt.Errorf("no database URL: set --url or SOURCEQUERY_DATABASE_URL")
	}

	pres, err := presenter.ForFormat(a.format)
	if err != nil {
		return err
	}

	req, err := query.NewDatabaseRequest(question, settings.DatabaseURL)
	if err != nil {
		return err
	}

	runner, err := buildDatabaseRunner(settings)
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
