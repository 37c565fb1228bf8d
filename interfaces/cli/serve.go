package cli

import (
	"context"

	"github.com/spf13/cobra"

	httpapi "github.com/felixgeelhaar/sourcequery/interfaces/api"
)

// newServeCmd creates the serve command.
func (a *App) newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the query pipelines over HTTP",
		Long: `Serve the query pipelines over HTTP.

POST /v1/queries/database runs the database pipeline, POST /v1/queries/api
runs the API pipeline. A failed run answers 422 with the classified
failure.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "Listen address")
	return cmd
}

func (a *App) serve(ctx context.Context, addr string) error {
	settings, err := a.loadSettings()
	if err != nil {
		return err
	}

	dbRunner, err := buildDatabaseRunner(settings)
	if err != nil {
		return err
	}
	apiRunner, err := buildAPIRunner(settings)
	if err != nil {
		return err
	}

	server := httpapi.NewServer(dbRunner, apiRunner)
	return server.ListenAndServe(ctx, addr)
}
