package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/shandysiswandi/gobordereau/internal/app"
)

func newServeCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP extraction service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application := app.New(app.Options{ConfigPath: root.configPath})
			serveErr := application.Serve(cmd.Context())

			ctx, cancel := context.WithTimeout(context.WithoutCancel(cmd.Context()), application.ShutdownTimeout())
			defer cancel()
			application.Stop(ctx)

			return serveErr
		},
	}
}
