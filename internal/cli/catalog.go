package cli

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"DataLink.piwebapi/internal/config"
)

func newCatalogCmd(a *cliApp) *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "Print the device catalog and previous ranges as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.catalog
			if path == "" {
				path = a.getenv("DATALINK_CATALOG")
			}
			cat, err := config.LoadCatalog(path)
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(a.stdout)
			enc.SetIndent(2)
			if err := enc.Encode(cat); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}

func newServeCmd(a *cliApp) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			built, err := a.app(ctx)
			if err != nil {
				return err
			}
			return built.Serve(ctx)
		},
	}
}
