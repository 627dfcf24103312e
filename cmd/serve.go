package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/nielsole/ppe_tile/ingest"
	"github.com/nielsole/ppe_tile/params"
	"github.com/nielsole/ppe_tile/server"
	"github.com/nielsole/ppe_tile/store"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve tiles and accept feature submissions",
	Long: `Serves GET /tiles/{z}/{x}/{y}.png and POST /features.

Submissions are rejected with 403 Forbidden unless they carry the configured
token, either as "Authorization: Bearer <token>" or as ?api_token=<token>.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := loadConfig()
		if err != nil {
			return err
		}
		config.Address = viper.GetString("address")
		config.RenderWorkers = viper.GetInt("workers")
		config.Token = viper.GetString("token")
		config.ShutdownTimeout = viper.GetDuration("shutdown-timeout")

		features, err := store.Open(config.DataPath, store.WithResolutionFilter(config.ResolutionFilter()))
		if err != nil {
			return err
		}
		defer features.Close()

		ingester, err := ingest.NewIngester(features, config.DedupeCacheSize)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return server.NewTileServer(config, features, ingester).Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	defaults := params.DefaultServerConfig()
	flags := serveCmd.Flags()
	flags.String("address", defaults.Address, "HTTP address to listen on")
	flags.Int("workers", defaults.RenderWorkers, "Tiles rendered concurrently, 0 means one per CPU")
	flags.String("token", "", "Token required to submit features, empty allows everyone")
	flags.Duration("shutdown-timeout", defaults.ShutdownTimeout, "Time given to open requests on shutdown")
}
