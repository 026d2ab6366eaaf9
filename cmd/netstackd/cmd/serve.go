package cmd

import (
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/teeworlds-go/netstack/internal/appconfig"
	"github.com/teeworlds-go/netstack/internal/applog"
	"github.com/teeworlds-go/netstack/source/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the demo network-stack server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := appconfig.Load(configFile)
		if err != nil {
			return err
		}
		log, err := applog.New(cfg.Log)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		srv := server.New(cfg, log, prometheus.DefaultRegisterer)
		return srv.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
