package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teeworlds-go/netstack/internal/appconfig"
	"github.com/teeworlds-go/netstack/internal/applog"
	"github.com/teeworlds-go/netstack/source/client"
)

var dialAddr string

var dialCmd = &cobra.Command{
	Use:   "dial",
	Short: "Run the demo network-stack client against a running server",
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

		c, err := client.Dial(dialAddr, log)
		if err != nil {
			return err
		}
		return c.Run(ctx)
	},
}

func init() {
	dialCmd.Flags().StringVar(&dialAddr, "addr", "127.0.0.1:8303", "server address to dial")
	rootCmd.AddCommand(dialCmd)
}
