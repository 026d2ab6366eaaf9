// Package cmd implements netstackd's CLI commands using cobra.
package cmd

import (
	"github.com/spf13/cobra"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:     "netstackd",
	Short:   "Demo server and client for the Teeworlds/DDNet network stack",
	Version: "0.1.0",
}

// Execute adds all child commands to the root command and runs it. Called
// once by main.main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "",
		"config file path (YAML); falls back to built-in defaults and NETSTACKD_ env vars")
}
