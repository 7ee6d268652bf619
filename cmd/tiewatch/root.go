package main

import (
	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "tiewatch",
	Short: "TIE reputation change watcher",
	Long: `tiewatch subscribes to TIE reputation change events on the message
fabric, normalizes them, and fans them out to the configured sinks:
structured logs, a Redis latest-reputation cache, a PostgreSQL change
history, and an OpenSearch index.`,
	Version:      "0.1.0",
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default: ./config.yaml, /etc/tiewatch/config.yaml)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
}
