package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/telhawk-systems/tie-bridge/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage tiewatch configuration",
}

var configInitPath string

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := config.WriteDefault(configInitPath); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote default config to %s\n", configInitPath)
		return nil
	},
}

func init() {
	configInitCmd.Flags().StringVar(&configInitPath, "path", "config.yaml", "where to write the config file")
	configCmd.AddCommand(configInitCmd)
}
