package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var cfgPath string

	rootCmd := &cobra.Command{
		Use:          "chatwidget",
		Short:        "Minimal chat widget with an intent-classifying backend",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "",
		"config file (default is $XDG_CONFIG_HOME/chatwidget/config.yaml)")

	rootCmd.AddCommand(newServeCmd(&cfgPath), newChatCmd(&cfgPath))

	return rootCmd
}
