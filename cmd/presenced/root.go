package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nomis52/presenced/buildinfo"
	"github.com/nomis52/presenced/config"
)

const defaultAddr = "127.0.0.1:8765"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "presenced",
		Short: "Discord rich presence daemon",
		Long: `presenced keeps a Discord rich presence connection and lets local
programs connect, disconnect and change the displayed activity over a small
HTTP API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newRunCmd(),
		newSendCmd(),
		newStatusCmd(),
		newValidateCmd(),
		newVersionCmd(),
	)
	return root
}

func newValidateCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:     "validate",
		Short:   "Load and validate a configuration file",
		Example: `  presenced validate -c /etc/presenced/config.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := config.LoadConfig(configPath); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Configuration validation successful: %s\n", configPath)
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), buildinfo.Get().String())
		},
	}
}
