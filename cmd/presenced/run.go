package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nomis52/presenced/buildinfo"
	"github.com/nomis52/presenced/server"
)

func newRunCmd() *cobra.Command {
	var (
		configPath string
		listenAddr string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the presence daemon",
		Long: `Start the presence daemon. SIGINT or SIGTERM stops the HTTP listener,
disconnects from Discord and exits.`,
		Example: `  presenced run -c /etc/presenced/config.yaml
  presenced run -c config.yaml --listen 127.0.0.1:9000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts []server.Option
			if listenAddr != "" {
				opts = append(opts, server.WithListenAddr(listenAddr))
			}

			srv, err := server.New(configPath, opts...)
			if err != nil {
				return fmt.Errorf("failed to create server: %w", err)
			}

			props := buildinfo.Get()
			srv.Logger().Info("presenced started",
				"version", props.Version,
				"build_time", props.BuildTime,
				"git_commit", props.GitCommit,
				"config_path", configPath,
			)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return srv.Run(ctx)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file")
	cmd.Flags().StringVar(&listenAddr, "listen", "", "override the listener address")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}
