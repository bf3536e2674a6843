package main

import (
	"fmt"
	"log/slog"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"

	"github.com/mirrorgram/mirrorgram/pkg/app"
)

// program adapts the daemon to the system service manager's lifecycle.
type program struct {
	configPath string
	errCh      chan error
}

func (p *program) Start(service.Service) error {
	go func() {
		p.errCh <- app.Run(app.RunParams{
			ConfigPath: p.configPath,
			Version:    version,
			Commit:     commit,
			Date:       date,
			LogLevel:   slog.LevelInfo,
		})
	}()
	return nil
}

func (p *program) Stop(service.Service) error {
	// app.Run exits on SIGTERM, which the service manager sends; nothing
	// extra to tear down here.
	return nil
}

func serviceCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:       "service [install|uninstall|start|stop|run]",
		Short:     "Manage mirrorgram as a system service",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"install", "uninstall", "start", "stop", "run"},
		RunE: func(_ *cobra.Command, args []string) error {
			if configPath == "" {
				resolved, err := resolveConfigPath()
				if err != nil {
					return err
				}
				configPath = resolved
			}

			prg := &program{configPath: configPath, errCh: make(chan error, 1)}
			svc, err := service.New(prg, &service.Config{
				Name:        "mirrorgram",
				DisplayName: "mirrorgram",
				Description: "Duplicates Telegram chats and forum topics between chats",
				Arguments:   []string{"service", "run", "--config", configPath},
			})
			if err != nil {
				return err
			}

			action := args[0]
			if action == "run" {
				return svc.Run()
			}
			if err := service.Control(svc, action); err != nil {
				return err
			}
			fmt.Printf("Service %s: done\n", action)
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")
	return cmd
}
