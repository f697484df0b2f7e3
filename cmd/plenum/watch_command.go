package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"plenum/internal/api"
	"plenum/internal/client"
	"plenum/internal/config"
	"plenum/internal/logging"
	"plenum/internal/notifications"
	"plenum/internal/watch"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch channel status and push notifications on transitions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(cfg *config.Config, apiClient *client.Client) error {
				return runWatch(cmd, cfg, apiClient, quiet)
			})
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Suppress per-change terminal output")
	return cmd
}

func runWatch(cmd *cobra.Command, cfg *config.Config, source *client.Client, quiet bool) error {
	signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	service := notifications.NewService(cfg)
	dispatcher := notifications.NewDispatcher(cfg, service, logger)

	manager, err := watch.NewManager(cfg, source, dispatcher, logger)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !quiet {
		manager.OnChange(func(changes []api.StatusChange) {
			stamp := time.Now().Format("15:04:05")
			for _, change := range changes {
				fmt.Fprintf(out, "%s %s: %s -> %s\n", stamp, change.Code, change.OldStatus, change.NewStatus)
			}
		})
	}

	if err := manager.Start(signalCtx); err != nil {
		return err
	}
	defer manager.Stop()

	fmt.Fprintf(out, "Watching %s (session %s); press Ctrl-C to stop\n", cfg.API.BaseURL, manager.SessionID())

	<-signalCtx.Done()
	fmt.Fprintln(out, "Watcher shutting down")
	return nil
}
