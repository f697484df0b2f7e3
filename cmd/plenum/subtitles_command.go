package main

import (
	"fmt"
	"io"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"plenum/internal/api"
	"plenum/internal/client"
	"plenum/internal/config"
	"plenum/internal/logging"
	"plenum/internal/subtitles"
)

func newSubtitlesCommand(ctx *commandContext) *cobra.Command {
	var follow bool

	cmd := &cobra.Command{
		Use:   "subtitles <meeting-id>",
		Short: "Print a meeting's subtitles, optionally following the live stream",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseMeetingID(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(cfg *config.Config, apiClient *client.Client) error {
				if follow {
					return followSubtitles(cmd, cfg, id)
				}
				return printStoredSubtitles(cmd, apiClient, id)
			})
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Stay connected and print subtitles as they arrive")
	return cmd
}

func printStoredSubtitles(cmd *cobra.Command, apiClient *client.Client, id int64) error {
	items, err := apiClient.MeetingSubtitles(cmd.Context(), id)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(items) == 0 {
		fmt.Fprintln(out, "No subtitles recorded")
		return nil
	}
	for _, item := range items {
		fmt.Fprintln(out, formatSubtitleLine(item))
	}
	return nil
}

func followSubtitles(cmd *cobra.Command, cfg *config.Config, id int64) error {
	signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	out := cmd.OutOrStdout()

	// The update callback fires for every buffer change; track the highest
	// printed subtitle id so each finalized line appears exactly once.
	var mu sync.Mutex
	var lastPrinted int64
	var lastInterim string

	var stream *subtitles.Client
	stream, err = subtitles.NewClient(cfg.API.WSBaseURL, id, subtitles.Options{
		BufferSize:     cfg.Subtitles.BufferSize,
		ReconnectDelay: time.Duration(cfg.Subtitles.ReconnectDelay) * time.Millisecond,
		Logger:         logger,
		OnUpdate: func() {
			mu.Lock()
			defer mu.Unlock()
			printed := printNewSubtitles(out, stream.Subtitles(), lastPrinted)
			if printed != lastPrinted {
				lastPrinted = printed
				lastInterim = ""
			}
			if interim := stream.Interim(); interim != "" && interim != lastInterim {
				fmt.Fprintf(out, "%s … %s\n", formatClock(time.Now()), interim)
				lastInterim = interim
			}
		},
	})
	if err != nil {
		return err
	}

	if err := stream.Start(signalCtx); err != nil {
		return err
	}
	defer stream.Stop()

	fmt.Fprintf(out, "Following meeting #%d; press Ctrl-C to stop\n", id)
	<-signalCtx.Done()
	return nil
}

// printNewSubtitles writes every line newer than lastPrinted and returns the
// highest printed id. items arrive most recent first (the stream client's
// rendering order), so iterate in reverse to print chronologically.
func printNewSubtitles(out io.Writer, items []api.Subtitle, lastPrinted int64) int64 {
	for i := len(items) - 1; i >= 0; i-- {
		item := items[i]
		if item.ID <= lastPrinted {
			continue
		}
		fmt.Fprintln(out, formatSubtitleLine(item))
		lastPrinted = item.ID
	}
	return lastPrinted
}

func formatSubtitleLine(item api.Subtitle) string {
	stamp := formatOffset(item.StartTime)
	if item.Speaker != "" {
		return fmt.Sprintf("[%s] %s: %s", stamp, item.Speaker, item.Text)
	}
	return fmt.Sprintf("[%s] %s", stamp, item.Text)
}

func formatOffset(seconds float64) string {
	total := int(seconds)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

func formatClock(value time.Time) string {
	return value.Format("15:04:05")
}
