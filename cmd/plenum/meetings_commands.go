package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"plenum/internal/api"
	"plenum/internal/client"
	"plenum/internal/config"
	"plenum/internal/meetingcache"
)

func newMeetingsCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var offset int

	meetingsCmd := &cobra.Command{
		Use:   "meetings",
		Short: "List recorded and live meetings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(cfg *config.Config, apiClient *client.Client) error {
				return runMeetingsList(cmd, ctx, apiClient, limit, offset)
			})
		},
	}

	meetingsCmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of meetings to list")
	meetingsCmd.Flags().IntVar(&offset, "offset", 0, "Number of meetings to skip")

	meetingsCmd.AddCommand(newMeetingsLiveCommand(ctx))
	meetingsCmd.AddCommand(newMeetingsShowCommand(ctx))

	return meetingsCmd
}

func runMeetingsList(cmd *cobra.Command, ctx *commandContext, apiClient *client.Client, limit, offset int) error {
	out := cmd.OutOrStdout()

	list, err := apiClient.Meetings(cmd.Context(), limit, offset)
	if err != nil {
		if !client.IsUnavailable(err) {
			return err
		}
		// Backend down: fall back to the local metadata cache.
		cache, cacheErr := ctx.openCache()
		if cacheErr != nil || cache == nil {
			return err
		}
		defer cache.Close()
		cached, cacheErr := cache.Meetings(cmd.Context(), limit, offset)
		if cacheErr != nil || len(cached) == 0 {
			return err
		}
		fmt.Fprintln(out, "Backend unreachable; showing cached meetings")
		printMeetingTable(cmd, cached)
		return nil
	}

	if cache, cacheErr := ctx.openCache(); cacheErr == nil && cache != nil {
		defer cache.Close()
		if err := cache.UpsertMeetings(cmd.Context(), list.Meetings); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warn: update meeting cache: %v\n", err)
		}
	}

	if len(list.Meetings) == 0 {
		fmt.Fprintln(out, "No meetings found")
		return nil
	}
	printMeetingTable(cmd, list.Meetings)
	if list.Total > len(list.Meetings) {
		fmt.Fprintf(out, "Showing %d of %d meetings\n", len(list.Meetings), list.Total)
	}
	return nil
}

func newMeetingsLiveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "live",
		Short: "List meetings that are currently live",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(_ *config.Config, apiClient *client.Client) error {
				meetings, err := apiClient.LiveMeetings(cmd.Context())
				if err != nil {
					return err
				}
				if len(meetings) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No live meetings")
					return nil
				}
				printMeetingTable(cmd, meetings)
				return nil
			})
		},
	}
}

func newMeetingsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <meeting-id>",
		Short: "Show one meeting in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseMeetingID(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(_ *config.Config, apiClient *client.Client) error {
				meeting, err := apiClient.Meeting(cmd.Context(), id)
				if err != nil {
					if client.IsUnavailable(err) {
						if cached := lookupCachedMeeting(cmd, ctx, id); cached != nil {
							fmt.Fprintln(cmd.OutOrStdout(), "Backend unreachable; showing cached meeting")
							printMeetingDetail(cmd, cached)
							return nil
						}
					}
					return err
				}
				printMeetingDetail(cmd, meeting)
				return nil
			})
		},
	}
}

func lookupCachedMeeting(cmd *cobra.Command, ctx *commandContext, id int64) *api.Meeting {
	cache, err := ctx.openCache()
	if err != nil || cache == nil {
		return nil
	}
	defer cache.Close()
	meeting, err := cache.Meeting(cmd.Context(), id)
	if err != nil {
		if !errors.Is(err, meetingcache.ErrNotFound) {
			fmt.Fprintf(cmd.ErrOrStderr(), "warn: read meeting cache: %v\n", err)
		}
		return nil
	}
	return meeting
}

func printMeetingTable(cmd *cobra.Command, meetings []api.Meeting) {
	rows := make([][]string, 0, len(meetings))
	for _, meeting := range meetings {
		rows = append(rows, []string{
			strconv.FormatInt(meeting.ID, 10),
			meeting.Title,
			meeting.Committee,
			meeting.Status,
			formatMeetingTime(meeting.StartedAt),
		})
	}
	table := renderTable(
		[]string{"ID", "Title", "Committee", "Status", "Started"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
	)
	fmt.Fprintln(cmd.OutOrStdout(), table)
}

func printMeetingDetail(cmd *cobra.Command, meeting *api.Meeting) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Meeting #%d: %s\n", meeting.ID, meeting.Title)
	if meeting.Committee != "" {
		fmt.Fprintf(out, "  Committee: %s\n", meeting.Committee)
	}
	if meeting.ChannelCode != "" {
		fmt.Fprintf(out, "  Channel:   %s\n", meeting.ChannelCode)
	}
	fmt.Fprintf(out, "  Status:    %s\n", meeting.Status)
	if meeting.VideoURL != "" {
		fmt.Fprintf(out, "  Video:     %s\n", meeting.VideoURL)
	}
	if meeting.StartedAt != nil {
		fmt.Fprintf(out, "  Started:   %s\n", formatMeetingTime(meeting.StartedAt))
	}
	if meeting.EndedAt != nil {
		fmt.Fprintf(out, "  Ended:     %s\n", formatMeetingTime(meeting.EndedAt))
	}
}

func formatMeetingTime(value *time.Time) string {
	if value == nil {
		return ""
	}
	return value.Local().Format("2006-01-02 15:04")
}

func parseMeetingID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid meeting id %q", arg)
	}
	return id, nil
}
