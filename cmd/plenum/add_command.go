package main

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"plenum/internal/api"
	"plenum/internal/client"
	"plenum/internal/config"
)

func newAddCommand(ctx *commandContext) *cobra.Command {
	var committee string
	var channelCode string
	var videoURL string

	cmd := &cobra.Command{
		Use:   "add <title-or-url>",
		Short: "Register a meeting by title or by broadcast page URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			arg := strings.TrimSpace(args[0])
			if arg == "" {
				return errors.New("a meeting title or URL is required")
			}
			return ctx.withClient(func(_ *config.Config, apiClient *client.Client) error {
				var meeting *api.Meeting
				var err error

				if isHTTPURL(arg) {
					meeting, err = apiClient.CreateMeetingFromURL(cmd.Context(), arg)
				} else {
					meeting, err = apiClient.CreateMeeting(cmd.Context(), api.CreateMeetingRequest{
						Title:       arg,
						Committee:   strings.TrimSpace(committee),
						ChannelCode: strings.TrimSpace(channelCode),
						VideoURL:    strings.TrimSpace(videoURL),
					})
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Registered meeting #%d (%s)\n", meeting.ID, meeting.Title)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&committee, "committee", "", "Committee name")
	cmd.Flags().StringVar(&channelCode, "channel", "", "Broadcast channel code")
	cmd.Flags().StringVar(&videoURL, "video-url", "", "Recorded video URL")
	return cmd
}

func isHTTPURL(value string) bool {
	parsed, err := url.Parse(value)
	if err != nil {
		return false
	}
	return (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != ""
}
