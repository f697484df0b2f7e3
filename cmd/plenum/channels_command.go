package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"plenum/internal/api"
	"plenum/internal/client"
	"plenum/internal/config"
)

func newChannelsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "channels",
		Short: "Show the current status of every broadcast channel",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(_ *config.Config, apiClient *client.Client) error {
				channels, err := apiClient.ChannelStatus(cmd.Context())
				if err != nil {
					return err
				}
				if len(channels) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No channels reported")
					return nil
				}
				table := renderTable(
					[]string{"Code", "Name", "Status", "Detail", "STT"},
					buildChannelRows(channels),
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}
}

func buildChannelRows(channels []api.Channel) [][]string {
	rows := make([][]string, 0, len(channels))
	for _, channel := range channels {
		rows = append(rows, []string{
			channel.Code,
			channel.Name,
			channel.LiveStatus.String(),
			channel.StatusText,
			yesNo(channel.STTRunning),
		})
	}
	return rows
}
