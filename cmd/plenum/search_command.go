package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"plenum/internal/client"
	"plenum/internal/config"
)

func newSearchCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search subtitle text across all meetings",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.TrimSpace(strings.Join(args, " "))
			return ctx.withClient(func(_ *config.Config, apiClient *client.Client) error {
				resp, err := apiClient.Search(cmd.Context(), query, limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(resp.Results) == 0 {
					fmt.Fprintf(out, "No matches for %q\n", resp.Query)
					return nil
				}
				rows := make([][]string, 0, len(resp.Results))
				for _, result := range resp.Results {
					rows = append(rows, []string{
						strconv.FormatInt(result.MeetingID, 10),
						result.MeetingTitle,
						formatOffset(result.StartTime),
						result.Speaker,
						result.Text,
					})
				}
				table := renderTable(
					[]string{"Meeting", "Title", "At", "Speaker", "Text"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft, alignLeft},
				)
				fmt.Fprintln(out, table)
				if resp.Total > len(resp.Results) {
					fmt.Fprintf(out, "Showing %d of %d matches\n", len(resp.Results), resp.Total)
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of matches to show")
	return cmd
}
