package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"jobtracker/internal/view"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List jobs, newest date first",
	RunE: func(cmd *cobra.Command, args []string) error {
		filter, _ := cmd.Flags().GetString("filter")

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		ctrl := view.NewController(newClient(), nil)
		if err := ctrl.Load(ctx); err != nil {
			return fail(cmd, err)
		}
		ctrl.SetFilter(filter)

		jobs := ctrl.Visible()
		if len(jobs) == 0 {
			cmd.Println("No jobs found")
			return nil
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tTITLE\tCLIENT\tDATE\tSTATUS\tEQUIPMENT")
		for _, j := range jobs {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\n", j.ID, j.Title, j.Client, j.Date, j.Status, j.EquipmentCount)
		}
		return tw.Flush()
	},
}

func init() {
	listCmd.Flags().StringP("filter", "f", "", "Case-insensitive title or client filter")
	rootCmd.AddCommand(listCmd)
}
