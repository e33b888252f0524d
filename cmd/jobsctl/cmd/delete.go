package cmd

import (
	"context"
	"time"

	"jobtracker/internal/view"

	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete [job_id]",
	Short: "Delete a job and its equipment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		ctrl := view.NewController(newClient(), nil)
		if err := ctrl.Delete(ctx, args[0]); err != nil {
			return fail(cmd, err)
		}
		cmd.Printf("✓ Job %s deleted\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}
