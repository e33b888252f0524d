package cmd

import (
	"context"
	"errors"
	"time"

	"jobtracker/internal/models"
	"jobtracker/internal/view"

	"github.com/spf13/cobra"
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new job",
	Long: `Create a new job with status "pending".

Example:
  jobsctl create --title "Rig A" --client "Acme" --date 2024-01-15`,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		title, _ := flags.GetString("title")
		clientName, _ := flags.GetString("client")
		date, _ := flags.GetString("date")

		if title == "" {
			return fail(cmd, errors.New("--title is required"))
		}
		if clientName == "" {
			return fail(cmd, errors.New("--client is required"))
		}
		if date == "" {
			date = time.Now().Format(models.DateLayout)
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		ctrl := view.NewController(newClient(), nil)
		ctrl.UpdateDraft(view.Draft{Title: title, Client: clientName, Date: date})
		if err := ctrl.SubmitCreate(ctx); err != nil {
			return fail(cmd, err)
		}

		jobs := ctrl.State().Jobs
		job := jobs[len(jobs)-1]
		cmd.Printf("✓ Job created!\nID: %s\nTitle: %s\nDate: %s\n", job.ID, job.Title, job.Date)
		return nil
	},
}

func init() {
	flags := createCmd.Flags()
	flags.String("title", "", "Job title (required)")
	flags.String("client", "", "Client name (required)")
	flags.String("date", "", "Job date, YYYY-MM-DD (default today)")

	rootCmd.AddCommand(createCmd)
}
