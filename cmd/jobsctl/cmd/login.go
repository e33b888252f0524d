package cmd

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Exchange a Google access token for an API session",
	RunE: func(cmd *cobra.Command, args []string) error {
		token, _ := cmd.Flags().GetString("token")
		if token == "" {
			return fail(cmd, errors.New("--token is required"))
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		st, err := newClient().SignIn(ctx, token)
		if err != nil {
			return fail(cmd, err)
		}
		cmd.Printf("✓ Signed in\nSession: %s\n", st.SessionID)
		cmd.Println("Export it as JOBS_SESSION to authorize write commands.")
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign the current session out",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		if err := newClient().SignOut(ctx); err != nil {
			return fail(cmd, err)
		}
		cmd.Println("✓ Signed out")
		return nil
	},
}

func init() {
	loginCmd.Flags().StringP("token", "t", "", "Google OAuth access token (required)")
	rootCmd.AddCommand(loginCmd, logoutCmd)
}
