package cmd

import (
	"errors"
	"fmt"
	"os"

	"jobtracker/internal/client"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "jobsctl",
	Short: "jobsctl is a command line tool for the production job tracker",
	Long: `jobsctl talks to the job tracker HTTP API.

Common workflows:

  List jobs, optionally filtered by title or client:
    jobsctl list --filter acme

  Sign in with a Google access token (prints the session id):
    jobsctl login --token ya29....

  Create and delete jobs:
    jobsctl create --title "Rig A" --client "Acme" --date 2024-01-15
    jobsctl delete <job-id>

Configuration:
  JOBS_URL      API endpoint (default: http://localhost:8080)
  JOBS_SESSION  Session id returned by "jobsctl login"`,
	// ошибки печатает fail, cobra только возвращает их из Execute
	SilenceErrors: true,
	SilenceUsage:  true,
}

func Execute() error {
	return rootCmd.Execute()
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.SetConfigName(".jobsctl")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("JOBS")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func newClient() *client.JobsClient {
	return client.NewJobsClient(viper.GetString("url"), viper.GetString("session"))
}

// fail печатает ошибку в едином формате и возвращает ее, чтобы jobsctl завершился с кодом 1.
func fail(cmd *cobra.Command, err error) error {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		cmd.Printf("Error (%d): %s\n", apiErr.StatusCode, apiErr.Message)
		return err
	}
	cmd.Printf("Error: %v\n", err)
	return err
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.jobsctl.yaml)")

	rootCmd.PersistentFlags().String("url", "http://localhost:8080", "Job tracker API URL")
	_ = viper.BindPFlag("url", rootCmd.PersistentFlags().Lookup("url"))

	rootCmd.PersistentFlags().StringP("session", "s", "", "Session id for write operations")
	_ = viper.BindPFlag("session", rootCmd.PersistentFlags().Lookup("session"))
}
