// Package main is the entry point for jobsctl, the terminal client of the job tracker API.
package main

import (
	"os"

	"jobtracker/cmd/jobsctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
