package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/appreg/internal/client"
)

var showCmd = &cobra.Command{
	Use:     "show <id>",
	Short:   "Show an application and its parameter schema",
	GroupID: "applications",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := registryClient.GetApplication(context.Background(), args[0])
		if client.IsNotFound(err) {
			return fmt.Errorf("application %s not found", args[0])
		}
		if err != nil {
			return fmt.Errorf("getting application: %w", err)
		}
		if jsonOutput {
			return printJSON(app)
		}
		printApplication(os.Stdout, app)
		return nil
	},
}
