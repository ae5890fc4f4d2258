package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/appreg/internal/model"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Short:   "List registered applications",
	GroupID: "applications",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		category, _ := cmd.Flags().GetString("category")

		apps, err := registryClient.ListApplications(context.Background())
		if err != nil {
			return fmt.Errorf("listing applications: %w", err)
		}
		apps = filterByCategory(apps, category)

		if jsonOutput {
			return printJSON(apps)
		}
		printApplicationTable(apps)
		return nil
	},
}

func init() {
	listCmd.Flags().String("category", "", "only show applications in this category (Topics, Actions, Services)")
}

func filterByCategory(apps []*model.Application, category string) []*model.Application {
	if category == "" {
		return apps
	}
	out := make([]*model.Application, 0, len(apps))
	for _, a := range apps {
		if a.Category == category {
			out = append(out, a)
		}
	}
	return out
}
