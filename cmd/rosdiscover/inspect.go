package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/appreg/internal/discovery"
)

var topicsCmd = &cobra.Command{
	Use:     "topics",
	Short:   "List topics that are not part of an action",
	GroupID: "inspect",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return listEntities(func(ctx context.Context, e *discovery.Enumerator) ([]discovery.Entity, error) {
			return e.ListTopics(ctx)
		})
	},
}

var actionsCmd = &cobra.Command{
	Use:     "actions",
	Short:   "List action servers",
	GroupID: "inspect",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return listEntities(func(ctx context.Context, e *discovery.Enumerator) ([]discovery.Entity, error) {
			return e.ListActions(ctx)
		})
	},
}

var servicesCmd = &cobra.Command{
	Use:     "services",
	Short:   "List services and their types",
	GroupID: "inspect",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return listEntities(func(ctx context.Context, e *discovery.Enumerator) ([]discovery.Entity, error) {
			ents, failed, err := e.ListServices(ctx)
			for _, f := range failed {
				fmt.Fprintf(os.Stderr, "warning: %v\n", f)
			}
			return ents, err
		})
	},
}

func listEntities(list func(context.Context, *discovery.Enumerator) ([]discovery.Entity, error)) error {
	g, err := openGraph(cfg)
	if err != nil {
		return err
	}
	defer g.Close()

	ents, err := list(context.Background(), g.enum)
	if err != nil {
		return err
	}
	if ents == nil {
		ents = []discovery.Entity{}
	}
	if jsonOutput {
		return printJSON(ents)
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tTYPE")
	for _, e := range ents {
		fmt.Fprintf(w, "%s\t%s\n", e.Name, e.Type)
	}
	return w.Flush()
}
