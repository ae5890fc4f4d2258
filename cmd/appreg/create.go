package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/appreg/internal/model"
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Register an application",
	Long: `Register an application from a JSON document or from flags.

With --file, the document is read from the named file ("-" for stdin) and
flags override its fields. The registry assigns the id.`,
	GroupID: "applications",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := applicationFromFlags(cmd)
		if err != nil {
			return err
		}

		created, err := registryClient.CreateApplication(context.Background(), app)
		if err != nil {
			return fmt.Errorf("creating application: %w", err)
		}
		if jsonOutput {
			return printJSON(created)
		}
		fmt.Printf("Registered %s (%s)\n", created.Name, created.ID)
		return nil
	},
}

func init() {
	createCmd.Flags().StringP("file", "f", "", "read the application from a JSON file (- for stdin)")
	createCmd.Flags().String("name", "", "application name")
	createCmd.Flags().String("category", "", "application category")
	createCmd.Flags().String("description", "", "application description")
	createCmd.Flags().String("binding", "", "application binding")
}

func applicationFromFlags(cmd *cobra.Command) (*model.Application, error) {
	app := &model.Application{}
	if path, _ := cmd.Flags().GetString("file"); path != "" {
		var (
			data []byte
			err  error
		)
		if path == "-" {
			data, err = io.ReadAll(cmd.InOrStdin())
		} else {
			data, err = os.ReadFile(path)
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		if err := json.Unmarshal(data, app); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	for flag, dst := range map[string]*string{
		"name":        &app.Name,
		"category":    &app.Category,
		"description": &app.Description,
		"binding":     &app.Binding,
	} {
		if cmd.Flags().Changed(flag) {
			*dst, _ = cmd.Flags().GetString(flag)
		}
	}
	app.Normalize()
	return app, nil
}
