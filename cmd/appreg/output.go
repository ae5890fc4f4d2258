package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/alfredjeanlab/appreg/internal/model"
	"github.com/alfredjeanlab/appreg/internal/ui"
)

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func printApplication(w io.Writer, app *model.Application) {
	fmt.Fprintf(w, "ID:          %s\n", app.ID)
	fmt.Fprintf(w, "Name:        %s\n", app.Name)
	fmt.Fprintf(w, "Category:    %s\n", app.Category)
	fmt.Fprintf(w, "Binding:     %s\n", app.Binding)
	if app.Description != "" {
		fmt.Fprintf(w, "Description: %s\n", app.Description)
	}
	if len(app.Endpoint) > 0 {
		parts := make([]string, len(app.Endpoint))
		for i, f := range app.Endpoint {
			parts[i] = fmt.Sprintf("%s=%v", f.Name, f.Value)
		}
		fmt.Fprintf(w, "Endpoint:    %s\n", strings.Join(parts, ", "))
	}
	if !app.CreatedAt.IsZero() {
		fmt.Fprintf(w, "Created At:  %s\n", app.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	printSchemaSection(w, "Input", app.Parameters.Input)
	printSchemaSection(w, "Output", app.Parameters.Output)
}

func printSchemaSection(w io.Writer, title string, nodes model.SchemaList) {
	if len(nodes) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s:\n", ui.RenderAccent(title))
	for _, n := range nodes {
		printSchemaNode(w, n, 1)
	}
}

// printSchemaNode prints one node per line, indented by depth.
func printSchemaNode(w io.Writer, n *model.SchemaNode, depth int) {
	indent := strings.Repeat("  ", depth)
	name := n.Name
	if name == "" {
		name = "[]"
	}
	switch {
	case n.Kind.IsComposite():
		fmt.Fprintf(w, "%s%s %s\n", indent, name, ui.RenderMuted(n.Kind.String()))
		for _, c := range n.Children {
			printSchemaNode(w, c, depth+1)
		}
	default:
		value, _ := json.Marshal(n.Value)
		fmt.Fprintf(w, "%s%s %s = %s\n", indent, name, ui.RenderMuted(n.Kind.String()), value)
	}
}

func printApplicationTable(apps []*model.Application) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCATEGORY\tNAME\tBINDING\tINPUT\tOUTPUT")
	for _, a := range apps {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\n",
			a.ID,
			a.Category,
			a.Name,
			a.Binding,
			len(a.Parameters.Input),
			len(a.Parameters.Output),
		)
	}
	w.Flush()
	fmt.Printf("\n%d applications\n", len(apps))
}
