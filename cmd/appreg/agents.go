package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/appreg/internal/client"
	"github.com/alfredjeanlab/appreg/internal/presence"
	"github.com/alfredjeanlab/appreg/internal/ui"
)

var agentsCmd = &cobra.Command{
	Use:     "agents",
	Short:   "List discovery agents reporting to the registry",
	GroupID: "system",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// The roster is only served over HTTP.
		agents, err := client.NewHTTPClient(httpURL).ListAgents(context.Background())
		if err != nil {
			return fmt.Errorf("listing agents: %w", err)
		}
		if jsonOutput {
			return printJSON(agents)
		}
		printAgentTable(os.Stdout, agents)
		return nil
	},
}

func printAgentTable(out io.Writer, agents []presence.Entry) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "AGENT\tSTATE\tLAST RUN\tIDLE\tRUNS\tPUBLISHED\tFAILED")
	for _, a := range agents {
		state := ui.RenderOK("alive")
		if a.Reaped {
			state = ui.RenderFail("dead")
		}
		idle := time.Duration(a.IdleSecs * float64(time.Second)).Round(time.Second)
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%d\n",
			a.Agent, state, a.LastRunID, idle, a.Runs, a.Published, a.Failed)
	}
	w.Flush()
	fmt.Fprintf(out, "\n%d agents\n", len(agents))
}
