package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/appreg/internal/model"
)

var decodeCmd = &cobra.Command{
	Use:   "decode <type>",
	Short: "Print the schema tree of a message, service or action type",
	Long: `Print the schema tree of a type using only the local definitions, without
contacting the master.

By default <type> is a message type such as "geometry_msgs/Pose". With
--service it names a service type and the request and response are printed.
With --action it names an action type such as
"actionlib_tutorials/FibonacciAction" and its goal and result messages are printed.`,
	GroupID: "inspect",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		service, _ := cmd.Flags().GetBool("service")
		action, _ := cmd.Flags().GetBool("action")
		if service && action {
			return fmt.Errorf("--service and --action are mutually exclusive")
		}

		types, err := loadTypes(cfg)
		if err != nil {
			return err
		}
		out, err := decodeType(context.Background(), types, args[0], service, action)
		if err != nil {
			return err
		}
		return printSchema(out)
	},
}

func init() {
	decodeCmd.Flags().Bool("service", false, "decode a service type")
	decodeCmd.Flags().Bool("action", false, "decode an action type")
	decodeCmd.Flags().BoolVar(&yamlOutput, "yaml", false, "output as YAML")
}

// decodedType is the printable result of a decode.
type decodedType struct {
	Type   string           `json:"type"`
	Input  model.SchemaList `json:"input"`
	Output model.SchemaList `json:"output,omitempty"`
}
