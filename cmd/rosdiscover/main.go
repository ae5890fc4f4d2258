package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/appreg/internal/config"
	"github.com/alfredjeanlab/appreg/internal/ui"
)

var (
	cfg        *config.AgentConfig
	jsonOutput bool
	yamlOutput bool
	verbose    bool
	noColor    bool

	// Flag values; applied over cfg only when set.
	flagMaster   string
	flagPackages string
	flagRegistry string
	flagCallerID string
	flagWorkers  int
	flagTimeout  time.Duration
)

var rootCmd = &cobra.Command{
	Use:           "rosdiscover <command>",
	Short:         "Discover ROS topics, actions and services and register them",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		ui.Setup(noColor)

		c, err := config.LoadAgent()
		if err != nil {
			return err
		}
		flags := cmd.Flags()
		if flags.Changed("master") {
			c.MasterURI = flagMaster
		}
		if flags.Changed("package-path") {
			c.PackagePath = flagPackages
		}
		if flags.Changed("registry") {
			c.RegistryURL = flagRegistry
		}
		if flags.Changed("caller-id") {
			c.CallerID = flagCallerID
		}
		if flags.Changed("workers") {
			if flagWorkers < 1 {
				return fmt.Errorf("--workers must be at least 1")
			}
			c.Workers = flagWorkers
		}
		if flags.Changed("timeout") {
			if flagTimeout <= 0 {
				return fmt.Errorf("--timeout must be positive")
			}
			c.HandshakeTimeout = flagTimeout
		}
		cfg = c
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagMaster, "master", "", "ROS master URI (default from ROS_MASTER_URI)")
	pf.StringVar(&flagPackages, "package-path", "", "package roots holding .msg/.srv/.action files (default from ROS_PACKAGE_PATH)")
	pf.StringVar(&flagRegistry, "registry", "", "registry URL (default from APPREG_URL)")
	pf.StringVar(&flagCallerID, "caller-id", "", "caller id presented to the master and service providers")
	pf.IntVar(&flagWorkers, "workers", 0, "entities processed concurrently")
	pf.DurationVar(&flagTimeout, "timeout", 0, "service handshake timeout")
	pf.BoolVar(&jsonOutput, "json", false, "output as JSON")
	pf.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	pf.BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddGroup(
		&cobra.Group{ID: "discovery", Title: "Discovery:"},
		&cobra.Group{ID: "inspect", Title: "Inspection:"},
	)
	cobra.EnableCommandSorting = false

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(topicsCmd)
	rootCmd.AddCommand(actionsCmd)
	rootCmd.AddCommand(servicesCmd)
	rootCmd.AddCommand(decodeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
