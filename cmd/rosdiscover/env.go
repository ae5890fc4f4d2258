package main

import (
	"fmt"
	"log/slog"

	"github.com/alfredjeanlab/appreg/internal/config"
	"github.com/alfredjeanlab/appreg/internal/discovery"
	"github.com/alfredjeanlab/appreg/internal/master"
	"github.com/alfredjeanlab/appreg/internal/rosmsg"
	"github.com/alfredjeanlab/appreg/internal/schema"
)

// graph bundles the connections a command needs to inspect a ROS graph.
type graph struct {
	master  *master.Client
	enum    *discovery.Enumerator
	types   *rosmsg.Registry
	decoder *schema.Decoder
}

// loadTypes builds the type registry from the builtin definitions and the
// configured package path.
func loadTypes(c *config.AgentConfig) (*rosmsg.Registry, error) {
	types := rosmsg.NewRegistry()
	if c.PackagePath == "" {
		slog.Warn("no package path configured; only builtin message types are known")
		return types, nil
	}
	n, err := types.LoadPackagePath(c.PackagePath)
	if err != nil {
		return nil, fmt.Errorf("loading definitions: %w", err)
	}
	if skipped := types.Skipped(); len(skipped) > 0 {
		slog.Warn("some definitions could not be parsed", "skipped", len(skipped))
	}
	slog.Debug("definitions loaded", "files", n, "messages", len(types.MessageNames()), "services", len(types.ServiceNames()))
	return types, nil
}

func openGraph(c *config.AgentConfig) (*graph, error) {
	types, err := loadTypes(c)
	if err != nil {
		return nil, err
	}
	m, err := master.Dial(c.MasterURI, c.CallerID)
	if err != nil {
		return nil, fmt.Errorf("connecting to master %s: %w", c.MasterURI, err)
	}
	prober := &master.Prober{CallerID: c.CallerID, Timeout: c.HandshakeTimeout}
	return &graph{
		master:  m,
		enum:    discovery.NewEnumerator(m, prober),
		types:   types,
		decoder: schema.NewDecoder(types),
	}, nil
}

func (g *graph) Close() error {
	return g.master.Close()
}
