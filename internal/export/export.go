// Package export writes periodic JSONL snapshots of the registry to external
// destinations. The registry itself keeps no state across restarts; exports
// are for consumers that want a copy.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/alfredjeanlab/appreg/internal/model"
)

// FormatVersion is written into every export header.
const FormatVersion = "1"

// Lister is the read side of the registry store that exports need.
type Lister interface {
	ListApplications(ctx context.Context) ([]*model.Application, error)
}

// Header is the first JSONL record of an export.
type Header struct {
	Version          string    `json:"version"`
	Type             string    `json:"type"`
	Timestamp        time.Time `json:"timestamp"`
	ApplicationCount int       `json:"application_count"`
}

// Record wraps each following JSONL line with a type discriminator.
type Record struct {
	Type string             `json:"type"`
	Data *model.Application `json:"data"`
}

// ExportJSONL writes a header line followed by one line per application,
// sorted by id so unchanged registries export byte-identical bodies apart
// from the header timestamp.
func ExportJSONL(ctx context.Context, s Lister, w io.Writer, now time.Time) error {
	apps, err := s.ListApplications(ctx)
	if err != nil {
		return fmt.Errorf("list applications: %w", err)
	}
	apps = slices.Clone(apps)
	slices.SortFunc(apps, func(a, b *model.Application) int {
		return strings.Compare(a.ID, b.ID)
	})

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(Header{
		Version:          FormatVersion,
		Type:             "header",
		Timestamp:        now.UTC(),
		ApplicationCount: len(apps),
	}); err != nil {
		return fmt.Errorf("encode header: %w", err)
	}
	for _, a := range apps {
		if err := enc.Encode(Record{Type: "application", Data: a}); err != nil {
			return fmt.Errorf("encode application %s: %w", a.ID, err)
		}
	}
	return nil
}
