// Package events carries registry and discovery notifications over NATS.
package events

import (
	"context"
	"time"

	"github.com/alfredjeanlab/appreg/internal/model"
)

// Event topic constants
const (
	TopicApplicationRegistered = "appreg.application.registered"

	// Emitted by the discovery agent at the end of every run.
	TopicDiscoveryCompleted = "appreg.discovery.completed"

	// TopicAll matches every appreg subject.
	TopicAll = "appreg.>"
)

// Event types

type ApplicationRegistered struct {
	Application *model.Application `json:"application"`
}

type DiscoveryCompleted struct {
	Agent     string        `json:"agent"`
	RunID     string        `json:"run_id"`
	Published int           `json:"published"`
	Failed    int           `json:"failed"`
	Errors    []string      `json:"errors,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}
