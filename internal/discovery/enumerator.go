// Package discovery enumerates the topics, actions and services of a running
// ROS graph, decodes their message schemas and registers each one as an
// application.
package discovery

import (
	"context"
	"fmt"
	"strings"

	"github.com/alfredjeanlab/appreg/internal/master"
	"github.com/alfredjeanlab/appreg/internal/model"
)

// Master is the subset of the ROS master API the enumerator needs.
type Master interface {
	GetTopicTypes(ctx context.Context) ([]master.TopicType, error)
	GetSystemState(ctx context.Context) (*master.SystemState, error)
	LookupService(ctx context.Context, service string) (string, error)
}

// ServiceProber resolves the type of a service from its provider.
type ServiceProber interface {
	ServiceType(ctx context.Context, service, uri string) (string, error)
}

// Entity is one discovered topic, action or service.
type Entity struct {
	Category model.Category `json:"category"`
	Name     string         `json:"name"`
	Type     string         `json:"type"`
}

// EntityError records why a single entity could not be processed.
type EntityError struct {
	Entity Entity `json:"entity"`
	Err    error  `json:"-"`
}

func (e *EntityError) Error() string {
	return fmt.Sprintf("%s %s: %v", strings.ToLower(string(e.Entity.Category)), e.Entity.Name, e.Err)
}

func (e *EntityError) Unwrap() error { return e.Err }

// actionSuffixes are the topics an action server advertises.
var actionSuffixes = []string{"/cancel", "/feedback", "/goal", "/result", "/status"}

const (
	resultTopicSuffix = "/result"
	resultTypeSuffix  = "Result"
)

// IsActionTopic reports whether topic belongs to an action server.
func IsActionTopic(topic string) bool {
	for _, s := range actionSuffixes {
		if strings.HasSuffix(topic, s) {
			return true
		}
	}
	return false
}

// Enumerator lists the entities of a ROS graph.
type Enumerator struct {
	master Master
	prober ServiceProber
}

// NewEnumerator returns an enumerator backed by m and p.
func NewEnumerator(m Master, p ServiceProber) *Enumerator {
	return &Enumerator{master: m, prober: p}
}

// ListTopics returns every plain topic, leaving out those that belong to an
// action server.
func (e *Enumerator) ListTopics(ctx context.Context) ([]Entity, error) {
	topics, err := e.master.GetTopicTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}
	out := make([]Entity, 0, len(topics))
	for _, t := range topics {
		if IsActionTopic(t.Name) {
			continue
		}
		out = append(out, Entity{Category: model.CategoryTopics, Name: t.Name, Type: t.Type})
	}
	return out, nil
}

// ListActions derives one action per "/result" topic. The action name drops
// the "/result" suffix and its type drops the trailing "Result", leaving the
// base "...Action" type.
func (e *Enumerator) ListActions(ctx context.Context) ([]Entity, error) {
	topics, err := e.master.GetTopicTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list actions: %w", err)
	}
	var out []Entity
	for _, t := range topics {
		if !strings.HasSuffix(t.Name, resultTopicSuffix) {
			continue
		}
		out = append(out, Entity{
			Category: model.CategoryActions,
			Name:     strings.TrimSuffix(t.Name, resultTopicSuffix),
			Type:     strings.TrimSuffix(t.Type, resultTypeSuffix),
		})
	}
	return out, nil
}

// ListServiceNames returns the services registered with the master. Their
// types are not yet known; see ResolveService.
func (e *Enumerator) ListServiceNames(ctx context.Context) ([]Entity, error) {
	state, err := e.master.GetSystemState(ctx)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	out := make([]Entity, 0, len(state.Services))
	for _, s := range state.Services {
		out = append(out, Entity{Category: model.CategoryServices, Name: s.Name})
	}
	return out, nil
}

// ResolveService fills in the type of a service entity by looking up its
// provider and probing it.
func (e *Enumerator) ResolveService(ctx context.Context, ent Entity) (Entity, error) {
	uri, err := e.master.LookupService(ctx, ent.Name)
	if err != nil {
		return ent, err
	}
	typ, err := e.prober.ServiceType(ctx, ent.Name, uri)
	if err != nil {
		return ent, err
	}
	ent.Type = typ
	return ent, nil
}

// ListServices returns every service with its resolved type. Services whose
// type cannot be resolved are reported in the second return value and left
// out of the first.
func (e *Enumerator) ListServices(ctx context.Context) ([]Entity, []*EntityError, error) {
	names, err := e.ListServiceNames(ctx)
	if err != nil {
		return nil, nil, err
	}
	var (
		out    []Entity
		failed []*EntityError
	)
	for _, ent := range names {
		resolved, err := e.ResolveService(ctx, ent)
		if err != nil {
			if ctx.Err() != nil {
				return nil, nil, ctx.Err()
			}
			failed = append(failed, &EntityError{Entity: ent, Err: err})
			continue
		}
		out = append(out, resolved)
	}
	return out, failed, nil
}
