package discovery

import (
	"context"
	"fmt"

	"github.com/alfredjeanlab/appreg/internal/client"
	"github.com/alfredjeanlab/appreg/internal/model"
	"github.com/alfredjeanlab/appreg/internal/schema"
)

// Registrar is the subset of client.RegistryClient the publisher needs.
type Registrar interface {
	CreateApplication(ctx context.Context, app *model.Application) (*model.Application, error)
}

var _ Registrar = (client.RegistryClient)(nil)

// Publisher turns discovered entities into applications and submits them.
type Publisher struct {
	decoder  *schema.Decoder
	registry Registrar
}

// NewPublisher returns a publisher that decodes with d and registers with r.
func NewPublisher(d *schema.Decoder, r Registrar) *Publisher {
	return &Publisher{decoder: d, registry: r}
}

// Build decodes the schema of ent and assembles its application record.
func (p *Publisher) Build(ctx context.Context, ent Entity) (*model.Application, error) {
	var (
		kind          model.EndpointKind
		input, output []*model.SchemaNode
	)
	switch ent.Category {
	case model.CategoryTopics:
		kind = model.EndpointPublish
		msg, err := p.decoder.DecodeTopLevel(ctx, ent.Type)
		if err != nil {
			return nil, err
		}
		input = msg.Children
	case model.CategoryActions:
		kind = model.EndpointAction
		goal, result, err := p.decoder.DecodeActionPair(ctx, ent.Type)
		if err != nil {
			return nil, err
		}
		input, output = goal.Children, result.Children
	case model.CategoryServices:
		kind = model.EndpointService
		req, resp, err := p.decoder.DecodeServicePair(ctx, ent.Type)
		if err != nil {
			return nil, err
		}
		input, output = req, resp
	default:
		return nil, fmt.Errorf("unknown category %q", ent.Category)
	}

	app := &model.Application{
		Name:        ent.Name,
		Category:    string(ent.Category),
		Description: "",
		Binding:     model.BindingROS,
		Endpoint:    model.NewEndpoint(ent.Name, kind),
		Parameters: model.Parameters{
			Input:  input,
			Output: output,
		},
	}
	app.Normalize()
	return app, nil
}

// Publish builds the application for ent and registers it.
func (p *Publisher) Publish(ctx context.Context, ent Entity) (*model.Application, error) {
	app, err := p.Build(ctx, ent)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", ent.Type, err)
	}
	created, err := p.registry.CreateApplication(ctx, app)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	return created, nil
}
