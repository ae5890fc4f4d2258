package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Category groups applications by the kind of entity they describe.
type Category string

const (
	CategoryTopics   Category = "Topics"
	CategoryActions  Category = "Actions"
	CategoryServices Category = "Services"
)

// String returns the string representation of the category.
func (c Category) String() string {
	return string(c)
}

// BindingROS is the binding used for every application discovered from a ROS
// graph.
const BindingROS = "ROS"

// EndpointKind is the value of the "type" endpoint field.
type EndpointKind string

const (
	EndpointPublish EndpointKind = "publish"
	EndpointAction  EndpointKind = "action"
	EndpointService EndpointKind = "service"
)

// EndpointField is one entry of an application's endpoint descriptor.
type EndpointField struct {
	Type  string `json:"type"`
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// Parameters holds the input and output schema of an application.
//
// Each side may arrive as a single node or as a list. Decoding always yields
// a SchemaList; a side that arrived as a single node is encoded back as one
// while it still holds exactly one node.
type Parameters struct {
	Input  SchemaList `json:"input"`
	Output SchemaList `json:"output"`

	singleInput  bool
	singleOutput bool
}

type wireParameters struct {
	Input  json.RawMessage `json:"input,omitempty"`
	Output json.RawMessage `json:"output,omitempty"`
}

// UnmarshalJSON decodes both sides and remembers which were single nodes.
func (p *Parameters) UnmarshalJSON(data []byte) error {
	var w wireParameters
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*p = Parameters{}
	if err := p.Input.UnmarshalJSON(w.Input); err != nil {
		return fmt.Errorf("input: %w", err)
	}
	if err := p.Output.UnmarshalJSON(w.Output); err != nil {
		return fmt.Errorf("output: %w", err)
	}
	p.singleInput = isJSONObject(w.Input)
	p.singleOutput = isJSONObject(w.Output)
	return nil
}

// MarshalJSON encodes each side in the shape it was decoded from.
func (p Parameters) MarshalJSON() ([]byte, error) {
	input, err := p.side(p.Input, p.singleInput)
	if err != nil {
		return nil, err
	}
	output, err := p.side(p.Output, p.singleOutput)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireParameters{Input: input, Output: output})
}

func (p Parameters) side(l SchemaList, single bool) ([]byte, error) {
	if single && len(l) == 1 {
		return json.Marshal(l[0])
	}
	return l.MarshalJSON()
}

func isJSONObject(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

// Application is a registry record describing one addressable entity.
// The ID is derived from Name, Endpoint and Binding so that registering the
// same entity twice yields the same record.
type Application struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Binding     string          `json:"binding"`
	Endpoint    []EndpointField `json:"endpoint"`
	Parameters  Parameters      `json:"parameters"`
	CreatedAt   time.Time       `json:"created_at,omitzero"`
}

// Normalize replaces nil slices with empty ones so the record always encodes
// lists rather than nulls.
func (a *Application) Normalize() {
	if a.Endpoint == nil {
		a.Endpoint = []EndpointField{}
	}
	if a.Parameters.Input == nil {
		a.Parameters.Input = SchemaList{}
	}
	if a.Parameters.Output == nil {
		a.Parameters.Output = SchemaList{}
	}
}

// NewEndpoint builds the two-field endpoint descriptor used for ROS entities.
func NewEndpoint(entity string, kind EndpointKind) []EndpointField {
	return []EndpointField{
		{Type: string(KindString), Name: "topic", Value: entity},
		{Type: string(KindString), Name: "type", Value: string(kind)},
	}
}
