// Package schema decodes message type descriptors into generic schema trees
// of typed, named, default-valued nodes.
//
// A descriptor is a primitive name ("int32"), a time-like composite ("time",
// "duration"), an array of any descriptor ("float64[]", "geometry_msgs/Point[4]")
// or a composite message type resolved through an Introspector. Decoding
// recurses into composite fields in declaration order.
package schema

import (
	"context"
	"fmt"
	"slices"

	"github.com/alfredjeanlab/appreg/internal/model"
)

// Decoder turns type descriptors into schema trees. It holds no mutable state
// and is safe for concurrent use.
type Decoder struct {
	types Introspector
}

// NewDecoder returns a Decoder that resolves composite types through types.
func NewDecoder(types Introspector) *Decoder {
	return &Decoder{types: types}
}

// Decode produces the schema node for a field named field of type desc.
func (d *Decoder) Decode(ctx context.Context, desc, field string) (*model.SchemaNode, error) {
	return d.decode(ctx, desc, field, nil)
}

// DecodeTopLevel decodes a message type as an anonymous object.
func (d *Decoder) DecodeTopLevel(ctx context.Context, typeName string) (*model.SchemaNode, error) {
	return d.decode(ctx, typeName, "", nil)
}

// DecodeServicePair decodes the request and response of a service type as
// two flat field lists. They are siblings, not children of a wrapping object.
func (d *Decoder) DecodeServicePair(ctx context.Context, serviceType string) (request, response []*model.SchemaNode, err error) {
	reqFields, respFields, err := d.types.RequestResponseFieldsOf(ctx, serviceType)
	if err != nil {
		return nil, nil, &TypeResolutionError{Type: serviceType, Err: err}
	}
	request, err = d.decodeFields(ctx, reqFields, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("service %s request: %w", serviceType, err)
	}
	response, err = d.decodeFields(ctx, respFields, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("service %s response: %w", serviceType, err)
	}
	return request, response, nil
}

// DecodeActionPair decodes the goal and result messages of an action whose
// base type is actionType (for example "actionlib_tutorials/FibonacciAction").
func (d *Decoder) DecodeActionPair(ctx context.Context, actionType string) (goal, result *model.SchemaNode, err error) {
	goal, err = d.DecodeTopLevel(ctx, actionType+"Goal")
	if err != nil {
		return nil, nil, err
	}
	result, err = d.DecodeTopLevel(ctx, actionType+"Result")
	if err != nil {
		return nil, nil, err
	}
	return goal, result, nil
}

// decode dispatches on the descriptor. stack holds the composite types
// currently being expanded on this branch.
func (d *Decoder) decode(ctx context.Context, desc, field string, stack []string) (*model.SchemaNode, error) {
	switch {
	case IsTimeType(desc):
		return timeNode(field), nil
	case IsPrimitiveType(desc):
		return primitiveNode(desc, field), nil
	case IsArrayType(desc):
		elem, err := d.decode(ctx, StripArraySuffix(desc), "", stack)
		if err != nil {
			return nil, err
		}
		return &model.SchemaNode{
			Name:     field,
			Kind:     model.KindArray,
			Children: []*model.SchemaNode{elem},
		}, nil
	default:
		return d.decodeObject(ctx, desc, field, stack)
	}
}

func (d *Decoder) decodeObject(ctx context.Context, typeName, field string, stack []string) (*model.SchemaNode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if i := slices.Index(stack, typeName); i >= 0 {
		path := append(slices.Clone(stack[i:]), typeName)
		return nil, &CyclicTypeError{Path: path}
	}

	fields, err := d.types.FieldsOf(ctx, typeName)
	if err != nil {
		return nil, &TypeResolutionError{Type: typeName, Err: err}
	}

	// Clip so sibling branches never share a backing array.
	children, err := d.decodeFields(ctx, fields, append(slices.Clip(stack), typeName))
	if err != nil {
		return nil, err
	}
	return &model.SchemaNode{
		Name:     field,
		Kind:     model.KindObject,
		Children: children,
	}, nil
}

func (d *Decoder) decodeFields(ctx context.Context, fields []Field, stack []string) ([]*model.SchemaNode, error) {
	nodes := make([]*model.SchemaNode, 0, len(fields))
	for _, f := range fields {
		n, err := d.decode(ctx, f.Type, f.Name, stack)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

// timeNode is the canonical stub for time and duration; their real layout
// is never introspected.
func timeNode(field string) *model.SchemaNode {
	return &model.SchemaNode{
		Name: field,
		Kind: model.KindObject,
		Children: []*model.SchemaNode{
			{Name: "secs", Kind: model.KindInteger, Value: 0},
			{Name: "nsecs", Kind: model.KindInteger, Value: 0},
		},
	}
}

func primitiveNode(typeName, field string) *model.SchemaNode {
	n := &model.SchemaNode{Name: field}
	switch Classify(typeName) {
	case Boolean:
		n.Kind, n.Value = model.KindBoolean, true
	case Integer:
		n.Kind, n.Value = model.KindInteger, 0
	case Float:
		n.Kind, n.Value = model.KindFloat, 0.0
	case String:
		n.Kind, n.Value = model.KindString, ""
	default:
		n.Kind = model.KindUnknown
	}
	return n
}
