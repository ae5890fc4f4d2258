package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
)

// Kind is the semantic type of a schema node.
type Kind string

const (
	KindBoolean Kind = "Boolean"
	KindInteger Kind = "Integer"
	KindFloat   Kind = "Float"
	KindString  Kind = "String"
	KindObject  Kind = "Object"
	KindArray   Kind = "Array"

	// KindUnknown marks a primitive whose name is not in the classification
	// table. Such nodes carry a null value.
	KindUnknown Kind = "Unknown"
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	return string(k)
}

// IsComposite reports whether nodes of this kind carry children instead of a
// scalar value.
func (k Kind) IsComposite() bool {
	return k == KindObject || k == KindArray
}

// IsValid checks whether the kind is a known value.
func (k Kind) IsValid() bool {
	switch k {
	case KindBoolean, KindInteger, KindFloat, KindString, KindObject, KindArray, KindUnknown:
		return true
	}
	return false
}

// SchemaNode is one field or array element of a decoded message type.
//
// Scalar nodes carry a default Value and no Children. Object nodes carry one
// child per field in declaration order; Array nodes carry exactly one child
// describing the element type. On the wire both shapes use the "value" key.
type SchemaNode struct {
	Name     string
	Kind     Kind
	Value    any
	Children []*SchemaNode
}

// wireNode is the JSON shape shared by the registry and the discovery agent.
type wireNode struct {
	Type  Kind            `json:"type"`
	Name  string          `json:"name"`
	Value json.RawMessage `json:"value"`
}

// MarshalJSON encodes the node as {"type", "name", "value"}.
func (n *SchemaNode) MarshalJSON() ([]byte, error) {
	var (
		value []byte
		err   error
	)
	if n.Kind.IsComposite() {
		children := n.Children
		if children == nil {
			children = []*SchemaNode{}
		}
		value, err = json.Marshal(children)
	} else {
		value, err = json.Marshal(n.Value)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireNode{Type: n.Kind, Name: n.Name, Value: value})
}

// UnmarshalJSON decodes the {"type", "name", "value"} shape, routing "value"
// to Children for Object and Array nodes.
func (n *SchemaNode) UnmarshalJSON(data []byte) error {
	var w wireNode
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	n.Name = w.Name
	n.Kind = w.Type
	n.Value = nil
	n.Children = nil

	if len(w.Value) == 0 {
		return nil
	}
	if n.Kind.IsComposite() {
		var children []*SchemaNode
		if err := json.Unmarshal(w.Value, &children); err != nil {
			return fmt.Errorf("%s %q: %w", n.Kind, n.Name, err)
		}
		n.Children = children
		return nil
	}
	// Numbers stay json.Number so integers beyond 2^53 survive a round trip.
	dec := json.NewDecoder(bytes.NewReader(w.Value))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	n.Value = v
	return nil
}

// SchemaList is an ordered sequence of schema nodes, used for the input and
// output parameters of an application. A single JSON object is accepted on
// decode and treated as a one-element list.
type SchemaList []*SchemaNode

// UnmarshalJSON accepts either a JSON array of nodes or a single node.
func (l *SchemaList) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*l = SchemaList{}
		return nil
	}
	if trimmed[0] == '{' {
		var node SchemaNode
		if err := json.Unmarshal(trimmed, &node); err != nil {
			return err
		}
		*l = SchemaList{&node}
		return nil
	}
	var nodes []*SchemaNode
	if err := json.Unmarshal(trimmed, &nodes); err != nil {
		return err
	}
	if nodes == nil {
		nodes = []*SchemaNode{}
	}
	*l = nodes
	return nil
}

// MarshalJSON always encodes a list, never null.
func (l SchemaList) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]*SchemaNode(l))
}

// Equal reports whether two trees are structurally identical.
func (n *SchemaNode) Equal(other *SchemaNode) bool {
	if n == nil || other == nil {
		return n == other
	}
	if n.Name != other.Name || n.Kind != other.Kind || !reflect.DeepEqual(n.Value, other.Value) {
		return false
	}
	if len(n.Children) != len(other.Children) {
		return false
	}
	for i := range n.Children {
		if !n.Children[i].Equal(other.Children[i]) {
			return false
		}
	}
	return true
}
