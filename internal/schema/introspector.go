package schema

import "context"

// Field is one declared field of a message type: its name and its type
// descriptor (possibly array-suffixed).
type Field struct {
	Name string
	Type string
}

// Introspector resolves type names to their ordered field lists. Field order
// must match the declaration order of the type.
type Introspector interface {
	// FieldsOf returns the fields of a plain message type.
	FieldsOf(ctx context.Context, typeName string) ([]Field, error)

	// RequestResponseFieldsOf returns the request and response fields of a
	// service type.
	RequestResponseFieldsOf(ctx context.Context, serviceType string) (request, response []Field, err error)
}
