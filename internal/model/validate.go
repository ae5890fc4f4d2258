package model

import (
	"fmt"
	"strings"
)

// ValidationError holds a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation failure on a named field.
type FieldError struct {
	Field   string
	Message string
}

// Error formats the validation error as a semicolon-separated list of field messages.
func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// HasErrors reports whether the validation error contains any field errors.
func (e *ValidationError) HasErrors() bool {
	return len(e.Errors) > 0
}

// ValidateApplication checks the structural invariants of an application's
// parameter schemas. Free-form fields (name, category, description, binding)
// are accepted as-is; an empty record is valid.
func ValidateApplication(a *Application) error {
	var ve ValidationError

	for i, f := range a.Endpoint {
		if f.Name == "" {
			ve.Errors = append(ve.Errors, FieldError{
				Field:   fmt.Sprintf("endpoint[%d].name", i),
				Message: "is required",
			})
		}
	}
	for i, n := range a.Parameters.Input {
		validateNode(&ve, fmt.Sprintf("parameters.input[%d]", i), n)
	}
	for i, n := range a.Parameters.Output {
		validateNode(&ve, fmt.Sprintf("parameters.output[%d]", i), n)
	}

	if ve.HasErrors() {
		return &ve
	}
	return nil
}

// ValidateSchemaNode checks a single tree. It returns a *ValidationError or nil.
func ValidateSchemaNode(n *SchemaNode) error {
	var ve ValidationError
	validateNode(&ve, "node", n)
	if ve.HasErrors() {
		return &ve
	}
	return nil
}

func validateNode(ve *ValidationError, path string, n *SchemaNode) {
	if n == nil {
		ve.Errors = append(ve.Errors, FieldError{Field: path, Message: "must not be null"})
		return
	}
	if !n.Kind.IsValid() {
		ve.Errors = append(ve.Errors, FieldError{Field: path + ".type", Message: fmt.Sprintf("invalid value %q", n.Kind)})
		return
	}

	switch n.Kind {
	case KindObject:
		if n.Value != nil {
			ve.Errors = append(ve.Errors, FieldError{Field: path + ".value", Message: "object node must not carry a scalar value"})
		}
	case KindArray:
		if n.Value != nil {
			ve.Errors = append(ve.Errors, FieldError{Field: path + ".value", Message: "array node must not carry a scalar value"})
		}
		if len(n.Children) != 1 {
			ve.Errors = append(ve.Errors, FieldError{
				Field:   path + ".value",
				Message: fmt.Sprintf("array node must have exactly one element schema, got %d", len(n.Children)),
			})
		}
	default:
		if len(n.Children) > 0 {
			ve.Errors = append(ve.Errors, FieldError{Field: path + ".value", Message: "scalar node must not have children"})
		}
	}

	for i, c := range n.Children {
		validateNode(ve, fmt.Sprintf("%s.value[%d]", path, i), c)
	}
}
