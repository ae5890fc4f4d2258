package schema

import (
	"fmt"
	"strings"
)

// TypeResolutionError reports a type name the introspector could not resolve.
type TypeResolutionError struct {
	Type string
	Err  error
}

func (e *TypeResolutionError) Error() string {
	return fmt.Sprintf("resolve type %q: %v", e.Type, e.Err)
}

func (e *TypeResolutionError) Unwrap() error { return e.Err }

// CyclicTypeError reports a composite type that references itself,
// directly or through other types. Path lists the types from the first
// occurrence to the repeated one.
type CyclicTypeError struct {
	Path []string
}

func (e *CyclicTypeError) Error() string {
	return "cyclic type reference: " + strings.Join(e.Path, " -> ")
}
