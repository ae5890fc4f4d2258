package schema

import "regexp"

// Category is the semantic class of a primitive type.
type Category int

const (
	Unknown Category = iota
	Boolean
	Integer
	Float
	String
)

// String returns the category name used on the wire.
func (c Category) String() string {
	switch c {
	case Boolean:
		return "Boolean"
	case Integer:
		return "Integer"
	case Float:
		return "Float"
	case String:
		return "String"
	default:
		return "Unknown"
	}
}

var arraySuffix = regexp.MustCompile(`\[[^\]]*\]`)

var timeTypes = map[string]struct{}{
	"time":     {},
	"duration": {},
}

var primitiveCategories = map[string]Category{
	"bool":    Boolean,
	"int8":    Integer,
	"uint8":   Integer,
	"int16":   Integer,
	"uint16":  Integer,
	"int32":   Integer,
	"uint32":  Integer,
	"int64":   Integer,
	"uint64":  Integer,
	"float32": Float,
	"float64": Float,
	"byte":    String,
	"char":    String,
	"string":  String,
}

// IsTimeType reports whether name is one of the time-like composites.
func IsTimeType(name string) bool {
	_, ok := timeTypes[name]
	return ok
}

// IsPrimitiveType reports whether name is a scalar type.
func IsPrimitiveType(name string) bool {
	_, ok := primitiveCategories[name]
	return ok
}

// IsArrayType reports whether the descriptor carries a bracketed array
// suffix such as "[]" or "[16]".
func IsArrayType(desc string) bool {
	return arraySuffix.MatchString(desc)
}

// Classify maps a primitive type name to its category. Names outside the
// table map to Unknown.
func Classify(name string) Category {
	return primitiveCategories[name]
}

// StripArraySuffix removes the last bracketed group from desc, so
// "uint8[16]" becomes "uint8" and "int32[3][]" becomes "int32[3]".
func StripArraySuffix(desc string) string {
	locs := arraySuffix.FindAllStringIndex(desc, -1)
	if len(locs) == 0 {
		return desc
	}
	last := locs[len(locs)-1]
	return desc[:last[0]] + desc[last[1]:]
}
