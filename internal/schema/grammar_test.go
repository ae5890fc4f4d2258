package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsTimeType(t *testing.T) {
	assert.True(t, IsTimeType("time"))
	assert.True(t, IsTimeType("duration"))
	assert.False(t, IsTimeType("std_msgs/Time"))
	assert.False(t, IsTimeType("time[]"))
}

func TestIsPrimitiveType(t *testing.T) {
	for _, name := range []string{
		"bool", "byte", "char", "int8", "uint8", "int16", "uint16",
		"int32", "uint32", "int64", "uint64", "float32", "float64", "string",
	} {
		assert.True(t, IsPrimitiveType(name), name)
	}
	assert.False(t, IsPrimitiveType("time"))
	assert.False(t, IsPrimitiveType("int32[]"))
	assert.False(t, IsPrimitiveType("std_msgs/String"))
}

func TestIsArrayType(t *testing.T) {
	assert.True(t, IsArrayType("int32[]"))
	assert.True(t, IsArrayType("float64[9]"))
	assert.True(t, IsArrayType("geometry_msgs/Point[]"))
	assert.False(t, IsArrayType("int32"))
	assert.False(t, IsArrayType("geometry_msgs/Point"))
}

func TestClassify(t *testing.T) {
	tests := map[string]Category{
		"bool":    Boolean,
		"int8":    Integer,
		"uint64":  Integer,
		"float32": Float,
		"float64": Float,
		"byte":    String,
		"char":    String,
		"string":  String,
		"wstring": Unknown,
		"":        Unknown,
	}
	for name, want := range tests {
		assert.Equal(t, want, Classify(name), name)
	}
}

func TestCategory_String(t *testing.T) {
	assert.Equal(t, "Boolean", Boolean.String())
	assert.Equal(t, "Integer", Integer.String())
	assert.Equal(t, "Float", Float.String())
	assert.Equal(t, "String", String.String())
	assert.Equal(t, "Unknown", Unknown.String())
}

func TestStripArraySuffix(t *testing.T) {
	assert.Equal(t, "int32", StripArraySuffix("int32[]"))
	assert.Equal(t, "uint8", StripArraySuffix("uint8[16]"))
	assert.Equal(t, "geometry_msgs/Point", StripArraySuffix("geometry_msgs/Point[]"))
	assert.Equal(t, "int32[3]", StripArraySuffix("int32[3][]"))
	assert.Equal(t, "int32", StripArraySuffix("int32"))
}
