package schema

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alfredjeanlab/appreg/internal/model"
)

var errNoSuchType = errors.New("no such type")

// fakeTypes is an in-memory Introspector keyed by type name.
type fakeTypes struct {
	messages map[string][]Field
	services map[string][2][]Field

	mu    sync.Mutex
	calls []string
}

func (f *fakeTypes) FieldsOf(_ context.Context, typeName string) ([]Field, error) {
	f.mu.Lock()
	f.calls = append(f.calls, typeName)
	f.mu.Unlock()
	fields, ok := f.messages[typeName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errNoSuchType, typeName)
	}
	return fields, nil
}

func (f *fakeTypes) RequestResponseFieldsOf(_ context.Context, serviceType string) ([]Field, []Field, error) {
	pair, ok := f.services[serviceType]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", errNoSuchType, serviceType)
	}
	return pair[0], pair[1], nil
}

func newFakeTypes() *fakeTypes {
	return &fakeTypes{
		messages: map[string][]Field{
			"test/Pair": {{Name: "a", Type: "int32"}, {Name: "b", Type: "string"}},
			"std_msgs/Header": {
				{Name: "seq", Type: "uint32"},
				{Name: "stamp", Type: "time"},
				{Name: "frame_id", Type: "string"},
			},
			"geometry_msgs/Point": {
				{Name: "x", Type: "float64"},
				{Name: "y", Type: "float64"},
				{Name: "z", Type: "float64"},
			},
			"test/Path": {
				{Name: "header", Type: "std_msgs/Header"},
				{Name: "points", Type: "geometry_msgs/Point[]"},
			},
			"test/FibonacciActionGoal": {
				{Name: "header", Type: "std_msgs/Header"},
				{Name: "order", Type: "int32"},
			},
			"test/FibonacciActionResult": {
				{Name: "header", Type: "std_msgs/Header"},
				{Name: "sequence", Type: "int32[]"},
			},
			"test/Node":   {{Name: "value", Type: "int32"}, {Name: "next", Type: "test/Node"}},
			"test/A":      {{Name: "b", Type: "test/B[]"}},
			"test/B":      {{Name: "a", Type: "test/A"}},
			"test/Broken": {{Name: "ok", Type: "bool"}, {Name: "bad", Type: "test/Missing"}},
			"test/Twice": {
				{Name: "first", Type: "geometry_msgs/Point"},
				{Name: "second", Type: "geometry_msgs/Point"},
			},
		},
		services: map[string][2][]Field{
			"test/AddTwoInts": {
				{{Name: "a", Type: "int64"}, {Name: "b", Type: "int64"}},
				{{Name: "sum", Type: "int64"}},
			},
			"test/BadSrv": {
				{{Name: "p", Type: "test/Missing"}},
				nil,
			},
		},
	}
}

func TestDecode_PrimitiveDefaults(t *testing.T) {
	d := NewDecoder(newFakeTypes())
	ctx := context.Background()

	for _, tc := range []struct {
		desc  string
		field string
		kind  model.Kind
		value any
	}{
		{"bool", "flag", model.KindBoolean, true},
		{"int32", "count", model.KindInteger, 0},
		{"uint8", "level", model.KindInteger, 0},
		{"float64", "ratio", model.KindFloat, 0.0},
		{"string", "label", model.KindString, ""},
		{"char", "c", model.KindString, ""},
	} {
		n, err := d.Decode(ctx, tc.desc, tc.field)
		require.NoError(t, err, tc.desc)
		assert.Equal(t, tc.kind, n.Kind, tc.desc)
		assert.Equal(t, tc.field, n.Name, tc.desc)
		assert.Equal(t, tc.value, n.Value, tc.desc)
		assert.Empty(t, n.Children, tc.desc)
	}
}

func TestDecode_TimeComposite(t *testing.T) {
	types := newFakeTypes()
	d := NewDecoder(types)

	for _, desc := range []string{"time", "duration"} {
		n, err := d.Decode(context.Background(), desc, "stamp")
		require.NoError(t, err)
		assert.Equal(t, model.KindObject, n.Kind)
		assert.Equal(t, "stamp", n.Name)
		assert.Nil(t, n.Value)
		require.Len(t, n.Children, 2)
		assert.Equal(t, &model.SchemaNode{Name: "secs", Kind: model.KindInteger, Value: 0}, n.Children[0])
		assert.Equal(t, &model.SchemaNode{Name: "nsecs", Kind: model.KindInteger, Value: 0}, n.Children[1])
	}
	assert.Empty(t, types.calls, "time types must not be introspected")
}

func TestDecode_ArrayWrapping(t *testing.T) {
	d := NewDecoder(newFakeTypes())
	ctx := context.Background()

	n, err := d.Decode(ctx, "int32[]", "vals")
	require.NoError(t, err)
	assert.Equal(t, model.KindArray, n.Kind)
	assert.Equal(t, "vals", n.Name)
	require.Len(t, n.Children, 1)

	elem, err := d.Decode(ctx, "int32", "")
	require.NoError(t, err)
	assert.True(t, n.Children[0].Equal(elem))
}

func TestDecode_FixedArrayDropsArity(t *testing.T) {
	d := NewDecoder(newFakeTypes())

	n, err := d.Decode(context.Background(), "float64[9]", "covariance")
	require.NoError(t, err)
	require.Len(t, n.Children, 1)
	assert.Equal(t, model.KindFloat, n.Children[0].Kind)
	assert.Equal(t, "", n.Children[0].Name)
}

func TestDecode_ObjectPreservesFieldOrder(t *testing.T) {
	d := NewDecoder(newFakeTypes())

	n, err := d.Decode(context.Background(), "test/Pair", "pair")
	require.NoError(t, err)
	assert.Equal(t, model.KindObject, n.Kind)
	require.Len(t, n.Children, 2)
	assert.Equal(t, "a", n.Children[0].Name)
	assert.Equal(t, model.KindInteger, n.Children[0].Kind)
	assert.Equal(t, "b", n.Children[1].Name)
	assert.Equal(t, model.KindString, n.Children[1].Kind)
}

func TestDecode_NestedObjectsAndArrays(t *testing.T) {
	d := NewDecoder(newFakeTypes())

	n, err := d.DecodeTopLevel(context.Background(), "test/Path")
	require.NoError(t, err)
	assert.Equal(t, "", n.Name)
	require.Len(t, n.Children, 2)

	header := n.Children[0]
	assert.Equal(t, "header", header.Name)
	require.Len(t, header.Children, 3)
	assert.Equal(t, "stamp", header.Children[1].Name)
	assert.Len(t, header.Children[1].Children, 2)

	points := n.Children[1]
	assert.Equal(t, model.KindArray, points.Kind)
	require.Len(t, points.Children, 1)
	point := points.Children[0]
	assert.Equal(t, model.KindObject, point.Kind)
	assert.Equal(t, "", point.Name)
	assert.Len(t, point.Children, 3)
}

func TestDecode_Deterministic(t *testing.T) {
	d := NewDecoder(newFakeTypes())
	ctx := context.Background()

	a, err := d.DecodeTopLevel(ctx, "test/Path")
	require.NoError(t, err)
	b, err := d.DecodeTopLevel(ctx, "test/Path")
	require.NoError(t, err)
	assert.True(t, a.Equal(b))
	assert.NotSame(t, a, b, "each decode must build a fresh tree")
}

func TestDecode_RepeatedSiblingTypeIsNotACycle(t *testing.T) {
	d := NewDecoder(newFakeTypes())

	n, err := d.Decode(context.Background(), "test/Twice", "")
	require.NoError(t, err)
	assert.Len(t, n.Children, 2)
}

func TestDecode_UnknownTypeIsResolutionError(t *testing.T) {
	d := NewDecoder(newFakeTypes())

	_, err := d.Decode(context.Background(), "test/Broken", "x")
	require.Error(t, err)

	var tre *TypeResolutionError
	require.ErrorAs(t, err, &tre)
	assert.Equal(t, "test/Missing", tre.Type)
	assert.ErrorIs(t, err, errNoSuchType)
}

func TestDecode_SelfReferenceIsCyclic(t *testing.T) {
	d := NewDecoder(newFakeTypes())

	_, err := d.Decode(context.Background(), "test/Node", "")
	var cte *CyclicTypeError
	require.ErrorAs(t, err, &cte)
	assert.Equal(t, []string{"test/Node", "test/Node"}, cte.Path)
}

func TestDecode_IndirectCycleThroughArray(t *testing.T) {
	d := NewDecoder(newFakeTypes())

	_, err := d.Decode(context.Background(), "test/A", "")
	var cte *CyclicTypeError
	require.ErrorAs(t, err, &cte)
	assert.Equal(t, []string{"test/A", "test/B", "test/A"}, cte.Path)
	assert.Contains(t, err.Error(), "test/A -> test/B -> test/A")
}

func TestDecode_CancelledContext(t *testing.T) {
	d := NewDecoder(newFakeTypes())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.DecodeTopLevel(ctx, "test/Pair")
	assert.ErrorIs(t, err, context.Canceled)

	// Primitives never touch the context.
	_, err = d.Decode(ctx, "int32", "x")
	assert.NoError(t, err)
}

func TestDecodeServicePair(t *testing.T) {
	d := NewDecoder(newFakeTypes())

	req, resp, err := d.DecodeServicePair(context.Background(), "test/AddTwoInts")
	require.NoError(t, err)
	require.Len(t, req, 2)
	assert.Equal(t, "a", req[0].Name)
	assert.Equal(t, "b", req[1].Name)
	require.Len(t, resp, 1)
	assert.Equal(t, "sum", resp[0].Name)
	assert.Equal(t, model.KindInteger, resp[0].Kind)
}

func TestDecodeServicePair_Errors(t *testing.T) {
	d := NewDecoder(newFakeTypes())
	ctx := context.Background()

	_, _, err := d.DecodeServicePair(ctx, "test/NoSuchSrv")
	var tre *TypeResolutionError
	require.ErrorAs(t, err, &tre)
	assert.Equal(t, "test/NoSuchSrv", tre.Type)

	_, _, err = d.DecodeServicePair(ctx, "test/BadSrv")
	require.ErrorAs(t, err, &tre)
	assert.Equal(t, "test/Missing", tre.Type)
}

func TestDecodeActionPair(t *testing.T) {
	types := newFakeTypes()
	d := NewDecoder(types)

	goal, result, err := d.DecodeActionPair(context.Background(), "test/FibonacciAction")
	require.NoError(t, err)
	assert.Equal(t, model.KindObject, goal.Kind)
	assert.Equal(t, "order", goal.Children[1].Name)
	assert.Equal(t, model.KindArray, result.Children[1].Kind)
	assert.Contains(t, types.calls, "test/FibonacciActionGoal")
	assert.Contains(t, types.calls, "test/FibonacciActionResult")
}

func TestDecodeActionPair_MissingResult(t *testing.T) {
	types := newFakeTypes()
	delete(types.messages, "test/FibonacciActionResult")
	d := NewDecoder(types)

	_, _, err := d.DecodeActionPair(context.Background(), "test/FibonacciAction")
	var tre *TypeResolutionError
	require.ErrorAs(t, err, &tre)
	assert.Equal(t, "test/FibonacciActionResult", tre.Type)
}

func TestDecode_ConcurrentUse(t *testing.T) {
	d := NewDecoder(newFakeTypes())
	want, err := d.DecodeTopLevel(context.Background(), "test/Path")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := d.DecodeTopLevel(context.Background(), "test/Path")
			if assert.NoError(t, err) {
				assert.True(t, want.Equal(got))
			}
		}()
	}
	wg.Wait()
}
