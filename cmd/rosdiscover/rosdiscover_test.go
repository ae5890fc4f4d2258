package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/alfredjeanlab/appreg/internal/rosmsg"
)

func testTypes(t *testing.T) *rosmsg.Registry {
	t.Helper()
	types := rosmsg.NewRegistry()
	_, err := types.LoadFS(fstest.MapFS{
		"demo/msg/Reading.msg":     {Data: []byte("float64 value\nbool ok\nstring[] tags\n")},
		"demo/srv/Scale.srv":       {Data: []byte("float64 factor\n---\nbool done\n")},
		"demo/action/Count.action": {Data: []byte("int32 target\n---\nint32 reached\n---\nint32 current\n")},
	})
	require.NoError(t, err)
	return types
}

func TestDecodeType_Message(t *testing.T) {
	out, err := decodeType(context.Background(), testTypes(t), "demo/Reading", false, false)
	require.NoError(t, err)
	require.Len(t, out.Input, 3)
	assert.Equal(t, "value", out.Input[0].Name)
	assert.Empty(t, out.Output)
}

func TestDecodeType_Service(t *testing.T) {
	out, err := decodeType(context.Background(), testTypes(t), "demo/Scale", true, false)
	require.NoError(t, err)
	require.Len(t, out.Input, 1)
	require.Len(t, out.Output, 1)
	assert.Equal(t, "done", out.Output[0].Name)
}

func TestDecodeType_Action(t *testing.T) {
	out, err := decodeType(context.Background(), testTypes(t), "demo/CountAction", false, true)
	require.NoError(t, err)
	require.Len(t, out.Input, 3)
	assert.Equal(t, "goal_id", out.Input[1].Name)
	goal := out.Input[2]
	require.Len(t, goal.Children, 1)
	assert.Equal(t, "target", goal.Children[0].Name)
	require.Len(t, out.Output, 3)
	assert.Equal(t, "reached", out.Output[2].Children[0].Name)
}

func TestDecodeType_Unknown(t *testing.T) {
	_, err := decodeType(context.Background(), testTypes(t), "demo/Missing", false, false)
	assert.ErrorIs(t, err, rosmsg.ErrUnknownType)
}

func TestDecodedYAML_KeepsKeyOrder(t *testing.T) {
	out, err := decodeType(context.Background(), testTypes(t), "demo/Reading", false, false)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, encodeYAML(&buf, decodedYAML(out)))
	data := buf.Bytes()
	text := buf.String()

	assert.True(t, strings.HasPrefix(text, "type: demo/Reading\ninput:\n"), text)
	assert.Contains(t, text, "- type: Float\n    name: value\n    value: 0.0\n")
	assert.Contains(t, text, "- type: Boolean\n    name: ok\n    value: true\n")
	assert.Contains(t, text, "- type: Array\n    name: tags\n    value:\n      - type: String\n        name: \"\"\n        value: \"\"\n")
	assert.NotContains(t, text, "output:")

	// Parses back as ordinary YAML.
	var generic map[string]any
	require.NoError(t, yaml.Unmarshal(data, &generic))
	assert.Equal(t, "demo/Reading", generic["type"])
}
