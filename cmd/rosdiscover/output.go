package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/alfredjeanlab/appreg/internal/discovery"
	"github.com/alfredjeanlab/appreg/internal/model"
	"github.com/alfredjeanlab/appreg/internal/schema"
	"github.com/alfredjeanlab/appreg/internal/ui"
)

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

// decodeType decodes name as a message, service or action type.
func decodeType(ctx context.Context, types schema.Introspector, name string, service, action bool) (*decodedType, error) {
	d := schema.NewDecoder(types)
	out := &decodedType{Type: name}
	switch {
	case service:
		req, resp, err := d.DecodeServicePair(ctx, name)
		if err != nil {
			return nil, err
		}
		out.Input, out.Output = req, resp
	case action:
		goal, result, err := d.DecodeActionPair(ctx, name)
		if err != nil {
			return nil, err
		}
		out.Input, out.Output = goal.Children, result.Children
	default:
		msg, err := d.DecodeTopLevel(ctx, name)
		if err != nil {
			return nil, err
		}
		out.Input = msg.Children
	}
	return out, nil
}

func printSchema(t *decodedType) error {
	if !yamlOutput {
		return printJSON(t)
	}
	return encodeYAML(os.Stdout, decodedYAML(t))
}

func encodeYAML(w io.Writer, doc *yaml.Node) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return enc.Close()
}

// decodedYAML builds the YAML document by hand so keys keep the
// type/name/value order of the JSON form.
func decodedYAML(t *decodedType) *yaml.Node {
	doc := mapping("type", scalar(t.Type), "input", schemaSeq(t.Input))
	if len(t.Output) > 0 {
		doc.Content = append(doc.Content, scalar("output"), schemaSeq(t.Output))
	}
	return doc
}

func schemaSeq(nodes []*model.SchemaNode) *yaml.Node {
	seq := &yaml.Node{Kind: yaml.SequenceNode}
	for _, n := range nodes {
		seq.Content = append(seq.Content, schemaYAML(n))
	}
	return seq
}

func schemaYAML(n *model.SchemaNode) *yaml.Node {
	var value *yaml.Node
	if n.Kind.IsComposite() {
		value = schemaSeq(n.Children)
	} else {
		value = valueYAML(n.Value)
	}
	return mapping("type", scalar(n.Kind.String()), "name", scalar(n.Name), "value", value)
}

func valueYAML(v any) *yaml.Node {
	switch v := v.(type) {
	case nil:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	case bool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(v)}
	case int:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(v)}
	case float64:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: strconv.FormatFloat(v, 'f', 1, 64)}
	case string:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v}
	default:
		return scalar(fmt.Sprint(v))
	}
}

func scalar(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

func mapping(kv ...any) *yaml.Node {
	m := &yaml.Node{Kind: yaml.MappingNode}
	for i := 0; i < len(kv); i += 2 {
		m.Content = append(m.Content, scalar(kv[i].(string)), kv[i+1].(*yaml.Node))
	}
	return m
}

// reportJSON is the --json form of a run report.
type reportJSON struct {
	*discovery.Report
	Errors []string `json:"errors"`
}

func printReport(r *discovery.Report) error {
	if jsonOutput {
		return printJSON(reportJSON{Report: r, Errors: r.Errors()})
	}
	fmt.Printf("Run %s: %s, %s in %s\n",
		r.RunID,
		ui.RenderOK(fmt.Sprintf("%d registered", len(r.Published))),
		failedText(len(r.Failed)),
		r.Duration.Round(time.Millisecond))
	for _, f := range r.Failed {
		fmt.Printf("  %s %v\n", ui.RenderFail("failed:"), f)
	}
	return nil
}

func failedText(n int) string {
	s := fmt.Sprintf("%d failed", n)
	if n == 0 {
		return ui.RenderMuted(s)
	}
	return ui.RenderFail(s)
}
