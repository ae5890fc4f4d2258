package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/appreg/internal/model"
	"github.com/alfredjeanlab/appreg/internal/presence"
	"github.com/alfredjeanlab/appreg/internal/ui"
)

func TestFilterByCategory(t *testing.T) {
	apps := []*model.Application{
		{Name: "/chatter", Category: "Topics"},
		{Name: "/fib", Category: "Actions"},
		{Name: "/rosout", Category: "Topics"},
	}
	if got := filterByCategory(apps, ""); len(got) != 3 {
		t.Fatalf("expected no filtering, got %d", len(got))
	}
	got := filterByCategory(apps, "Topics")
	if len(got) != 2 || got[0].Name != "/chatter" || got[1].Name != "/rosout" {
		t.Fatalf("unexpected filter result %v", got)
	}
}

func newCreateFlags() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Flags().StringP("file", "f", "", "")
	cmd.Flags().String("name", "", "")
	cmd.Flags().String("category", "", "")
	cmd.Flags().String("description", "", "")
	cmd.Flags().String("binding", "", "")
	return cmd
}

func TestApplicationFromFlags_FileWithOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.json")
	doc := `{"name":"/from-file","category":"Topics","parameters":{"input":{"type":"Integer","name":"x","value":0}}}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	cmd := newCreateFlags()
	if err := cmd.Flags().Parse([]string{"-f", path, "--name", "/override"}); err != nil {
		t.Fatal(err)
	}
	app, err := applicationFromFlags(cmd)
	if err != nil {
		t.Fatalf("applicationFromFlags: %v", err)
	}
	if app.Name != "/override" || app.Category != "Topics" {
		t.Fatalf("unexpected application %+v", app)
	}
	if len(app.Parameters.Input) != 1 || app.Parameters.Output == nil || app.Endpoint == nil {
		t.Fatalf("expected normalized parameters, got %+v", app.Parameters)
	}
}

func TestApplicationFromFlags_Stdin(t *testing.T) {
	cmd := newCreateFlags()
	cmd.SetIn(strings.NewReader(`{"name":"/stdin"}`))
	if err := cmd.Flags().Parse([]string{"--file", "-"}); err != nil {
		t.Fatal(err)
	}
	app, err := applicationFromFlags(cmd)
	if err != nil {
		t.Fatalf("applicationFromFlags: %v", err)
	}
	if app.Name != "/stdin" {
		t.Fatalf("expected name from stdin, got %q", app.Name)
	}
}

func TestApplicationFromFlags_BadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	cmd := newCreateFlags()
	_ = cmd.Flags().Parse([]string{"-f", path})
	if _, err := applicationFromFlags(cmd); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestPrintApplication(t *testing.T) {
	ui.ForceNoColor()
	app := &model.Application{
		ID:       "abc",
		Name:     "/chatter",
		Category: "Topics",
		Binding:  "ROS",
		Endpoint: model.NewEndpoint("/chatter", model.EndpointPublish),
		Parameters: model.Parameters{
			Input: model.SchemaList{{
				Name: "stamps",
				Kind: model.KindArray,
				Children: []*model.SchemaNode{
					{Kind: model.KindInteger, Value: 0},
				},
			}},
		},
	}

	var buf bytes.Buffer
	printApplication(&buf, app)
	out := buf.String()
	for _, want := range []string{
		"Name:        /chatter",
		"Endpoint:    topic=/chatter, type=publish",
		"Input:",
		"  stamps Array",
		"    [] Integer = 0",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Output:") {
		t.Fatalf("expected empty output section to be omitted:\n%s", out)
	}
}

func TestPrintAgentTable(t *testing.T) {
	ui.ForceNoColor()
	var buf bytes.Buffer
	printAgentTable(&buf, []presence.Entry{
		{Agent: "/lab", LastRunID: "run-2", IdleSecs: 90.4, Runs: 2, Published: 9, Failed: 1},
		{Agent: "/old", LastRunID: "run-1", Reaped: true},
	})
	out := buf.String()
	for _, want := range []string{"AGENT", "/lab", "alive", "run-2", "1m30s", "/old", "dead", "2 agents"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
