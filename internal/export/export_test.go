package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/alfredjeanlab/appreg/internal/model"
	"github.com/alfredjeanlab/appreg/internal/store/memory"
)

func nonEmptyLines(s string) []string {
	var out []string
	for _, l := range strings.Split(s, "\n") {
		if l != "" {
			out = append(out, l)
		}
	}
	return out
}

func seededStore(t *testing.T, ids ...string) *memory.Store {
	t.Helper()
	st := memory.New()
	for _, id := range ids {
		app := &model.Application{ID: id, Name: "/" + id}
		app.Normalize()
		if err := st.CreateApplication(context.Background(), app); err != nil {
			t.Fatalf("seed %s: %v", id, err)
		}
	}
	return st
}

func TestExportJSONL_Empty(t *testing.T) {
	var buf bytes.Buffer
	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	if err := ExportJSONL(context.Background(), memory.New(), &buf, now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := nonEmptyLines(buf.String())
	if len(lines) != 1 {
		t.Fatalf("expected header only, got %d lines", len(lines))
	}
	var h Header
	if err := json.Unmarshal([]byte(lines[0]), &h); err != nil {
		t.Fatalf("unmarshal header: %v", err)
	}
	if h.Version != FormatVersion || h.Type != "header" || h.ApplicationCount != 0 || !h.Timestamp.Equal(now) {
		t.Fatalf("unexpected header: %+v", h)
	}
}

func TestExportJSONL_SortedByID(t *testing.T) {
	st := seededStore(t, "ccc", "aaa", "bbb")

	var buf bytes.Buffer
	if err := ExportJSONL(context.Background(), st, &buf, time.Now()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	lines := nonEmptyLines(buf.String())
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d:\n%s", len(lines), buf.String())
	}
	var h Header
	_ = json.Unmarshal([]byte(lines[0]), &h)
	if h.ApplicationCount != 3 {
		t.Fatalf("expected application_count=3, got %d", h.ApplicationCount)
	}
	for i, want := range []string{"aaa", "bbb", "ccc"} {
		var rec Record
		if err := json.Unmarshal([]byte(lines[i+1]), &rec); err != nil {
			t.Fatalf("unmarshal line %d: %v", i+1, err)
		}
		if rec.Type != "application" || rec.Data.ID != want {
			t.Fatalf("line %d: expected application %s, got %s %s", i+1, want, rec.Type, rec.Data.ID)
		}
	}

	// The store's own order is untouched.
	apps, _ := st.ListApplications(context.Background())
	if apps[0].ID != "ccc" {
		t.Fatalf("expected store order to be preserved, got %s first", apps[0].ID)
	}
}

type failingLister struct{}

func (failingLister) ListApplications(context.Context) ([]*model.Application, error) {
	return nil, errors.New("boom")
}

func TestExportJSONL_ListError(t *testing.T) {
	var buf bytes.Buffer
	err := ExportJSONL(context.Background(), failingLister{}, &buf, time.Now())
	if err == nil || !strings.Contains(err.Error(), "list applications") {
		t.Fatalf("expected wrapped list error, got %v", err)
	}
	if buf.Len() != 0 {
		t.Fatal("expected nothing written on error")
	}
}
