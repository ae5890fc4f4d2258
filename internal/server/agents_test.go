package server

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/alfredjeanlab/appreg/internal/events"
	"github.com/alfredjeanlab/appreg/internal/presence"
)

// chanSubscriber hands out a single test-controlled channel.
type chanSubscriber struct {
	ch       chan []byte
	topic    string
	canceled bool
}

func (s *chanSubscriber) Subscribe(topic string) (<-chan []byte, func(), error) {
	s.topic = topic
	return s.ch, func() { s.canceled = true }, nil
}

func (s *chanSubscriber) Close() error { return nil }

func TestRecordDiscovery(t *testing.T) {
	srv, _, _ := newTestServer()

	srv.RecordDiscovery(events.DiscoveryCompleted{
		Agent:     "/rosdiscover",
		RunID:     "run-1",
		Published: 4,
		Failed:    1,
		Errors:    []string{"service /add: unknown type"},
		Duration:  time.Second,
	})

	roster := srv.Agents().Roster(0)
	if len(roster) != 1 {
		t.Fatalf("expected 1 agent, got %d", len(roster))
	}
	if roster[0].Agent != "/rosdiscover" || roster[0].Published != 4 || roster[0].Failed != 1 {
		t.Errorf("unexpected entry %+v", roster[0])
	}
	if got := testutil.ToFloat64(srv.metrics.Discovery.WithLabelValues("/rosdiscover")); got != 1 {
		t.Errorf("expected discovery counter 1, got %v", got)
	}
	history := srv.sseHub.since(0)
	if len(history) != 1 || history[0].Topic != events.TopicDiscoveryCompleted {
		t.Fatalf("expected one discovery stream event, got %+v", history)
	}
	if !strings.Contains(string(history[0].Data), `"run_id":"run-1"`) {
		t.Errorf("stream payload missing run id: %s", history[0].Data)
	}
}

func TestRecordDiscovery_IgnoresAnonymous(t *testing.T) {
	srv, _, _ := newTestServer()

	srv.RecordDiscovery(events.DiscoveryCompleted{RunID: "run-1"})

	if roster := srv.Agents().Roster(0); len(roster) != 0 {
		t.Errorf("expected empty roster, got %+v", roster)
	}
	if history := srv.sseHub.since(0); len(history) != 0 {
		t.Errorf("expected no stream events, got %d", len(history))
	}
}

func TestFollowDiscovery(t *testing.T) {
	srv, _, _ := newTestServer()
	sub := &chanSubscriber{ch: make(chan []byte, 4)}

	sub.ch <- []byte(`not json`)
	sub.ch <- []byte(`{"agent":"/lab","run_id":"run-7","published":2}`)
	close(sub.ch)

	if err := srv.FollowDiscovery(context.Background(), sub); err != nil {
		t.Fatalf("FollowDiscovery: %v", err)
	}
	if sub.topic != events.TopicDiscoveryCompleted {
		t.Errorf("subscribed to %q", sub.topic)
	}
	if !sub.canceled {
		t.Error("expected subscription to be canceled on return")
	}
	roster := srv.Agents().Roster(0)
	if len(roster) != 1 || roster[0].LastRunID != "run-7" {
		t.Fatalf("unexpected roster %+v", roster)
	}
}

func TestFollowDiscovery_StopsOnCancel(t *testing.T) {
	srv, _, _ := newTestServer()
	sub := &chanSubscriber{ch: make(chan []byte)}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- srv.FollowDiscovery(ctx, sub) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("FollowDiscovery: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("FollowDiscovery did not return after cancel")
	}
}

func TestHandleListAgents(t *testing.T) {
	srv, _, _ := newTestServer()
	h := srv.NewHTTPHandler()

	rec := doRequest(t, h, "GET", "/agents", "")
	requireCode(t, rec.Code, http.StatusOK)
	if body := strings.TrimSpace(rec.Body.String()); body != `{"agents":[]}` {
		t.Errorf("expected empty list, got %s", body)
	}

	srv.RecordDiscovery(events.DiscoveryCompleted{Agent: "/a", RunID: "r1"})
	rec = doRequest(t, h, "GET", "/agents?stale=1h", "")
	requireCode(t, rec.Code, http.StatusOK)
	resp := decodeBody[struct {
		Agents []presence.Entry `json:"agents"`
	}](t, rec)
	if len(resp.Agents) != 1 || resp.Agents[0].Agent != "/a" {
		t.Errorf("unexpected agents %+v", resp.Agents)
	}
}

func TestHandleListAgents_BadStale(t *testing.T) {
	srv, _, _ := newTestServer()

	rec := doRequest(t, srv.NewHTTPHandler(), "GET", "/agents?stale=soon", "")
	requireCode(t, rec.Code, http.StatusBadRequest)
}
