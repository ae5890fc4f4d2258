package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alfredjeanlab/appreg/internal/events"
	"github.com/alfredjeanlab/appreg/internal/presence"
)

// RecordDiscovery folds a completed discovery run into the agent roster and
// forwards it to stream clients.
func (s *RegistryServer) RecordDiscovery(evt events.DiscoveryCompleted) {
	if evt.Agent == "" {
		slog.Warn("discovery summary without agent", "run", evt.RunID)
		return
	}
	s.agents.RecordRun(presence.Run{
		Agent:     evt.Agent,
		RunID:     evt.RunID,
		Published: evt.Published,
		Failed:    evt.Failed,
		Errors:    evt.Errors,
		Duration:  evt.Duration,
	})
	s.metrics.Discovery.WithLabelValues(evt.Agent).Inc()
	s.broadcastEvent(events.TopicDiscoveryCompleted, evt)
}

// FollowDiscovery consumes discovery summaries from the event bus until ctx
// is cancelled or the subscription closes.
func (s *RegistryServer) FollowDiscovery(ctx context.Context, sub events.Subscriber) error {
	slog.Info("discovery follower started")
	defer slog.Info("discovery follower stopped")
	return events.Follow(ctx, sub, events.TopicDiscoveryCompleted, s.RecordDiscovery)
}

// handleListAgents handles GET /agents. The optional "stale" query parameter
// hides agents idle for longer than the given duration.
func (s *RegistryServer) handleListAgents(w http.ResponseWriter, r *http.Request) {
	var stale time.Duration
	if v := r.URL.Query().Get("stale"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid stale duration %q", v))
			return
		}
		stale = d
	}
	writeJSON(w, http.StatusOK, map[string]any{"agents": s.agents.Roster(stale)})
}
