// Package presence keeps the roster of discovery agents that report to the
// registry.
//
// Every completed discovery run refreshes its agent's entry. A background
// reaper marks agents dead once they stop reporting and later evicts them.
package presence

import (
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Entry is one agent's roster state.
type Entry struct {
	Agent        string        `json:"agent"`
	FirstSeen    time.Time     `json:"first_seen"`
	LastSeen     time.Time     `json:"last_seen"`
	LastRunID    string        `json:"last_run_id"`
	LastDuration time.Duration `json:"last_duration"`
	LastErrors   []string      `json:"last_errors,omitempty"`
	Runs         int64         `json:"runs"`
	Published    int64         `json:"published"` // across all runs
	Failed       int64         `json:"failed"`    // across all runs
	IdleSecs     float64       `json:"idle_secs"`
	Reaped       bool          `json:"reaped,omitempty"`
	ReapedAt     time.Time     `json:"reaped_at,omitempty"`
}

// Run is the summary of one discovery run as reported by an agent.
type Run struct {
	Agent     string
	RunID     string
	Published int
	Failed    int
	Errors    []string
	Duration  time.Duration
}

// ReaperConfig configures the background dead-agent reaper.
type ReaperConfig struct {
	// DeadThreshold is how long an agent may go without reporting before it
	// is marked dead. Default: 15 minutes.
	DeadThreshold time.Duration

	// EvictAfter is how long a dead agent stays on the roster.
	// Default: 30 minutes.
	EvictAfter time.Duration

	// SweepInterval is how often the reaper scans. Default: 60 seconds.
	SweepInterval time.Duration

	// OnDead is called outside the lock for each agent newly marked dead.
	OnDead func(agent string)
}

// Tracker maintains an in-memory roster of discovery agents.
type Tracker struct {
	mu     sync.RWMutex
	agents map[string]*agentState
	now    func() time.Time

	reaperStop chan struct{}
	reaperDone chan struct{}
}

type agentState struct {
	firstSeen    time.Time
	lastSeen     time.Time
	lastRunID    string
	lastDuration time.Duration
	lastErrors   []string
	runs         int64
	published    int64
	failed       int64
	reaped       bool
	reapedAt     time.Time
}

// New creates an empty tracker.
func New() *Tracker {
	return &Tracker{
		agents: make(map[string]*agentState),
		now:    time.Now,
	}
}

// RecordRun refreshes the agent's entry with a completed run. Runs without
// an agent name are ignored.
func (t *Tracker) RecordRun(r Run) {
	if r.Agent == "" {
		return
	}

	now := t.now()
	t.mu.Lock()
	defer t.mu.Unlock()

	state, ok := t.agents[r.Agent]
	if !ok {
		state = &agentState{firstSeen: now}
		t.agents[r.Agent] = state
	}
	if state.reaped {
		slog.Info("presence: agent resurrected", "agent", r.Agent)
		state.reaped = false
		state.reapedAt = time.Time{}
	}

	state.lastSeen = now
	state.lastRunID = r.RunID
	state.lastDuration = r.Duration
	state.lastErrors = append([]string(nil), r.Errors...)
	state.runs++
	state.published += int64(r.Published)
	state.failed += int64(r.Failed)
}

// Roster returns a snapshot of all tracked agents, most recently seen first.
// Agents idle longer than staleThreshold are left out; pass 0 to include all.
func (t *Tracker) Roster(staleThreshold time.Duration) []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	now := t.now()
	entries := make([]Entry, 0, len(t.agents))
	for agent, state := range t.agents {
		idle := now.Sub(state.lastSeen)
		if staleThreshold > 0 && idle > staleThreshold {
			continue
		}
		entries = append(entries, Entry{
			Agent:        agent,
			FirstSeen:    state.firstSeen,
			LastSeen:     state.lastSeen,
			LastRunID:    state.lastRunID,
			LastDuration: state.lastDuration,
			LastErrors:   append([]string(nil), state.lastErrors...),
			Runs:         state.runs,
			Published:    state.published,
			Failed:       state.failed,
			IdleSecs:     idle.Seconds(),
			Reaped:       state.reaped,
			ReapedAt:     state.reapedAt,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].LastSeen.Equal(entries[j].LastSeen) {
			return entries[i].Agent < entries[j].Agent
		}
		return entries[i].LastSeen.After(entries[j].LastSeen)
	})
	return entries
}

// StartReaper launches a goroutine that periodically marks idle agents dead.
// Call Stop to shut it down.
func (t *Tracker) StartReaper(cfg *ReaperConfig) {
	if cfg == nil {
		cfg = &ReaperConfig{}
	}
	if cfg.DeadThreshold == 0 {
		cfg.DeadThreshold = 15 * time.Minute
	}
	if cfg.EvictAfter == 0 {
		cfg.EvictAfter = 30 * time.Minute
	}
	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = 60 * time.Second
	}

	t.reaperStop = make(chan struct{})
	t.reaperDone = make(chan struct{})

	go t.reapLoop(cfg)
	slog.Info("presence: reaper started",
		"dead_threshold", cfg.DeadThreshold,
		"sweep_interval", cfg.SweepInterval)
}

// Stop shuts down the reaper goroutine.
func (t *Tracker) Stop() {
	if t.reaperStop != nil {
		close(t.reaperStop)
		<-t.reaperDone
		t.reaperStop = nil
		t.reaperDone = nil
	}
}

func (t *Tracker) reapLoop(cfg *ReaperConfig) {
	defer close(t.reaperDone)

	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.reaperStop:
			return
		case <-ticker.C:
			t.sweep(cfg)
		}
	}
}

func (t *Tracker) sweep(cfg *ReaperConfig) {
	now := t.now()
	var newlyDead []string

	t.mu.Lock()
	for agent, state := range t.agents {
		if state.reaped {
			if now.Sub(state.reapedAt) > cfg.EvictAfter {
				delete(t.agents, agent)
			}
			continue
		}
		if now.Sub(state.lastSeen) > cfg.DeadThreshold {
			state.reaped = true
			state.reapedAt = now
			newlyDead = append(newlyDead, agent)
		}
	}
	t.mu.Unlock()

	for _, agent := range newlyDead {
		slog.Info("presence: reaper marked agent dead",
			"agent", agent,
			"threshold", cfg.DeadThreshold)
		if cfg.OnDead != nil {
			cfg.OnDead(agent)
		}
	}
}
