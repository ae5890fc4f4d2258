package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alfredjeanlab/appreg/internal/idgen"
	"github.com/alfredjeanlab/appreg/internal/model"
)

// DefaultWorkers is the worker pool size when none is configured.
const DefaultWorkers = 4

// Published is an entity that was registered successfully.
type Published struct {
	Entity Entity `json:"entity"`
	ID     string `json:"id"`
}

// Report summarises one discovery run.
type Report struct {
	RunID     string         `json:"run_id"`
	StartedAt time.Time      `json:"started_at"`
	Duration  time.Duration  `json:"duration"`
	Published []Published    `json:"published"`
	Failed    []*EntityError `json:"-"`
}

// Errors returns the failure messages of the run, in entity order.
func (r *Report) Errors() []string {
	out := make([]string, len(r.Failed))
	for i, f := range r.Failed {
		out[i] = f.Error()
	}
	return out
}

// Agent runs discovery passes over a ROS graph.
type Agent struct {
	enum    *Enumerator
	pub     *Publisher
	workers int
	metrics *Metrics
	logger  *slog.Logger
}

// AgentOption configures an Agent.
type AgentOption func(*Agent)

// WithWorkers bounds the number of entities processed concurrently.
func WithWorkers(n int) AgentOption {
	return func(a *Agent) {
		if n > 0 {
			a.workers = n
		}
	}
}

// WithMetrics records per-entity outcomes in m.
func WithMetrics(m *Metrics) AgentOption {
	return func(a *Agent) { a.metrics = m }
}

// WithLogger sets the agent's logger.
func WithLogger(l *slog.Logger) AgentOption {
	return func(a *Agent) { a.logger = l }
}

// NewAgent returns an agent that enumerates with enum and registers with pub.
func NewAgent(enum *Enumerator, pub *Publisher, opts ...AgentOption) *Agent {
	a := &Agent{
		enum:    enum,
		pub:     pub,
		workers: DefaultWorkers,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.metrics == nil {
		a.metrics = NewMetrics(nil)
	}
	return a
}

// Enumerate lists topics, actions and services in that order. Service types
// are resolved later, per entity.
func (a *Agent) Enumerate(ctx context.Context) ([]Entity, error) {
	topics, err := a.enum.ListTopics(ctx)
	if err != nil {
		return nil, err
	}
	actions, err := a.enum.ListActions(ctx)
	if err != nil {
		return nil, err
	}
	services, err := a.enum.ListServiceNames(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Entity, 0, len(topics)+len(actions)+len(services))
	out = append(out, topics...)
	out = append(out, actions...)
	return append(out, services...), nil
}

// Run performs one discovery pass. Failures of individual entities are
// logged and collected in the report; only enumeration failures or
// cancellation return an error.
func (a *Agent) Run(ctx context.Context) (*Report, error) {
	runID, err := idgen.Generate()
	if err != nil {
		return nil, err
	}
	report := &Report{RunID: runID, StartedAt: time.Now().UTC()}
	log := a.logger.With("run", runID)

	entities, err := a.Enumerate(ctx)
	if err != nil {
		return nil, fmt.Errorf("enumerate: %w", err)
	}
	log.Info("discovery started", "entities", len(entities), "workers", a.workers)

	type outcome struct {
		id  string
		err error
	}
	outcomes := make([]outcome, len(entities))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	for i, ent := range entities {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			id, err := a.process(gctx, ent)
			outcomes[i] = outcome{id: id, err: err}
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for i, ent := range entities {
		o := outcomes[i]
		if o.err != nil {
			report.Failed = append(report.Failed, &EntityError{Entity: ent, Err: o.err})
			continue
		}
		report.Published = append(report.Published, Published{Entity: ent, ID: o.id})
	}
	report.Duration = time.Since(report.StartedAt)

	a.metrics.Runs.Inc()
	a.metrics.Duration.Observe(report.Duration.Seconds())
	log.Info("discovery finished",
		"published", len(report.Published),
		"failed", len(report.Failed),
		"duration", report.Duration,
	)
	return report, nil
}

// process resolves, decodes and registers a single entity.
func (a *Agent) process(ctx context.Context, ent Entity) (string, error) {
	var err error
	if ent.Category == model.CategoryServices && ent.Type == "" {
		ent, err = a.enum.ResolveService(ctx, ent)
		if err != nil {
			a.fail(ent, fmt.Errorf("resolve type: %w", err))
			return "", err
		}
	}
	app, err := a.pub.Publish(ctx, ent)
	if err != nil {
		a.fail(ent, err)
		return "", err
	}
	a.metrics.Entities.WithLabelValues(string(ent.Category), resultPublished).Inc()
	a.logger.Debug("entity registered", "entity", ent.Name, "category", ent.Category, "id", app.ID)
	return app.ID, nil
}

func (a *Agent) fail(ent Entity, err error) {
	a.metrics.Entities.WithLabelValues(string(ent.Category), resultFailed).Inc()
	a.logger.Warn("entity skipped", "entity", ent.Name, "category", ent.Category, "type", ent.Type, "err", err)
}

// RunEvery runs discovery immediately and then on every tick of interval
// until ctx is cancelled. Each report, or the error of a failed pass, is
// handed to fn. A failed pass does not stop the loop.
func (a *Agent) RunEvery(ctx context.Context, interval time.Duration, fn func(*Report, error)) {
	tick := func() {
		report, err := a.Run(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			a.logger.Error("discovery run failed", "err", err)
		}
		fn(report, err)
	}

	tick()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tick()
		}
	}
}
