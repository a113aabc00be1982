// Package run drives the event loop: it owns one primary generator action
// per worker, feeds events through them and hands the finished per-event
// records to a writer.
package run

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/primarygen/internal/event"
	"github.com/banshee-data/primarygen/internal/generator"
	"github.com/banshee-data/primarygen/internal/monitoring"
	"github.com/banshee-data/primarygen/internal/primary"
	"github.com/banshee-data/primarygen/internal/rng"
	"github.com/banshee-data/primarygen/internal/timeutil"
)

// ActionFactory builds the action for one worker, wired to that worker's
// event action and random engine.
type ActionFactory func(worker int, sink *EventAction, engine rng.Engine) (*primary.Action, error)

// RecordWriter receives finished events. It is called concurrently from all
// workers.
type RecordWriter interface {
	WriteEvent(runID string, rec EventRecord) error
}

// Config controls the size and parallelism of a run.
type Config struct {
	Events  int
	Workers int
	Seed    uint64
	// Clock times the run. Nil uses the wall clock.
	Clock timeutil.Clock
}

// Summary describes a completed run.
type Summary struct {
	RunID        string        `json:"run_id"`
	Events       int64         `json:"events"`
	GenParticles int64         `json:"gen_particles"`
	Primaries    int64         `json:"primaries"`
	Workers      int           `json:"workers"`
	Seed         uint64        `json:"seed"`
	Duration     time.Duration `json:"duration"`
	// InputExhausted is set when a file-backed generator ran out of events.
	InputExhausted bool `json:"input_exhausted"`
}

// Manager runs events through per-worker actions.
type Manager struct {
	cfg     Config
	factory ActionFactory
	writer  RecordWriter
}

// NewManager validates cfg and returns a manager. A nil writer discards records.
func NewManager(cfg Config, factory ActionFactory, writer RecordWriter) (*Manager, error) {
	if cfg.Events < 0 {
		return nil, fmt.Errorf("events must be non-negative, got %d", cfg.Events)
	}
	if cfg.Workers < 1 {
		return nil, fmt.Errorf("workers must be at least 1, got %d", cfg.Workers)
	}
	if factory == nil {
		return nil, errors.New("action factory is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = timeutil.RealClock{}
	}
	return &Manager{cfg: cfg, factory: factory, writer: writer}, nil
}

// Run processes cfg.Events events. Event ids are dealt round-robin to the
// workers; each worker processes its events sequentially. The first error
// from any worker cancels the others and is returned.
func (m *Manager) Run(ctx context.Context, runID string) (*Summary, error) {
	start := m.cfg.Clock.Now()
	var events, particles, primaries atomic.Int64
	var exhausted atomic.Bool

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < m.cfg.Workers; w++ {
		g.Go(func() error {
			sink := NewEventAction(w)
			action, err := m.factory(w, sink, rng.ForWorker(m.cfg.Seed, w))
			if err != nil {
				return fmt.Errorf("worker %d: %w", w, err)
			}
			defer func() {
				if err := action.Close(); err != nil {
					monitoring.Logf("worker %d: close action: %v", w, err)
				}
			}()

			for id := w; id < m.cfg.Events; id += m.cfg.Workers {
				if err := ctx.Err(); err != nil {
					return err
				}
				evt := event.New(id)
				sink.BeginOfEvent(id)
				if err := action.GeneratePrimaries(evt); err != nil {
					if errors.Is(err, generator.ErrEndOfInput) {
						monitoring.Logf("worker %d: generator input exhausted at event %d", w, id)
						exhausted.Store(true)
						return nil
					}
					return fmt.Errorf("worker %d, event %d: %w", w, id, err)
				}
				rec := sink.EndOfEvent(evt)
				if m.writer != nil {
					if err := m.writer.WriteEvent(runID, rec); err != nil {
						return fmt.Errorf("worker %d, event %d: write: %w", w, id, err)
					}
				}
				events.Add(1)
				particles.Add(int64(len(rec.GenParticles)))
				primaries.Add(int64(rec.NumPrimaries))
				monitoring.Verbosef(1, "worker %d: event %d done (%d primaries)", w, id, rec.NumPrimaries)
			}
			return nil
		})
	}

	err := g.Wait()
	summary := &Summary{
		RunID:          runID,
		Events:         events.Load(),
		GenParticles:   particles.Load(),
		Primaries:      primaries.Load(),
		Workers:        m.cfg.Workers,
		Seed:           m.cfg.Seed,
		Duration:       m.cfg.Clock.Since(start),
		InputExhausted: exhausted.Load(),
	}
	return summary, err
}
