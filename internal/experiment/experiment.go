package experiment

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/san-kum/ballsim/internal/ball"
	"github.com/san-kum/ballsim/internal/config"
	"github.com/san-kum/ballsim/internal/metrics"
	"github.com/san-kum/ballsim/internal/sim"
	"go.uber.org/zap"
)

type Result struct {
	Times   []float64
	Energy  []float64
	Counts  []int
	Metrics map[string]float64
	Ticks   uint64
	Elapsed time.Duration
	Final   []ball.Ball
	// Skipped counts actions that found no ball or lost it to a concurrent
	// deletion.
	Skipped int
}

// Experiment drives an engine the way an interactive front end would: it
// fires scripted actions and polls snapshots at a fixed sample rate.
type Experiment struct {
	cfg      *config.Config
	registry *Registry
	log      *zap.Logger
	engine   *sim.Engine
	metrics  []metrics.Metric
}

func New(cfg *config.Config, log *zap.Logger) *Experiment {
	if log == nil {
		log = zap.NewNop()
	}
	return &Experiment{
		cfg:      cfg,
		registry: NewRegistry(),
		log:      log,
	}
}

func (e *Experiment) Setup() error {
	if err := e.cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	stepper, err := e.registry.GetIntegrator(e.cfg.Engine)
	if err != nil {
		return err
	}

	law := e.cfg.Law()
	opts := []sim.Option{
		sim.WithLaw(law),
		sim.WithStepper(stepper),
		sim.WithTimeStep(e.cfg.Engine.Dt),
		sim.WithTickInterval(e.cfg.Engine.TickInterval),
		sim.WithLogger(e.log.Named("engine")),
	}
	initial := e.cfg.InitialBalls()
	if len(initial) > 0 {
		opts = append(opts, sim.WithInitialPositions(nil))
	}
	e.engine = sim.New(opts...)

	for _, b := range initial {
		id := e.engine.AddBall(b.Position())
		if b.Pinned {
			if err := e.engine.SetPinned(id, true); err != nil {
				return err
			}
		}
	}

	e.metrics = e.registry.DefaultMetrics(law)
	return nil
}

func (e *Experiment) AddMetric(m metrics.Metric) { e.metrics = append(e.metrics, m) }

// Engine returns the engine built by Setup.
func (e *Experiment) Engine() *sim.Engine { return e.engine }

// Run starts the engine, samples it until the configured duration elapses or
// ctx is done, and always stops it before returning.
func (e *Experiment) Run(ctx context.Context) (*Result, error) {
	if e.engine == nil {
		return nil, fmt.Errorf("experiment not setup")
	}

	for _, m := range e.metrics {
		m.Reset()
	}

	pending := make([]config.ActionConfig, len(e.cfg.Actions))
	copy(pending, e.cfg.Actions)
	sort.SliceStable(pending, func(i, j int) bool { return pending[i].At < pending[j].At })

	result := &Result{Metrics: make(map[string]float64)}

	runCtx, cancel := context.WithTimeout(ctx, e.cfg.Run.Duration)
	defer cancel()

	ticker := time.NewTicker(time.Second / time.Duration(e.cfg.Run.SampleRate))
	defer ticker.Stop()

	startTicks := e.engine.Ticks()
	start := time.Now()
	e.engine.Start()
	defer e.engine.Close()

	pending = e.fireDue(pending, 0, result)
	e.sample(result, 0)

loop:
	for {
		select {
		case <-runCtx.Done():
			break loop
		case now := <-ticker.C:
			elapsed := now.Sub(start)
			pending = e.fireDue(pending, elapsed, result)
			e.sample(result, elapsed.Seconds())
		}
	}

	e.engine.Stop()
	result.Elapsed = time.Since(start)
	result.Ticks = e.engine.Ticks() - startTicks
	result.Final = e.engine.Balls()
	for _, m := range e.metrics {
		result.Metrics[m.Name()] = m.Value()
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

func (e *Experiment) sample(result *Result, t float64) {
	balls := e.engine.Balls()
	for _, m := range e.metrics {
		m.Observe(balls, t)
	}
	result.Times = append(result.Times, t)
	result.Energy = append(result.Energy, metrics.KineticEnergyOf(balls))
	result.Counts = append(result.Counts, len(balls))
}

func (e *Experiment) fireDue(pending []config.ActionConfig, elapsed time.Duration, result *Result) []config.ActionConfig {
	for len(pending) > 0 && pending[0].At <= elapsed {
		a := pending[0]
		pending = pending[1:]

		applied, err := e.apply(a)
		switch {
		case errors.Is(err, sim.ErrUnknownEntity):
			result.Skipped++
			e.log.Debug("ball vanished during action", zap.String("op", a.Op), zap.Error(err))
		case err != nil:
			// config validation rules out anything else
			e.log.Error("action failed", zap.String("op", a.Op), zap.Error(err))
		case !applied:
			result.Skipped++
			e.log.Debug("no ball at action position",
				zap.String("op", a.Op), zap.Float64("x", a.X), zap.Float64("y", a.Y))
		default:
			e.log.Debug("action applied", zap.String("op", a.Op), zap.Duration("at", a.At))
		}
	}
	return pending
}

func (e *Experiment) apply(a config.ActionConfig) (bool, error) {
	switch a.Op {
	case config.OpAdd:
		e.engine.AddBall(a.Position())
		return true, nil
	case config.OpRemove:
		return !e.engine.RemoveBallAt(a.Position()).IsNull(), nil
	case config.OpPin, config.OpUnpin:
		id := e.engine.FindNearest(a.Position())
		if id.IsNull() {
			return false, nil
		}
		return true, e.engine.SetPinned(id, a.Op == config.OpPin)
	case config.OpDrag:
		g := NewGrab(e.engine)
		ok, err := g.Press(a.Position())
		if !ok || err != nil {
			return false, err
		}
		if err := g.Move(a.Target()); err != nil {
			return true, err
		}
		return true, g.Release(a.Target())
	}
	return false, fmt.Errorf("unknown op %q", a.Op)
}
