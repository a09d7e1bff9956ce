package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/ballsim/internal/config"
	"github.com/san-kum/ballsim/internal/integrators"
	"github.com/san-kum/ballsim/internal/metrics"
	"github.com/san-kum/ballsim/internal/physics"
	"github.com/san-kum/ballsim/internal/sim"
)

type Registry struct {
	integrators map[string]func(config.EngineConfig) (sim.Stepper, error)
}

func NewRegistry() *Registry {
	r := &Registry{
		integrators: make(map[string]func(config.EngineConfig) (sim.Stepper, error)),
	}

	r.integrators["euler"] = func(config.EngineConfig) (sim.Stepper, error) {
		return integrators.NewEuler(), nil
	}
	r.integrators["damped"] = func(cfg config.EngineConfig) (sim.Stepper, error) {
		return integrators.NewDamped(cfg.Damping)
	}

	return r
}

func (r *Registry) GetIntegrator(cfg config.EngineConfig) (sim.Stepper, error) {
	fn, ok := r.integrators[cfg.Integrator]
	if !ok {
		return nil, fmt.Errorf("unknown integrator: %s", cfg.Integrator)
	}
	return fn(cfg)
}

func (r *Registry) ListIntegrators() []string {
	names := make([]string, 0, len(r.integrators))
	for name := range r.integrators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) DefaultMetrics(law physics.Law) []metrics.Metric {
	return []metrics.Metric{
		metrics.NewKineticEnergy(),
		metrics.NewEnergyDrift(law),
		metrics.NewMaxSpeed(),
		metrics.NewMomentum(),
		metrics.NewSpread(),
		metrics.NewCount(),
	}
}
