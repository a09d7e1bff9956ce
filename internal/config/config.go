package config

import (
	"fmt"
	"math/rand/v2"
	"os"
	"time"

	"github.com/san-kum/ballsim/internal/physics"
	"github.com/san-kum/ballsim/internal/sim"
	"gonum.org/v1/gonum/spatial/r2"
	"gopkg.in/yaml.v3"
)

const (
	DefaultDt         = 0.001
	DefaultDuration   = 5 * time.Second
	DefaultSampleRate = 30
	MaxSampleRate     = 1000
	DefaultWidth      = 800.0
	DefaultHeight     = 600.0
	DefaultIntegrator = "euler"
	DefaultDamping    = 1.0
)

// Action ops understood by the experiment runner.
const (
	OpAdd    = "add"
	OpRemove = "remove"
	OpPin    = "pin"
	OpUnpin  = "unpin"
	OpDrag   = "drag"
)

var integratorNames = []string{"euler", "damped"}

type Config struct {
	Engine  EngineConfig   `yaml:"engine"`
	Physics PhysicsConfig  `yaml:"physics"`
	Balls   []BallConfig   `yaml:"balls,omitempty"`
	Random  RandomConfig   `yaml:"random"`
	Run     RunConfig      `yaml:"run"`
	Actions []ActionConfig `yaml:"actions,omitempty"`
	Logging LoggingConfig  `yaml:"logging"`
}

type EngineConfig struct {
	Dt           float64       `yaml:"dt"`
	TickInterval time.Duration `yaml:"tick_interval"`
	Integrator   string        `yaml:"integrator"`
	Damping      float64       `yaml:"damping"` // velocity factor per kick, damped integrator only
}

type PhysicsConfig struct {
	Strength float64 `yaml:"strength"`
	Contact  float64 `yaml:"contact"`
}

type BallConfig struct {
	X      float64 `yaml:"x"`
	Y      float64 `yaml:"y"`
	Pinned bool    `yaml:"pinned,omitempty"`
}

// RandomConfig scatters Count extra balls uniformly over a Width x Height area.
type RandomConfig struct {
	Count  int     `yaml:"count"`
	Seed   int64   `yaml:"seed"`
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

type RunConfig struct {
	Duration   time.Duration `yaml:"duration"`
	SampleRate int           `yaml:"sample_rate"` // snapshots per second
}

// ActionConfig is a scripted user request fired At after the run starts.
// Targets are resolved by position the same way a pointer would pick a ball.
type ActionConfig struct {
	At  time.Duration `yaml:"at"`
	Op  string        `yaml:"op"`
	X   float64       `yaml:"x"`
	Y   float64       `yaml:"y"`
	ToX float64       `yaml:"to_x,omitempty"`
	ToY float64       `yaml:"to_y,omitempty"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "console"
}

func DefaultConfig() *Config {
	law := physics.DefaultLaw()
	return &Config{
		Engine: EngineConfig{
			Dt:         DefaultDt,
			Integrator: DefaultIntegrator,
			Damping:    DefaultDamping,
		},
		Physics: PhysicsConfig{
			Strength: law.Strength,
			Contact:  law.Contact,
		},
		Random: RandomConfig{
			Width:  DefaultWidth,
			Height: DefaultHeight,
		},
		Run: RunConfig{
			Duration:   DefaultDuration,
			SampleRate: DefaultSampleRate,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if !sim.ValidTimeStep(c.Engine.Dt) {
		return fmt.Errorf("engine.dt must be positive and finite, got %f", c.Engine.Dt)
	}
	if c.Engine.TickInterval < 0 {
		return fmt.Errorf("engine.tick_interval must not be negative, got %v", c.Engine.TickInterval)
	}
	if !knownIntegrator(c.Engine.Integrator) {
		return fmt.Errorf("unknown integrator: %s (available: %v)", c.Engine.Integrator, integratorNames)
	}
	if err := c.Law().Validate(); err != nil {
		return err
	}
	if c.Random.Count < 0 {
		return fmt.Errorf("random.count must not be negative, got %d", c.Random.Count)
	}
	if c.Random.Count > 0 && (!(c.Random.Width > 0) || !(c.Random.Height > 0)) {
		return fmt.Errorf("random area must be positive, got %.0fx%.0f", c.Random.Width, c.Random.Height)
	}
	if c.Run.Duration <= 0 {
		return fmt.Errorf("run.duration must be positive, got %v", c.Run.Duration)
	}
	if c.Run.SampleRate <= 0 || c.Run.SampleRate > MaxSampleRate {
		return fmt.Errorf("run.sample_rate must be in [1, %d], got %d", MaxSampleRate, c.Run.SampleRate)
	}
	for i, a := range c.Actions {
		switch a.Op {
		case OpAdd, OpRemove, OpPin, OpUnpin, OpDrag:
		default:
			return fmt.Errorf("actions[%d]: unknown op %q", i, a.Op)
		}
		if a.At < 0 {
			return fmt.Errorf("actions[%d]: negative time %v", i, a.At)
		}
	}
	return nil
}

func knownIntegrator(name string) bool {
	for _, n := range integratorNames {
		if n == name {
			return true
		}
	}
	return false
}

func (c *Config) Law() physics.Law {
	return physics.Law{Strength: c.Physics.Strength, Contact: c.Physics.Contact}
}

// InitialBalls returns the explicit balls followed by the seeded random ones.
// An empty result means the engine defaults apply.
func (c *Config) InitialBalls() []BallConfig {
	balls := make([]BallConfig, 0, len(c.Balls)+c.Random.Count)
	balls = append(balls, c.Balls...)
	if c.Random.Count > 0 {
		seed := uint64(c.Random.Seed)
		rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
		for i := 0; i < c.Random.Count; i++ {
			balls = append(balls, BallConfig{
				X: rng.Float64() * c.Random.Width,
				Y: rng.Float64() * c.Random.Height,
			})
		}
	}
	return balls
}

func (b BallConfig) Position() r2.Vec {
	return r2.Vec{X: b.X, Y: b.Y}
}

func (a ActionConfig) Position() r2.Vec {
	return r2.Vec{X: a.X, Y: a.Y}
}

func (a ActionConfig) Target() r2.Vec {
	return r2.Vec{X: a.ToX, Y: a.ToY}
}
