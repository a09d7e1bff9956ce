package config

import (
	"math"
	"sort"
	"time"
)

var Presets = map[string]func() *Config{
	"pair": func() *Config {
		cfg := DefaultConfig()
		cfg.Engine.Dt = 0.05
		cfg.Physics.Strength = 4000
		return cfg
	},
	"ring": func() *Config {
		cfg := DefaultConfig()
		cfg.Engine.Dt = 0.01
		cfg.Physics.Strength = 4000
		cfg.Balls = ring(12, 400, 300, 150)
		cfg.Run.Duration = 10 * time.Second
		return cfg
	},
	"cluster": func() *Config {
		cfg := DefaultConfig()
		cfg.Engine.Dt = 0.01
		cfg.Engine.Integrator = "damped"
		cfg.Engine.Damping = 0.999
		cfg.Physics.Strength = 2000
		cfg.Random = RandomConfig{Count: 40, Seed: 1, Width: DefaultWidth, Height: DefaultHeight}
		cfg.Run.Duration = 10 * time.Second
		return cfg
	},
	"anchored": func() *Config {
		cfg := DefaultConfig()
		cfg.Engine.Dt = 0.01
		cfg.Engine.TickInterval = time.Millisecond
		cfg.Physics.Strength = 3000
		cfg.Balls = append([]BallConfig{{X: 400, Y: 300, Pinned: true}}, ring(6, 400, 300, 120)...)
		cfg.Actions = []ActionConfig{
			{At: 1 * time.Second, Op: OpAdd, X: 100, Y: 100},
			{At: 2 * time.Second, Op: OpDrag, X: 400, Y: 300, ToX: 600, ToY: 300},
			{At: 3 * time.Second, Op: OpRemove, X: 100, Y: 100},
		}
		return cfg
	},
	"stress": func() *Config {
		cfg := DefaultConfig()
		cfg.Engine.Dt = 0.001
		cfg.Random = RandomConfig{Count: 200, Seed: 7, Width: DefaultWidth, Height: DefaultHeight}
		cfg.Run.Duration = 3 * time.Second
		return cfg
	},
}

// GetPreset returns a fresh copy of the named preset, or nil.
func GetPreset(name string) *Config {
	fn, ok := Presets[name]
	if !ok {
		return nil
	}
	return fn()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func ring(n int, cx, cy, radius float64) []BallConfig {
	balls := make([]BallConfig, n)
	for i := range balls {
		angle := float64(i) * 2.0 * math.Pi / float64(n)
		balls[i] = BallConfig{
			X: cx + radius*math.Cos(angle),
			Y: cy + radius*math.Sin(angle),
		}
	}
	return balls
}
