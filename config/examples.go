package config

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/rhplan/spatialmath"
)

// builtinExamples are ready-made scenarios, keyed by name.
var builtinExamples = map[string]func() *Config{
	"single-circle": func() *Config {
		cfg := NewConfig()
		cfg.Start, cfg.Goal = Point{X: 1, Y: 0}, Point{X: 10, Y: 10}
		cfg.Obstacles = []*spatialmath.ObstacleConfig{
			{Type: spatialmath.CircleType, X: 5, Y: 5, R: 1, Label: "circle"},
		}
		return cfg
	},
	"multiple-circles": func() *Config {
		cfg := NewConfig()
		cfg.Start, cfg.Goal = Point{X: 0, Y: 0}, Point{X: 10, Y: 10}
		cfg.Obstacles = []*spatialmath.ObstacleConfig{
			{Type: spatialmath.CircleType, X: 3, Y: 2.5, R: 1, Label: "small"},
			{Type: spatialmath.CircleType, X: 6, Y: 6.5, R: 1.5, Label: "large"},
			{Type: spatialmath.CircleType, X: 8.5, Y: 8, R: 0.5, Label: "near goal"},
		}
		return cfg
	},
	"shapes": func() *Config {
		cfg := NewConfig()
		cfg.Start, cfg.Goal = Point{X: -9, Y: -8}, Point{X: 9, Y: 8.5}
		cfg.Obstacles = []*spatialmath.ObstacleConfig{
			{Type: spatialmath.EllipseType, X: 5, Y: 0, RX: 2, RY: 1.5, Label: "ellipse"},
			{Type: spatialmath.PolyhedronType, X: 0, Y: 0, Label: "square", HalfPlanes: []spatialmath.HalfPlaneConfig{
				{Normal: [2]float64{1, 0}, Offset: 1},
				{Normal: [2]float64{-1, 0}, Offset: 1},
				{Normal: [2]float64{0, 1}, Offset: 1},
				{Normal: [2]float64{0, -1}, Offset: 1},
			}},
			{Type: spatialmath.PolyhedronType, X: 0, Y: 5, Label: "pentagon", HalfPlanes: []spatialmath.HalfPlaneConfig{
				{Normal: [2]float64{1, 2}, Offset: 2},
				{Normal: [2]float64{-2, 1}, Offset: 2},
				{Normal: [2]float64{-1, -1}, Offset: 2},
				{Normal: [2]float64{1, -1}, Offset: 2},
				{Normal: [2]float64{0, -1}, Offset: 1.5},
			}},
			{Type: spatialmath.Nonlinear1Type, X: -5, Y: 0, Label: "nonlinear 1"},
			{Type: spatialmath.Nonlinear2Type, X: -5, Y: -5, Label: "nonlinear 2"},
		}
		return cfg
	},
}

// ExampleNames lists the built-in scenarios in alphabetical order.
func ExampleNames() []string {
	names := lo.Keys(builtinExamples)
	sort.Strings(names)
	return names
}

// Example returns a fresh copy of the named built-in scenario.
func Example(name string) (*Config, error) {
	build, ok := builtinExamples[name]
	if !ok {
		return nil, errors.Errorf("unknown example %q, expected one of %v", name, ExampleNames())
	}
	cfg := build()
	cfg.Name = name
	return cfg, nil
}
