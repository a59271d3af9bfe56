// Package hough implements a lazily refined search tree over a bounded,
// discretized parameter box.
//
// Every axis is split into Division^MaxLevel fine bins. A node covers a
// range of fine bins per axis; its evaluated box extends that range by the
// configured overlap. Children are created on first descent, at most once
// between two calls to Fell, from an arena of nodes addressed by index.
package hough

import (
	"fmt"
	"math"
	"strings"
)

// Interval is a closed range of parameter values.
type Interval struct {
	Lo, Hi float64
}

// Center returns the midpoint.
func (iv Interval) Center() float64 { return (iv.Lo + iv.Hi) / 2 }

// Width returns Hi - Lo.
func (iv Interval) Width() float64 { return iv.Hi - iv.Lo }

// Contains reports whether v lies in the interval.
func (iv Interval) Contains(v float64) bool { return iv.Lo <= v && v <= iv.Hi }

// MinAbs returns the smallest absolute value in the interval.
func (iv Interval) MinAbs() float64 {
	if iv.Lo <= 0 && 0 <= iv.Hi {
		return 0
	}
	return math.Min(math.Abs(iv.Lo), math.Abs(iv.Hi))
}

// Box is one interval per axis.
type Box []Interval

// Center returns the box center.
func (b Box) Center() []float64 {
	out := make([]float64, len(b))
	for i, iv := range b {
		out[i] = iv.Center()
	}
	return out
}

// Contains reports whether the point lies in the box.
func (b Box) Contains(p ...float64) bool {
	if len(p) != len(b) {
		return false
	}
	for i, iv := range b {
		if !iv.Contains(p[i]) {
			return false
		}
	}
	return true
}

func (b Box) String() string {
	parts := make([]string, len(b))
	for i, iv := range b {
		parts[i] = fmt.Sprintf("[%.6g, %.6g]", iv.Lo, iv.Hi)
	}
	return strings.Join(parts, "x")
}

// Axis describes one parameter axis.
type Axis struct {
	Name     string  `json:"name" yaml:"name"`
	Lo       float64 `json:"lo" yaml:"lo"`
	Hi       float64 `json:"hi" yaml:"hi"`
	Division int     `json:"division" yaml:"division"`
	// Overlap widens every node box by this many fine bins on each side.
	Overlap int `json:"overlap" yaml:"overlap"`
}

// MaxAxes bounds the dimension of the parameter space.
const MaxAxes = 3

// Config configures a tree.
type Config struct {
	Axes     []Axis
	MaxLevel int
	// MinWeight is the weight a leaf needs to become a candidate.
	MinWeight float64
	// LevelThresholds optionally gives the pruning threshold per level;
	// levels beyond the slice use MinWeight.
	LevelThresholds []float64
	// CurvatureAxis names the axis bounded by MaxCurvature, -1 for none.
	CurvatureAxis int
	MaxCurvature  float64
	// MaxItemsPerNode truncates the item list of a node; zero disables it.
	MaxItemsPerNode int
	// MaxPasses bounds the weight-descending passes of FindBest; the last
	// allowed pass runs at MinWeight. Zero means no bound, which costs a
	// full walk per distinct pruned weight. Set it for fractional weights.
	MaxPasses int
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if len(c.Axes) == 0 || len(c.Axes) > MaxAxes {
		return fmt.Errorf("hough: need between 1 and %d axes, got %d", MaxAxes, len(c.Axes))
	}
	if c.MaxLevel < 1 {
		return fmt.Errorf("hough: max level must be positive, got %d", c.MaxLevel)
	}
	for _, a := range c.Axes {
		if a.Division < 1 {
			return fmt.Errorf("hough: axis %q: division must be positive, got %d", a.Name, a.Division)
		}
		if !(a.Hi > a.Lo) {
			return fmt.Errorf("hough: axis %q: empty range [%g, %g]", a.Name, a.Lo, a.Hi)
		}
		if a.Overlap < 0 {
			return fmt.Errorf("hough: axis %q: negative overlap %d", a.Name, a.Overlap)
		}
		bins := math.Pow(float64(a.Division), float64(c.MaxLevel))
		if bins > math.MaxInt32 {
			return fmt.Errorf("hough: axis %q: %d^%d fine bins exceed the index range", a.Name, a.Division, c.MaxLevel)
		}
	}
	if c.CurvatureAxis >= len(c.Axes) {
		return fmt.Errorf("hough: curvature axis %d out of range", c.CurvatureAxis)
	}
	if c.MaxPasses < 0 {
		return fmt.Errorf("hough: max passes must be non-negative, got %d", c.MaxPasses)
	}
	if c.MaxItemsPerNode < 0 {
		return fmt.Errorf("hough: max items per node must be non-negative, got %d", c.MaxItemsPerNode)
	}
	return nil
}

func (c Config) threshold(level int) float64 {
	if level < len(c.LevelThresholds) {
		return c.LevelThresholds[level]
	}
	return c.MinWeight
}

// fineBins returns the number of fine bins of axis a.
func (c Config) fineBins(a int) int32 {
	n := int32(1)
	for l := 0; l < c.MaxLevel; l++ {
		n *= int32(c.Axes[a].Division)
	}
	return n
}
