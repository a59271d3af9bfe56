package pipeline

import (
	"fmt"
	"math"

	"github.com/banshee-data/cdc-trackfinder/internal/config"
	"github.com/banshee-data/cdc-trackfinder/internal/tracking/hough"
	"github.com/banshee-data/cdc-trackfinder/internal/tracking/segments"
)

// Input selects what votes in the Hough search.
type Input string

const (
	// InputHits lets every wire hit vote with both passage sides.
	InputHits Input = config.HoughInputHits
	// InputSegments lets segments vote with their oriented hits.
	InputSegments Input = config.HoughInputSegments
)

// LinkConfig holds the cuts of the segment linker.
type LinkConfig struct {
	Tolerance float64 // cm
	MaxGap    int     // superlayers
	MaxAngle  float64 // rad
}

// Config is the complete configuration of a Finder.
type Config struct {
	Segments segments.Config
	Link     LinkConfig
	Hough    hough.Config
	Input    Input
	// SegmentMinFraction is the share of a segment's hits that must agree
	// with a Hough box for the segment to vote.
	SegmentMinFraction float64
}

// DefaultConfig returns the configuration behind the getter defaults of
// config.TuningConfig.
func DefaultConfig() Config {
	return ConfigFromTuning(config.EmptyTuningConfig())
}

// ConfigFromTuning converts a tuning file into a Finder configuration. The
// Hough search runs over the direction at the origin in [-pi, pi] and the
// signed curvature in [-r, r] with r the configured curvature range.
func ConfigFromTuning(t *config.TuningConfig) Config {
	r := t.GetCurvatureRange()
	return Config{
		Segments: segments.Config{
			FacetMaxAngle:         t.GetFacetMaxAngle(),
			FacetRelationMaxAngle: t.GetFacetRelationMaxAngle(),
			FacetSigma:            t.GetFacetSigma(),
			MinHits:               t.GetMinSegmentHits(),
			MaxChi2PerHit:         t.GetMaxChi2PerHit(),
			MaxIterations:         t.GetMaxAutomatonIterations(),
			Debug:                 t.GetAutomatonDebug(),
		},
		Link: LinkConfig{
			Tolerance: t.GetLinkTolerance(),
			MaxGap:    t.GetLinkMaxGap(),
			MaxAngle:  t.GetLinkMaxAngle(),
		},
		Hough: hough.Config{
			Axes: []hough.Axis{
				hough.PhiAxis: {Name: "phi0", Lo: -math.Pi, Hi: math.Pi, Division: t.GetPhiDivision(), Overlap: t.GetPhiOverlap()},
				hough.CurvatureAxis: {Name: "curvature", Lo: -r, Hi: r, Division: t.GetCurvatureDivision(), Overlap: t.GetCurvatureOverlap()},
			},
			MaxLevel:        t.GetMaxLevel(),
			MinWeight:       t.GetMinWeight(),
			CurvatureAxis:   hough.CurvatureAxis,
			MaxCurvature:    t.GetMaxCurvature(),
			MaxItemsPerNode: t.GetMaxItemsPerNode(),
			MaxPasses:       t.GetMaxPasses(),
		},
		Input:              Input(t.GetHoughInput()),
		SegmentMinFraction: t.GetSegmentMinFraction(),
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	switch c.Input {
	case InputHits, InputSegments:
	default:
		return fmt.Errorf("pipeline: unknown hough input %q", c.Input)
	}
	if len(c.Hough.Axes) != 2 {
		return fmt.Errorf("pipeline: the helix search needs 2 axes, got %d", len(c.Hough.Axes))
	}
	if err := c.Hough.Validate(); err != nil {
		return err
	}
	if c.Segments.MinHits < 1 {
		return fmt.Errorf("pipeline: segments need at least one hit, got %d", c.Segments.MinHits)
	}
	if c.SegmentMinFraction < 0 || c.SegmentMinFraction > 1 {
		return fmt.Errorf("pipeline: segment fraction %g outside [0, 1]", c.SegmentMinFraction)
	}
	return nil
}
