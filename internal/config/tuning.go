package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// Hough input selections.
const (
	HoughInputHits     = "hits"
	HoughInputSegments = "segments"
)

// TuningConfig represents the root configuration for the track finder.
// All fields are optional; the Get* methods supply defaults for omitted
// ones, so partial files are safe.
type TuningConfig struct {
	// Segment finding
	FacetMaxAngle          *float64 `json:"facet_max_angle,omitempty" yaml:"facet_max_angle,omitempty"`
	FacetRelationMaxAngle  *float64 `json:"facet_relation_max_angle,omitempty" yaml:"facet_relation_max_angle,omitempty"`
	FacetSigma             *float64 `json:"facet_sigma,omitempty" yaml:"facet_sigma,omitempty"` // cm
	MinSegmentHits         *int     `json:"min_segment_hits,omitempty" yaml:"min_segment_hits,omitempty"`
	MaxChi2PerHit          *float64 `json:"max_chi2_per_hit,omitempty" yaml:"max_chi2_per_hit,omitempty"`
	MaxAutomatonIterations *int     `json:"max_automaton_iterations,omitempty" yaml:"max_automaton_iterations,omitempty"`
	AutomatonDebug         *bool    `json:"automaton_debug,omitempty" yaml:"automaton_debug,omitempty"`

	// Segment linking
	LinkTolerance *float64 `json:"link_tolerance,omitempty" yaml:"link_tolerance,omitempty"` // cm
	LinkMaxGap    *int     `json:"link_max_gap,omitempty" yaml:"link_max_gap,omitempty"`     // superlayers
	LinkMaxAngle  *float64 `json:"link_max_angle,omitempty" yaml:"link_max_angle,omitempty"` // rad

	// Hough search
	HoughInput         *string  `json:"hough_input,omitempty" yaml:"hough_input,omitempty"` // "hits" or "segments"
	PhiDivision        *int     `json:"phi_division,omitempty" yaml:"phi_division,omitempty"`
	CurvatureDivision  *int     `json:"curvature_division,omitempty" yaml:"curvature_division,omitempty"`
	PhiOverlap         *int     `json:"phi_overlap,omitempty" yaml:"phi_overlap,omitempty"`
	CurvatureOverlap   *int     `json:"curvature_overlap,omitempty" yaml:"curvature_overlap,omitempty"`
	CurvatureRange     *float64 `json:"curvature_range,omitempty" yaml:"curvature_range,omitempty"` // 1/cm, symmetric
	MaxLevel           *int     `json:"max_level,omitempty" yaml:"max_level,omitempty"`
	MinWeight          *float64 `json:"min_weight,omitempty" yaml:"min_weight,omitempty"`
	MaxCurvature       *float64 `json:"max_curvature,omitempty" yaml:"max_curvature,omitempty"` // 1/cm
	MaxItemsPerNode    *int     `json:"max_items_per_node,omitempty" yaml:"max_items_per_node,omitempty"`
	MaxPasses          *int     `json:"max_passes,omitempty" yaml:"max_passes,omitempty"`
	SegmentMinFraction *float64 `json:"segment_min_fraction,omitempty" yaml:"segment_min_fraction,omitempty"`

	// Runner
	Workers *int `json:"workers,omitempty" yaml:"workers,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from the defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a TuningConfig with every field set to the
// value its getter falls back to.
func DefaultTuningConfig() *TuningConfig {
	e := EmptyTuningConfig()
	return &TuningConfig{
		FacetMaxAngle:          ptrFloat64(e.GetFacetMaxAngle()),
		FacetRelationMaxAngle:  ptrFloat64(e.GetFacetRelationMaxAngle()),
		FacetSigma:             ptrFloat64(e.GetFacetSigma()),
		MinSegmentHits:         ptrInt(e.GetMinSegmentHits()),
		MaxChi2PerHit:          ptrFloat64(e.GetMaxChi2PerHit()),
		MaxAutomatonIterations: ptrInt(e.GetMaxAutomatonIterations()),
		AutomatonDebug:         ptrBool(e.GetAutomatonDebug()),
		LinkTolerance:          ptrFloat64(e.GetLinkTolerance()),
		LinkMaxGap:             ptrInt(e.GetLinkMaxGap()),
		LinkMaxAngle:           ptrFloat64(e.GetLinkMaxAngle()),
		HoughInput:             ptrString(e.GetHoughInput()),
		PhiDivision:            ptrInt(e.GetPhiDivision()),
		CurvatureDivision:      ptrInt(e.GetCurvatureDivision()),
		PhiOverlap:             ptrInt(e.GetPhiOverlap()),
		CurvatureOverlap:       ptrInt(e.GetCurvatureOverlap()),
		CurvatureRange:         ptrFloat64(e.GetCurvatureRange()),
		MaxLevel:               ptrInt(e.GetMaxLevel()),
		MinWeight:              ptrFloat64(e.GetMinWeight()),
		MaxCurvature:           ptrFloat64(e.GetMaxCurvature()),
		MaxItemsPerNode:        ptrInt(e.GetMaxItemsPerNode()),
		MaxPasses:              ptrInt(e.GetMaxPasses()),
		SegmentMinFraction:     ptrFloat64(e.GetSegmentMinFraction()),
		Workers:                ptrInt(e.GetWorkers()),
	}
}

// LoadTuningConfig loads a TuningConfig from a JSON or YAML file.
// The file is validated to ensure it has a .json, .yaml or .yml extension
// and is under the max file size. Fields omitted from the file retain
// their default values, so partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	// Validate the config file path.
	cleanPath := filepath.Clean(path)
	ext := filepath.Ext(cleanPath)
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("config file must have .json, .yaml or .yml extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse into empty config. The Get* methods provide fallback
	// defaults for any fields not specified in the file.
	cfg := EmptyTuningConfig()
	if ext == ".json" {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,       // from internal/config/
		"../../../" + DefaultConfigPath,    // from internal/tracking/pipeline/
		"../../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	type floatField struct {
		name string
		v    *float64
	}
	type intField struct {
		name string
		v    *int
	}

	for _, f := range []floatField{
		{"facet_max_angle", c.FacetMaxAngle},
		{"facet_relation_max_angle", c.FacetRelationMaxAngle},
		{"link_max_angle", c.LinkMaxAngle},
	} {
		if f.v != nil && (*f.v <= 0 || *f.v > math.Pi) {
			return fmt.Errorf("%s must be in (0, pi], got %f", f.name, *f.v)
		}
	}
	for _, f := range []floatField{
		{"facet_sigma", c.FacetSigma},
		{"max_chi2_per_hit", c.MaxChi2PerHit},
		{"link_tolerance", c.LinkTolerance},
		{"curvature_range", c.CurvatureRange},
	} {
		if f.v != nil && *f.v <= 0 {
			return fmt.Errorf("%s must be positive, got %f", f.name, *f.v)
		}
	}
	for _, f := range []intField{
		{"max_automaton_iterations", c.MaxAutomatonIterations},
		{"phi_overlap", c.PhiOverlap},
		{"curvature_overlap", c.CurvatureOverlap},
		{"max_items_per_node", c.MaxItemsPerNode},
	} {
		if f.v != nil && *f.v < 0 {
			return fmt.Errorf("%s must be non-negative, got %d", f.name, *f.v)
		}
	}
	for _, f := range []intField{
		{"min_segment_hits", c.MinSegmentHits},
		{"link_max_gap", c.LinkMaxGap},
		{"phi_division", c.PhiDivision},
		{"curvature_division", c.CurvatureDivision},
		{"max_level", c.MaxLevel},
		{"max_passes", c.MaxPasses},
		{"workers", c.Workers},
	} {
		if f.v != nil && *f.v < 1 {
			return fmt.Errorf("%s must be positive, got %d", f.name, *f.v)
		}
	}

	if c.MinWeight != nil && *c.MinWeight < 0 {
		return fmt.Errorf("min_weight must be non-negative, got %f", *c.MinWeight)
	}
	if c.MaxCurvature != nil && *c.MaxCurvature < 0 {
		return fmt.Errorf("max_curvature must be non-negative, got %f", *c.MaxCurvature)
	}
	if c.SegmentMinFraction != nil {
		if *c.SegmentMinFraction < 0 || *c.SegmentMinFraction > 1 {
			return fmt.Errorf("segment_min_fraction must be between 0 and 1, got %f", *c.SegmentMinFraction)
		}
	}
	if c.HoughInput != nil {
		switch *c.HoughInput {
		case "", HoughInputHits, HoughInputSegments:
		default:
			return fmt.Errorf("hough_input must be %q or %q, got %q", HoughInputHits, HoughInputSegments, *c.HoughInput)
		}
	}

	return nil
}

// GetFacetMaxAngle returns the facet_max_angle value or the default.
func (c *TuningConfig) GetFacetMaxAngle() float64 {
	if c.FacetMaxAngle == nil {
		return 0.4
	}
	return *c.FacetMaxAngle
}

// GetFacetRelationMaxAngle returns the facet_relation_max_angle value or the default.
func (c *TuningConfig) GetFacetRelationMaxAngle() float64 {
	if c.FacetRelationMaxAngle == nil {
		return 0.4
	}
	return *c.FacetRelationMaxAngle
}

// GetFacetSigma returns the facet_sigma value or the default.
func (c *TuningConfig) GetFacetSigma() float64 {
	if c.FacetSigma == nil {
		return 0.05
	}
	return *c.FacetSigma
}

// GetMinSegmentHits returns the min_segment_hits value or the default.
func (c *TuningConfig) GetMinSegmentHits() int {
	if c.MinSegmentHits == nil {
		return 3
	}
	return *c.MinSegmentHits
}

// GetMaxChi2PerHit returns the max_chi2_per_hit value or the default.
func (c *TuningConfig) GetMaxChi2PerHit() float64 {
	if c.MaxChi2PerHit == nil {
		return 0.1
	}
	return *c.MaxChi2PerHit
}

// GetMaxAutomatonIterations returns the max_automaton_iterations value or
// the default. Zero bounds the relaxation by the number of cells.
func (c *TuningConfig) GetMaxAutomatonIterations() int {
	if c.MaxAutomatonIterations == nil {
		return 0
	}
	return *c.MaxAutomatonIterations
}

// GetAutomatonDebug returns the automaton_debug value or the default.
func (c *TuningConfig) GetAutomatonDebug() bool {
	if c.AutomatonDebug == nil {
		return false // default: capped relaxations are logged, not fatal
	}
	return *c.AutomatonDebug
}

// GetLinkTolerance returns the link_tolerance value or the default.
func (c *TuningConfig) GetLinkTolerance() float64 {
	if c.LinkTolerance == nil {
		return 1.0
	}
	return *c.LinkTolerance
}

// GetLinkMaxGap returns the link_max_gap value or the default.
func (c *TuningConfig) GetLinkMaxGap() int {
	if c.LinkMaxGap == nil {
		return 2
	}
	return *c.LinkMaxGap
}

// GetLinkMaxAngle returns the link_max_angle value or the default.
func (c *TuningConfig) GetLinkMaxAngle() float64 {
	if c.LinkMaxAngle == nil {
		return 0.5
	}
	return *c.LinkMaxAngle
}

// GetHoughInput returns the hough_input value or the default.
func (c *TuningConfig) GetHoughInput() string {
	if c.HoughInput == nil || *c.HoughInput == "" {
		return HoughInputSegments
	}
	return *c.HoughInput
}

// GetPhiDivision returns the phi_division value or the default.
func (c *TuningConfig) GetPhiDivision() int {
	if c.PhiDivision == nil {
		return 2
	}
	return *c.PhiDivision
}

// GetCurvatureDivision returns the curvature_division value or the default.
func (c *TuningConfig) GetCurvatureDivision() int {
	if c.CurvatureDivision == nil {
		return 2
	}
	return *c.CurvatureDivision
}

// GetPhiOverlap returns the phi_overlap value or the default.
func (c *TuningConfig) GetPhiOverlap() int {
	if c.PhiOverlap == nil {
		return 0
	}
	return *c.PhiOverlap
}

// GetCurvatureOverlap returns the curvature_overlap value or the default.
func (c *TuningConfig) GetCurvatureOverlap() int {
	if c.CurvatureOverlap == nil {
		return 0
	}
	return *c.CurvatureOverlap
}

// GetCurvatureRange returns the curvature_range value or the default.
func (c *TuningConfig) GetCurvatureRange() float64 {
	if c.CurvatureRange == nil {
		return 0.15
	}
	return *c.CurvatureRange
}

// GetMaxLevel returns the max_level value or the default.
func (c *TuningConfig) GetMaxLevel() int {
	if c.MaxLevel == nil {
		return 12
	}
	return *c.MaxLevel
}

// GetMinWeight returns the min_weight value or the default.
func (c *TuningConfig) GetMinWeight() float64 {
	if c.MinWeight == nil {
		return 30
	}
	return *c.MinWeight
}

// GetMaxCurvature returns the max_curvature value or the default.
func (c *TuningConfig) GetMaxCurvature() float64 {
	if c.MaxCurvature == nil {
		return 0.1
	}
	return *c.MaxCurvature
}

// GetMaxItemsPerNode returns the max_items_per_node value or the default.
func (c *TuningConfig) GetMaxItemsPerNode() int {
	if c.MaxItemsPerNode == nil {
		return 0 // default: no cap
	}
	return *c.MaxItemsPerNode
}

// GetMaxPasses returns the max_passes value or the default. Segment votes
// and relation filters give fractional weights, so the weight-descending
// search must stay bounded by a pass count.
func (c *TuningConfig) GetMaxPasses() int {
	if c.MaxPasses == nil {
		return 64
	}
	return *c.MaxPasses
}

// GetSegmentMinFraction returns the segment_min_fraction value or the default.
func (c *TuningConfig) GetSegmentMinFraction() float64 {
	if c.SegmentMinFraction == nil {
		return 0.8
	}
	return *c.SegmentMinFraction
}

// GetWorkers returns the workers value or the default.
func (c *TuningConfig) GetWorkers() int {
	if c.Workers == nil {
		return 4
	}
	return *c.Workers
}
