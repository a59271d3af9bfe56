package segments

import (
	"math"

	"github.com/banshee-data/cdc-trackfinder/internal/tracking/automaton"
	"github.com/banshee-data/cdc-trackfinder/internal/tracking/neighbors"
	"github.com/banshee-data/cdc-trackfinder/internal/tracking/relations"
)

// Default cuts of the segment linker.
const (
	DefaultLinkTolerance     = 1.0 // cm
	DefaultLinkMaxGap        = 2   // superlayers
	DefaultLinkMaxAngle      = 0.5 // rad
	DefaultLinkMinTrainState = 3
)

// SegmentTrain is a chain of segments ordered outwards, given as indices
// into the linked segment slice.
type SegmentTrain struct {
	Segments []int
	Weight   float64
}

// ExtrapolationFilter relates an inner segment to an outer one when the
// outer hits lie close to the inner trajectory and both run in the same
// direction. The weight lies in [-1, 0], better matches scoring higher.
type ExtrapolationFilter struct {
	Tolerance float64
	MaxGap    int
	MaxAngle  float64
}

func (ef ExtrapolationFilter) Relation(from, to *Segment) relations.Weight {
	gap := to.SuperLayer - from.SuperLayer
	if gap <= 0 || gap > ef.MaxGap || !from.Fitted || !to.Fitted || len(to.Hits) == 0 {
		return relations.NotACell
	}
	var sum float64
	for _, h := range to.Hits {
		sum += math.Abs(from.Trajectory.Distance(h.Pos))
	}
	mean := sum / float64(len(to.Hits))
	if mean > ef.Tolerance {
		return relations.NotACell
	}
	first := to.Hits[0].Pos
	if from.Trajectory.Direction(first).Dot(to.Trajectory.Direction(first)) < math.Cos(ef.MaxAngle) {
		return relations.NotACell
	}
	return -mean / ef.Tolerance
}

// Linker chains segments of increasing superlayer with the cellular
// automaton. Superlayer strictly increases along every relation, so the
// neighborhood is acyclic.
type Linker struct {
	Filter     relations.Filter[*Segment]
	PathFinder automaton.PathFinder
}

// NewLinker returns a linker with the default extrapolation filter.
func NewLinker(tolerance float64, maxGap int, maxAngle float64) *Linker {
	return &Linker{
		Filter:     ExtrapolationFilter{Tolerance: tolerance, MaxGap: maxGap, MaxAngle: maxAngle},
		PathFinder: automaton.PathFinder{MinState: DefaultLinkMinTrainState},
	}
}

// Link returns the disjoint segment trains, best first. Segment cells are
// reset and then marked taken by the extraction.
func (l *Linker) Link(segs []Segment) []SegmentTrain {
	if len(segs) == 0 {
		return nil
	}
	var rels []relations.Relation
	for i := range segs {
		segs[i].cell.Reset()
		for j := range segs {
			if segs[j].SuperLayer <= segs[i].SuperLayer {
				continue
			}
			w := l.Filter.Relation(&segs[i], &segs[j])
			if relations.IsNotACell(w) {
				continue
			}
			rels = append(rels, relations.Relation{From: i, To: j, Weight: w})
		}
	}
	nb := neighbors.New(len(segs), rels)

	var trains []SegmentTrain
	for _, path := range l.PathFinder.Apply(automaton.Of(segs), nb) {
		trains = append(trains, SegmentTrain{
			Segments: path,
			Weight:   segs[path[0]].cell.State(),
		})
	}
	diagf("linked %d segments into %d trains over %d relations", len(segs), len(trains), nb.Size())
	return trains
}
