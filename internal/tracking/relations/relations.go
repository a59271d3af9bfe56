// Package relations holds the weighted relation type shared by the track
// finding stages and the filter strategies that score candidate relations.
//
// A filter returns either a finite weight or NotACell. NotACell marks a
// rejected candidate and is never stored in a neighborhood.
package relations

import (
	"math"
	"sort"
)

// Weight is a relation or cell weight.
type Weight = float64

// NotACell is the rejection sentinel returned by filters.
var NotACell Weight = math.NaN()

// IsNotACell reports whether w is the rejection sentinel.
func IsNotACell(w Weight) bool { return math.IsNaN(w) }

// Relation is a directed, weighted link between two entities addressed by
// their index in the owning container.
type Relation struct {
	From   int
	To     int
	Weight Weight
}

// Less orders relations by From, then To.
func (r Relation) Less(o Relation) bool {
	if r.From != o.From {
		return r.From < o.From
	}
	return r.To < o.To
}

// Sort orders relations by (From, To), keeping the input order of
// duplicates.
func Sort(rels []Relation) {
	sort.SliceStable(rels, func(i, j int) bool { return rels[i].Less(rels[j]) })
}
