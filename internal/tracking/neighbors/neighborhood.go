package neighbors

import (
	"sort"

	"github.com/banshee-data/cdc-trackfinder/internal/tracking/relations"
)

// Neighborhood is an immutable directed relation over entities 0..Len()-1.
type Neighborhood struct {
	offsets   []int
	relations []relations.Relation
}

// New builds a neighborhood over n entities from the given relations.
// Relations carrying NotACell or pointing outside [0, n) are dropped; the
// slice is sorted in place.
func New(n int, rels []relations.Relation) *Neighborhood {
	nb := &Neighborhood{}
	nb.Reset(n, rels)
	return nb
}

// Reset rebuilds the neighborhood in place, reusing its storage.
func (nb *Neighborhood) Reset(n int, rels []relations.Relation) {
	kept := rels[:0]
	for _, r := range rels {
		if relations.IsNotACell(r.Weight) || r.From < 0 || r.From >= n || r.To < 0 || r.To >= n {
			continue
		}
		kept = append(kept, r)
	}
	relations.Sort(kept)

	nb.relations = append(nb.relations[:0], kept...)
	if cap(nb.offsets) < n+1 {
		nb.offsets = make([]int, n+1)
	}
	nb.offsets = nb.offsets[:n+1]
	for i := range nb.offsets {
		nb.offsets[i] = 0
	}
	for _, r := range nb.relations {
		nb.offsets[r.From+1]++
	}
	for i := 1; i <= n; i++ {
		nb.offsets[i] += nb.offsets[i-1]
	}
}

// Len returns the number of entities.
func (nb *Neighborhood) Len() int {
	if len(nb.offsets) == 0 {
		return 0
	}
	return len(nb.offsets) - 1
}

// Size returns the number of stored relations.
func (nb *Neighborhood) Size() int { return len(nb.relations) }

// Of returns the relations starting at entity i, ordered by target.
func (nb *Neighborhood) Of(i int) []relations.Relation {
	if i < 0 || i >= nb.Len() {
		return nil
	}
	return nb.relations[nb.offsets[i]:nb.offsets[i+1]]
}

// All returns every relation ordered by (From, To).
func (nb *Neighborhood) All() []relations.Relation { return nb.relations }

// Has reports whether the relation from -> to is present.
func (nb *Neighborhood) Has(from, to int) bool {
	out := nb.Of(from)
	k := sort.Search(len(out), func(k int) bool { return out[k].To >= to })
	return k < len(out) && out[k].To == to
}

// IsSymmetric reports whether every relation has its reverse.
func (nb *Neighborhood) IsSymmetric() bool {
	for _, r := range nb.relations {
		if !nb.Has(r.To, r.From) {
			return false
		}
	}
	return true
}

// Build evaluates filter on every candidate pair produced by candidates and
// returns the accepted relations as a neighborhood over n entities.
func Build(n int, candidates func(from int, yield func(to int)), filter relations.Filter[int]) *Neighborhood {
	var rels []relations.Relation
	for from := 0; from < n; from++ {
		candidates(from, func(to int) {
			if to == from {
				return
			}
			w := filter.Relation(from, to)
			if relations.IsNotACell(w) {
				return
			}
			rels = append(rels, relations.Relation{From: from, To: to, Weight: w})
		})
	}
	return New(n, rels)
}
