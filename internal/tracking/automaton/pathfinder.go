package automaton

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/banshee-data/cdc-trackfinder/internal/tracking/neighbors"
)

// Path is a sequence of cell indices following neighborhood relations.
type Path []int

// PathFinder extracts disjoint best paths from a cell neighborhood.
type PathFinder struct {
	// MinState is the smallest path weight worth extracting.
	MinState float64
	// MaxIterations caps relaxation sweeps; zero uses the number of cells.
	MaxIterations int
	// Debug checks the neighborhood for cycles with a topological sort
	// before relaxing and panics with *CycleError when one is found or the
	// iteration cap is hit.
	Debug bool
	// OnPath is called after each extracted path has been marked taken,
	// before the next relaxation. It may mask further cells.
	OnPath func(Path)

	// Suspicious counts passes that hit the iteration cap since the
	// finder was created.
	Suspicious int
}

// Relax computes the state of every unblocked cell: its own weight plus the
// best of relation weight plus target state over its unblocked targets, or
// just its own weight when that is larger. Cells are updated in place in
// index order until nothing changes. It returns the number of sweeps that
// changed a state and false when the iteration cap stopped it.
func (pf *PathFinder) Relax(cells Cells, nb *neighbors.Neighborhood) (int, bool) {
	n := cells.Len()
	for i := 0; i < n; i++ {
		c := cells.Cell(i)
		c.Unset(Assigned)
		if c.blocked() {
			continue
		}
		c.state = c.weight
		c.Set(Assigned)
	}

	limit := pf.MaxIterations
	if limit <= 0 {
		limit = n
	}
	for iter := 1; ; iter++ {
		changed := false
		for i := 0; i < n; i++ {
			c := cells.Cell(i)
			if c.blocked() {
				continue
			}
			best := c.weight
			for _, r := range nb.Of(i) {
				if r.To >= n {
					continue
				}
				to := cells.Cell(r.To)
				if to.blocked() {
					continue
				}
				if cand := c.weight + r.Weight + to.state; cand > best {
					best = cand
				}
			}
			if best != c.state {
				c.state = best
				changed = true
			}
		}
		if !changed {
			return iter - 1, true
		}
		if iter >= limit {
			return iter, false
		}
	}
}

// Apply extracts disjoint paths in decreasing order of weight. Each pass
// relaxes the cells not yet taken, starts at the untaken cell with the
// highest state and follows the relation realising that state at every
// step. Ties go to the lower index. Extraction stops when no remaining
// state reaches MinState.
func (pf *PathFinder) Apply(cells Cells, nb *neighbors.Neighborhood) []Path {
	n := cells.Len()
	if n == 0 {
		return nil
	}
	if pf.Debug {
		if bad := FindCycle(nb, n); bad >= 0 {
			cells.Cell(bad).Set(Cycle)
			panic(&CycleError{Cells: n, Cell: bad})
		}
	}

	var paths []Path
	for {
		iters, ok := pf.Relax(cells, nb)
		if !ok {
			pf.Suspicious++
			opsf("relaxation over %d cells hit the iteration cap after %d sweeps; neighborhood is likely cyclic", n, iters)
			if pf.Debug {
				panic(&CycleError{Cells: n, Iterations: iters, Cell: -1})
			}
		}

		start := -1
		best := math.Inf(-1)
		for i := 0; i < n; i++ {
			c := cells.Cell(i)
			if c.blocked() || !c.Has(Assigned) {
				continue
			}
			if c.state > best {
				best, start = c.state, i
			}
		}
		if start < 0 || !(best >= pf.MinState) {
			break
		}

		path := pf.walk(cells, nb, start)
		tracef("extracted path of %d cells with weight %.3f", len(path), best)
		paths = append(paths, path)
		if pf.OnPath != nil {
			pf.OnPath(path)
		}
	}
	diagf("extracted %d paths from %d cells and %d relations", len(paths), n, nb.Size())
	return paths
}

// walk follows the best continuation from start, marking cells taken as it
// goes so a cyclic neighborhood cannot loop.
func (pf *PathFinder) walk(cells Cells, nb *neighbors.Neighborhood, start int) Path {
	path := Path{start}
	cur := start
	cells.Cell(cur).SetTaken()
	for {
		c := cells.Cell(cur)
		next := -1
		best := math.Inf(-1)
		for _, r := range nb.Of(cur) {
			if r.To >= cells.Len() {
				continue
			}
			to := cells.Cell(r.To)
			if to.blocked() {
				continue
			}
			if cand := r.Weight + to.state; cand > best {
				best, next = cand, r.To
			}
		}
		if next < 0 || c.weight+best < c.state {
			return path
		}
		cells.Cell(next).SetTaken()
		path = append(path, next)
		cur = next
	}
}

// FindCycle returns a cell on a directed cycle of nb restricted to the
// first n entities, or -1 when the neighborhood is acyclic.
func FindCycle(nb *neighbors.Neighborhood, n int) int {
	g := simple.NewDirectedGraph()
	for i := 0; i < n; i++ {
		g.AddNode(simple.Node(i))
	}
	for _, r := range nb.All() {
		if r.From >= n || r.To >= n {
			continue
		}
		if r.From == r.To {
			return r.From
		}
		g.SetEdge(g.NewEdge(simple.Node(r.From), simple.Node(r.To)))
	}
	_, err := topo.Sort(g)
	if err == nil {
		return -1
	}
	var unorderable topo.Unorderable
	if errors.As(err, &unorderable) && len(unorderable) > 0 && len(unorderable[0]) > 0 {
		return int(unorderable[0][0].ID())
	}
	return 0
}
