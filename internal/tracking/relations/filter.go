package relations

// Filter scores a candidate relation between two entities.
type Filter[T any] interface {
	Relation(from, to T) Weight
}

// FilterFunc adapts a plain function to a Filter.
type FilterFunc[T any] func(from, to T) Weight

func (f FilterFunc[T]) Relation(from, to T) Weight { return f(from, to) }

// CellFilter scores a single entity, giving the initial weight of its
// automaton cell.
type CellFilter[T any] interface {
	Cell(item T) Weight
}

// CellFilterFunc adapts a plain function to a CellFilter.
type CellFilterFunc[T any] func(item T) Weight

func (f CellFilterFunc[T]) Cell(item T) Weight { return f(item) }

// AcceptAll accepts every relation with weight 0.
func AcceptAll[T any]() Filter[T] {
	return FilterFunc[T](func(T, T) Weight { return 0 })
}

// RejectAll rejects every relation.
func RejectAll[T any]() Filter[T] {
	return FilterFunc[T](func(T, T) Weight { return NotACell })
}

// And combines filters: the relation is rejected as soon as one filter
// rejects it, otherwise the weights are summed.
func And[T any](filters ...Filter[T]) Filter[T] {
	return FilterFunc[T](func(from, to T) Weight {
		var sum Weight
		for _, f := range filters {
			w := f.Relation(from, to)
			if IsNotACell(w) {
				return NotACell
			}
			sum += w
		}
		return sum
	})
}

// Symmetric accepts a relation only if the filter accepts it in both
// directions. The weight is the one of the requested direction.
func Symmetric[T any](f Filter[T]) Filter[T] {
	return FilterFunc[T](func(from, to T) Weight {
		if IsNotACell(f.Relation(to, from)) {
			return NotACell
		}
		return f.Relation(from, to)
	})
}

// Counting wraps a filter and counts its decisions. It is not safe for
// concurrent use, matching the single-threaded stages that own it.
type Counting[T any] struct {
	Filter   Filter[T]
	Accepted int
	Rejected int
}

func (c *Counting[T]) Relation(from, to T) Weight {
	w := c.Filter.Relation(from, to)
	if IsNotACell(w) {
		c.Rejected++
	} else {
		c.Accepted++
	}
	return w
}

// Reset zeroes the counters.
func (c *Counting[T]) Reset() {
	c.Accepted, c.Rejected = 0, 0
}
