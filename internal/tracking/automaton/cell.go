// Package automaton implements the cellular automaton used to find the
// longest weighted paths through a directed acyclic neighborhood of cells.
//
// Each entity taking part carries a Cell. Relaxation computes for every
// cell the weight of the best path starting at it; extraction then walks
// the best paths in decreasing order, marking cells taken so no cell is
// reported twice.
package automaton

import "math"

// Flags is the bit set carried by a Cell.
type Flags uint8

const (
	// Taken marks a cell already used by an extracted path.
	Taken Flags = 1 << iota
	// Masked excludes a cell from relaxation and extraction.
	Masked
	// Assigned marks a cell whose state was set in the current pass.
	Assigned
	// Cycle marks a cell found on a cycle by the debug check.
	Cycle
)

// Cell is the automaton state attached to an entity.
type Cell struct {
	weight float64
	state  float64
	flags  Flags
}

// CellHolder is implemented by entities that carry a cell.
type CellHolder interface {
	AutomatonCell() *Cell
}

// NewCell returns an unflagged cell with the given weight.
func NewCell(weight float64) Cell { return Cell{weight: weight} }

func (c *Cell) Weight() float64 { return c.weight }

// SetWeight sets the own weight of the cell. A NaN weight masks the cell.
func (c *Cell) SetWeight(w float64) {
	c.weight = w
	if math.IsNaN(w) {
		c.flags |= Masked
	}
}

// State is the weight of the best path starting at the cell, valid after
// relaxation when the Assigned flag is set.
func (c *Cell) State() float64 { return c.state }

func (c *Cell) Flags() Flags { return c.flags }

func (c *Cell) Has(f Flags) bool { return c.flags&f != 0 }

func (c *Cell) Set(f Flags) { c.flags |= f }

func (c *Cell) Unset(f Flags) { c.flags &^= f }

func (c *Cell) Taken() bool { return c.Has(Taken) }

func (c *Cell) SetTaken() { c.Set(Taken) }

func (c *Cell) Masked() bool { return c.Has(Masked) }

// blocked reports whether the cell is excluded from the current pass.
func (c *Cell) blocked() bool { return c.flags&(Taken|Masked) != 0 }

// Reset clears every flag and the state, keeping the weight.
func (c *Cell) Reset() {
	c.flags = 0
	c.state = 0
	if math.IsNaN(c.weight) {
		c.flags = Masked
	}
}

// Cells gives the automaton access to the cells of an indexed collection.
type Cells interface {
	Len() int
	Cell(i int) *Cell
}

type holderSlice[T any, P interface {
	*T
	CellHolder
}] []T

func (s holderSlice[T, P]) Len() int { return len(s) }

func (s holderSlice[T, P]) Cell(i int) *Cell { return P(&s[i]).AutomatonCell() }

// Of adapts a slice of cell holders, whose AutomatonCell method has a
// pointer receiver, to Cells.
func Of[T any, P interface {
	*T
	CellHolder
}](items []T) Cells {
	return holderSlice[T, P](items)
}

// CellSlice adapts a plain slice of cells.
type CellSlice []Cell

func (s CellSlice) Len() int { return len(s) }

func (s CellSlice) Cell(i int) *Cell { return &s[i] }
