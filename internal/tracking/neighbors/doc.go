// Package neighbors builds weighted neighborhoods between indexed entities.
//
// A Neighborhood is stored in compressed-row form: all relations sorted by
// (From, To) in one slice plus per-entity offsets, so Of(i) is a subslice
// and iteration order is deterministic. Relations rejected by the filter
// are never stored.
package neighbors
