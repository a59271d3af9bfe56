// Package segments reconstructs track segments inside a cluster of wire
// hits and links segments of different superlayers.
//
// Segment building works on facets: oriented triples of hits on
// neighboring wires, each carrying the three tangents between their drift
// circles. Facets sharing two hits are related, the cellular automaton
// extracts the longest facet chains, and every chain is condensed into a
// segment whose hit positions are the averaged touch points of all facets
// containing the hit. The segment trajectory comes from a Riemann circle
// fit.
package segments
