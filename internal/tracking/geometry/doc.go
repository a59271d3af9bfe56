// Package geometry owns the two-dimensional geometry of the drift chamber.
//
// Responsibilities: wire identities and the ideal wire topology, plain
// vectors, tangent lines between drift circles, and the generalized-circle
// trajectory used by every fitting and search stage.
// Key types: WireID, Topology, Vector2D, Line2D, Trajectory2D.
//
// Sign convention: signed distances are positive to the RIGHT of a directed
// line or trajectory. A hit whose wire lies right of the trajectory has a
// positive signed drift length.
//
// Dependency rule: geometry depends on nothing else in internal/tracking.
package geometry
