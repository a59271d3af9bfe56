package automaton

import "fmt"

// CycleError reports a cyclic neighborhood, which the automaton cannot
// relax. It is raised as a panic when debug checking is enabled.
type CycleError struct {
	Cells      int
	Iterations int
	// Cell is one cell on the cycle, or -1 when the cycle was detected by
	// the iteration cap.
	Cell int
}

func (e *CycleError) Error() string {
	if e.Cell >= 0 {
		return fmt.Sprintf("automaton: neighborhood over %d cells contains a cycle through cell %d", e.Cells, e.Cell)
	}
	return fmt.Sprintf("automaton: relaxation over %d cells did not converge after %d iterations", e.Cells, e.Iterations)
}
