package hits

import "fmt"

// ContractError is raised as a panic when the index is used in a way that
// indicates a bug in the caller.
type ContractError struct {
	Op  string
	Msg string
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("hits: %s: %s", e.Op, e.Msg)
}

func contractf(op, format string, args ...interface{}) *ContractError {
	return &ContractError{Op: op, Msg: fmt.Sprintf(format, args...)}
}
