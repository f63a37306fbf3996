package store

import "errors"

// ErrNotFound is returned when a workflow, node, or HITL request is not
// found. Grounded on registry/store.ErrNotFound in the teacher repo.
var ErrNotFound = errors.New("store: not found")

// Error wraps a store failure with the operation that produced it (spec.md
// §7's StoreError kind). The orchestrator's driver discards the errors of the
// store writes it makes while running a workflow; a store failure does not
// change the workflow's status.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return "store: " + e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
