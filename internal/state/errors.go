package state

import "fmt"

// ConflictError reports an optimistic-concurrency failure: the persisted
// snapshot's serial no longer matches the serial the cycle started from.
// The cycle is recoverable by re-reading state and planning again.
type ConflictError struct {
	Expected uint64 // serial the commit was based on
	Found    uint64 // serial currently persisted
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("state serial conflict: commit based on serial %d but store holds %d (state was modified concurrently)", e.Expected, e.Found)
}
