package engine

import (
	"fmt"
	"strings"
)

// Structural errors abort a cycle before any side effect is attempted.
// Every fatal error names the offending resource identity or identities.

// ValidationError reports a malformed configuration: duplicate identity,
// undeclared variable, or a variable value violating its type constraint.
type ValidationError struct {
	Subject string // resource address or variable name
	Reason  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Subject, e.Reason)
}

// UnresolvedRefError reports a reference to a resource identity that is not
// declared in the configuration.
type UnresolvedRefError struct {
	Referrer string // resource holding the reference
	Target   string // missing identity
}

func (e *UnresolvedRefError) Error() string {
	return fmt.Sprintf("%s references undeclared resource %s", e.Referrer, e.Target)
}

// CycleError reports a dependency cycle, naming the participating
// resources in traversal order.
type CycleError struct {
	Cycle []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle: %s", strings.Join(e.Cycle, " -> "))
}

// PlanningError reports a change set that cannot be ordered, such as a
// residual cycle after a replacement is split into destroy and create
// halves. This is a configuration defect, fatal to the cycle.
type PlanningError struct {
	Addresses []string
	Reason    string
}

func (e *PlanningError) Error() string {
	if len(e.Addresses) > 0 {
		return fmt.Sprintf("cannot order plan: %s (%s)", e.Reason, strings.Join(e.Addresses, ", "))
	}
	return fmt.Sprintf("cannot order plan: %s", e.Reason)
}

// OperationError wraps a per-operation apply failure. It is contained to
// the resource it names and recorded by the state recorder rather than
// aborting independent branches.
type OperationError struct {
	Address string
	Kind    string
	Err     error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s failed for %s: %v", e.Kind, e.Address, e.Err)
}

func (e *OperationError) Unwrap() error { return e.Err }
