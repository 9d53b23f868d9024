package provider

import (
	"context"

	"github.com/reify-io/reify/internal/ir"
)

// Request describes one operation for an applier. Desired attributes are
// fully resolved; no reference expressions reach a provider.
type Request struct {
	Address string
	Type    string
	Name    string
	Kind    ir.Action
	PriorID string
	Prior   map[string]any
	Desired map[string]any
}

// Response is the outcome of a successful apply call.
type Response struct {
	ID         string
	Attributes map[string]any

	// Partial marks a create that obtained an identifier but incomplete
	// attributes; the resource will be recorded as tainted.
	Partial bool
}

// Interface is the applier capability: perform the real-world side effect
// for one operation and report the result. Everything else about a
// provider is opaque to the engine.
type Interface interface {
	Apply(ctx context.Context, req *Request) (*Response, error)
}
