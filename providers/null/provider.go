// Package null implements a no-op applier. It performs no real-world side
// effect: creates echo their desired attributes back as applied state with
// a synthetic identifier, destroys always succeed. It exists to exercise
// the engine end to end and as the default provider in tests.
package null

import (
	"context"
	"fmt"

	"github.com/reify-io/reify/internal/ir"
	"github.com/reify-io/reify/internal/provider"
)

type Provider struct{}

func New() provider.Interface {
	return &Provider{}
}

func (p *Provider) Apply(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch req.Kind {
	case ir.ActionCreate, ir.ActionUpdate:
		attrs := make(map[string]any, len(req.Desired)+1)
		for k, v := range req.Desired {
			attrs[k] = v
		}
		id := req.PriorID
		if id == "" {
			id = fmt.Sprintf("null-%s", req.Name)
		}
		attrs["id"] = id
		return &provider.Response{ID: id, Attributes: attrs}, nil
	case ir.ActionDestroy:
		return &provider.Response{}, nil
	default:
		return nil, fmt.Errorf("null provider cannot apply %q", req.Kind)
	}
}
