package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/reify-io/reify/internal/ir"
	"github.com/reify-io/reify/internal/logging"
	"github.com/reify-io/reify/internal/provider"
)

const defaultParallelism = 10

// ApplyEvent reports progress for one operation during execution.
type ApplyEvent struct {
	OpID     string
	Address  string
	Kind     ir.Action
	Status   string // "started", "completed", "failed", "skipped"
	Duration time.Duration
	Error    error
}

// ApplyCallback is called for each apply event if set.
type ApplyCallback func(event ApplyEvent)

// Executor runs a plan's operations against the provider registry.
// Operations whose dependency sets are satisfied run concurrently up to
// Parallelism; same-identity operations are serialized through the plan's
// dependency edges. With the default halt policy a failure prevents
// dependent operations from starting while independent branches finish;
// every completed result is returned so no successful work is lost.
type Executor struct {
	registry        *provider.Registry
	Parallelism     int
	ContinueOnError bool
	Timeout         time.Duration
	Retry           *RetryPolicy
	Callback        ApplyCallback
}

func NewExecutor(registry *provider.Registry) *Executor {
	return &Executor{
		registry:    registry,
		Parallelism: defaultParallelism,
		Timeout:     DefaultTimeout,
	}
}

// Execute runs every operation of the plan and returns the collected
// results in completion order. The prior state is read-only; recording the
// results into a new snapshot is the state recorder's job.
func (e *Executor) Execute(ctx context.Context, plan *ir.Plan, prior *ir.State) []*ir.Result {
	// Live attribute values by address, used to resolve references that
	// were unknown at plan time. Seeded from the prior state and updated
	// as operations complete.
	live := make(map[string]map[string]any)
	liveIDs := make(map[string]string)
	for _, rec := range prior.Resources {
		live[rec.Addr()] = rec.Attributes
		liveIDs[rec.Addr()] = rec.ID
	}
	var liveMu sync.Mutex

	index := make(map[string]*ir.Operation, len(plan.Operations))
	for _, op := range plan.Operations {
		index[op.ID] = op
	}

	var (
		mu        sync.Mutex
		cond      = sync.NewCond(&mu)
		completed = make(map[string]bool)
		failed    = make(map[string]bool)
		halted    bool
		results   []*ir.Result
	)

	emit := func(event ApplyEvent) {
		if e.Callback != nil {
			e.Callback(event)
		}
	}

	parallelism := e.Parallelism
	if parallelism <= 0 {
		parallelism = defaultParallelism
	}
	sem := make(chan struct{}, parallelism)

	// No-ops are complete by definition; settle them before any worker
	// starts checking dependencies.
	for _, op := range plan.Operations {
		if op.Kind == ir.ActionNoop {
			completed[op.ID] = true
		}
	}

	var wg sync.WaitGroup
	for _, op := range plan.Operations {
		if op.Kind == ir.ActionNoop {
			continue
		}

		wg.Add(1)
		go func(op *ir.Operation) {
			defer wg.Done()

			mu.Lock()
			for {
				if halted || ctx.Err() != nil {
					failed[op.ID] = true
					mu.Unlock()
					cond.Broadcast()
					emit(ApplyEvent{OpID: op.ID, Address: op.Address, Kind: op.Kind, Status: "skipped"})
					return
				}

				ready := true
				skip := false
				for _, dep := range op.DependsOn {
					if _, ok := index[dep]; !ok {
						continue
					}
					if failed[dep] {
						skip = true
						break
					}
					if !completed[dep] {
						ready = false
						break
					}
				}
				if skip {
					failed[op.ID] = true
					mu.Unlock()
					cond.Broadcast()
					emit(ApplyEvent{OpID: op.ID, Address: op.Address, Kind: op.Kind, Status: "skipped"})
					return
				}
				if ready {
					break
				}
				cond.Wait()
			}
			mu.Unlock()

			sem <- struct{}{}
			start := time.Now()
			emit(ApplyEvent{OpID: op.ID, Address: op.Address, Kind: op.Kind, Status: "started"})
			result := e.executeOp(ctx, op, live, liveIDs, &liveMu)
			<-sem

			mu.Lock()
			results = append(results, result)
			if result.Succeeded() {
				completed[op.ID] = true
			} else {
				failed[op.ID] = true
				if !e.ContinueOnError {
					halted = true
				}
			}
			mu.Unlock()
			cond.Broadcast()

			status := "completed"
			var opErr error
			if !result.Succeeded() {
				status = "failed"
				opErr = &OperationError{Address: op.Address, Kind: string(op.Kind), Err: fmt.Errorf("%s", result.Error)}
			}
			emit(ApplyEvent{OpID: op.ID, Address: op.Address, Kind: op.Kind, Status: status, Duration: time.Since(start), Error: opErr})
		}(op)
	}

	wg.Wait()
	return results
}

func (e *Executor) executeOp(ctx context.Context, op *ir.Operation, live map[string]map[string]any, liveIDs map[string]string, liveMu *sync.Mutex) *ir.Result {
	logging.Debug("applying operation", "op", op.ID, "kind", op.Kind)

	result := &ir.Result{
		OpID:         op.ID,
		Address:      op.Address,
		Kind:         op.Kind,
		Status:       ir.ResultFailure,
		Provider:     op.Provider,
		Dependencies: append([]string(nil), op.Dependencies...),
	}

	timeout := e.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	prov, err := e.registry.Get(op.Provider)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	req := &provider.Request{
		Address: op.Address,
		Kind:    op.Kind,
	}
	req.Type, req.Name = splitAddr(op.Address)

	liveMu.Lock()
	req.PriorID = liveIDs[op.Address]
	req.Prior = live[op.Address]
	if op.Kind != ir.ActionDestroy {
		desired, resolveErr := resolveLiveRefs(op.Config, live)
		if resolveErr != nil {
			liveMu.Unlock()
			result.Error = resolveErr.Error()
			return result
		}
		req.Desired, _ = desired.(map[string]any)
	}
	liveMu.Unlock()

	var resp *provider.Response
	err = RetryWithBackoff(ctx, e.Retry, func() error {
		var applyErr error
		resp, applyErr = prov.Apply(ctx, req)
		return applyErr
	}, IsTransientError)

	if err != nil {
		result.Error = err.Error()
		// A create that obtained an identifier before failing is partial;
		// the recorder taints it for destroy-then-create on the next cycle.
		if resp != nil && resp.ID != "" && op.Kind == ir.ActionCreate {
			result.ProviderID = resp.ID
			result.Partial = true
		}
		return result
	}

	result.Status = ir.ResultSuccess
	if resp != nil {
		result.ProviderID = resp.ID
		result.Attributes = resp.Attributes
		result.Partial = resp.Partial
	}

	liveMu.Lock()
	switch op.Kind {
	case ir.ActionDestroy:
		delete(live, op.Address)
		delete(liveIDs, op.Address)
	default:
		live[op.Address] = result.Attributes
		liveIDs[op.Address] = result.ProviderID
	}
	liveMu.Unlock()

	return result
}

// resolveLiveRefs replaces the remaining ref:// expressions with live
// attribute values from completed dependencies.
func resolveLiveRefs(v any, live map[string]map[string]any) (any, error) {
	switch val := v.(type) {
	case string:
		ref, ok := ir.ParseRef(val)
		if !ok {
			return val, nil
		}
		attrs, ok := live[ref.Addr]
		if !ok {
			return nil, fmt.Errorf("reference %s: resource has no applied attributes", ref)
		}
		value, ok := attrs[ref.Attribute]
		if !ok {
			return nil, fmt.Errorf("reference %s: attribute not present", ref)
		}
		return value, nil
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			resolved, err := resolveLiveRefs(item, live)
			if err != nil {
				return nil, err
			}
			out[k] = resolved
		}
		return out, nil
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			resolved, err := resolveLiveRefs(item, live)
			if err != nil {
				return nil, err
			}
			out[i] = resolved
		}
		return out, nil
	default:
		return val, nil
	}
}

func splitAddr(addr string) (typ, name string) {
	if i := strings.LastIndex(addr, "."); i >= 0 {
		return addr[:i], addr[i+1:]
	}
	return "", addr
}

// ResolveOutputs resolves a plan's output values against the prior state
// and the attributes produced by this cycle's successful operations.
// Unresolvable references are dropped rather than recorded.
func ResolveOutputs(outputs map[string]any, prior *ir.State, results []*ir.Result) map[string]any {
	if len(outputs) == 0 {
		return nil
	}

	live := make(map[string]map[string]any)
	for _, rec := range prior.Resources {
		live[rec.Addr()] = rec.Attributes
	}
	for _, result := range results {
		if !result.Succeeded() {
			continue
		}
		if result.Kind == ir.ActionDestroy {
			delete(live, result.Address)
		} else {
			live[result.Address] = result.Attributes
		}
	}

	resolved := make(map[string]any, len(outputs))
	for name, value := range outputs {
		out, err := resolveLiveRefs(value, live)
		if err != nil {
			logging.Warn("output dropped: unresolvable reference", "output", name, "error", err)
			continue
		}
		resolved[name] = out
	}
	return resolved
}
