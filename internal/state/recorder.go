// Package state persists reconciliation snapshots. Snapshots are immutable
// values: the recorder folds operation results into a new snapshot and a
// store publishes it with a compare-and-swap on the snapshot serial.
package state

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/reify-io/reify/internal/ir"
)

// Record folds completed-operation results into a new state snapshot. The
// prior snapshot is never modified; it remains the durable fallback until
// the new snapshot is published.
//
// Successful creates and updates are recorded with their post-operation
// attributes and an incremented per-resource serial. Successful destroys
// remove the record entirely. A failed operation keeps the prior record;
// a partially successful create (identifier obtained, attributes
// incomplete) is recorded tainted, forcing destroy-then-create on the
// next cycle.
func Record(prior *ir.State, results []*ir.Result) *ir.State {
	next := prior.DeepCopy()
	next.Serial = prior.Serial + 1
	if next.Version == 0 {
		next.Version = ir.StateVersion
	}
	if next.Lineage == "" {
		next.Lineage = uuid.NewString()
	}

	records := make(map[string]*ir.ResourceState, len(next.Resources))
	for _, rec := range next.Resources {
		records[rec.Addr()] = rec
	}

	for _, result := range results {
		addr := result.Address
		prev := records[addr]

		switch {
		case result.Succeeded() && result.Kind == ir.ActionDestroy:
			delete(records, addr)

		case result.Succeeded():
			rec := &ir.ResourceState{
				Provider:     result.Provider,
				ID:           result.ProviderID,
				Serial:       1,
				Attributes:   result.Attributes,
				Dependencies: append([]string(nil), result.Dependencies...),
			}
			rec.Type, rec.Name = splitAddr(addr)
			if prev != nil {
				rec.Serial = prev.Serial + 1
				if rec.ID == "" {
					rec.ID = prev.ID
				}
			}
			records[addr] = rec

		case result.Partial && result.Kind == ir.ActionCreate:
			rec := &ir.ResourceState{
				Provider:     result.Provider,
				ID:           result.ProviderID,
				Serial:       1,
				Attributes:   result.Attributes,
				Dependencies: append([]string(nil), result.Dependencies...),
				Tainted:      true,
			}
			rec.Type, rec.Name = splitAddr(addr)
			if prev != nil {
				rec.Serial = prev.Serial + 1
			}
			records[addr] = rec

		default:
			// Failed outright: the prior record, if any, stays as-is.
		}
	}

	addrs := make([]string, 0, len(records))
	for addr := range records {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)

	next.Resources = next.Resources[:0]
	for _, addr := range addrs {
		next.Resources = append(next.Resources, records[addr])
	}

	return next
}

// Commit records the results into a new snapshot and publishes it through
// the store in a single compare-and-swap against the prior serial. On
// ConflictError the store is left untouched and the caller should re-read
// state and re-plan.
func Commit(ctx context.Context, store Store, prior *ir.State, results []*ir.Result) (*ir.State, error) {
	next := Record(prior, results)
	if err := store.Swap(ctx, prior.Serial, next); err != nil {
		return nil, err
	}
	return next, nil
}

func splitAddr(addr string) (typ, name string) {
	if i := strings.LastIndex(addr, "."); i >= 0 {
		return addr[:i], addr[i+1:]
	}
	return "", addr
}
