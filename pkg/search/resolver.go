package search

import (
	"context"

	"github.com/meetpoint/service-meeting/pkg/clock"
	"github.com/meetpoint/service-meeting/pkg/debounce"
	"github.com/meetpoint/service-meeting/pkg/form"
	"github.com/meetpoint/service-meeting/pkg/geo"
	"github.com/meetpoint/service-meeting/pkg/latest"
	"github.com/meetpoint/service-meeting/pkg/loop"
	"github.com/meetpoint/service-meeting/pkg/stream"
	"go.uber.org/zap"
)

// Resolver reverse geocodes coordinates released by a marker drag and writes
// the best match into the address field without notifying its listeners.
type Resolver struct {
	lookup ReverseLookup
	field  *AddressField
	clock  clock.Clock
	exec   loop.Executor
	logger *zap.Logger

	ctx       context.Context
	debouncer *debounce.Debouncer[geo.Coordinate]
	seq       latest.Sequencer
	bag       stream.Bag
}

// NewResolver creates a Resolver writing into field.
func NewResolver(lookup ReverseLookup, field *AddressField, clk clock.Clock, exec loop.Executor, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{lookup: lookup, field: field, clock: clk, exec: exec, logger: logger}
}

// Start begins accepting coordinates.
func (r *Resolver) Start(ctx context.Context) {
	var cancel context.CancelFunc
	r.ctx, cancel = context.WithCancel(ctx)
	r.debouncer = debounce.New(r.clock, ResolveDebounce, r.issue)
	r.bag.Add(r.debouncer.Stop)
	r.bag.Add(cancel)
	r.bag.Add(r.seq.Invalidate)
}

// Stop drops pending coordinates and cancels in-flight lookups.
func (r *Resolver) Stop() {
	r.bag.Release()
}

// Reset forgets the pending coordinate and any lookup still in flight. The
// Resolver keeps accepting coordinates afterwards.
func (r *Resolver) Reset() {
	if r.debouncer != nil {
		r.debouncer.Cancel()
	}
	r.seq.Invalidate()
}

// Push feeds a coordinate to resolve.
func (r *Resolver) Push(c geo.Coordinate) {
	if r.debouncer == nil {
		return
	}
	r.debouncer.Push(c)
}

func (r *Resolver) issue(c geo.Coordinate) {
	ticket := r.seq.Next()
	ctx := r.ctx

	go func() {
		candidates, err := r.lookup.Reverse(ctx, c)
		if err != nil {
			r.logger.Debug("reverse geocode failed", zap.Stringer("point", c), zap.Error(err))
			return
		}
		if len(candidates) == 0 {
			return
		}
		best := candidates[0]

		r.exec.Execute(func() {
			if !r.seq.IsLatest(ticket) {
				return
			}
			r.field.SetValue(&best, form.WithoutEmit())
		})
	}()
}
