package search

import (
	"github.com/meetpoint/service-meeting/pkg/clock"
	"github.com/meetpoint/service-meeting/pkg/debounce"
	"github.com/meetpoint/service-meeting/pkg/geo"
	"github.com/meetpoint/service-meeting/pkg/geocoder"
	"github.com/meetpoint/service-meeting/pkg/loop"
	"github.com/meetpoint/service-meeting/pkg/stream"
)

// AddressPlacer moves the meeting marker to a chosen address.
type AddressPlacer interface {
	SetFromAddress(c geo.Coordinate)
}

// Committer moves the marker when the user settles on an address. Values
// written with form.WithoutEmit never reach it.
type Committer struct {
	field  *AddressField
	placer AddressPlacer
	clock  clock.Clock
	exec   loop.Executor

	debouncer *debounce.Debouncer[*geocoder.AddressCandidate]
	bag       stream.Bag
}

// NewCommitter creates a Committer.
func NewCommitter(field *AddressField, placer AddressPlacer, clk clock.Clock, exec loop.Executor) *Committer {
	return &Committer{field: field, placer: placer, clock: clk, exec: exec}
}

// Start subscribes to the address field.
func (c *Committer) Start() {
	d := debounce.New(c.clock, CommitDebounce, func(a *geocoder.AddressCandidate) {
		if a == nil {
			return
		}
		point := a.Point
		c.exec.Execute(func() { c.placer.SetFromAddress(point) })
	})
	c.debouncer = d
	c.bag.Add(d.Stop)
	c.bag.Add(c.field.ValueChanges(d.Push))
}

// Reset drops a choice that has not settled yet.
func (c *Committer) Reset() {
	if c.debouncer != nil {
		c.debouncer.Cancel()
	}
}

// Stop unsubscribes and drops any pending commit.
func (c *Committer) Stop() {
	c.bag.Release()
}
