// Package search turns raw user input into geocoding requests: debounced
// address lookup, drag-to-address resolution and committing the chosen
// address to the map.
package search

import (
	"context"
	"strings"
	"time"

	"github.com/meetpoint/service-meeting/pkg/clock"
	"github.com/meetpoint/service-meeting/pkg/debounce"
	"github.com/meetpoint/service-meeting/pkg/form"
	"github.com/meetpoint/service-meeting/pkg/geo"
	"github.com/meetpoint/service-meeting/pkg/geocoder"
	"github.com/meetpoint/service-meeting/pkg/latest"
	"github.com/meetpoint/service-meeting/pkg/loop"
	"github.com/meetpoint/service-meeting/pkg/stream"
	"go.uber.org/zap"
)

const (
	// InputDebounce is the quiet window before typed text is geocoded.
	InputDebounce = 1000 * time.Millisecond
	// ResolveDebounce is the quiet window before a dropped marker is reverse geocoded.
	ResolveDebounce = 250 * time.Millisecond
	// CommitDebounce is the quiet window before a chosen address moves the marker.
	CommitDebounce = 300 * time.Millisecond
)

// AddressField holds the address currently recorded in the meeting form.
type AddressField = form.Control[*geocoder.AddressCandidate]

// NewAddressField creates an empty AddressField.
func NewAddressField() *AddressField {
	return form.NewControl[*geocoder.AddressCandidate]()
}

// AddressLookup is the forward half of a geocoder.
type AddressLookup interface {
	Search(ctx context.Context, query string) ([]geocoder.AddressCandidate, error)
}

// ReverseLookup is the reverse half of a geocoder.
type ReverseLookup interface {
	Reverse(ctx context.Context, point geo.Coordinate) ([]geocoder.AddressCandidate, error)
}

// Searcher produces address suggestions for typed text. Only the answer to
// the most recent query is ever published; a slower answer to an older query
// is dropped when it arrives.
type Searcher struct {
	lookup AddressLookup
	clock  clock.Clock
	exec   loop.Executor
	logger *zap.Logger

	ctx         context.Context
	cancel      context.CancelFunc
	debouncer   *debounce.Debouncer[string]
	seq         latest.Sequencer
	suggestions *stream.Subject[[]geocoder.AddressCandidate]
	bag         stream.Bag
}

// NewSearcher creates a Searcher. Results are delivered through exec.
func NewSearcher(lookup AddressLookup, clk clock.Clock, exec loop.Executor, logger *zap.Logger) *Searcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Searcher{
		lookup:      lookup,
		clock:       clk,
		exec:        exec,
		logger:      logger,
		suggestions: stream.NewSubject[[]geocoder.AddressCandidate](),
	}
}

// Start begins accepting input. Requests are bound to ctx.
func (s *Searcher) Start(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.debouncer = debounce.New(s.clock, InputDebounce, s.issue)
	s.bag.Add(s.debouncer.Stop)
	s.bag.Add(s.cancel)
	s.bag.Add(s.seq.Invalidate)
}

// Stop drops pending input, cancels in-flight requests and releases subscribers.
func (s *Searcher) Stop() {
	s.bag.Release()
}

// Reset drops pending input and discards answers to queries already issued.
func (s *Searcher) Reset() {
	if s.debouncer != nil {
		s.debouncer.Cancel()
	}
	s.seq.Invalidate()
}

// Suggestions subscribes fn to suggestion lists until Stop.
func (s *Searcher) Suggestions(fn func([]geocoder.AddressCandidate)) stream.Unsubscribe {
	unsub := s.suggestions.Subscribe(fn)
	s.bag.Add(unsub)
	return unsub
}

// Input feeds one raw value of the search box.
func (s *Searcher) Input(text string) {
	if s.debouncer == nil {
		return
	}
	s.debouncer.Push(text)
}

func (s *Searcher) issue(text string) {
	query := strings.TrimSpace(text)
	if query == "" {
		return
	}

	ticket := s.seq.Next()
	ctx := s.ctx
	s.logger.Debug("geocode search issued", zap.String("query", query), zap.Uint64("ticket", ticket))

	go func() {
		candidates, err := s.lookup.Search(ctx, query)
		if err != nil {
			s.logger.Debug("geocode search failed", zap.String("query", query), zap.Error(err))
			candidates = nil
		}
		if candidates == nil {
			candidates = []geocoder.AddressCandidate{}
		}

		s.exec.Execute(func() {
			if !s.seq.IsLatest(ticket) {
				s.logger.Debug("discarding superseded geocode result", zap.String("query", query))
				return
			}
			s.suggestions.Publish(candidates)
		})
	}()
}
