// Package stream provides a minimal multicast value stream and a
// subscription bag for releasing handlers on teardown.
package stream

import "sync"

// Unsubscribe detaches a handler. Calling it more than once is safe.
type Unsubscribe func()

// Subject delivers every published value to the handlers subscribed at
// publish time, in subscription order.
type Subject[T any] struct {
	mu       sync.Mutex
	nextID   int
	handlers map[int]func(T)
	order    []int
}

// NewSubject creates an empty Subject.
func NewSubject[T any]() *Subject[T] {
	return &Subject[T]{handlers: make(map[int]func(T))}
}

// Subscribe registers fn and returns a function that removes it.
func (s *Subject[T]) Subscribe(fn func(T)) Unsubscribe {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	s.handlers[id] = fn
	s.order = append(s.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.handlers, id)
			for i, v := range s.order {
				if v == id {
					s.order = append(s.order[:i], s.order[i+1:]...)
					break
				}
			}
		})
	}
}

// Publish sends v to all current subscribers.
func (s *Subject[T]) Publish(v T) {
	s.mu.Lock()
	fns := make([]func(T), 0, len(s.order))
	for _, id := range s.order {
		fns = append(fns, s.handlers[id])
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}

// Len returns the number of active subscribers.
func (s *Subject[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handlers)
}

// Bag collects teardown functions acquired during Start and releases them
// all on Release.
type Bag struct {
	mu    sync.Mutex
	items []func()
}

// Add registers a teardown function.
func (b *Bag) Add(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = append(b.items, fn)
}

// Release runs every registered teardown in reverse order and empties the bag.
// A panicking teardown does not prevent the remaining ones from running; the
// first panic is re-raised once every teardown has run.
func (b *Bag) Release() {
	b.mu.Lock()
	items := b.items
	b.items = nil
	b.mu.Unlock()

	var first any
	for i := len(items) - 1; i >= 0; i-- {
		func() {
			defer func() {
				if r := recover(); r != nil && first == nil {
					first = r
				}
			}()
			items[i]()
		}()
	}
	if first != nil {
		panic(first)
	}
}
