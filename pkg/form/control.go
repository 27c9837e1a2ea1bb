// Package form models a single form field whose value can be observed, with
// a way to write programmatic values that listeners do not see.
package form

import (
	"sync"

	"github.com/meetpoint/service-meeting/pkg/stream"
)

// SetOption changes how SetValue notifies listeners.
type SetOption func(*setOptions)

type setOptions struct {
	emit bool
}

// WithoutEmit stores the value without notifying ValueChanges subscribers.
// Use it for programmatic updates that must not re-enter change handlers.
func WithoutEmit() SetOption {
	return func(o *setOptions) { o.emit = false }
}

// Control holds one field value.
type Control[T any] struct {
	mu      sync.Mutex
	value   T
	changes *stream.Subject[T]
}

// NewControl creates a Control holding the zero value.
func NewControl[T any]() *Control[T] {
	return &Control[T]{changes: stream.NewSubject[T]()}
}

// Value returns the current value.
func (c *Control[T]) Value() T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// SetValue stores v and, unless WithoutEmit is given, publishes it.
func (c *Control[T]) SetValue(v T, opts ...SetOption) {
	o := setOptions{emit: true}
	for _, opt := range opts {
		opt(&o)
	}

	c.mu.Lock()
	c.value = v
	c.mu.Unlock()

	if o.emit {
		c.changes.Publish(v)
	}
}

// Reset restores the zero value and publishes it.
func (c *Control[T]) Reset() {
	var zero T
	c.SetValue(zero)
}

// ValueChanges subscribes fn to emitted values.
func (c *Control[T]) ValueChanges(fn func(T)) stream.Unsubscribe {
	return c.changes.Subscribe(fn)
}
