// Package loop provides the single event loop the client core runs on.
// Timer callbacks and asynchronous completions are posted to it so that
// marker and viewport state are only ever mutated from one goroutine.
package loop

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// ErrClosed is returned by Post after the loop has stopped.
var ErrClosed = errors.New("event loop closed")

// Executor runs a task on the UI event loop.
type Executor interface {
	Execute(task func())
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(task func())

// Execute calls f(task).
func (f ExecutorFunc) Execute(task func()) { f(task) }

// Immediate runs tasks on the calling goroutine. Use it when the caller
// already serializes events, e.g. in tests.
var Immediate Executor = ExecutorFunc(func(task func()) { task() })

// Loop executes posted tasks one at a time, in posting order.
type Loop struct {
	tasks  chan func()
	done   chan struct{}
	logger *zap.Logger
}

// New creates a Loop with the given queue capacity.
func New(capacity int, logger *zap.Logger) *Loop {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loop{
		tasks:  make(chan func(), capacity),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// Run processes tasks until ctx is cancelled. It blocks.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.done)
	l.logger.Debug("event loop started")
	for {
		select {
		case <-ctx.Done():
			l.logger.Debug("event loop stopped", zap.Error(ctx.Err()))
			return ctx.Err()
		case task := <-l.tasks:
			task()
		}
	}
}

// Post enqueues task. It blocks while the queue is full and fails once the
// loop has stopped.
func (l *Loop) Post(task func()) error {
	select {
	case <-l.done:
		return ErrClosed
	default:
	}
	select {
	case l.tasks <- task:
		return nil
	case <-l.done:
		return ErrClosed
	}
}

// Execute implements Executor. Tasks posted after shutdown are dropped.
func (l *Loop) Execute(task func()) {
	if err := l.Post(task); err != nil {
		l.logger.Debug("dropping task posted after shutdown")
	}
}
