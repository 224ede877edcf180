/*
 * MIT License
 *
 * Copyright (c) 2022-2025 Arsene Tochemey Gandote
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 */

// Package session watches the liveness of the store session and raises the
// terminal session-lost signal.
package session

import (
	"context"
	"time"

	"go.uber.org/atomic"

	"github.com/tochemey/msd/eventstream"
	"github.com/tochemey/msd/log"
	"github.com/tochemey/msd/metric"
	"github.com/tochemey/msd/store"
)

// DefaultPollDelay is the delay of the one-shot liveness poll.
const DefaultPollDelay = 5 * time.Second

// Monitor follows session transitions. The first transition to a lost state,
// or a lost state observed by the delayed poll, publishes
// eventstream.TopicSessionLost. Later losses are ignored.
type Monitor struct {
	store        store.Store
	stream       eventstream.Stream
	logger       log.Logger
	metrics      *metric.Metrics
	delay        time.Duration
	signaled     *atomic.Bool
	onLost       func(eventstream.SessionLost)
	onTransition func(store.State)
}

// Option configures a Monitor
type Option func(*Monitor)

// WithLogger sets the monitor logger
func WithLogger(logger log.Logger) Option {
	return func(m *Monitor) { m.logger = logger }
}

// WithMetrics records the session loss on metrics
func WithMetrics(metrics *metric.Metrics) Option {
	return func(m *Monitor) { m.metrics = metrics }
}

// WithPollDelay sets the delay of the liveness poll. A non-positive delay
// disables the poll.
func WithPollDelay(delay time.Duration) Option {
	return func(m *Monitor) { m.delay = delay }
}

// WithLostHandler runs fn once, right after the session-lost signal is
// published.
func WithLostHandler(fn func(eventstream.SessionLost)) Option {
	return func(m *Monitor) { m.onLost = fn }
}

// WithTransitionHook runs fn for every state transition before the monitor
// acts on it.
func WithTransitionHook(fn func(store.State)) Option {
	return func(m *Monitor) { m.onTransition = fn }
}

// NewMonitor creates a Monitor for st
func NewMonitor(st store.Store, stream eventstream.Stream, opts ...Option) *Monitor {
	m := &Monitor{
		store:    st,
		stream:   stream,
		logger:   log.DefaultLogger,
		delay:    DefaultPollDelay,
		signaled: atomic.NewBool(false),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Lost reports whether the session-lost signal has been emitted.
func (m *Monitor) Lost() bool {
	return m.signaled.Load()
}

// Run consumes state transitions until ctx is done or the store closes its
// state channel. The liveness poll is scheduled when Run starts.
func (m *Monitor) Run(ctx context.Context) error {
	var poll <-chan time.Time
	if m.delay > 0 {
		timer := time.NewTimer(m.delay)
		defer timer.Stop()
		poll = timer.C
	}

	states := m.store.StateChanges()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-poll:
			poll = nil
			if state := m.store.State(); state.IsLost() {
				m.signal(ctx, state, "liveness poll found the session "+state.String())
			}
		case state, ok := <-states:
			if !ok {
				return nil
			}
			m.transition(ctx, state)
		}
	}
}

func (m *Monitor) transition(ctx context.Context, state store.State) {
	if m.onTransition != nil {
		m.onTransition(state)
	}

	switch state {
	case store.StateConnected:
		m.logger.Info("session connected")
	case store.StateDisconnected, store.StateAuthFailed, store.StateExpired:
		m.logger.Warnf("session %s", state)
		m.signal(ctx, state, "session "+state.String())
	default:
		m.logger.Debugf("session state %s", state)
	}
}

func (m *Monitor) signal(ctx context.Context, state store.State, reason string) {
	if !m.signaled.CompareAndSwap(false, true) {
		return
	}

	m.logger.With("state", state.String()).Errorf("session lost: %s", reason)
	if m.metrics != nil {
		m.metrics.SessionLost(ctx, state.String())
	}

	lost := eventstream.SessionLost{State: state, Reason: reason}
	m.stream.Publish(eventstream.TopicSessionLost, lost)
	if m.onLost != nil {
		m.onLost(lost)
	}
}
