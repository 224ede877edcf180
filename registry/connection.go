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

// Package registry registers service instances as ephemeral nodes of a
// hierarchical coordination store, discovers them, and stores opaque
// configuration values. Every read keeps a watch armed on what it read and
// changes are published to subscribers of the connection.
package registry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/tochemey/msd/errors"
	"github.com/tochemey/msd/eventstream"
	"github.com/tochemey/msd/internal/session"
	"github.com/tochemey/msd/internal/validation"
	"github.com/tochemey/msd/internal/watch"
	"github.com/tochemey/msd/log"
	msdmetric "github.com/tochemey/msd/metric"
	"github.com/tochemey/msd/store"
)

// Connection is a session with the coordination store scoped to a base
// path. Connections are independent of each other and safe for concurrent use.
type Connection struct {
	store         store.Store
	basePath      string
	logger        log.Logger
	meterProvider metric.MeterProvider
	pollDelay     time.Duration
	selector      Selector
	onSessionLost func(eventstream.SessionLost)

	stream  *eventstream.EventsStream
	engine  *watch.Engine
	monitor *session.Monitor
	cancel  context.CancelFunc
	group   *errgroup.Group
	closed  *atomic.Bool
}

func newConnection(basePath string, pollDelay time.Duration, opts ...Option) *Connection {
	c := &Connection{
		basePath:  basePath,
		logger:    log.DefaultLogger,
		pollDelay: pollDelay,
		selector:  NewUniformSelector(nil),
		closed:    atomic.NewBool(false),
	}
	for _, opt := range opts {
		opt.Apply(c)
	}
	return c
}

// New starts a Connection on an established store session. basePath must
// already exist in the store. The caller keeps ownership of st when New
// fails; otherwise Close closes it.
func New(ctx context.Context, st store.Store, basePath string, opts ...Option) (*Connection, error) {
	c := newConnection(basePath, DefaultLivenessPollDelay, opts...)
	if err := c.start(ctx, st); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Connection) start(ctx context.Context, st store.Store) error {
	if err := validation.NewAbsolutePathValidator("basePath", c.basePath).Validate(); err != nil {
		return err
	}

	metrics, err := msdmetric.NewMetrics(c.meterProvider)
	if err != nil {
		return err
	}

	exists, err := st.Exists(ctx, c.basePath)
	if err != nil {
		return errors.NewStoreError("exists", c.basePath, err)
	}
	if !exists {
		return errors.NewPreconditionError(c.basePath,
			fmt.Sprintf("%s not present in the coordination store, services can't get registered", c.basePath))
	}

	c.store = st
	c.logger = c.logger.With("basePath", c.basePath)
	c.stream = eventstream.New(c.logger)
	c.engine = watch.NewEngine(st, c.stream,
		watch.WithLogger(c.logger),
		watch.WithMetrics(metrics))
	c.monitor = session.NewMonitor(st, c.stream,
		session.WithLogger(c.logger),
		session.WithMetrics(metrics),
		session.WithPollDelay(c.pollDelay),
		session.WithLostHandler(c.onSessionLost),
		session.WithTransitionHook(func(state store.State) {
			if state == store.StateExpired || state == store.StateAuthFailed {
				c.engine.Reset()
			}
		}))

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.cancel = cancel
	c.group, runCtx = errgroup.WithContext(runCtx)
	c.group.Go(func() error { return c.engine.Run(runCtx) })
	c.group.Go(func() error { return c.monitor.Run(runCtx) })

	c.logger.Info("connection started")
	return nil
}

// BasePath returns the namespace of the connection
func (c *Connection) BasePath() string {
	return c.basePath
}

// State returns the current session state
func (c *Connection) State() store.State {
	return c.store.State()
}

// SessionLost reports whether the session-lost signal has been emitted.
func (c *Connection) SessionLost() bool {
	return c.monitor.Lost()
}

// Subscribe registers handler for topic. Node topics receive
// eventstream.NodeEvent, TopicSessionLost receives eventstream.SessionLost
// and TopicWatchLost receives eventstream.WatchLost.
func (c *Connection) Subscribe(topic eventstream.Topic, handler eventstream.Handler) (eventstream.Subscription, error) {
	if c.closed.Load() {
		return nil, errors.ErrClosed
	}
	return c.stream.Subscribe(topic, handler)
}

// Unsubscribe removes a subscription
func (c *Connection) Unsubscribe(sub eventstream.Subscription) {
	c.stream.Unsubscribe(sub)
}

// Close stops watching, drains subscribers and ends the store session,
// which removes every instance registered through this connection.
func (c *Connection) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}

	c.cancel()
	err := c.group.Wait()
	c.stream.Close()
	err = multierr.Append(err, c.store.Close())
	c.logger.Info("connection closed")
	return multierr.Append(err, c.logger.Flush())
}

func (c *Connection) ready() error {
	if c.closed.Load() {
		return errors.ErrClosed
	}
	return nil
}
