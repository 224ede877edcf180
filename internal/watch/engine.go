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

// Package watch keeps one-shot store watches armed. Every fired watch is
// published on the event stream first and then re-armed with the read that
// matches its event kind.
package watch

import (
	"context"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/tochemey/msd/eventstream"
	"github.com/tochemey/msd/log"
	"github.com/tochemey/msd/metric"
	"github.com/tochemey/msd/store"
)

type key struct {
	watch store.WatchKind
	path  string
}

// Engine tracks outstanding watches and re-arms them as they fire.
// At most one watch of each kind is outstanding per path.
type Engine struct {
	store   store.Store
	stream  eventstream.Stream
	logger  log.Logger
	metrics *metric.Metrics
	armed   mapset.Set[key]
}

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the engine logger
func WithLogger(logger log.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithMetrics records fires and re-arms on m
func WithMetrics(m *metric.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// NewEngine creates an Engine reading from st and publishing on stream.
func NewEngine(st store.Store, stream eventstream.Stream, opts ...Option) *Engine {
	e := &Engine{
		store:  st,
		stream: stream,
		logger: log.DefaultLogger,
		armed:  mapset.NewSet[key](),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Children lists the children of path and arms a children watch on it
// unless one is already outstanding.
func (e *Engine) Children(ctx context.Context, path string) ([]string, error) {
	k := key{watch: store.ChildrenWatch, path: path}
	arm := e.armed.Add(k)
	children, err := e.store.Children(ctx, path, arm)
	if err != nil && arm {
		e.armed.Remove(k)
	}
	return children, err
}

// Data reads path and arms a data watch on it unless one is already
// outstanding.
func (e *Engine) Data(ctx context.Context, path string) ([]byte, *store.Stat, error) {
	k := key{watch: store.DataWatch, path: path}
	arm := e.armed.Add(k)
	data, stat, err := e.store.Data(ctx, path, arm)
	if err != nil && arm {
		e.armed.Remove(k)
	}
	return data, stat, err
}

// Outstanding returns the number of armed watches.
func (e *Engine) Outstanding() int {
	return e.armed.Cardinality()
}

// IsArmed reports whether a watch of kind is outstanding on path.
func (e *Engine) IsArmed(kind store.WatchKind, path string) bool {
	return e.armed.Contains(key{watch: kind, path: path})
}

// Reset forgets every outstanding watch. It is called once the session
// that held them is gone.
func (e *Engine) Reset() {
	e.armed.Clear()
}

// Run consumes fired watches until ctx is done or the store closes its
// event channel.
func (e *Engine) Run(ctx context.Context) error {
	events := e.store.Events()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-events:
			if !ok {
				return nil
			}
			e.handle(ctx, event)
		}
	}
}

func (e *Engine) handle(ctx context.Context, event store.Event) {
	e.armed.Remove(key{watch: event.Watch, path: event.Path})

	if event.Kind == store.EventNotWatching {
		e.logger.With("path", event.Path, "watch", event.Watch.String()).
			Warn("watch dropped by the store")
		e.lost(ctx, event.Path, event.Watch, store.ErrSessionLost)
		return
	}

	topic, ok := eventstream.TopicFor(event.Kind)
	if !ok {
		e.logger.Warnf("ignoring unknown event kind %s on %s", event.Kind, event.Path)
		return
	}

	if e.metrics != nil {
		e.metrics.WatchFired(ctx, event.Kind.String())
	}
	e.stream.Publish(topic, eventstream.NodeEvent{Kind: event.Kind, Path: event.Path})

	switch event.Kind {
	case store.EventNodeChildrenChanged:
		e.rearm(ctx, store.ChildrenWatch, event.Path)
	case store.EventNodeDeleted, store.EventNodeDataChanged:
		e.rearm(ctx, store.DataWatch, event.Path)
	}
}

func (e *Engine) rearm(ctx context.Context, kind store.WatchKind, path string) {
	k := key{watch: kind, path: path}
	if !e.armed.Add(k) {
		return
	}

	var err error
	switch kind {
	case store.ChildrenWatch:
		_, err = e.store.Children(ctx, path, true)
	default:
		_, _, err = e.store.Data(ctx, path, true)
	}

	if err != nil {
		e.armed.Remove(k)
		e.logger.With("path", path, "watch", kind.String()).
			Errorf("failed to re-arm watch: %v", err)
		e.lost(ctx, path, kind, err)
		return
	}

	e.logger.Debugf("re-armed %s watch on %s", kind, path)
	if e.metrics != nil {
		e.metrics.Rearmed(ctx, kind.String())
	}
}

func (e *Engine) lost(ctx context.Context, path string, kind store.WatchKind, err error) {
	if e.metrics != nil {
		e.metrics.RearmFailed(ctx, kind.String())
	}
	e.stream.Publish(eventstream.TopicWatchLost, eventstream.WatchLost{Path: path, Watch: kind, Err: err})
}
