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

// Package zookeeper implements store.Store on top of a ZooKeeper ensemble.
package zookeeper

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-zookeeper/zk"
	"go.uber.org/atomic"

	"github.com/tochemey/msd/internal/queue"
	"github.com/tochemey/msd/log"
	"github.com/tochemey/msd/store"
)

// Store is a ZooKeeper session
type Store struct {
	conn    *zk.Conn
	logger  log.Logger
	state   *atomic.Int32
	closed  *atomic.Bool
	events  *queue.Pipe[store.Event]
	states  *queue.Pipe[store.State]
	session chan struct{}
	once    sync.Once
	done    chan struct{}
	wg      sync.WaitGroup
}

// enforce compilation error
var _ store.Store = (*Store)(nil)

// Option configures the Store
type Option func(*Store)

// WithLogger sets the logger. The ZooKeeper client logs through it at debug level.
func WithLogger(logger log.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

type zkLogger struct {
	logger log.Logger
}

func (l zkLogger) Printf(format string, args ...any) {
	l.logger.Debugf(format, args...)
}

// NewStore connects to the ensemble and waits until a session is
// established, ctx is done or the dial timeout elapses.
func NewStore(ctx context.Context, config *Config, opts ...Option) (*Store, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	s := &Store{
		logger:  log.DefaultLogger,
		state:   atomic.NewInt32(int32(store.StateUnknown)),
		closed:  atomic.NewBool(false),
		events:  queue.NewPipe[store.Event](),
		states:  queue.NewPipe[store.State](),
		session: make(chan struct{}),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	conn, sessionEvents, err := zk.Connect(config.Servers, config.SessionTimeout, zk.WithLogger(zkLogger{s.logger}))
	if err != nil {
		s.events.Close()
		s.states.Close()
		return nil, fmt.Errorf("failed to connect to zookeeper: %w", err)
	}
	s.conn = conn

	s.wg.Add(1)
	go s.watchSession(sessionEvents)

	timer := time.NewTimer(config.DialTimeout)
	defer timer.Stop()
	select {
	case <-s.session:
		return s, nil
	case <-timer.C:
		err = fmt.Errorf("no zookeeper session within %s", config.DialTimeout)
	case <-ctx.Done():
		err = ctx.Err()
	}
	_ = s.Close()
	return nil, fmt.Errorf("failed to connect to zookeeper: %w", err)
}

func (s *Store) watchSession(events <-chan zk.Event) {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if event.Type != zk.EventSession {
				continue
			}
			state, ok := toState(event.State)
			if !ok {
				s.logger.Debugf("zookeeper state %s", event.State)
				continue
			}
			s.state.Store(int32(state))
			s.states.Push(state)
			if state == store.StateConnected {
				s.once.Do(func() { close(s.session) })
			}
		}
	}
}

func (s *Store) forward(kind store.WatchKind, path string, watch <-chan zk.Event) {
	defer s.wg.Done()
	select {
	case <-s.done:
	case event, ok := <-watch:
		if !ok {
			return
		}
		s.events.Push(store.Event{Kind: toEventKind(event.Type), Path: path, Watch: kind})
	}
}

// Exists implements store.Store
func (s *Store) Exists(_ context.Context, path string) (bool, error) {
	if s.closed.Load() {
		return false, store.ErrClosed
	}
	ok, _, err := s.conn.Exists(path)
	return ok, toError(err)
}

// MakeDirs implements store.Store
func (s *Store) MakeDirs(_ context.Context, path string) (string, error) {
	if s.closed.Load() {
		return "", store.ErrClosed
	}
	if err := store.ValidatePath(path); err != nil {
		return "", err
	}
	for _, p := range append(store.Ancestors(path), path) {
		_, err := s.conn.Create(p, nil, 0, zk.WorldACL(zk.PermAll))
		if err != nil && !errors.Is(err, zk.ErrNodeExists) {
			return "", toError(err)
		}
	}
	return path, nil
}

// CreateEphemeralSequential implements store.Store
func (s *Store) CreateEphemeralSequential(_ context.Context, path string, data []byte) (string, error) {
	if s.closed.Load() {
		return "", store.ErrClosed
	}
	created, err := s.conn.Create(path, data, zk.FlagEphemeral|zk.FlagSequence, zk.WorldACL(zk.PermAll))
	return created, toError(err)
}

// Children implements store.Store
func (s *Store) Children(_ context.Context, path string, watch bool) ([]string, error) {
	if s.closed.Load() {
		return nil, store.ErrClosed
	}
	if !watch {
		children, _, err := s.conn.Children(path)
		return sorted(children), toError(err)
	}

	children, _, events, err := s.conn.ChildrenW(path)
	if err != nil {
		return nil, toError(err)
	}
	s.wg.Add(1)
	go s.forward(store.ChildrenWatch, path, events)
	return sorted(children), nil
}

// Data implements store.Store
func (s *Store) Data(_ context.Context, path string, watch bool) ([]byte, *store.Stat, error) {
	if s.closed.Load() {
		return nil, nil, store.ErrClosed
	}
	if !watch {
		data, stat, err := s.conn.Get(path)
		if err != nil {
			return nil, nil, toError(err)
		}
		return data, toStat(stat), nil
	}

	data, stat, events, err := s.conn.GetW(path)
	if err != nil {
		return nil, nil, toError(err)
	}
	s.wg.Add(1)
	go s.forward(store.DataWatch, path, events)
	return data, toStat(stat), nil
}

// SetData implements store.Store
func (s *Store) SetData(_ context.Context, path string, data []byte) (*store.Stat, error) {
	if s.closed.Load() {
		return nil, store.ErrClosed
	}
	stat, err := s.conn.Set(path, data, -1)
	if err != nil {
		return nil, toError(err)
	}
	return toStat(stat), nil
}

// State implements store.Store
func (s *Store) State() store.State {
	return store.State(s.state.Load())
}

// Events implements store.Store
func (s *Store) Events() <-chan store.Event {
	return s.events.Out()
}

// StateChanges implements store.Store
func (s *Store) StateChanges() <-chan store.State {
	return s.states.Out()
}

// Close implements store.Store
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	if s.conn != nil {
		s.conn.Close()
	}
	close(s.done)
	s.wg.Wait()
	s.events.Close()
	s.states.Close()
	return nil
}
