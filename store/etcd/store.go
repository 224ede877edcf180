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

// Package etcd implements store.Store over etcd keys. A node is the key
// equal to its path. Ephemeral nodes are attached to a lease that lives as
// long as the store, sequence suffixes come from a per-parent counter key
// updated in the same transaction as the create, and one-shot watches are
// etcd watches cancelled after their first relevant event.
package etcd

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.etcd.io/etcd/client/v3/namespace"
	"go.uber.org/atomic"

	"github.com/tochemey/msd/internal/queue"
	"github.com/tochemey/msd/log"
	"github.com/tochemey/msd/store"
)

// counterPrefix keeps sequence counters out of every child listing, which
// only ever scans keys starting with a slash.
const counterPrefix = "\x00seq:"

const closeTimeout = 5 * time.Second

// Store is an etcd backed session
type Store struct {
	client  *clientv3.Client
	kv      clientv3.KV
	watcher clientv3.Watcher
	lease   clientv3.Lease
	leaseID clientv3.LeaseID
	logger  log.Logger
	state   *atomic.Int32
	closed  *atomic.Bool
	events  *queue.Pipe[store.Event]
	states  *queue.Pipe[store.State]
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// enforce compilation error
var _ store.Store = (*Store)(nil)

// Option configures the Store
type Option func(*Store)

// WithLogger sets the logger
func WithLogger(logger log.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// NewStore connects to etcd and grants the session lease.
func NewStore(ctx context.Context, config *Config, opts ...Option) (*Store, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := clientv3.New(clientv3.Config{
		Endpoints:   config.Endpoints,
		DialTimeout: config.DialTimeout,
		TLS:         config.TLS,
		Username:    config.Username,
		Password:    config.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to etcd: %w", err)
	}

	dialCtx, cancel := context.WithTimeout(ctx, config.DialTimeout)
	defer cancel()
	if _, err := client.Status(dialCtx, config.Endpoints[0]); err != nil {
		return nil, errors.Join(fmt.Errorf("failed to connect to etcd: %w", err), client.Close())
	}

	s := &Store{
		client:  client,
		kv:      client.KV,
		watcher: client.Watcher,
		lease:   client.Lease,
		logger:  log.DefaultLogger,
		state:   atomic.NewInt32(int32(store.StateUnknown)),
		closed:  atomic.NewBool(false),
		events:  queue.NewPipe[store.Event](),
		states:  queue.NewPipe[store.State](),
	}
	if config.Prefix != "" {
		s.kv = namespace.NewKV(client.KV, config.Prefix)
		s.watcher = namespace.NewWatcher(client.Watcher, config.Prefix)
		s.lease = namespace.NewLease(client.Lease, config.Prefix)
	}
	for _, opt := range opts {
		opt(s)
	}

	grant, err := s.lease.Grant(dialCtx, config.ttlSeconds())
	if err != nil {
		s.events.Close()
		s.states.Close()
		return nil, errors.Join(fmt.Errorf("failed to create lease: %w", err), client.Close())
	}
	s.leaseID = grant.ID

	s.ctx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	keepAlive, err := s.lease.KeepAlive(s.ctx, s.leaseID)
	if err != nil {
		s.cancel()
		s.events.Close()
		s.states.Close()
		return nil, errors.Join(fmt.Errorf("failed to start keep-alive: %w", err), client.Close())
	}

	s.transition(store.StateConnected)
	s.wg.Add(1)
	go s.keepAlive(keepAlive)
	return s, nil
}

// keepAlive drains lease renewals. The channel closing while the store is
// open means the lease, and with it every ephemeral node, is gone.
func (s *Store) keepAlive(responses <-chan *clientv3.LeaseKeepAliveResponse) {
	defer s.wg.Done()
	for range responses {
	}
	if s.closed.Load() {
		return
	}
	s.logger.Warnf("etcd lease %x lost", int64(s.leaseID))
	s.transition(store.StateExpired)
}

func (s *Store) transition(state store.State) {
	s.state.Store(int32(state))
	s.states.Push(state)
}

func (s *Store) check() error {
	switch {
	case s.closed.Load():
		return store.ErrClosed
	case s.State() == store.StateExpired:
		return store.ErrSessionLost
	}
	return nil
}

// Exists implements store.Store
func (s *Store) Exists(ctx context.Context, path string) (bool, error) {
	if err := s.check(); err != nil {
		return false, err
	}
	if path == "/" {
		return true, nil
	}
	resp, err := s.kv.Get(ctx, path, clientv3.WithCountOnly())
	if err != nil {
		return false, err
	}
	return resp.Count > 0, nil
}

// MakeDirs implements store.Store
func (s *Store) MakeDirs(ctx context.Context, path string) (string, error) {
	if err := s.check(); err != nil {
		return "", err
	}
	if err := store.ValidatePath(path); err != nil {
		return "", err
	}
	for _, p := range append(store.Ancestors(path), path) {
		if p == "/" {
			continue
		}
		_, err := s.kv.Txn(ctx).
			If(clientv3.Compare(clientv3.CreateRevision(p), "=", 0)).
			Then(clientv3.OpPut(p, "")).
			Commit()
		if err != nil {
			return "", err
		}
	}
	return path, nil
}

// CreateEphemeralSequential implements store.Store
func (s *Store) CreateEphemeralSequential(ctx context.Context, path string, data []byte) (string, error) {
	if err := s.check(); err != nil {
		return "", err
	}
	parent := store.Parent(path)
	ok, err := s.Exists(ctx, parent)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", store.ErrNoNode
	}

	counter := counterPrefix + parent
	for {
		resp, err := s.kv.Get(ctx, counter)
		if err != nil {
			return "", err
		}

		var (
			next     int64
			revision int64
		)
		if len(resp.Kvs) > 0 {
			revision = resp.Kvs[0].ModRevision
			if next, err = strconv.ParseInt(string(resp.Kvs[0].Value), 10, 64); err != nil {
				return "", fmt.Errorf("corrupted sequence counter for %s: %w", parent, err)
			}
		}

		name := store.SequenceName(path, next)
		txn, err := s.kv.Txn(ctx).
			If(
				clientv3.Compare(clientv3.ModRevision(counter), "=", revision),
				clientv3.Compare(clientv3.CreateRevision(parent), ">", 0),
			).
			Then(
				clientv3.OpPut(counter, strconv.FormatInt(next+1, 10)),
				clientv3.OpPut(name, string(data), clientv3.WithLease(s.leaseID)),
			).
			Commit()
		if err != nil {
			return "", err
		}
		if txn.Succeeded {
			return name, nil
		}
		ok, err := s.Exists(ctx, parent)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", store.ErrNoNode
		}
	}
}

// Children implements store.Store
func (s *Store) Children(ctx context.Context, path string, watch bool) ([]string, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	ok, err := s.Exists(ctx, path)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, store.ErrNoNode
	}

	prefix := childPrefix(path)
	resp, err := s.kv.Get(ctx, prefix, clientv3.WithPrefix(), clientv3.WithKeysOnly())
	if err != nil {
		return nil, err
	}

	names := mapset.NewThreadUnsafeSet[string]()
	for _, kv := range resp.Kvs {
		if name := childName(prefix, string(kv.Key)); name != "" {
			names.Add(name)
		}
	}
	if watch {
		s.watch(store.ChildrenWatch, path, resp.Header.Revision+1)
	}
	return sorted(names), nil
}

// Data implements store.Store
func (s *Store) Data(ctx context.Context, path string, watch bool) ([]byte, *store.Stat, error) {
	if err := s.check(); err != nil {
		return nil, nil, err
	}
	resp, err := s.kv.Get(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	if len(resp.Kvs) == 0 {
		if path != "/" {
			return nil, nil, store.ErrNoNode
		}
		if watch {
			s.watch(store.DataWatch, path, resp.Header.Revision+1)
		}
		return nil, &store.Stat{}, nil
	}

	kv := resp.Kvs[0]
	if watch {
		s.watch(store.DataWatch, path, resp.Header.Revision+1)
	}
	return kv.Value, &store.Stat{
		Version:        int32(kv.Version - 1),
		DataLength:     int32(len(kv.Value)),
		EphemeralOwner: kv.Lease,
	}, nil
}

// SetData implements store.Store
func (s *Store) SetData(ctx context.Context, path string, data []byte) (*store.Stat, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	txn, err := s.kv.Txn(ctx).
		If(clientv3.Compare(clientv3.CreateRevision(path), ">", 0)).
		Then(clientv3.OpPut(path, string(data), clientv3.WithIgnoreLease()), clientv3.OpGet(path)).
		Commit()
	if err != nil {
		return nil, err
	}
	if !txn.Succeeded {
		return nil, store.ErrNoNode
	}

	kvs := txn.Responses[1].GetResponseRange().GetKvs()
	if len(kvs) == 0 {
		return nil, store.ErrNoNode
	}
	return &store.Stat{
		Version:        int32(kvs[0].Version - 1),
		DataLength:     int32(len(kvs[0].Value)),
		EphemeralOwner: kvs[0].Lease,
	}, nil
}

// watch arms a one-shot watch starting at revision.
func (s *Store) watch(kind store.WatchKind, path string, revision int64) {
	ctx, cancel := context.WithCancel(s.ctx)
	opts := []clientv3.OpOption{clientv3.WithRev(revision)}
	if kind == store.ChildrenWatch {
		// the prefix covers the node itself so that its deletion fires too
		opts = append(opts, clientv3.WithPrefix())
	}
	responses := s.watcher.Watch(ctx, path, opts...)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer cancel()
		for resp := range responses {
			if err := resp.Err(); err != nil {
				s.logger.Warnf("etcd watch on %s failed: %v", path, err)
				break
			}
			for _, ev := range resp.Events {
				if event, ok := classify(kind, path, ev); ok {
					s.events.Push(event)
					return
				}
			}
		}
		if !s.closed.Load() {
			s.events.Push(store.Event{Kind: store.EventNotWatching, Path: path, Watch: kind})
		}
	}()
}

// classify maps an etcd event onto the one-shot event it fires, if any.
func classify(kind store.WatchKind, path string, ev *clientv3.Event) (store.Event, bool) {
	key := string(ev.Kv.Key)
	deleted := ev.Type == clientv3.EventTypeDelete

	if key == path {
		switch {
		case deleted:
			return store.Event{Kind: store.EventNodeDeleted, Path: path, Watch: kind}, true
		case kind == store.DataWatch && ev.IsCreate():
			return store.Event{Kind: store.EventNodeCreated, Path: path, Watch: kind}, true
		case kind == store.DataWatch:
			return store.Event{Kind: store.EventNodeDataChanged, Path: path, Watch: kind}, true
		}
		return store.Event{}, false
	}

	if kind == store.ChildrenWatch && (deleted || ev.IsCreate()) {
		prefix := childPrefix(path)
		if name := childName(prefix, key); name != "" && prefix+name == key {
			return store.Event{Kind: store.EventNodeChildrenChanged, Path: path, Watch: kind}, true
		}
	}
	return store.Event{}, false
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

// Close revokes the lease, removing every ephemeral node of the session,
// and closes the client.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	_, err := s.lease.Revoke(ctx, s.leaseID)

	s.cancel()
	s.wg.Wait()
	s.events.Close()
	s.states.Close()
	return errors.Join(err, s.client.Close())
}

func childPrefix(path string) string {
	if path == "/" {
		return "/"
	}
	return path + "/"
}

// childName returns the first segment of key below prefix.
func childName(prefix, key string) string {
	if !strings.HasPrefix(key, prefix) {
		return ""
	}
	rest := key[len(prefix):]
	if idx := strings.IndexByte(rest, '/'); idx >= 0 {
		rest = rest[:idx]
	}
	return rest
}

func sorted(names mapset.Set[string]) []string {
	out := names.ToSlice()
	slices.Sort(out)
	return out
}
