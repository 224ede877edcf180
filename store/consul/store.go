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

// Package consul implements store.Store over the Consul KV store.
//
// A node at /a/b is the key <prefix>/a/b. Ephemeral nodes are locked by a
// session created with the delete behavior, so they vanish with it.
// Sequence suffixes come from a counter key kept outside the tree and
// bumped in the same transaction as the create. One-shot watches are
// blocking queries that stop after the first relevant change.
package consul

import (
	"context"
	"encoding/binary"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"
	"github.com/hashicorp/consul/api"
	"go.uber.org/atomic"

	"github.com/tochemey/msd/internal/queue"
	"github.com/tochemey/msd/log"
	"github.com/tochemey/msd/store"
)

// Store is a Consul backed session
type Store struct {
	client    *api.Client
	kv        *api.KV
	config    *Config
	sessionID string
	logger    log.Logger
	state     *atomic.Int32
	closed    *atomic.Bool
	events    *queue.Pipe[store.Event]
	states    *queue.Pipe[store.State]
	ctx       context.Context
	cancel    context.CancelFunc
	renewDone chan struct{}
	wg        sync.WaitGroup
}

// enforce compilation error
var _ store.Store = (*Store)(nil)

// Option configures the Store
type Option func(*Store)

// WithLogger sets the logger
func WithLogger(logger log.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// NewStore creates the Consul client, checks the agent is reachable and
// creates the session that owns the ephemeral nodes.
func NewStore(ctx context.Context, config *Config, opts ...Option) (*Store, error) {
	config.Sanitize()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	consulConfig := api.DefaultConfig()
	consulConfig.Address = config.Address
	consulConfig.Datacenter = config.Datacenter
	consulConfig.Token = config.Token

	client, err := api.NewClient(consulConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create consul client: %w", err)
	}

	dialCtx, cancel := context.WithTimeout(ctx, config.Timeout)
	defer cancel()
	if _, err := client.Status().LeaderWithQueryOptions((&api.QueryOptions{}).WithContext(dialCtx)); err != nil {
		return nil, fmt.Errorf("failed to connect to consul: %w", err)
	}

	sessionID, _, err := client.Session().Create(&api.SessionEntry{
		Name:     "msd-" + uuid.NewString(),
		TTL:      config.SessionTTL.String(),
		Behavior: api.SessionBehaviorDelete,
	}, (&api.WriteOptions{}).WithContext(dialCtx))
	if err != nil {
		return nil, fmt.Errorf("failed to create consul session: %w", err)
	}

	s := &Store{
		client:    client,
		kv:        client.KV(),
		config:    config,
		sessionID: sessionID,
		logger:    log.DefaultLogger,
		state:     atomic.NewInt32(int32(store.StateUnknown)),
		closed:    atomic.NewBool(false),
		events:    queue.NewPipe[store.Event](),
		states:    queue.NewPipe[store.State](),
		renewDone: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.ctx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	s.transition(store.StateConnected)
	s.wg.Add(1)
	go s.renew()
	return s, nil
}

// renew keeps the session alive until Close. RenewPeriodic destroys the
// session on the way out, which deletes every ephemeral node.
func (s *Store) renew() {
	defer s.wg.Done()
	err := s.client.Session().RenewPeriodic(s.config.SessionTTL.String(), s.sessionID, nil, s.renewDone)
	if s.closed.Load() {
		return
	}
	s.logger.Warnf("consul session %s lost: %v", s.sessionID, err)
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

// key maps a node path to its KV key.
func (s *Store) key(path string) string {
	if path == "/" {
		return s.config.Prefix
	}
	return s.config.Prefix + path
}

func (s *Store) counterKey(path string) string {
	return s.config.Prefix + ".seq" + path
}

func (s *Store) query(ctx context.Context) *api.QueryOptions {
	return (&api.QueryOptions{RequireConsistent: true}).WithContext(ctx)
}

func (s *Store) write(ctx context.Context) *api.WriteOptions {
	return (&api.WriteOptions{}).WithContext(ctx)
}

// Exists implements store.Store
func (s *Store) Exists(ctx context.Context, path string) (bool, error) {
	if err := s.check(); err != nil {
		return false, err
	}
	if path == "/" {
		return true, nil
	}
	pair, _, err := s.kv.Get(s.key(path), s.query(ctx))
	if err != nil {
		return false, err
	}
	return pair != nil, nil
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
		// a zero ModifyIndex only writes when the key is absent
		if _, _, err := s.kv.CAS(&api.KVPair{Key: s.key(p)}, s.write(ctx)); err != nil {
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
	counter := s.counterKey(parent)

	for {
		pair, _, err := s.kv.Get(counter, s.query(ctx))
		if err != nil {
			return "", err
		}

		var (
			next  int64
			index uint64
		)
		if pair != nil {
			index = pair.ModifyIndex
			if next, err = strconv.ParseInt(string(pair.Value), 10, 64); err != nil {
				return "", fmt.Errorf("corrupted sequence counter for %s: %w", parent, err)
			}
		}

		name := store.SequenceName(path, next)
		ops := api.KVTxnOps{
			&api.KVTxnOp{Verb: api.KVCAS, Key: counter, Value: []byte(strconv.FormatInt(next+1, 10)), Index: index},
			&api.KVTxnOp{Verb: api.KVLock, Key: s.key(name), Value: data, Session: s.sessionID},
		}
		if parent != "/" {
			// get fails the transaction when the parent is missing
			ops = append(ops, &api.KVTxnOp{Verb: api.KVGet, Key: s.key(parent)})
		}

		ok, resp, _, err := s.kv.Txn(ops, s.query(ctx))
		if err != nil {
			return "", err
		}
		if ok {
			return name, nil
		}
		for _, txnErr := range resp.Errors {
			if txnErr.OpIndex == 2 {
				return "", store.ErrNoNode
			}
		}
		s.logger.Debugf("sequence counter for %s moved, retrying", parent)
	}
}

// snapshot lists the node and its children under one index.
func (s *Store) snapshot(ctx context.Context, path string, index uint64) (bool, mapset.Set[string], uint64, error) {
	key := s.key(path)
	opts := s.query(ctx)
	if index > 0 {
		opts.WaitIndex = index
		opts.WaitTime = s.config.WaitTime
	}

	keys, meta, err := s.kv.Keys(key, "", opts)
	if err != nil {
		return false, nil, 0, err
	}

	exists := path == "/"
	prefix := key + "/"
	names := mapset.NewThreadUnsafeSet[string]()
	for _, k := range keys {
		if k == key {
			exists = true
			continue
		}
		if name := childName(prefix, k); name != "" {
			names.Add(name)
		}
	}
	return exists, names, meta.LastIndex, nil
}

// Children implements store.Store
func (s *Store) Children(ctx context.Context, path string, watch bool) ([]string, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	exists, names, index, err := s.snapshot(ctx, path, 0)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, store.ErrNoNode
	}
	if watch {
		s.watchChildren(path, names, index)
	}
	return sorted(names), nil
}

// Data implements store.Store
func (s *Store) Data(ctx context.Context, path string, watch bool) ([]byte, *store.Stat, error) {
	if err := s.check(); err != nil {
		return nil, nil, err
	}
	pair, meta, err := s.kv.Get(s.key(path), s.query(ctx))
	if err != nil {
		return nil, nil, err
	}
	if pair == nil && path != "/" {
		return nil, nil, store.ErrNoNode
	}
	if watch {
		s.watchData(path, pair, meta.LastIndex)
	}
	if pair == nil {
		return nil, &store.Stat{}, nil
	}
	return pair.Value, s.stat(pair), nil
}

// SetData implements store.Store. The node version is carried in the
// pair flags and bumped on every write.
func (s *Store) SetData(ctx context.Context, path string, data []byte) (*store.Stat, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	key := s.key(path)
	for {
		pair, _, err := s.kv.Get(key, s.query(ctx))
		if err != nil {
			return nil, err
		}
		if pair == nil {
			return nil, store.ErrNoNode
		}

		update := &api.KVPair{
			Key:         key,
			Value:       data,
			Flags:       pair.Flags + 1,
			ModifyIndex: pair.ModifyIndex,
		}
		ok, _, err := s.kv.CAS(update, s.write(ctx))
		if err != nil {
			return nil, err
		}
		if ok {
			update.Session = pair.Session
			return s.stat(update), nil
		}
	}
}

func (s *Store) stat(pair *api.KVPair) *store.Stat {
	stat := &store.Stat{
		Version:    int32(pair.Flags),
		DataLength: int32(len(pair.Value)),
	}
	if pair.Session != "" {
		stat.EphemeralOwner = sessionOwner(pair.Session)
	}
	return stat
}

// watchData arms a one-shot watch on a single key.
func (s *Store) watchData(path string, seen *api.KVPair, index uint64) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		key := s.key(path)
		for {
			opts := s.query(s.ctx)
			opts.WaitIndex = index
			opts.WaitTime = s.config.WaitTime
			pair, meta, err := s.kv.Get(key, opts)
			if err != nil {
				s.lose(store.DataWatch, path, err)
				return
			}
			if event, ok := classifyData(path, seen, pair); ok {
				s.events.Push(event)
				return
			}
			index = nextIndex(index, meta.LastIndex)
		}
	}()
}

// watchChildren arms a one-shot watch on the children of a node.
func (s *Store) watchChildren(path string, seen mapset.Set[string], index uint64) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			exists, names, last, err := s.snapshot(s.ctx, path, index)
			if err != nil {
				s.lose(store.ChildrenWatch, path, err)
				return
			}
			switch {
			case !exists:
				s.events.Push(store.Event{Kind: store.EventNodeDeleted, Path: path, Watch: store.ChildrenWatch})
				return
			case !names.Equal(seen):
				s.events.Push(store.Event{Kind: store.EventNodeChildrenChanged, Path: path, Watch: store.ChildrenWatch})
				return
			}
			index = nextIndex(index, last)
		}
	}()
}

func (s *Store) lose(kind store.WatchKind, path string, err error) {
	if s.closed.Load() {
		return
	}
	s.logger.Warnf("consul watch on %s failed: %v", path, err)
	s.events.Push(store.Event{Kind: store.EventNotWatching, Path: path, Watch: kind})
}

// classifyData compares two reads of the same key.
func classifyData(path string, before, after *api.KVPair) (store.Event, bool) {
	event := store.Event{Path: path, Watch: store.DataWatch}
	switch {
	case before == nil && after == nil:
		return event, false
	case before == nil:
		event.Kind = store.EventNodeCreated
	case after == nil, after.CreateIndex != before.CreateIndex:
		event.Kind = store.EventNodeDeleted
	case after.ModifyIndex != before.ModifyIndex:
		event.Kind = store.EventNodeDataChanged
	default:
		return event, false
	}
	return event, true
}

// nextIndex resets the wait index when Consul reports it going backwards.
func nextIndex(current, last uint64) uint64 {
	if last < current {
		return 0
	}
	return last
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

// Close destroys the session, removing every ephemeral node it holds.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	close(s.renewDone)
	s.cancel()
	s.wg.Wait()
	s.events.Close()
	s.states.Close()
	return nil
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

// sessionOwner folds a session id into the int64 owner reported by Stat.
func sessionOwner(id string) int64 {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return 0
	}
	return int64(binary.BigEndian.Uint64(parsed[:8]))
}
