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

// Package memory implements store.Store in process. A Server holds one
// tree shared by any number of sessions, which makes it possible to
// exercise watches fired by another participant, session expiry and the
// removal of ephemeral nodes without a running coordination service.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/tochemey/msd/internal/queue"
	"github.com/tochemey/msd/store"
)

var (
	// ErrNotConnected is returned by operations attempted while the session
	// is not in the connected state.
	ErrNotConnected = errors.New("session is not connected")
	// ErrNotEmpty is returned when deleting a node that still has children.
	ErrNotEmpty = errors.New("node has children")
)

type node struct {
	data     []byte
	children map[string]struct{}
	stat     store.Stat
	sequence int64
}

// Server is an in-memory hierarchical tree shared by sessions.
type Server struct {
	mu       sync.Mutex
	nodes    map[string]*node
	sessions map[int64]*Store
	nextID   int64
}

// NewServer creates a tree that only holds the root node.
func NewServer() *Server {
	now := time.Now()
	return &Server{
		nodes: map[string]*node{
			"/": {children: make(map[string]struct{}), stat: store.Stat{Created: now, Modified: now}},
		},
		sessions: make(map[int64]*Store),
	}
}

// Connect opens a new session against the tree. The session starts in the
// connected state and reports that transition on StateChanges.
func (s *Server) Connect() *Store {
	s.mu.Lock()
	s.nextID++
	session := newStore(s, s.nextID)
	s.sessions[session.id] = session
	s.mu.Unlock()

	session.transition(store.StateConnected)
	return session
}

// Seed creates path and its ancestors with data set on the leaf. It is meant
// for preparing fixtures.
func (s *Server) Seed(path string, data []byte) error {
	if err := store.ValidatePath(path); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.makeDirs(path)
	s.setData(path, data)
	return nil
}

// Delete removes a childless node as an external participant would.
func (s *Server) Delete(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.delete(path)
}

// Has reports whether path exists.
func (s *Server) Has(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.nodes[path]
	return ok
}

func (s *Server) create(path string, data []byte, owner int64) {
	now := time.Now()
	s.nodes[path] = &node{
		data:     data,
		children: make(map[string]struct{}),
		stat: store.Stat{
			Created:        now,
			Modified:       now,
			DataLength:     int32(len(data)),
			EphemeralOwner: owner,
		},
	}

	parent := s.nodes[store.Parent(path)]
	parent.children[store.Base(path)] = struct{}{}
	parent.stat.NumChildren = int32(len(parent.children))

	s.fire(path, store.DataWatch, store.EventNodeCreated)
	s.fire(store.Parent(path), store.ChildrenWatch, store.EventNodeChildrenChanged)
}

func (s *Server) makeDirs(path string) {
	for _, p := range append(store.Ancestors(path), path) {
		if _, ok := s.nodes[p]; !ok {
			s.create(p, nil, 0)
		}
	}
}

func (s *Server) setData(path string, data []byte) *store.Stat {
	n := s.nodes[path]
	n.data = append([]byte(nil), data...)
	n.stat.Version++
	n.stat.Modified = time.Now()
	n.stat.DataLength = int32(len(data))
	s.fire(path, store.DataWatch, store.EventNodeDataChanged)
	stat := n.stat
	return &stat
}

func (s *Server) delete(path string) error {
	n, ok := s.nodes[path]
	if !ok || path == "/" {
		return store.ErrNoNode
	}
	if len(n.children) > 0 {
		return ErrNotEmpty
	}

	delete(s.nodes, path)
	parent := s.nodes[store.Parent(path)]
	delete(parent.children, store.Base(path))
	parent.stat.NumChildren = int32(len(parent.children))

	s.fire(path, store.DataWatch, store.EventNodeDeleted)
	s.fire(path, store.ChildrenWatch, store.EventNodeDeleted)
	s.fire(store.Parent(path), store.ChildrenWatch, store.EventNodeChildrenChanged)
	return nil
}

// fire delivers kind to every session holding a watch of the given type on
// path and disarms it.
func (s *Server) fire(path string, watch store.WatchKind, kind store.EventKind) {
	for _, session := range s.sessions {
		watches := session.watches(watch)
		if _, ok := watches[path]; !ok {
			continue
		}
		delete(watches, path)
		session.events.Push(store.Event{Kind: kind, Path: path, Watch: watch})
	}
}

// release detaches the session and removes the ephemeral nodes it owns.
// Its outstanding watches are reported as dropped.
func (s *Server) release(session *Store) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[session.id]; !ok {
		return
	}
	delete(s.sessions, session.id)

	for _, watch := range []store.WatchKind{store.DataWatch, store.ChildrenWatch} {
		watches := session.watches(watch)
		for path := range watches {
			session.events.Push(store.Event{Kind: store.EventNotWatching, Path: path, Watch: watch})
			delete(watches, path)
		}
	}

	owned := make([]string, 0)
	for path, n := range s.nodes {
		if n.stat.EphemeralOwner == session.id {
			owned = append(owned, path)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(owned)))
	for _, path := range owned {
		_ = s.delete(path)
	}
}

// Store is one session on a Server.
type Store struct {
	server *Server
	id     int64
	state  *atomic.Int32
	closed *atomic.Bool
	dataW  map[string]struct{}
	childW map[string]struct{}
	fault  func(op, path string) error
	events *queue.Pipe[store.Event]
	states *queue.Pipe[store.State]
}

// enforce compilation error
var _ store.Store = (*Store)(nil)

func newStore(server *Server, id int64) *Store {
	s := &Store{
		server: server,
		id:     id,
		state:  atomic.NewInt32(int32(store.StateUnknown)),
		closed: atomic.NewBool(false),
		dataW:  make(map[string]struct{}),
		childW: make(map[string]struct{}),
		events: queue.NewPipe[store.Event](),
		states: queue.NewPipe[store.State](),
	}
	return s
}

// ID returns the session identifier, also recorded as the owner of the
// ephemeral nodes the session creates.
func (s *Store) ID() int64 { return s.id }

// FailWith installs a hook consulted before every operation. A non-nil
// error returned by fn fails the operation. Pass nil to remove the hook.
func (s *Store) FailWith(fn func(op, path string) error) {
	s.server.mu.Lock()
	s.fault = fn
	s.server.mu.Unlock()
}

// SetState simulates a session transition. Moving to StateExpired releases
// the session the way the server would.
func (s *Store) SetState(state store.State) {
	if state == store.StateExpired {
		s.Expire()
		return
	}
	s.transition(state)
}

// Expire simulates the server discarding the session: the ephemeral nodes
// it owned are deleted and its watches are dropped.
func (s *Store) Expire() {
	s.state.Store(int32(store.StateExpired))
	s.server.release(s)
	s.states.Push(store.StateExpired)
}

// Exists implements store.Store
func (s *Store) Exists(_ context.Context, path string) (bool, error) {
	if err := s.begin("exists", path); err != nil {
		return false, err
	}
	defer s.server.mu.Unlock()
	_, ok := s.server.nodes[path]
	return ok, nil
}

// MakeDirs implements store.Store
func (s *Store) MakeDirs(_ context.Context, path string) (string, error) {
	if err := s.begin("mkdirs", path); err != nil {
		return "", err
	}
	defer s.server.mu.Unlock()
	s.server.makeDirs(path)
	return path, nil
}

// CreateEphemeralSequential implements store.Store
func (s *Store) CreateEphemeralSequential(_ context.Context, path string, data []byte) (string, error) {
	if err := s.begin("create", path); err != nil {
		return "", err
	}
	defer s.server.mu.Unlock()

	parent, ok := s.server.nodes[store.Parent(path)]
	if !ok {
		return "", store.ErrNoNode
	}
	created := store.SequenceName(path, parent.sequence)
	parent.sequence++
	s.server.create(created, append([]byte(nil), data...), s.id)
	return created, nil
}

// Children implements store.Store
func (s *Store) Children(_ context.Context, path string, watch bool) ([]string, error) {
	if err := s.begin("children", path); err != nil {
		return nil, err
	}
	defer s.server.mu.Unlock()

	n, ok := s.server.nodes[path]
	if !ok {
		return nil, store.ErrNoNode
	}
	names := make([]string, 0, len(n.children))
	for name := range n.children {
		names = append(names, name)
	}
	sort.Strings(names)
	if watch {
		s.childW[path] = struct{}{}
	}
	return names, nil
}

// Data implements store.Store
func (s *Store) Data(_ context.Context, path string, watch bool) ([]byte, *store.Stat, error) {
	if err := s.begin("data", path); err != nil {
		return nil, nil, err
	}
	defer s.server.mu.Unlock()

	n, ok := s.server.nodes[path]
	if !ok {
		return nil, nil, store.ErrNoNode
	}
	if watch {
		s.dataW[path] = struct{}{}
	}
	stat := n.stat
	return append([]byte(nil), n.data...), &stat, nil
}

// SetData implements store.Store
func (s *Store) SetData(_ context.Context, path string, data []byte) (*store.Stat, error) {
	if err := s.begin("set", path); err != nil {
		return nil, err
	}
	defer s.server.mu.Unlock()

	if _, ok := s.server.nodes[path]; !ok {
		return nil, store.ErrNoNode
	}
	return s.server.setData(path, data), nil
}

// Delete removes a childless node through this session.
func (s *Store) Delete(_ context.Context, path string) error {
	if err := s.begin("delete", path); err != nil {
		return err
	}
	defer s.server.mu.Unlock()
	return s.server.delete(path)
}

// Watches returns the number of outstanding data and children watches.
func (s *Store) Watches() (data, children int) {
	s.server.mu.Lock()
	defer s.server.mu.Unlock()
	return len(s.dataW), len(s.childW)
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

// Close ends the session. Ephemeral nodes it owns are removed.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.server.release(s)
	s.events.Close()
	s.states.Close()
	return nil
}

func (s *Store) transition(state store.State) {
	s.state.Store(int32(state))
	s.states.Push(state)
}

func (s *Store) watches(kind store.WatchKind) map[string]struct{} {
	if kind == store.DataWatch {
		return s.dataW
	}
	return s.childW
}

// begin validates the call and acquires the server lock. The lock is held
// only when the returned error is nil.
func (s *Store) begin(op, path string) error {
	if s.closed.Load() {
		return store.ErrClosed
	}
	if err := store.ValidatePath(path); err != nil {
		return err
	}
	switch s.State() {
	case store.StateConnected:
	case store.StateExpired:
		return store.ErrSessionLost
	default:
		return ErrNotConnected
	}

	s.server.mu.Lock()
	if s.fault != nil {
		if err := s.fault(op, path); err != nil {
			s.server.mu.Unlock()
			return err
		}
	}
	return nil
}
