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

// Package store defines the boundary between the registry and the
// hierarchical coordination service backing it.
package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNoNode is returned when the addressed node does not exist.
	ErrNoNode = errors.New("node does not exist")
	// ErrNodeExists is returned when creating a node that is already present.
	ErrNodeExists = errors.New("node already exists")
	// ErrClosed is returned by any call made after Close.
	ErrClosed = errors.New("store is closed")
	// ErrSessionLost is returned when the session backing the store is gone.
	ErrSessionLost = errors.New("session lost")
)

// Stat is the node metadata returned by reads and writes.
type Stat struct {
	Version        int32
	Created        time.Time
	Modified       time.Time
	NumChildren    int32
	DataLength     int32
	EphemeralOwner int64
}

// Store is a hierarchical coordination store with one-shot watches.
//
// A watch armed through Children or Data fires at most once and is reported
// on Events. The store never re-arms a watch on its own.
type Store interface {
	// Exists reports whether path exists.
	Exists(ctx context.Context, path string) (bool, error)
	// MakeDirs creates path and every missing ancestor as persistent
	// nodes. It succeeds when path already exists.
	MakeDirs(ctx context.Context, path string) (string, error)
	// CreateEphemeralSequential creates a session bound node whose name is
	// path followed by a monotonically increasing suffix. It returns the
	// created path.
	CreateEphemeralSequential(ctx context.Context, path string, data []byte) (string, error)
	// Children lists the names of the direct children of path in
	// lexicographic order. When watch is true a children watch is armed.
	Children(ctx context.Context, path string, watch bool) ([]string, error)
	// Data reads the payload of path. When watch is true a data watch is armed.
	Data(ctx context.Context, path string, watch bool) ([]byte, *Stat, error)
	// SetData replaces the payload of an existing node regardless of version.
	SetData(ctx context.Context, path string, data []byte) (*Stat, error)
	// State returns the current session state.
	State() State
	// Events delivers fired watches. It is closed by Close.
	Events() <-chan Event
	// StateChanges delivers session state transitions. It is closed by Close.
	StateChanges() <-chan State
	// Close ends the session and releases its resources.
	Close() error
}
