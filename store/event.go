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

package store

import "fmt"

// EventKind identifies what happened to a watched node.
type EventKind int

const (
	// EventNodeCreated reports the creation of a watched node.
	EventNodeCreated EventKind = iota + 1
	// EventNodeDeleted reports the deletion of a watched node.
	EventNodeDeleted
	// EventNodeDataChanged reports a payload change.
	EventNodeDataChanged
	// EventNodeChildrenChanged reports a change in the set of children.
	EventNodeChildrenChanged
	// EventNotWatching reports that the store dropped an armed watch
	// without any change to the node.
	EventNotWatching
)

// String returns the wire name of the kind
func (k EventKind) String() string {
	switch k {
	case EventNodeCreated:
		return "NODE_CREATED"
	case EventNodeDeleted:
		return "NODE_DELETED"
	case EventNodeDataChanged:
		return "NODE_DATA_CHANGED"
	case EventNodeChildrenChanged:
		return "NODE_CHILDREN_CHANGED"
	case EventNotWatching:
		return "NOT_WATCHING"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// WatchKind identifies which read armed a watch.
type WatchKind int

const (
	// DataWatch is armed by Data.
	DataWatch WatchKind = iota + 1
	// ChildrenWatch is armed by Children.
	ChildrenWatch
)

func (k WatchKind) String() string {
	switch k {
	case DataWatch:
		return "data"
	case ChildrenWatch:
		return "children"
	default:
		return "unknown"
	}
}

// Event is a fired one-shot watch.
type Event struct {
	Kind  EventKind
	Path  string
	Watch WatchKind
}

func (e Event) String() string {
	return fmt.Sprintf("%s %s (%s watch)", e.Kind, e.Path, e.Watch)
}
