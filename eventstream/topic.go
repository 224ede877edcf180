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

package eventstream

import "github.com/tochemey/msd/store"

// Topic is the closed vocabulary of signals a connection publishes.
type Topic string

const (
	// TopicNodeCreated carries NodeEvent for EventNodeCreated.
	TopicNodeCreated Topic = "NODE_CREATED"
	// TopicNodeDeleted carries NodeEvent for EventNodeDeleted.
	TopicNodeDeleted Topic = "NODE_DELETED"
	// TopicNodeDataChanged carries NodeEvent for EventNodeDataChanged.
	TopicNodeDataChanged Topic = "NODE_DATA_CHANGED"
	// TopicNodeChildrenChanged carries NodeEvent for EventNodeChildrenChanged.
	TopicNodeChildrenChanged Topic = "NODE_CHILDREN_CHANGED"
	// TopicSessionLost carries SessionLost. It is published at most once
	// per connection.
	TopicSessionLost Topic = "session-lost"
	// TopicWatchLost carries WatchLost whenever a watch could not be kept
	// armed.
	TopicWatchLost Topic = "watch-lost"
)

// Topics lists every valid topic
func Topics() []Topic {
	return []Topic{
		TopicNodeCreated,
		TopicNodeDeleted,
		TopicNodeDataChanged,
		TopicNodeChildrenChanged,
		TopicSessionLost,
		TopicWatchLost,
	}
}

// Valid reports whether t belongs to the vocabulary.
func (t Topic) Valid() bool {
	switch t {
	case TopicNodeCreated, TopicNodeDeleted, TopicNodeDataChanged,
		TopicNodeChildrenChanged, TopicSessionLost, TopicWatchLost:
		return true
	}
	return false
}

// TopicFor maps a store event kind onto its topic. EventNotWatching has no
// node topic.
func TopicFor(kind store.EventKind) (Topic, bool) {
	switch kind {
	case store.EventNodeCreated:
		return TopicNodeCreated, true
	case store.EventNodeDeleted:
		return TopicNodeDeleted, true
	case store.EventNodeDataChanged:
		return TopicNodeDataChanged, true
	case store.EventNodeChildrenChanged:
		return TopicNodeChildrenChanged, true
	default:
		return "", false
	}
}
