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

// Message is what a handler receives
type Message struct {
	topic   Topic
	payload any
}

// NewMessage creates a Message
func NewMessage(topic Topic, payload any) *Message {
	return &Message{topic: topic, payload: payload}
}

// Topic returns the topic the message was published on
func (m *Message) Topic() Topic { return m.topic }

// Payload returns the message payload
func (m *Message) Payload() any { return m.payload }

// NodeEvent is the payload of the node topics.
type NodeEvent struct {
	Kind store.EventKind
	Path string
}

// SessionLost is the payload of TopicSessionLost.
type SessionLost struct {
	State  store.State
	Reason string
}

// WatchLost is the payload of TopicWatchLost.
type WatchLost struct {
	Path  string
	Watch store.WatchKind
	Err   error
}
