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

import (
	"errors"
	"fmt"
	"sync"

	"github.com/tochemey/msd/log"
)

// ErrClosed is returned when subscribing to a closed stream.
var ErrClosed = errors.New("event stream is closed")

// Stream fans published messages out to topic subscribers. Publish never
// blocks on a slow handler.
type Stream interface {
	// Subscribe registers handler for topic.
	Subscribe(topic Topic, handler Handler) (Subscription, error)
	// Unsubscribe removes a subscription. Messages already queued for it
	// are still delivered. It must not be called from the subscription's
	// own handler.
	Unsubscribe(sub Subscription)
	// SubscribersCount returns the number of subscriptions on topic.
	SubscribersCount(topic Topic) int
	// Publish queues payload for every subscriber of topic.
	Publish(topic Topic, payload any)
	// Close drains and removes every subscription.
	Close()
}

// EventsStream is the default Stream implementation.
type EventsStream struct {
	mu     sync.RWMutex
	topics map[Topic]map[string]*subscriber
	closed bool
	logger log.Logger
}

var _ Stream = (*EventsStream)(nil)

// New creates an EventsStream. A nil logger discards handler failures.
func New(logger log.Logger) *EventsStream {
	if logger == nil {
		logger = log.DiscardLogger
	}
	return &EventsStream{
		topics: make(map[Topic]map[string]*subscriber),
		logger: logger,
	}
}

// Subscribe implements Stream
func (b *EventsStream) Subscribe(topic Topic, handler Handler) (Subscription, error) {
	if !topic.Valid() {
		return nil, fmt.Errorf("unknown topic %q", topic)
	}
	if handler == nil {
		return nil, errors.New("handler is nil")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}

	sub := newSubscriber(topic, handler, b.logger)
	subs, ok := b.topics[topic]
	if !ok {
		subs = make(map[string]*subscriber)
		b.topics[topic] = subs
	}
	subs[sub.ID()] = sub
	return sub, nil
}

// Unsubscribe implements Stream
func (b *EventsStream) Unsubscribe(sub Subscription) {
	if sub == nil {
		return
	}

	b.mu.Lock()
	subs := b.topics[sub.Topic()]
	target, ok := subs[sub.ID()]
	if ok {
		delete(subs, sub.ID())
		if len(subs) == 0 {
			delete(b.topics, sub.Topic())
		}
	}
	b.mu.Unlock()

	if ok {
		target.stop()
	}
}

// SubscribersCount implements Stream
func (b *EventsStream) SubscribersCount(topic Topic) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.topics[topic])
}

// Publish implements Stream
func (b *EventsStream) Publish(topic Topic, payload any) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	subs := b.topics[topic]
	if len(subs) == 0 {
		return
	}
	message := NewMessage(topic, payload)
	for _, sub := range subs {
		sub.signal(message)
	}
}

// Close implements Stream
func (b *EventsStream) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	topics := b.topics
	b.topics = make(map[Topic]map[string]*subscriber)
	b.mu.Unlock()

	for _, subs := range topics {
		for _, sub := range subs {
			sub.stop()
		}
	}
}
