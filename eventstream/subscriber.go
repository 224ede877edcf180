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
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/atomic"

	"github.com/tochemey/msd/internal/queue"
	"github.com/tochemey/msd/log"
)

// Handler processes one message. Handlers of a subscription run one at a
// time in publication order.
type Handler func(*Message)

// Subscription identifies a registered handler.
type Subscription interface {
	// ID returns the subscription identifier
	ID() string
	// Topic returns the subscribed topic
	Topic() Topic
	// Active reports whether the subscription still receives messages
	Active() bool
}

type subscriber struct {
	id       string
	topic    Topic
	handler  Handler
	messages *queue.Queue[*Message]
	active   *atomic.Bool
	logger   log.Logger
	done     sync.WaitGroup
}

var _ Subscription = (*subscriber)(nil)

func newSubscriber(topic Topic, handler Handler, logger log.Logger) *subscriber {
	s := &subscriber{
		id:       uuid.NewString(),
		topic:    topic,
		handler:  handler,
		messages: queue.New[*Message](),
		active:   atomic.NewBool(true),
		logger:   logger,
	}
	s.done.Add(1)
	go s.run()
	return s
}

func (s *subscriber) ID() string   { return s.id }
func (s *subscriber) Topic() Topic { return s.topic }
func (s *subscriber) Active() bool { return s.active.Load() }

func (s *subscriber) signal(message *Message) {
	if s.active.Load() {
		s.messages.Push(message)
	}
}

// stop lets the queued messages drain then waits for the delivery loop.
func (s *subscriber) stop() {
	s.active.Store(false)
	s.messages.Close()
	s.done.Wait()
}

func (s *subscriber) run() {
	defer s.done.Done()
	for {
		message, ok := s.messages.Wait()
		if !ok {
			return
		}
		s.deliver(message)
	}
}

func (s *subscriber) deliver(message *Message) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error(fmt.Errorf("subscriber %s panicked handling %s: %v", s.id, message.Topic(), r))
		}
	}()
	s.handler(message)
}
