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
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tochemey/msd/store"
)

type collector struct {
	mu       sync.Mutex
	messages []*Message
}

func (c *collector) handle(m *Message) {
	c.mu.Lock()
	c.messages = append(c.messages, m)
	c.mu.Unlock()
}

func (c *collector) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}

func (c *collector) at(i int) *Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.messages[i]
}

func TestStream(t *testing.T) {
	defer goleak.VerifyNone(t)

	t.Run("With subscribe and publish", func(t *testing.T) {
		stream := New(nil)
		defer stream.Close()

		c := new(collector)
		sub, err := stream.Subscribe(TopicNodeChildrenChanged, c.handle)
		require.NoError(t, err)
		require.NotEmpty(t, sub.ID())
		assert.True(t, sub.Active())
		assert.Equal(t, TopicNodeChildrenChanged, sub.Topic())
		assert.Equal(t, 1, stream.SubscribersCount(TopicNodeChildrenChanged))

		for i := range 10 {
			stream.Publish(TopicNodeChildrenChanged, NodeEvent{Kind: store.EventNodeChildrenChanged, Path: "/s/" + string(rune('a'+i))})
		}
		stream.Publish(TopicNodeDeleted, NodeEvent{Kind: store.EventNodeDeleted, Path: "/ignored"})

		require.Eventually(t, func() bool { return c.len() == 10 }, time.Second, 5*time.Millisecond)
		first := c.at(0)
		assert.Equal(t, TopicNodeChildrenChanged, first.Topic())
		assert.Equal(t, "/s/a", first.Payload().(NodeEvent).Path)
		assert.Equal(t, "/s/j", c.at(9).Payload().(NodeEvent).Path)
	})

	t.Run("With unknown topic", func(t *testing.T) {
		stream := New(nil)
		defer stream.Close()
		_, err := stream.Subscribe(Topic("NOPE"), func(*Message) {})
		require.Error(t, err)
		_, err = stream.Subscribe(TopicSessionLost, nil)
		require.Error(t, err)
	})

	t.Run("With unsubscribe", func(t *testing.T) {
		stream := New(nil)
		defer stream.Close()
		c := new(collector)
		sub, err := stream.Subscribe(TopicSessionLost, c.handle)
		require.NoError(t, err)
		stream.Publish(TopicSessionLost, SessionLost{State: store.StateExpired})
		stream.Unsubscribe(sub)
		assert.False(t, sub.Active())
		assert.Zero(t, stream.SubscribersCount(TopicSessionLost))
		// the message queued before unsubscribing is delivered
		assert.Equal(t, 1, c.len())
		stream.Publish(TopicSessionLost, SessionLost{State: store.StateExpired})
		assert.Equal(t, 1, c.len())
		stream.Unsubscribe(nil)
	})

	t.Run("With a panicking handler", func(t *testing.T) {
		stream := New(nil)
		defer stream.Close()
		c := new(collector)
		_, err := stream.Subscribe(TopicWatchLost, func(m *Message) {
			c.handle(m)
			panic("boom")
		})
		require.NoError(t, err)
		stream.Publish(TopicWatchLost, WatchLost{Path: "/a"})
		stream.Publish(TopicWatchLost, WatchLost{Path: "/b"})
		require.Eventually(t, func() bool { return c.len() == 2 }, time.Second, 5*time.Millisecond)
	})

	t.Run("With a slow handler the publisher does not block", func(t *testing.T) {
		stream := New(nil)
		release := make(chan struct{})
		_, err := stream.Subscribe(TopicNodeDataChanged, func(*Message) { <-release })
		require.NoError(t, err)

		done := make(chan struct{})
		go func() {
			for range 100 {
				stream.Publish(TopicNodeDataChanged, NodeEvent{})
			}
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("publish blocked")
		}
		close(release)
		stream.Close()
	})

	t.Run("With Close", func(t *testing.T) {
		stream := New(nil)
		_, err := stream.Subscribe(TopicNodeCreated, func(*Message) {})
		require.NoError(t, err)
		stream.Close()
		stream.Close()
		assert.Zero(t, stream.SubscribersCount(TopicNodeCreated))
		_, err = stream.Subscribe(TopicNodeCreated, func(*Message) {})
		require.ErrorIs(t, err, ErrClosed)
	})
}

func TestTopicFor(t *testing.T) {
	for kind, topic := range map[store.EventKind]Topic{
		store.EventNodeCreated:         TopicNodeCreated,
		store.EventNodeDeleted:         TopicNodeDeleted,
		store.EventNodeDataChanged:     TopicNodeDataChanged,
		store.EventNodeChildrenChanged: TopicNodeChildrenChanged,
	} {
		actual, ok := TopicFor(kind)
		require.True(t, ok)
		assert.Equal(t, topic, actual)
		assert.True(t, actual.Valid())
	}
	_, ok := TopicFor(store.EventNotWatching)
	assert.False(t, ok)
	assert.Len(t, Topics(), 6)
}
