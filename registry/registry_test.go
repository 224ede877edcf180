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

package registry

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travisjeffery/go-dynaport"
	"go.uber.org/atomic"
	"go.uber.org/goleak"

	"github.com/tochemey/msd/errors"
	"github.com/tochemey/msd/eventstream"
	"github.com/tochemey/msd/log"
	"github.com/tochemey/msd/store"
	"github.com/tochemey/msd/store/memory"
)

const basePath = "/services"

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newServer(t *testing.T) *memory.Server {
	t.Helper()
	server := memory.NewServer()
	require.NoError(t, server.Seed(basePath, nil))
	return server
}

func connectTo(t *testing.T, server *memory.Server, opts ...Option) (*Connection, *memory.Store) {
	t.Helper()
	st := server.Connect()
	opts = append([]Option{WithLogger(log.DiscardLogger), WithLivenessPollDelay(-1)}, opts...)
	conn, err := New(context.Background(), st, basePath, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn, st
}

func registration(name string) Registration {
	return Registration{
		Name:     name,
		Port:     dynaport.Get(1)[0],
		Protocol: "http",
		API:      "/api/v1",
		IP:       "127.0.0.1",
		Release:  "1.0.0",
		Metadata: map[string]any{"zone": "eu-west-1"},
	}
}

type recorder struct {
	mu       sync.Mutex
	messages []*eventstream.Message
}

func (r *recorder) handle(message *eventstream.Message) {
	r.mu.Lock()
	r.messages = append(r.messages, message)
	r.mu.Unlock()
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages)
}

func (r *recorder) payloads() []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]any, 0, len(r.messages))
	for _, message := range r.messages {
		out = append(out, message.Payload())
	}
	return out
}

func TestNew(t *testing.T) {
	t.Run("With a provisioned base path", func(t *testing.T) {
		conn, _ := connectTo(t, newServer(t))
		assert.Equal(t, basePath, conn.BasePath())
		assert.Equal(t, store.StateConnected, conn.State())
		assert.False(t, conn.SessionLost())
	})

	t.Run("With a missing base path", func(t *testing.T) {
		st := memory.NewServer().Connect()
		defer st.Close()

		conn, err := New(context.Background(), st, basePath, WithLogger(log.DiscardLogger))
		require.Error(t, err)
		assert.Nil(t, conn)
		assert.ErrorIs(t, err, errors.ErrPrecondition)
	})

	t.Run("With an invalid base path", func(t *testing.T) {
		st := memory.NewServer().Connect()
		defer st.Close()

		_, err := New(context.Background(), st, "services", WithLogger(log.DiscardLogger))
		assert.ErrorIs(t, err, errors.ErrValidation)
	})

	t.Run("With a failing store", func(t *testing.T) {
		server := newServer(t)
		st := server.Connect()
		defer st.Close()
		st.FailWith(func(op, _ string) error {
			if op == "exists" {
				return assert.AnError
			}
			return nil
		})

		_, err := New(context.Background(), st, basePath, WithLogger(log.DiscardLogger))
		assert.ErrorIs(t, err, errors.ErrStore)
		assert.ErrorIs(t, err, assert.AnError)
	})
}

func TestRegisterService(t *testing.T) {
	ctx := context.Background()

	t.Run("With a valid registration", func(t *testing.T) {
		server := newServer(t)
		conn, st := connectTo(t, server)

		dir, err := conn.RegisterService(ctx, registration("accounts"))
		require.NoError(t, err)
		assert.Equal(t, "/services/accounts", dir)
		assert.True(t, server.Has("/services/accounts/accounts0000000000"))

		data, stat, err := st.Data(ctx, "/services/accounts/accounts0000000000", false)
		require.NoError(t, err)
		assert.Equal(t, st.ID(), stat.EphemeralOwner)
		assert.Contains(t, string(data), `"endpoint":"http://127.0.0.1:`)
		assert.Contains(t, string(data), `"metadata":{"zone":"eu-west-1"}`)
	})

	t.Run("With RegisterInstance reporting the created node", func(t *testing.T) {
		conn, _ := connectTo(t, newServer(t))
		reg := registration("accounts")
		reg.API = "api/v1"

		first, err := conn.RegisterInstance(ctx, reg)
		require.NoError(t, err)
		second, err := conn.RegisterInstance(ctx, reg)
		require.NoError(t, err)

		assert.Equal(t, "/services/accounts", first.Dir)
		assert.Equal(t, "/services/accounts/accounts0000000000", first.Path)
		assert.Equal(t, "/services/accounts/accounts0000000001", second.Path)
		assert.Equal(t, fmt.Sprintf("http://127.0.0.1:%d/api/v1", reg.Port), first.Endpoint)
	})

	t.Run("With missing fields", func(t *testing.T) {
		conn, _ := connectTo(t, newServer(t))
		testCases := []struct {
			field  string
			mutate func(*Registration)
		}{
			{"name", func(r *Registration) { r.Name = "" }},
			{"port", func(r *Registration) { r.Port = 0 }},
			{"protocol", func(r *Registration) { r.Protocol = "" }},
			{"api", func(r *Registration) { r.API = "" }},
			{"ip", func(r *Registration) { r.IP = "" }},
			{"release", func(r *Registration) { r.Release = "" }},
		}
		for _, tc := range testCases {
			t.Run(tc.field, func(t *testing.T) {
				reg := registration("accounts")
				tc.mutate(&reg)
				_, err := conn.RegisterService(ctx, reg)
				require.ErrorIs(t, err, errors.ErrValidation)

				var validationErr *errors.ValidationError
				require.ErrorAs(t, err, &validationErr)
				assert.Equal(t, tc.field, validationErr.Field)
			})
		}
	})

	t.Run("With the first missing field reported", func(t *testing.T) {
		conn, _ := connectTo(t, newServer(t))
		_, err := conn.RegisterService(ctx, Registration{Name: "accounts"})

		var validationErr *errors.ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Equal(t, "port", validationErr.Field)
	})

	t.Run("With the base path removed", func(t *testing.T) {
		server := newServer(t)
		conn, _ := connectTo(t, server)
		require.NoError(t, server.Delete(basePath))

		_, err := conn.RegisterService(ctx, registration("accounts"))
		require.ErrorIs(t, err, errors.ErrPrecondition)
		assert.False(t, server.Has(basePath))
	})

	t.Run("With a store failure", func(t *testing.T) {
		conn, st := connectTo(t, newServer(t))
		st.FailWith(func(op, _ string) error {
			if op == "create" {
				return assert.AnError
			}
			return nil
		})

		_, err := conn.RegisterService(ctx, registration("accounts"))
		require.ErrorIs(t, err, errors.ErrStore)
		assert.ErrorIs(t, err, assert.AnError)
	})
}

func TestDiscovery(t *testing.T) {
	ctx := context.Background()

	t.Run("With registered instances", func(t *testing.T) {
		server := newServer(t)
		provider, _ := connectTo(t, server)
		consumer, _ := connectTo(t, server)

		reg := registration("accounts")
		for range 3 {
			_, err := provider.RegisterService(ctx, reg)
			require.NoError(t, err)
		}
		_, err := provider.RegisterService(ctx, registration("orders"))
		require.NoError(t, err)

		instances, err := consumer.GetServiceEndpoints(ctx, "accounts")
		require.NoError(t, err)
		assert.Equal(t, []string{"accounts0000000000", "accounts0000000001", "accounts0000000002"}, instances)

		names, err := consumer.GetAllChildren(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"accounts", "orders"}, names)

		service, err := consumer.GetRandomServiceEndPoint(ctx, instances, "accounts")
		require.NoError(t, err)
		assert.Contains(t, instances, service.Path[len("/services/accounts/"):])
		assert.Equal(t, fmt.Sprintf("http://127.0.0.1:%d/api/v1", reg.Port), service.Endpoint)
		assert.Equal(t, map[string]any{"zone": "eu-west-1"}, service.Metadata)

		record, err := consumer.GetService(ctx, "/services/accounts/accounts0000000001")
		require.NoError(t, err)
		assert.Equal(t, map[string]any{
			"endpoint": fmt.Sprintf("http://127.0.0.1:%d/api/v1", reg.Port),
			"metadata": map[string]any{"zone": "eu-west-1"},
		}, record)
	})

	t.Run("With no instances", func(t *testing.T) {
		server := newServer(t)
		conn, _ := connectTo(t, server)

		_, err := conn.GetAllChildren(ctx)
		require.ErrorIs(t, err, errors.ErrNotFound)

		require.NoError(t, server.Seed("/services/accounts", nil))
		_, err = conn.GetServiceEndpoints(ctx, "accounts")
		require.ErrorIs(t, err, errors.ErrNotFound)
		assert.Contains(t, err.Error(), "microservice handler not present")

		_, err = conn.GetRandomServiceEndPoint(ctx, nil, "accounts")
		require.ErrorIs(t, err, errors.ErrNotFound)
	})

	t.Run("With an unknown service", func(t *testing.T) {
		conn, _ := connectTo(t, newServer(t))
		_, err := conn.GetServiceEndpoints(ctx, "unknown")
		require.ErrorIs(t, err, errors.ErrStore)
		assert.ErrorIs(t, err, store.ErrNoNode)

		_, err = conn.GetService(ctx, "/services/unknown")
		require.ErrorIs(t, err, store.ErrNoNode)
	})

	t.Run("With invalid arguments", func(t *testing.T) {
		conn, _ := connectTo(t, newServer(t))
		_, err := conn.GetServiceEndpoints(ctx, "")
		assert.ErrorIs(t, err, errors.ErrValidation)
		_, err = conn.GetService(ctx, "relative")
		assert.ErrorIs(t, err, errors.ErrValidation)
		_, err = conn.GetRandomServiceEndPoint(ctx, []string{"a"}, "a/b")
		assert.ErrorIs(t, err, errors.ErrValidation)
	})

	t.Run("With a text payload", func(t *testing.T) {
		server := newServer(t)
		require.NoError(t, server.Seed("/services/legacy", []byte("plain text")))
		conn, _ := connectTo(t, server)

		record, err := conn.GetService(ctx, "/services/legacy")
		require.NoError(t, err)
		assert.Equal(t, "plain text", record)
	})

	t.Run("With a record without endpoint", func(t *testing.T) {
		server := newServer(t)
		require.NoError(t, server.Seed("/services/legacy/legacy0000000000", []byte(`{"foo":1}`)))
		conn, _ := connectTo(t, server)

		_, err := conn.GetRandomServiceEndPoint(ctx, []string{"legacy0000000000"}, "legacy")
		assert.ErrorIs(t, err, errors.ErrInvalidRecord)
	})
}

func TestSelector(t *testing.T) {
	ctx := context.Background()

	t.Run("With the uniform selector", func(t *testing.T) {
		selector := NewUniformSelector(rand.New(rand.NewPCG(1, 2)))
		seen := make(map[int]int)
		for range 1000 {
			index := selector.Select(3)
			require.GreaterOrEqual(t, index, 0)
			require.Less(t, index, 3)
			seen[index]++
		}
		assert.Len(t, seen, 3)

		global := NewUniformSelector(nil)
		for range 100 {
			index := global.Select(7)
			require.GreaterOrEqual(t, index, 0)
			require.Less(t, index, 7)
		}
	})

	t.Run("With the legacy selector", func(t *testing.T) {
		selector := NewLegacySelector(rand.New(rand.NewPCG(3, 4)))
		for range 1000 {
			index := selector.Select(3)
			require.GreaterOrEqual(t, index, 0)
			require.Less(t, index, 3)
		}
	})

	t.Run("With a custom selector", func(t *testing.T) {
		server := newServer(t)
		conn, _ := connectTo(t, server, WithSelector(SelectorFunc(func(n int) int { return n - 1 })))
		for range 2 {
			_, err := conn.RegisterService(ctx, registration("accounts"))
			require.NoError(t, err)
		}
		instances, err := conn.GetServiceEndpoints(ctx, "accounts")
		require.NoError(t, err)

		service, err := conn.GetRandomServiceEndPoint(ctx, instances, "accounts")
		require.NoError(t, err)
		assert.Equal(t, "/services/accounts/accounts0000000001", service.Path)
	})

	t.Run("With an out of range selector", func(t *testing.T) {
		server := newServer(t)
		conn, _ := connectTo(t, server,
			WithSelector(SelectorFunc(func(n int) int { return n + 1 })))
		_, err := conn.RegisterService(ctx, registration("accounts"))
		require.NoError(t, err)

		service, err := conn.GetRandomServiceEndPoint(ctx, []string{"accounts0000000000"}, "accounts")
		require.NoError(t, err)
		assert.Equal(t, "/services/accounts/accounts0000000000", service.Path)
	})
}

func TestConfigData(t *testing.T) {
	ctx := context.Background()

	t.Run("With values round tripped", func(t *testing.T) {
		server := newServer(t)
		conn, _ := connectTo(t, server)

		testCases := []struct {
			path     string
			value    any
			expected any
		}{
			{"/config/accounts/limits", map[string]any{"max": 10, "name": "a"}, map[string]any{"max": float64(10), "name": "a"}},
			{"/config/accounts/hosts", []string{"a", "b"}, []any{"a", "b"}},
			{"/config/accounts/banner", "hello", "hello"},
			{"/config/accounts/enabled", true, true},
		}
		for _, tc := range testCases {
			_, err := conn.SetServiceConfigData(ctx, tc.path, tc.value)
			require.NoError(t, err)
			assert.True(t, server.Has(tc.path))

			value, err := conn.GetServiceConfigData(ctx, tc.path)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, value)
		}
	})

	t.Run("With overwrites bumping the version", func(t *testing.T) {
		conn, _ := connectTo(t, newServer(t))
		first, err := conn.SetServiceConfigData(ctx, "/config/flag", 1)
		require.NoError(t, err)
		second, err := conn.SetServiceConfigData(ctx, "/config/flag", 2)
		require.NoError(t, err)
		assert.Greater(t, second.Version, first.Version)

		value, err := conn.GetServiceConfigData(ctx, "/config/flag")
		require.NoError(t, err)
		assert.Equal(t, float64(2), value)
	})

	t.Run("With a value written without the envelope", func(t *testing.T) {
		server := newServer(t)
		require.NoError(t, server.Seed("/config/raw", []byte(`{"a":1}`)))
		require.NoError(t, server.Seed("/config/text", []byte("v=1")))
		conn, _ := connectTo(t, server)

		value, err := conn.GetServiceConfigData(ctx, "/config/raw")
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"a": float64(1)}, value)

		value, err = conn.GetServiceConfigData(ctx, "/config/text")
		require.NoError(t, err)
		assert.Equal(t, "v=1", value)
	})

	t.Run("With errors", func(t *testing.T) {
		conn, st := connectTo(t, newServer(t))
		_, err := conn.GetServiceConfigData(ctx, "/config/missing")
		require.ErrorIs(t, err, errors.ErrStore)
		assert.ErrorIs(t, err, store.ErrNoNode)

		_, err = conn.SetServiceConfigData(ctx, "config", 1)
		assert.ErrorIs(t, err, errors.ErrValidation)
		_, err = conn.SetServiceConfigData(ctx, "/config/chan", make(chan int))
		assert.ErrorIs(t, err, errors.ErrValidation)

		st.FailWith(func(op, _ string) error {
			if op == "set" {
				return assert.AnError
			}
			return nil
		})
		_, err = conn.SetServiceConfigData(ctx, "/config/flag", 1)
		assert.ErrorIs(t, err, assert.AnError)
	})
}

func TestWatches(t *testing.T) {
	ctx := context.Background()

	t.Run("With children watches kept armed", func(t *testing.T) {
		server := newServer(t)
		consumer, _ := connectTo(t, server)
		provider, _ := connectTo(t, server)

		_, err := provider.RegisterService(ctx, registration("accounts"))
		require.NoError(t, err)

		changes := new(recorder)
		_, err = consumer.Subscribe(eventstream.TopicNodeChildrenChanged, changes.handle)
		require.NoError(t, err)

		_, err = consumer.GetServiceEndpoints(ctx, "accounts")
		require.NoError(t, err)

		for i := 1; i <= 3; i++ {
			_, err := provider.RegisterService(ctx, registration("accounts"))
			require.NoError(t, err)
			require.Eventually(t, func() bool { return changes.count() == i }, time.Second, 10*time.Millisecond)
		}

		for _, payload := range changes.payloads() {
			assert.Equal(t, eventstream.NodeEvent{Kind: store.EventNodeChildrenChanged, Path: "/services/accounts"}, payload)
		}
	})

	t.Run("With data watches kept armed", func(t *testing.T) {
		server := newServer(t)
		consumer, _ := connectTo(t, server)
		writer, _ := connectTo(t, server)

		_, err := writer.SetServiceConfigData(ctx, "/config/flag", 1)
		require.NoError(t, err)

		changes := new(recorder)
		sub, err := consumer.Subscribe(eventstream.TopicNodeDataChanged, changes.handle)
		require.NoError(t, err)

		_, err = consumer.GetServiceConfigData(ctx, "/config/flag")
		require.NoError(t, err)

		for i := 1; i <= 2; i++ {
			_, err := writer.SetServiceConfigData(ctx, "/config/flag", i+1)
			require.NoError(t, err)
			require.Eventually(t, func() bool { return changes.count() == i }, time.Second, 10*time.Millisecond)
		}

		consumer.Unsubscribe(sub)
		_, err = writer.SetServiceConfigData(ctx, "/config/flag", 10)
		require.NoError(t, err)
		time.Sleep(50 * time.Millisecond)
		assert.Equal(t, 2, changes.count())
	})

	t.Run("With an invalid topic", func(t *testing.T) {
		conn, _ := connectTo(t, newServer(t))
		_, err := conn.Subscribe("unknown", func(*eventstream.Message) {})
		assert.Error(t, err)
	})
}

func TestSessionLost(t *testing.T) {
	t.Run("With the signal raised once", func(t *testing.T) {
		handled := atomic.NewInt32(0)
		conn, st := connectTo(t, newServer(t), WithSessionLostHandler(func(eventstream.SessionLost) {
			handled.Inc()
		}))

		lost := new(recorder)
		_, err := conn.Subscribe(eventstream.TopicSessionLost, lost.handle)
		require.NoError(t, err)

		st.SetState(store.StateDisconnected)
		st.SetState(store.StateExpired)

		require.Eventually(t, conn.SessionLost, time.Second, 10*time.Millisecond)
		require.Eventually(t, func() bool { return lost.count() == 1 }, time.Second, 10*time.Millisecond)
		time.Sleep(50 * time.Millisecond)
		assert.Equal(t, 1, lost.count())
		assert.EqualValues(t, 1, handled.Load())

		payload := lost.payloads()[0].(eventstream.SessionLost)
		assert.Equal(t, store.StateDisconnected, payload.State)
	})

	t.Run("With a disconnected session", func(t *testing.T) {
		server := newServer(t)
		st := server.Connect()
		st.SetState(store.StateDisconnected)

		conn, err := New(context.Background(), st, basePath,
			WithLogger(log.DiscardLogger),
			WithLivenessPollDelay(20*time.Millisecond))
		require.ErrorIs(t, err, errors.ErrStore)
		assert.ErrorIs(t, err, memory.ErrNotConnected)
		assert.Nil(t, conn)
		require.NoError(t, st.Close())
	})

	t.Run("With ephemeral nodes gone after expiry", func(t *testing.T) {
		server := newServer(t)
		provider, st := connectTo(t, server)
		_, err := provider.RegisterService(context.Background(), registration("accounts"))
		require.NoError(t, err)

		st.Expire()
		require.Eventually(t, provider.SessionLost, time.Second, 10*time.Millisecond)
		assert.False(t, server.Has("/services/accounts/accounts0000000000"))
		assert.True(t, server.Has("/services/accounts"))

		_, err = provider.RegisterService(context.Background(), registration("accounts"))
		assert.ErrorIs(t, err, store.ErrSessionLost)
	})
}

func TestClose(t *testing.T) {
	ctx := context.Background()
	server := newServer(t)
	consumer, _ := connectTo(t, server)

	st := server.Connect()
	provider, err := New(ctx, st, basePath, WithLogger(log.DiscardLogger), WithLivenessPollDelay(-1))
	require.NoError(t, err)

	_, err = provider.RegisterService(ctx, registration("accounts"))
	require.NoError(t, err)
	instances, err := consumer.GetServiceEndpoints(ctx, "accounts")
	require.NoError(t, err)
	require.Len(t, instances, 1)

	require.NoError(t, provider.Close())
	require.NoError(t, provider.Close())

	_, err = consumer.GetServiceEndpoints(ctx, "accounts")
	require.ErrorIs(t, err, errors.ErrNotFound)

	_, err = provider.RegisterService(ctx, registration("accounts"))
	assert.ErrorIs(t, err, errors.ErrClosed)
	_, err = provider.GetAllChildren(ctx)
	assert.ErrorIs(t, err, errors.ErrClosed)
	_, err = provider.SetServiceConfigData(ctx, "/config/flag", 1)
	assert.ErrorIs(t, err, errors.ErrClosed)
	_, err = provider.Subscribe(eventstream.TopicNodeCreated, func(*eventstream.Message) {})
	assert.ErrorIs(t, err, errors.ErrClosed)
}

func TestConnectConfig(t *testing.T) {
	t.Run("With defaults", func(t *testing.T) {
		config := &Config{ConnectionURL: " zk1:2181, zk2:2181 ,", BasePath: "/services"}
		config.Sanitize()
		require.NoError(t, config.Validate())
		assert.Equal(t, BackendZookeeper, config.Backend)
		assert.Equal(t, DefaultSessionTimeout, config.SessionTimeout)
		assert.Equal(t, DefaultLivenessPollDelay, config.LivenessPollDelay)
		assert.Equal(t, DefaultDialTimeout, config.DialTimeout)
		assert.Equal(t, []string{"zk1:2181", "zk2:2181"}, config.Servers())
	})

	t.Run("With invalid values", func(t *testing.T) {
		config := DefaultConfig()
		config.Backend = "redis"
		assert.ErrorIs(t, config.Validate(), errors.ErrValidation)

		config = DefaultConfig()
		config.BasePath = "services"
		assert.ErrorIs(t, config.Validate(), errors.ErrValidation)
	})

	t.Run("With Connect rejecting an invalid config", func(t *testing.T) {
		_, err := Connect(context.Background(), &Config{BasePath: "/services"})
		assert.ErrorIs(t, err, errors.ErrValidation)
	})
}
