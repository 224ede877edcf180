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

package consul

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/consul"

	"github.com/tochemey/msd/log"
	"github.com/tochemey/msd/store"
)

func startConsulAgent(t *testing.T) *consul.ConsulContainer {
	t.Helper()
	consulContainer, err := consul.Run(t.Context(), "hashicorp/consul:1.15")
	require.NoError(t, err)
	t.Cleanup(func() {
		err := consulContainer.Terminate(context.Background())
		require.NoError(t, err)
	})
	return consulContainer
}

func connect(t *testing.T, address string) *Store {
	t.Helper()
	s, err := NewStore(t.Context(), &Config{
		Address:  address,
		Prefix:   "msd-test",
		WaitTime: 10 * time.Second,
	}, WithLogger(log.DiscardLogger))
	require.NoError(t, err)
	return s
}

func nextEvent(t *testing.T, s *Store) store.Event {
	t.Helper()
	select {
	case ev := <-s.Events():
		return ev
	case <-time.After(15 * time.Second):
		t.Fatal("no watch fired")
		return store.Event{}
	}
}

func TestStore(t *testing.T) {
	if testing.Short() {
		t.Skip("requires docker")
	}
	agent := startConsulAgent(t)
	address, err := agent.ApiEndpoint(t.Context())
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("With the node operations", func(t *testing.T) {
		s := connect(t, address)
		defer s.Close()
		require.Equal(t, store.StateConnected, s.State())

		_, err := s.MakeDirs(ctx, "/ops/services/api")
		require.NoError(t, err)
		_, err = s.MakeDirs(ctx, "/ops/services/api")
		require.NoError(t, err)

		first, err := s.CreateEphemeralSequential(ctx, "/ops/services/api/api", []byte("a"))
		require.NoError(t, err)
		assert.Equal(t, "/ops/services/api/api0000000000", first)
		second, err := s.CreateEphemeralSequential(ctx, "/ops/services/api/api", []byte("b"))
		require.NoError(t, err)
		assert.Equal(t, "/ops/services/api/api0000000001", second)

		children, err := s.Children(ctx, "/ops/services/api", false)
		require.NoError(t, err)
		assert.Equal(t, []string{"api0000000000", "api0000000001"}, children)
		children, err = s.Children(ctx, "/ops", false)
		require.NoError(t, err)
		assert.Equal(t, []string{"services"}, children)

		data, stat, err := s.Data(ctx, first, false)
		require.NoError(t, err)
		assert.Equal(t, "a", string(data))
		assert.NotZero(t, stat.EphemeralOwner)

		stat, err = s.SetData(ctx, "/ops/services", []byte("v1"))
		require.NoError(t, err)
		assert.EqualValues(t, 1, stat.Version)
		stat, err = s.SetData(ctx, "/ops/services", []byte("v2"))
		require.NoError(t, err)
		assert.EqualValues(t, 2, stat.Version)

		_, err = s.SetData(ctx, "/ops/missing", nil)
		require.ErrorIs(t, err, store.ErrNoNode)
		_, err = s.Children(ctx, "/ops/missing", false)
		require.ErrorIs(t, err, store.ErrNoNode)
		_, err = s.CreateEphemeralSequential(ctx, "/ops/missing/x", nil)
		require.ErrorIs(t, err, store.ErrNoNode)
	})

	t.Run("With one-shot watches", func(t *testing.T) {
		watcher := connect(t, address)
		defer watcher.Close()
		other := connect(t, address)
		defer other.Close()

		_, err := other.MakeDirs(ctx, "/watch/api")
		require.NoError(t, err)

		_, err = watcher.Children(ctx, "/watch/api", true)
		require.NoError(t, err)
		_, err = other.CreateEphemeralSequential(ctx, "/watch/api/api", nil)
		require.NoError(t, err)
		assert.Equal(t, store.Event{Kind: store.EventNodeChildrenChanged, Path: "/watch/api", Watch: store.ChildrenWatch}, nextEvent(t, watcher))

		_, _, err = watcher.Data(ctx, "/watch/api", true)
		require.NoError(t, err)
		_, err = other.SetData(ctx, "/watch/api", []byte("x"))
		require.NoError(t, err)
		assert.Equal(t, store.Event{Kind: store.EventNodeDataChanged, Path: "/watch/api", Watch: store.DataWatch}, nextEvent(t, watcher))
	})

	t.Run("With Close destroying the session", func(t *testing.T) {
		owner := connect(t, address)
		observer := connect(t, address)
		defer observer.Close()

		_, err := owner.MakeDirs(ctx, "/eph/api")
		require.NoError(t, err)
		created, err := owner.CreateEphemeralSequential(ctx, "/eph/api/api", nil)
		require.NoError(t, err)
		require.NoError(t, owner.Close())
		require.NoError(t, owner.Close())

		require.Eventually(t, func() bool {
			ok, err := observer.Exists(ctx, created)
			return err == nil && !ok
		}, 10*time.Second, 100*time.Millisecond)
		ok, err := observer.Exists(ctx, "/eph/api")
		require.NoError(t, err)
		assert.True(t, ok)

		_, err = owner.Children(ctx, "/eph/api", false)
		require.ErrorIs(t, err, store.ErrClosed)
	})
}
