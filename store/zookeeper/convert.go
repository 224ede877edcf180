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

package zookeeper

import (
	"errors"
	"sort"
	"time"

	"github.com/go-zookeeper/zk"

	"github.com/tochemey/msd/store"
)

func toState(state zk.State) (store.State, bool) {
	switch state {
	case zk.StateHasSession:
		return store.StateConnected, true
	case zk.StateDisconnected:
		return store.StateDisconnected, true
	case zk.StateAuthFailed:
		return store.StateAuthFailed, true
	case zk.StateExpired:
		return store.StateExpired, true
	default:
		return store.StateUnknown, false
	}
}

func toEventKind(eventType zk.EventType) store.EventKind {
	switch eventType {
	case zk.EventNodeCreated:
		return store.EventNodeCreated
	case zk.EventNodeDeleted:
		return store.EventNodeDeleted
	case zk.EventNodeDataChanged:
		return store.EventNodeDataChanged
	case zk.EventNodeChildrenChanged:
		return store.EventNodeChildrenChanged
	default:
		return store.EventNotWatching
	}
}

func toError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, zk.ErrNoNode):
		return errors.Join(store.ErrNoNode, err)
	case errors.Is(err, zk.ErrNodeExists):
		return errors.Join(store.ErrNodeExists, err)
	case errors.Is(err, zk.ErrSessionExpired):
		return errors.Join(store.ErrSessionLost, err)
	case errors.Is(err, zk.ErrClosing):
		return errors.Join(store.ErrClosed, err)
	default:
		return err
	}
}

func toStat(stat *zk.Stat) *store.Stat {
	if stat == nil {
		return &store.Stat{}
	}
	return &store.Stat{
		Version:        stat.Version,
		Created:        time.UnixMilli(stat.Ctime),
		Modified:       time.UnixMilli(stat.Mtime),
		NumChildren:    stat.NumChildren,
		DataLength:     stat.DataLength,
		EphemeralOwner: stat.EphemeralOwner,
	}
}

func sorted(children []string) []string {
	sort.Strings(children)
	return children
}
