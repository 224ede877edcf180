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

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPath(t *testing.T) {
	t.Run("Join", func(t *testing.T) {
		assert.Equal(t, "/services/api", Join("/services", "api"))
		assert.Equal(t, "/services/api/api", Join("/services/", "/api/", "api"))
		assert.Equal(t, "/a", Join("/", "a"))
		assert.Equal(t, "/", Join("/"))
		assert.Equal(t, "/", Join("", ""))
	})
	t.Run("Parent and Base", func(t *testing.T) {
		assert.Equal(t, "/services", Parent("/services/api"))
		assert.Equal(t, "/", Parent("/services"))
		assert.Equal(t, "/", Parent("/"))
		assert.Equal(t, "api", Base("/services/api"))
		assert.Equal(t, "services", Base("/services"))
	})
	t.Run("Ancestors", func(t *testing.T) {
		assert.Equal(t, []string{"/a", "/a/b"}, Ancestors("/a/b/c"))
		assert.Empty(t, Ancestors("/a"))
	})
	t.Run("ValidatePath", func(t *testing.T) {
		assert.NoError(t, ValidatePath("/"))
		assert.NoError(t, ValidatePath("/a/b"))
		assert.Error(t, ValidatePath(""))
		assert.Error(t, ValidatePath("a"))
		assert.Error(t, ValidatePath("/a/"))
		assert.Error(t, ValidatePath("/a//b"))
	})
	t.Run("SequenceName", func(t *testing.T) {
		assert.Equal(t, "/s/api0000000007", SequenceName("/s/api", 7))
	})
	t.Run("State", func(t *testing.T) {
		assert.True(t, StateExpired.IsLost())
		assert.True(t, StateAuthFailed.IsLost())
		assert.True(t, StateDisconnected.IsLost())
		assert.False(t, StateConnected.IsLost())
		assert.Equal(t, "auth-failed", StateAuthFailed.String())
	})
	t.Run("EventKind", func(t *testing.T) {
		assert.Equal(t, "NODE_CHILDREN_CHANGED", EventNodeChildrenChanged.String())
		assert.Equal(t, "EventKind(99)", EventKind(99).String())
		assert.Equal(t, "NODE_DELETED /a (data watch)", Event{Kind: EventNodeDeleted, Path: "/a", Watch: DataWatch}.String())
	})
}
