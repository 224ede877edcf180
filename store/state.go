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

// State is the session state of a store connection.
type State int

const (
	// StateUnknown is reported before the first transition.
	StateUnknown State = iota
	// StateConnected means the session is established.
	StateConnected
	// StateDisconnected means the link to the store is down. The session
	// may still be alive server side.
	StateDisconnected
	// StateAuthFailed means the store rejected the credentials.
	StateAuthFailed
	// StateExpired means the server discarded the session and every
	// ephemeral node it owned.
	StateExpired
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	case StateAuthFailed:
		return "auth-failed"
	case StateExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// IsLost reports whether s ends the usefulness of the session.
func (s State) IsLost() bool {
	return s == StateDisconnected || s == StateAuthFailed || s == StateExpired
}
