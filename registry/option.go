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
	"math/rand/v2"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/tochemey/msd/eventstream"
	"github.com/tochemey/msd/log"
)

// Option configures a Connection
type Option interface {
	// Apply sets the Option value of a Connection.
	Apply(*Connection)
}

var _ Option = OptionFunc(nil)

// OptionFunc implements the Option interface.
type OptionFunc func(*Connection)

// Apply applies the option to the Connection
func (f OptionFunc) Apply(c *Connection) {
	f(c)
}

// WithLogger sets the connection logger
func WithLogger(logger log.Logger) Option {
	return OptionFunc(func(c *Connection) {
		c.logger = logger
	})
}

// WithMeterProvider records the connection instruments on provider instead of
// the global meter provider.
func WithMeterProvider(provider metric.MeterProvider) Option {
	return OptionFunc(func(c *Connection) {
		c.meterProvider = provider
	})
}

// WithLivenessPollDelay overrides the delay of the one-shot liveness poll.
// A non-positive delay disables the poll.
func WithLivenessPollDelay(delay time.Duration) Option {
	return OptionFunc(func(c *Connection) {
		c.pollDelay = delay
	})
}

// WithSelector sets how GetRandomServiceEndPoint picks an instance.
func WithSelector(selector Selector) Option {
	return OptionFunc(func(c *Connection) {
		c.selector = selector
	})
}

// WithRand sets the random source used by the default selector.
func WithRand(r *rand.Rand) Option {
	return OptionFunc(func(c *Connection) {
		c.selector = NewUniformSelector(r)
	})
}

// WithSessionLostHandler runs fn once when the session is reported lost,
// after the session-lost signal is published.
func WithSessionLostHandler(fn func(eventstream.SessionLost)) Option {
	return OptionFunc(func(c *Connection) {
		c.onSessionLost = fn
	})
}
