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

// Package metric exposes the OpenTelemetry instruments recorded by a
// registry connection.
package metric

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/tochemey/msd"

// Metrics groups the connection instruments.
type Metrics struct {
	watchFired   metric.Int64Counter
	rearms       metric.Int64Counter
	rearmFailure metric.Int64Counter
	sessionLost  metric.Int64Counter
}

// NewMetrics creates the instruments from provider. A nil provider uses
// the global one.
func NewMetrics(provider metric.MeterProvider) (*Metrics, error) {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	meter := provider.Meter(instrumentationName)

	m := new(Metrics)
	var err error
	if m.watchFired, err = meter.Int64Counter(
		"msd.watch.fired.count",
		metric.WithDescription("Total number of one-shot watches fired by the store"),
	); err != nil {
		return nil, fmt.Errorf("failed to create watchFired instrument, %w", err)
	}
	if m.rearms, err = meter.Int64Counter(
		"msd.watch.rearm.count",
		metric.WithDescription("Total number of watches re-armed after firing"),
	); err != nil {
		return nil, fmt.Errorf("failed to create rearms instrument, %w", err)
	}
	if m.rearmFailure, err = meter.Int64Counter(
		"msd.watch.rearm.failure.count",
		metric.WithDescription("Total number of watches that could not be kept armed"),
	); err != nil {
		return nil, fmt.Errorf("failed to create rearmFailure instrument, %w", err)
	}
	if m.sessionLost, err = meter.Int64Counter(
		"msd.session.lost.count",
		metric.WithDescription("Total number of sessions reported lost"),
	); err != nil {
		return nil, fmt.Errorf("failed to create sessionLost instrument, %w", err)
	}
	return m, nil
}

// WatchFired records a fired watch of the given event kind.
func (m *Metrics) WatchFired(ctx context.Context, kind string) {
	m.watchFired.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// Rearmed records a successful re-arm of the given watch kind.
func (m *Metrics) Rearmed(ctx context.Context, watch string) {
	m.rearms.Add(ctx, 1, metric.WithAttributes(attribute.String("watch", watch)))
}

// RearmFailed records a watch that could not be kept armed.
func (m *Metrics) RearmFailed(ctx context.Context, watch string) {
	m.rearmFailure.Add(ctx, 1, metric.WithAttributes(attribute.String("watch", watch)))
}

// SessionLost records the terminal session signal.
func (m *Metrics) SessionLost(ctx context.Context, state string) {
	m.sessionLost.Add(ctx, 1, metric.WithAttributes(attribute.String("state", state)))
}
