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

	"go.uber.org/multierr"

	"github.com/tochemey/msd/store"
	"github.com/tochemey/msd/store/consul"
	"github.com/tochemey/msd/store/etcd"
	"github.com/tochemey/msd/store/zookeeper"
)

// Connect dials the backend named by config and starts a Connection on it.
// The base path must already exist in the store.
func Connect(ctx context.Context, config *Config, opts ...Option) (*Connection, error) {
	if config == nil {
		config = DefaultConfig()
	}
	config.Sanitize()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid connection config: %w", err)
	}

	c := newConnection(config.BasePath, config.LivenessPollDelay, opts...)
	st, err := dial(ctx, config, c)
	if err != nil {
		return nil, err
	}

	if err := c.start(ctx, st); err != nil {
		return nil, multierr.Append(err, st.Close())
	}
	return c, nil
}

func dial(ctx context.Context, config *Config, c *Connection) (store.Store, error) {
	switch config.Backend {
	case BackendEtcd:
		return etcd.NewStore(ctx, &etcd.Config{
			Endpoints:   config.Servers(),
			SessionTTL:  config.SessionTimeout,
			DialTimeout: config.DialTimeout,
		}, etcd.WithLogger(c.logger))
	case BackendConsul:
		return consul.NewStore(ctx, &consul.Config{
			Address:    config.Servers()[0],
			SessionTTL: config.SessionTimeout,
			Timeout:    config.DialTimeout,
		}, consul.WithLogger(c.logger))
	default:
		return zookeeper.NewStore(ctx, &zookeeper.Config{
			Servers:        config.Servers(),
			SessionTimeout: config.SessionTimeout,
			DialTimeout:    config.DialTimeout,
		}, zookeeper.WithLogger(c.logger))
	}
}
