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

package etcd

import (
	"crypto/tls"
	"time"

	"github.com/tochemey/msd/internal/validation"
)

// minSessionTTL is the smallest lease TTL requested from etcd.
const minSessionTTL = 5 * time.Second

// Config holds the etcd connection settings
type Config struct {
	// Endpoints is a list of etcd cluster endpoints
	Endpoints []string
	// Prefix isolates the tree under a key prefix. Empty means none.
	Prefix string
	// SessionTTL is the TTL of the lease backing ephemeral nodes. It is
	// raised to five seconds when lower.
	SessionTTL time.Duration
	// DialTimeout for etcd client connections
	DialTimeout time.Duration
	// TLS configuration (optional)
	TLS *tls.Config
	// Username for etcd authentication (optional)
	Username string
	// Password for etcd authentication (optional)
	Password string
}

var _ validation.Validator = (*Config)(nil)

// Validate implements validation.Validator.
func (c *Config) Validate() error {
	return validation.New(validation.FailFast()).
		AddAssertion(len(c.Endpoints) > 0, "endpoints", "must not be empty").
		AddAssertion(c.DialTimeout > 0, "dialTimeout", "must be greater than 0").
		Validate()
}

func (c *Config) ttlSeconds() int64 {
	ttl := c.SessionTTL
	if ttl < minSessionTTL {
		ttl = minSessionTTL
	}
	return int64(ttl / time.Second)
}
