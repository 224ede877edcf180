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
	"strings"
	"time"

	"github.com/tochemey/msd/internal/validation"
)

// Backend names a coordination store implementation.
type Backend string

const (
	// BackendZookeeper dials a ZooKeeper ensemble.
	BackendZookeeper Backend = "zookeeper"
	// BackendEtcd dials an etcd cluster.
	BackendEtcd Backend = "etcd"
	// BackendConsul dials a Consul agent.
	BackendConsul Backend = "consul"
)

const (
	// DefaultSessionTimeout is the store session timeout.
	DefaultSessionTimeout = time.Second
	// DefaultLivenessPollDelay is the delay of the one-shot liveness poll.
	DefaultLivenessPollDelay = 5 * time.Second
	// DefaultDialTimeout bounds the initial connection to the store.
	DefaultDialTimeout = 10 * time.Second
)

// Config describes how to reach the coordination store.
type Config struct {
	// ConnectionURL is the store address. ZooKeeper and etcd accept a comma
	// separated list of host:port pairs.
	ConnectionURL string `yaml:"connectionURL"`
	// BasePath is the namespace all service and config nodes live under. It
	// must be provisioned beforehand.
	BasePath string `yaml:"basePath"`
	// Backend selects the store implementation. Defaults to zookeeper.
	Backend Backend `yaml:"backend"`
	// SessionTimeout is the session (or lease) timeout negotiated with the store.
	SessionTimeout time.Duration `yaml:"sessionTimeout"`
	// LivenessPollDelay is the delay of the one-shot liveness poll. A
	// negative value disables the poll.
	LivenessPollDelay time.Duration `yaml:"livenessPollDelay"`
	// DialTimeout bounds the initial connection.
	DialTimeout time.Duration `yaml:"dialTimeout"`
}

// DefaultConfig returns a Config for a local ZooKeeper with defaults set.
func DefaultConfig() *Config {
	return &Config{
		ConnectionURL:     "127.0.0.1:2181",
		BasePath:          "/services",
		Backend:           BackendZookeeper,
		SessionTimeout:    DefaultSessionTimeout,
		LivenessPollDelay: DefaultLivenessPollDelay,
		DialTimeout:       DefaultDialTimeout,
	}
}

// Sanitize fills unset fields with their defaults.
func (c *Config) Sanitize() {
	c.ConnectionURL = strings.TrimSpace(c.ConnectionURL)
	if c.Backend == "" {
		c.Backend = BackendZookeeper
	}
	if c.SessionTimeout <= 0 {
		c.SessionTimeout = DefaultSessionTimeout
	}
	if c.LivenessPollDelay == 0 {
		c.LivenessPollDelay = DefaultLivenessPollDelay
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = DefaultDialTimeout
	}
}

// Servers splits ConnectionURL into its addresses.
func (c *Config) Servers() []string {
	parts := strings.Split(c.ConnectionURL, ",")
	servers := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			servers = append(servers, part)
		}
	}
	return servers
}

var _ validation.Validator = (*Config)(nil)

// Validate implements validation.Validator.
func (c *Config) Validate() error {
	return validation.New(validation.FailFast()).
		AddValidator(validation.NewEmptyStringValidator("connectionURL", c.ConnectionURL)).
		AddValidator(validation.NewAbsolutePathValidator("basePath", c.BasePath)).
		AddAssertion(
			c.Backend == BackendZookeeper || c.Backend == BackendEtcd || c.Backend == BackendConsul,
			"backend", "must be one of zookeeper, etcd or consul").
		AddAssertion(c.SessionTimeout > 0, "sessionTimeout", "must be greater than 0").
		AddAssertion(c.DialTimeout > 0, "dialTimeout", "must be greater than 0").
		Validate()
}
