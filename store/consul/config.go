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
	"strings"
	"time"

	"github.com/tochemey/msd/internal/validation"
)

const (
	// minSessionTTL is the smallest session TTL Consul accepts.
	minSessionTTL = 10 * time.Second
	// DefaultPrefix is the KV folder holding the tree when Prefix is empty.
	DefaultPrefix = "msd"
	// DefaultWaitTime bounds a single blocking query.
	DefaultWaitTime = 5 * time.Minute
)

// Config defines the Consul connection settings
type Config struct {
	// Address is the address of the Consul agent to connect to.
	Address string
	// Datacenter specifies the Consul datacenter to use.
	// If empty, the agent's default datacenter is used.
	Datacenter string
	// Token is the Consul ACL token used for authenticated requests.
	Token string
	// Prefix is the KV folder the tree lives in. Sequence counters are
	// kept in a sibling folder named Prefix + ".seq".
	Prefix string
	// SessionTTL is the TTL of the Consul session backing ephemeral nodes.
	// It is raised to ten seconds when lower.
	SessionTTL time.Duration
	// Timeout bounds the connection check
	Timeout time.Duration
	// WaitTime bounds a single blocking query used by watches
	WaitTime time.Duration
}

var _ validation.Validator = (*Config)(nil)

// Sanitize sets the defaults
func (c *Config) Sanitize() {
	c.Prefix = strings.Trim(c.Prefix, "/")
	if c.Prefix == "" {
		c.Prefix = DefaultPrefix
	}
	if c.SessionTTL < minSessionTTL {
		c.SessionTTL = minSessionTTL
	}
	if c.Timeout == 0 {
		c.Timeout = 10 * time.Second
	}
	if c.WaitTime == 0 {
		c.WaitTime = DefaultWaitTime
	}
}

// Validate implements validation.Validator.
func (c *Config) Validate() error {
	return validation.New(validation.FailFast()).
		AddValidator(validation.NewEmptyStringValidator("address", c.Address)).
		AddAssertion(c.Timeout > 0, "timeout", "must be greater than 0").
		Validate()
}
