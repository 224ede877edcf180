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
	"sync"
)

// Selector picks the index of one instance out of n, with n > 0.
type Selector interface {
	Select(n int) int
}

// SelectorFunc adapts a function to Selector
type SelectorFunc func(n int) int

// Select implements Selector
func (f SelectorFunc) Select(n int) int { return f(n) }

type uniformSelector struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewUniformSelector draws uniformly over [0, n). A nil r uses the global
// random source.
func NewUniformSelector(r *rand.Rand) Selector {
	return &uniformSelector{r: r}
}

func (s *uniformSelector) Select(n int) int {
	if s.r == nil {
		return rand.IntN(n)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.IntN(n)
}

type legacySelector struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewLegacySelector reproduces the floor(random*100) mod n draw of earlier
// deployments. It favors low indices whenever n does not divide 100.
func NewLegacySelector(r *rand.Rand) Selector {
	return &legacySelector{r: r}
}

func (s *legacySelector) Select(n int) int {
	var f float64
	if s.r == nil {
		f = rand.Float64()
	} else {
		s.mu.Lock()
		f = s.r.Float64()
		s.mu.Unlock()
	}
	return int(f*100) % n
}
