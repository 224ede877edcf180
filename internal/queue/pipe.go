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

package queue

import "sync"

// Pipe forwards items pushed from any goroutine to a channel in order.
// Push never blocks, whatever the pace of the reader.
type Pipe[T any] struct {
	queue *Queue[T]
	out   chan T
	done  chan struct{}
	once  sync.Once
	wg    sync.WaitGroup
}

// NewPipe creates a Pipe and starts its forwarding goroutine.
func NewPipe[T any]() *Pipe[T] {
	p := &Pipe[T]{
		queue: New[T](),
		out:   make(chan T),
		done:  make(chan struct{}),
	}
	p.wg.Add(1)
	go p.forward()
	return p
}

// Push queues item for delivery. It returns false once the pipe is closed.
func (p *Pipe[T]) Push(item T) bool {
	return p.queue.Push(item)
}

// Out returns the delivery channel. It is closed by Close.
func (p *Pipe[T]) Out() <-chan T {
	return p.out
}

// Close discards undelivered items and closes the delivery channel.
func (p *Pipe[T]) Close() {
	p.once.Do(func() {
		p.queue.Close()
		close(p.done)
		p.wg.Wait()
	})
}

func (p *Pipe[T]) forward() {
	defer p.wg.Done()
	defer close(p.out)
	for {
		item, ok := p.queue.Wait()
		if !ok {
			return
		}
		select {
		case p.out <- item:
		case <-p.done:
			return
		}
	}
}
