// Copyright 2025 zhengshuai.xiao@outlook.com
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package parallel runs a handler function on a fixed number of goroutines
// fed through a bounded queue. The first handler error aborts the pool:
// later sends fail fast and Complete reports that error.
package parallel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/zhengshuai-xiao/xbackup/internal"
)

var logger = internal.GetLogger("parallel")

var (
	ErrAborted        = errors.New("parallel handler aborted")
	ErrChannelClosed  = errors.New("send failed - channel closed")
	ErrCompleted      = errors.New("parallel handler already completed")
	ErrInvalidThreads = errors.New("thread count must be at least 1")
)

// HandlerFunc processes one item. It is called concurrently from all
// workers and must be safe for that.
type HandlerFunc[I any] func(item I) error

// abortCell keeps the first failure reported by any worker.
type abortCell struct {
	mu      sync.Mutex
	err     error
	aborted chan struct{}
}

func (a *abortCell) set(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return
	}
	a.err = err
	close(a.aborted)
}

func (a *abortCell) get() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrAborted, a.err)
}

// shared is the state reachable from the Handler and every SendHandle.
type shared[I any] struct {
	name  string
	input chan I

	// a send holds mu.RLock, closing the queue takes mu.Lock, so nothing is
	// ever sent on a closed channel
	mu     sync.RWMutex
	closed bool

	abort abortCell
	// gone is closed once every worker has exited
	gone chan struct{}
}

// SendHandle is a cheap copyable handle used by producers to queue items.
// All copies share the pool's abort state.
type SendHandle[I any] struct {
	s *shared[I]
}

// Send queues item, blocking while the queue is full. It fails immediately
// when a worker has already failed, when the pool is closed and when ctx is
// done.
func (h SendHandle[I]) Send(ctx context.Context, item I) error {
	s := h.s
	if err := s.abort.get(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrChannelClosed
	}

	select {
	case s.input <- item:
		return nil
	case <-s.abort.aborted:
		return s.abort.get()
	case <-s.gone:
		if err := s.abort.get(); err != nil {
			return err
		}
		return ErrChannelClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Handler is a pool of worker goroutines running the same HandlerFunc.
type Handler[I any] struct {
	SendHandle[I]

	wg sync.WaitGroup

	panicMu sync.Mutex
	panics  []error

	completed atomic.Bool
	closeOnce sync.Once
}

// New starts threads workers named "<name> (<i>)". The queue holds at most
// threads items, so producers are throttled to the workers' pace.
func New[I any](name string, threads int, fn HandlerFunc[I]) (*Handler[I], error) {
	if threads < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidThreads, threads)
	}
	s := &shared[I]{
		name:  name,
		input: make(chan I, threads),
		abort: abortCell{aborted: make(chan struct{})},
		gone:  make(chan struct{}),
	}
	h := &Handler[I]{SendHandle: SendHandle[I]{s: s}}

	h.wg.Add(threads)
	for i := 0; i < threads; i++ {
		go h.worker(i, fn)
	}
	go func() {
		h.wg.Wait()
		close(s.gone)
	}()

	logger.Debugf("started %d workers for %s", threads, name)
	return h, nil
}

func (h *Handler[I]) worker(i int, fn HandlerFunc[I]) {
	defer h.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("thread %s (%d) panicked: %v", h.s.name, i, r)
			logger.Error(err)
			h.panicMu.Lock()
			h.panics = append(h.panics, err)
			h.panicMu.Unlock()
		}
	}()

	for item := range h.s.input {
		if err := fn(item); err != nil {
			logger.Debugf("thread %s (%d) failed: %v", h.s.name, i, err)
			h.s.abort.set(err)
		}
	}
	logger.Tracef("thread %s (%d) done", h.s.name, i)
}

// Channel returns a handle producers can copy freely.
func (h *Handler[I]) Channel() SendHandle[I] {
	return h.SendHandle
}

func (h *Handler[I]) closeInput() {
	h.closeOnce.Do(func() {
		h.s.mu.Lock()
		h.s.closed = true
		close(h.s.input)
		h.s.mu.Unlock()
	})
}

func (h *Handler[I]) join() {
	h.closeInput()
	<-h.s.gone
}

// Complete closes the queue, waits for the workers to drain it and exit, and
// returns the first handler error, or the panic messages of the workers that
// died. It may be called once, later calls return ErrCompleted.
func (h *Handler[I]) Complete() error {
	if !h.completed.CompareAndSwap(false, true) {
		return ErrCompleted
	}
	h.join()

	if err := h.s.abort.get(); err != nil {
		return err
	}

	h.panicMu.Lock()
	defer h.panicMu.Unlock()
	return errors.Join(h.panics...)
}

// Close shuts the pool down and waits for the workers, dropping any error.
// It is safe to call more than once and after Complete.
func (h *Handler[I]) Close() {
	h.join()
}
