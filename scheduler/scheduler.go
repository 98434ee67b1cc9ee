// Copyright 2024 The FedX Authors.
// SPDX-License-Identifier: Apache-2.0

// Package scheduler implements a bounded worker pool with a FIFO task
// queue. The engine runs two independent schedulers, one for join-related
// work (source-selection probes, bound-join batches) and one for union
// fan-out, so that a query with many slow joins cannot starve the union
// workers of every other in-flight query.
package scheduler

import (
	"container/list"
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// Task is a unit of scheduled work. Implementations should check ctx and
// return promptly if it is done; the scheduler does not forcibly interrupt
// a running task.
type Task interface {
	Run(ctx context.Context) error
}

// TaskFunc adapts a plain function to Task.
type TaskFunc func(ctx context.Context) error

func (f TaskFunc) Run(ctx context.Context) error { return f(ctx) }

// Scheduler runs Tasks on a fixed-size pool of worker goroutines, pulling
// from a FIFO queue. It has no notion of query or priority; callers
// (typically the selection and exec packages) are responsible for routing
// work to the right Scheduler instance and for checking their own
// query-level abort flag inside each Task.
type Scheduler struct {
	name    string
	workers int

	mu     sync.Mutex
	cond   *sync.Cond
	queue  *list.List // of *queuedTask
	closed bool
	wg     sync.WaitGroup
}

type queuedTask struct {
	ctx  context.Context
	task Task
	done chan error
}

// New starts a Scheduler named name with the given number of worker
// goroutines. name appears in log lines so operators can tell the join pool
// and the union pool apart in a busy log.
func New(name string, workers int) *Scheduler {
	if workers < 1 {
		workers = 1
	}
	s := &Scheduler{
		name:    name,
		workers: workers,
		queue:   list.New(),
	}
	s.cond = sync.NewCond(&s.mu)
	for i := 0; i < workers; i++ {
		s.wg.Add(1)
		go s.runWorker(i)
	}
	return s
}

func (s *Scheduler) runWorker(idx int) {
	defer s.wg.Done()
	for {
		qt, ok := s.dequeue()
		if !ok {
			return
		}
		err := func() error {
			defer func() {
				if r := recover(); r != nil {
					logrus.WithFields(logrus.Fields{"scheduler": s.name, "worker": idx}).
						Errorf("task panicked: %v", r)
				}
			}()
			return qt.task.Run(qt.ctx)
		}()
		qt.done <- err
	}
}

func (s *Scheduler) dequeue() (*queuedTask, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		if front := s.queue.Front(); front != nil {
			s.queue.Remove(front)
			return front.Value.(*queuedTask), true
		}
		if s.closed {
			return nil, false
		}
		s.cond.Wait()
	}
}

// Schedule enqueues task and returns a channel that receives its result
// exactly once, when the task completes (or immediately, with
// context.Canceled, if the scheduler has been closed).
func (s *Scheduler) Schedule(ctx context.Context, task Task) <-chan error {
	done := make(chan error, 1)
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		done <- context.Canceled
		return done
	}
	s.queue.PushBack(&queuedTask{ctx: ctx, task: task, done: done})
	s.mu.Unlock()
	s.cond.Signal()
	return done
}

// Run schedules task and blocks until it completes or ctx is canceled.
func (s *Scheduler) Run(ctx context.Context, task Task) error {
	done := s.Schedule(ctx, task)
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// QueueLen reports the number of tasks currently waiting (not yet picked up
// by a worker). Exposed for monitoring.
func (s *Scheduler) QueueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Len()
}

// Close stops accepting new tasks and waits for in-flight and already
// queued tasks to finish. Tasks submitted after Close fail immediately with
// context.Canceled.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cond.Broadcast()
	s.wg.Wait()
}
