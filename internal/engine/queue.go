// Copyright (C) 2010 The Kaphan Foundation.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package engine

import (
	"sync"
	"sync/atomic"
)

type queueNode struct {
	job  *ClassificationJob
	next *queueNode
}

// JobQueue is a FIFO queue of classification jobs. The data lock and the
// wait lock are held strictly separately; the length counter lets waiters
// test for emptiness without touching the data lock.
type JobQueue struct {
	lock        sync.Mutex
	front, rear *queueNode
	length      atomic.Int32

	waitLock sync.Mutex
	waitCond *sync.Cond
	closed   bool
}

func NewJobQueue() *JobQueue {
	q := &JobQueue{}
	q.waitCond = sync.NewCond(&q.waitLock)
	return q
}

// Enqueue appends a job and wakes one waiter.
func (q *JobQueue) Enqueue(job *ClassificationJob) {
	node := &queueNode{job: job}

	q.lock.Lock()
	if q.front == nil {
		q.front = node
		q.rear = node
	} else {
		q.rear.next = node
		q.rear = node
	}
	q.length.Add(1)
	q.lock.Unlock()

	q.waitLock.Lock()
	q.waitCond.Signal()
	q.waitLock.Unlock()
}

// Dequeue pops the head of the queue, returning nil immediately when the
// queue is empty.
func (q *JobQueue) Dequeue() *ClassificationJob {
	q.lock.Lock()
	dequeued := q.front
	if dequeued != nil {
		q.front = dequeued.next
		if q.front == nil {
			q.rear = nil
		}
		q.length.Add(-1)
	}
	q.lock.Unlock()

	if dequeued == nil {
		return nil
	}
	return dequeued.job
}

// DequeueOrWait blocks until a job can be popped. It returns nil once the
// queue has been closed and drained.
func (q *JobQueue) DequeueOrWait() *ClassificationJob {
	// First check if there is a job in the queue. If there is none, wait
	// until one is added and try again; spurious wakeups just retry.
	for {
		if job := q.Dequeue(); job != nil {
			return job
		}

		q.waitLock.Lock()
		if q.closed {
			q.waitLock.Unlock()
			if job := q.Dequeue(); job != nil {
				return job
			}
			return nil
		}
		if q.length.Load() == 0 {
			q.waitCond.Wait()
		}
		q.waitLock.Unlock()
	}
}

// Close wakes all waiters; DequeueOrWait drains whatever is left and then
// returns nil.
func (q *JobQueue) Close() {
	q.waitLock.Lock()
	q.closed = true
	q.waitCond.Broadcast()
	q.waitLock.Unlock()
}

func (q *JobQueue) Empty() bool {
	return q.length.Load() == 0
}

func (q *JobQueue) Len() int {
	return int(q.length.Load())
}
