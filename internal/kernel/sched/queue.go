// Copyright 2024 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package sched

import (
	"time"

	"github.com/suyog44/dnx-go/internal/kerrors"
)

// linkedListQueue is the unbounded FIFO storage underlying BoundedQueue:
// a plain singly linked list with push-at-end/pop-at-front.
type node[T any] struct {
	value T
	next  *node[T]
}

type linkedListQueue[T any] struct {
	start, end *node[T]
	size       int
}

func (q *linkedListQueue[T]) push(value T) {
	n := &node[T]{value: value}
	if q.size == 0 {
		q.start = n
		q.end = n
	} else {
		q.end.next = n
		q.end = n
	}
	q.size++
}

func (q *linkedListQueue[T]) pop() T {
	n := q.start
	if q.size == 1 {
		q.start, q.end = nil, nil
	} else {
		q.start = q.start.next
	}
	q.size--
	return n.value
}

// BoundedQueue is a fixed-capacity blocking FIFO: Send blocks while full,
// Receive blocks while empty, both subject to a timeout per spec §5
// ("Any queue_send/receive with non-zero timeout" is a suspension point).
// This backs the syscall dispatcher's inbound queue (§4.2, depth set by
// dispatch.New), the LFS FIFO and devfs pipe byte queues (§4.4, §4.5), and
// the queues QUEUECREATE hands out.
type BoundedQueue[T any] struct {
	mu       *Mutex
	notEmpty *Semaphore
	notFull  *Semaphore
	q        linkedListQueue[T]
	capacity int
}

// NewBoundedQueue creates a queue that holds at most capacity items.
func NewBoundedQueue[T any](capacity int) *BoundedQueue[T] {
	return &BoundedQueue[T]{
		mu:       NewMutex(),
		notEmpty: NewSemaphore(0),
		notFull:  NewSemaphore(int64(capacity)),
		capacity: capacity,
	}
}

// Send blocks until there is room for value or the timeout expires.
func (q *BoundedQueue[T]) Send(value T, timeout time.Duration) kerrors.Kind {
	if k := q.notFull.Wait(timeout); k != kerrors.ESUCC {
		return k
	}
	q.mu.Lock(0)
	q.q.push(value)
	q.mu.Unlock()
	q.notEmpty.Signal()
	return kerrors.ESUCC
}

// Receive blocks until an item is available or the timeout expires.
func (q *BoundedQueue[T]) Receive(timeout time.Duration) (T, kerrors.Kind) {
	var zero T
	if k := q.notEmpty.Wait(timeout); k != kerrors.ESUCC {
		return zero, k
	}
	q.mu.Lock(0)
	v := q.q.pop()
	q.mu.Unlock()
	q.notFull.Signal()
	return v, kerrors.ESUCC
}

// Len returns the current number of queued items.
func (q *BoundedQueue[T]) Len() int {
	q.mu.Lock(0)
	defer q.mu.Unlock()
	return q.q.size
}

// Capacity returns the queue's fixed capacity.
func (q *BoundedQueue[T]) Capacity() int { return q.capacity }
