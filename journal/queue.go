// Package journal implements the bounded admission queue in front of
// the single-writer log (spec.md §3 "JQ", §4.H), including its FIFO
// fair wake-up protocol for blocked producers. Grounded on the
// teacher's cmn/cos.StopCh channel-based suspension idiom and on
// transport/base.go's single-writer stream discipline.
/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package journal

import (
	"sync"

	"github.com/sprocd/sprocd/cmn/nlog"
	"github.com/sprocd/sprocd/metrics"
)

// Entry is one pending admission request: an approximate encoded size
// used for the byte-budget cap plus the payload to hand to the
// configured LogWriter once admitted.
type Entry struct {
	Size    int64
	Payload []byte
}

type waiter struct {
	ready chan struct{}
}

// Queue is the journal admission queue (spec.md §3 "JQ"). Callers
// that find IsFull true must call WaitQueue before enqueuing
// (AdmitAsync is the fast path and does not itself block); WriteSync
// is the slow path and blocks internally.
type Queue struct {
	mu sync.Mutex

	maxSize, maxLen     int64
	queueSize, queueLen int64

	waiters []*waiter
	isAwake bool

	writer LogWriter
}

func NewQueue(writer LogWriter, maxSize, maxLen int64) *Queue {
	return &Queue{writer: writer, maxSize: maxSize, maxLen: maxLen}
}

// IsFull reports whether either cap is currently reached or exceeded.
func (q *Queue) IsFull() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.isFullLocked()
}

func (q *Queue) isFullLocked() bool {
	return q.queueSize >= q.maxSize || q.queueLen >= q.maxLen
}

// WaitQueue suspends the calling goroutine until it reaches the head
// of the FIFO waiters list and is resumed by a wake-up cascade, then
// passes the baton to its own successor before returning (spec.md
// §4.H: "when it finishes waiting, it wakes its successor"). Producers
// MUST call IsFull themselves and only call WaitQueue when it
// returned true.
func (q *Queue) WaitQueue() {
	q.mu.Lock()
	w := &waiter{ready: make(chan struct{})}
	q.waiters = append(q.waiters, w)
	n := len(q.waiters)
	q.mu.Unlock()
	metrics.JournalWaiters.Set(float64(n))

	<-w.ready
	q.continueWakeup()
}

// AdmitAsync is the fast path: enqueue entry without blocking,
// recording it against the size/len budgets. Callers are responsible
// for having already cleared IsFull/WaitQueue.
func (q *Queue) AdmitAsync(e Entry) {
	q.admit(e)
	go func() {
		if err := q.writer.Write(e.Payload); err != nil {
			nlog.Warningf("journal: write failed: %v", err)
		}
		q.complete(e)
	}()
}

// WriteSync is the slow path: if the queue currently has waiters, it
// forces a wake-up of the head and then enters the queue itself at
// the tail, preserving FIFO order and acting as a drain barrier
// (spec.md §4.H). It blocks until the entry has actually been
// written.
func (q *Queue) WriteSync(e Entry) {
	q.mu.Lock()
	hasWaiters := len(q.waiters) > 0
	q.mu.Unlock()

	if hasWaiters {
		q.wakeup(true)
		q.WaitQueue()
	}
	for q.IsFull() {
		q.WaitQueue()
	}

	q.admit(e)
	if err := q.writer.Write(e.Payload); err != nil {
		nlog.Warningf("journal: write failed: %v", err)
	}
	q.complete(e)
}

func (q *Queue) admit(e Entry) {
	q.mu.Lock()
	q.queueSize += e.Size
	q.queueLen++
	q.mu.Unlock()
	q.publishGauges()
}

// complete is called once entry e has actually been written, whether
// via AdmitAsync's background goroutine or WriteSync's inline call. It
// decrements the budgets and, if admission pressure has fallen,
// starts a wake-up cascade.
func (q *Queue) complete(e Entry) {
	q.mu.Lock()
	q.queueSize -= e.Size
	q.queueLen--
	notFull := !q.isFullLocked()
	hasWaiters := len(q.waiters) > 0
	q.mu.Unlock()

	q.publishGauges()

	if hasWaiters && notFull {
		q.wakeup(false)
	}
}

// wakeup implements the is_awake-guarded head wake-up (spec.md §4.H):
// at most one active chain runs at a time. It resumes only the head
// waiter; that waiter's own WaitQueue call hands the baton onward via
// continueWakeup once it has finished waiting.
func (q *Queue) wakeup(force bool) {
	q.mu.Lock()
	if q.isAwake || len(q.waiters) == 0 {
		q.mu.Unlock()
		return
	}
	if !force && q.isFullLocked() {
		q.mu.Unlock()
		return
	}
	q.isAwake = true
	w := q.waiters[0]
	q.waiters = q.waiters[1:]
	q.mu.Unlock()

	metrics.JournalWaiters.Set(float64(q.waiterCount()))
	close(w.ready)
}

// continueWakeup is invoked by a waiter immediately after it has been
// resumed, closing out this link of the chain and attempting to start
// the next one (non-forced: a successor only proceeds if the queue is
// no longer full).
func (q *Queue) continueWakeup() {
	q.mu.Lock()
	q.isAwake = false
	q.mu.Unlock()
	q.wakeup(false)
}

// SetMaxSize / SetMaxLen mutate the admission caps and, if waiters
// exist and the new caps are not exceeded, trigger a non-forced
// wake-up (spec.md §4.H).
func (q *Queue) SetMaxSize(n int64) {
	q.mu.Lock()
	q.maxSize = n
	notFull := !q.isFullLocked()
	hasWaiters := len(q.waiters) > 0
	q.mu.Unlock()
	if hasWaiters && notFull {
		q.wakeup(false)
	}
}

func (q *Queue) SetMaxLen(n int64) {
	q.mu.Lock()
	q.maxLen = n
	notFull := !q.isFullLocked()
	hasWaiters := len(q.waiters) > 0
	q.mu.Unlock()
	if hasWaiters && notFull {
		q.wakeup(false)
	}
}

func (q *Queue) publishGauges() {
	q.mu.Lock()
	size, ln := q.queueSize, q.queueLen
	q.mu.Unlock()
	metrics.JournalQueueSize.Set(float64(size))
	metrics.JournalQueueLen.Set(float64(ln))
}

func (q *Queue) waiterCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.waiters)
}
