// Copyright © 2024 Wei Shen <shenwei356@gmail.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package tpool

import (
	"math"
	"sync"

	"github.com/pkg/errors"
)

// ErrQueueFull means that a non-blocking dispatch found no room in the
// input queue.
var ErrQueueFull = errors.New("tpool: queue full")

// ErrShutdown means that the queue no longer accepts jobs.
var ErrShutdown = errors.New("tpool: queue shut down")

// queue shutdown states
const (
	open          = 0
	shutdownClean = 1
	shutdownError = 2
)

// serialPark keeps NextResult from matching anything while a Reset is
// draining the queue.
const serialPark = math.MaxUint64

// Process is a bounded job queue attached to a Pool. At most qsize jobs
// wait in the input queue, and workers leave a queue alone when its
// pending results already fill the remaining capacity, so
// nJob+nProcessing+nResult stays bounded by qsize at rest.
type Process struct {
	p *Pool

	jobHead, jobTail       *job
	resultHead, resultTail *Result

	qsize      int
	nextSerial uint64 // serial of the next result handed out
	currSerial uint64 // serial assigned to the next dispatched job

	noMoreInput bool // dispatching disabled
	nJob        int
	nResult     int
	nProcessing int

	shutdown     int
	inOnly       bool // discard results
	wakeDispatch bool // unblocks one waiting dispatcher

	refCount int

	// the four queue conditions all share the pool mutex
	outputAvail    *sync.Cond // a new result arrived in serial order
	inputNotFull   *sync.Cond
	inputEmpty     *sync.Cond
	noneProcessing *sync.Cond

	next, prev *Process // circular list of the pool's queues
}

// job is one dispatched unit of work. jobCleanup runs exactly once if
// the job is drained before execution; resultCleanup is attached to the
// result (or, for input-only queues, run on the dropped result).
type job struct {
	fn            func() interface{}
	jobCleanup    func()
	resultCleanup func(interface{})
	next          *job

	p      *Pool
	q      *Process
	serial uint64
}

// Result is a finished job's return value, delivered in serial order.
type Result struct {
	data    interface{}
	cleanup func(interface{})
	serial  uint64
	next    *Result
}

// Data returns the value the job function returned.
func (r *Result) Data() interface{} {
	return r.data
}

// Serial returns the serial number assigned at dispatch.
func (r *Result) Serial() uint64 {
	return r.serial
}

// Delete releases a delivered result, invoking its cleanup when
// freeData is set.
func (r *Result) Delete(freeData bool) {
	if r == nil {
		return
	}
	if freeData && r.cleanup != nil {
		r.cleanup(r.data)
	}
}

// NewProcess creates a queue of capacity qsize served by pool p. With
// inOnly, results are discarded as jobs finish instead of being queued
// for retrieval.
func NewProcess(p *Pool, qsize int, inOnly bool) *Process {
	if qsize < 1 {
		qsize = 1
	}
	q := &Process{
		p:        p,
		qsize:    qsize,
		inOnly:   inOnly,
		refCount: 1,
	}
	q.outputAvail = sync.NewCond(&p.mu)
	q.inputNotFull = sync.NewCond(&p.mu)
	q.inputEmpty = sync.NewCond(&p.mu)
	q.noneProcessing = sync.NewCond(&p.mu)
	q.attach()
	return q
}

// attach inserts the queue into the pool's circular list.
func (q *Process) attach() {
	p := q.p
	p.mu.Lock()
	if p.qHead != nil {
		q.next = p.qHead
		q.prev = p.qHead.prev
		p.qHead.prev.next = q
		p.qHead.prev = q
	} else {
		q.next = q
		q.prev = q
	}
	p.qHead = q
	p.mu.Unlock()
}

// detachLocked removes the queue from the pool's list.
// Called with p.mu held.
func (q *Process) detachLocked() {
	p := q.p
	if p.qHead == nil || q.next == nil || q.prev == nil {
		return
	}
	if q.next == q {
		p.qHead = nil
	} else {
		q.prev.next = q.next
		q.next.prev = q.prev
		if p.qHead == q {
			p.qHead = q.next
		}
	}
	q.next, q.prev = nil, nil
}

// Dispatch queues fn for execution. The job's serial number is assigned
// on enqueue, defining the order NextResult hands results back in.
//
// When the input queue is full, a non-blocking dispatch returns
// ErrQueueFull and a blocking one waits for room; both return
// ErrShutdown once the queue stops accepting input.
func (q *Process) Dispatch(fn func() interface{}, jobCleanup func(), resultCleanup func(interface{}), nonblock bool) error {
	p := q.p
	p.mu.Lock()
	defer p.mu.Unlock()

	if q.noMoreInput || q.shutdown != 0 {
		return ErrShutdown
	}
	if q.nJob >= q.qsize && nonblock {
		return ErrQueueFull
	}

	for q.nJob >= q.qsize && q.shutdown == 0 && !q.noMoreInput {
		if q.wakeDispatch {
			q.wakeDispatch = false
			break
		}
		q.inputNotFull.Wait()
	}
	if q.noMoreInput || q.shutdown != 0 {
		return ErrShutdown
	}

	j := &job{
		fn:            fn,
		jobCleanup:    jobCleanup,
		resultCleanup: resultCleanup,
		p:             p,
		q:             q,
		serial:        q.currSerial,
	}
	q.currSerial++

	p.njobs++
	q.nJob++
	if q.jobTail != nil {
		q.jobTail.next = j
		q.jobTail = j
	} else {
		q.jobHead, q.jobTail = j, j
	}
	p.wakeNextWorker(q)
	return nil
}

// WakeDispatch unblocks one dispatcher waiting on a full queue, letting
// it enqueue past the capacity check once.
func (q *Process) WakeDispatch() {
	p := q.p
	p.mu.Lock()
	q.wakeDispatch = true
	q.inputNotFull.Signal()
	p.mu.Unlock()
}

// NextResult returns the result whose serial is next in dispatch order,
// or nil when it has not finished yet or the queue is shut down.
func (q *Process) NextResult() *Result {
	p := q.p
	p.mu.Lock()
	defer p.mu.Unlock()
	return q.nextResultLocked()
}

func (q *Process) nextResultLocked() *Result {
	if q.shutdown != 0 {
		return nil
	}

	var last, r *Result
	for r = q.resultHead; r != nil; last, r = r, r.next {
		if r.serial == q.nextSerial {
			break
		}
	}
	if r == nil {
		return nil
	}

	if q.resultHead == r {
		q.resultHead = r.next
	} else {
		last.next = r.next
	}
	if q.resultTail == r {
		q.resultTail = last
	}
	if q.resultHead == nil {
		q.resultTail = nil
	}
	q.nextSerial++
	q.nResult--

	if q.nResult < q.qsize {
		if q.nJob < q.qsize {
			q.inputNotFull.Signal()
		}
		if q.shutdown == 0 {
			q.p.wakeNextWorker(q)
		}
	}
	return r
}

// NextResultWait blocks until the next result in serial order is
// available, returning nil once the queue is shut down. The queue's
// reference count is held across the wait so a concurrent destroy
// cannot pull the queue away from under the waiter.
func (q *Process) NextResultWait() *Result {
	p := q.p
	p.mu.Lock()
	var r *Result
	for {
		if r = q.nextResultLocked(); r != nil {
			break
		}
		if q.shutdown != 0 {
			p.mu.Unlock()
			return nil
		}
		q.refCount++
		q.outputAvail.Wait()
		q.refCount--
	}
	p.mu.Unlock()
	return r
}

// Empty reports whether no job is queued, running, or waiting as a
// result.
func (q *Process) Empty() bool {
	p := q.p
	p.mu.Lock()
	defer p.mu.Unlock()
	return q.nJob == 0 && q.nProcessing == 0 && q.nResult == 0
}

// IsShutdown reports whether the queue has been shut down.
func (q *Process) IsShutdown() bool {
	p := q.p
	p.mu.Lock()
	defer p.mu.Unlock()
	return q.shutdown != 0
}

// IsError reports whether the queue was shut down by a failing job.
func (q *Process) IsError() bool {
	p := q.p
	p.mu.Lock()
	defer p.mu.Unlock()
	return q.shutdown == shutdownError
}

// shutdownLocked moves the queue to the shutdown state and wakes every
// waiter so blocked dispatchers, flushers and readers can observe it.
// Called with p.mu held.
func (q *Process) shutdownLocked() {
	if q.shutdown == open {
		q.shutdown = shutdownClean
	}
	q.outputAvail.Broadcast()
	q.inputNotFull.Broadcast()
	q.inputEmpty.Broadcast()
	q.noneProcessing.Broadcast()
}

// Flush wakes all idle workers and waits until no job of this queue is
// queued or running. When in-flight work already exceeds the capacity,
// the capacity is raised for the drain so producers cannot deadlock
// against a full result list.
func (q *Process) Flush() {
	p := q.p
	p.mu.Lock()
	for i := 0; i < p.tsize; i++ {
		if p.tStack[i] {
			p.workers[i].pending.Signal()
		}
	}
	if q.qsize < q.nResult+q.nJob+q.nProcessing {
		q.qsize = q.nResult + q.nJob + q.nProcessing
	}
	if q.shutdown != 0 {
		for q.nProcessing != 0 {
			q.noneProcessing.Wait()
		}
	}
	for q.shutdown == 0 && (q.nJob != 0 || q.nProcessing != 0) {
		for q.nJob != 0 && q.shutdown == 0 {
			q.inputEmpty.Wait()
		}
		for q.nProcessing != 0 {
			q.noneProcessing.Wait()
		}
	}
	p.mu.Unlock()
}

// Reset discards all queued jobs and results, running their cleanups
// exactly once, waits for in-flight jobs to finish and rewinds the
// serial counters.
func (q *Process) Reset() {
	p := q.p
	p.mu.Lock()
	q.nextSerial = serialPark

	jhead := q.jobHead
	q.jobHead, q.jobTail = nil, nil
	p.njobs -= q.nJob
	q.nJob = 0

	rhead := q.resultHead
	q.resultHead, q.resultTail = nil, nil
	q.nResult = 0
	p.mu.Unlock()

	for j := jhead; j != nil; j = j.next {
		if j.jobCleanup != nil {
			j.jobCleanup()
		}
	}
	drainResults(rhead)

	q.Flush()

	p.mu.Lock()
	rhead = q.resultHead
	q.resultHead, q.resultTail = nil, nil
	q.nResult = 0
	q.nextSerial, q.currSerial = 0, 0
	q.inputNotFull.Signal()
	p.mu.Unlock()

	drainResults(rhead)
}

func drainResults(r *Result) {
	for ; r != nil; r = r.next {
		if r.cleanup != nil {
			r.cleanup(r.data)
		}
	}
}

// Destroy stops the queue: no more input is accepted, pending jobs are
// drained with their cleanups, in-flight jobs are waited for, and the
// queue is detached from the pool and shut down.
func (q *Process) Destroy() {
	p := q.p
	p.mu.Lock()
	q.noMoreInput = true
	p.mu.Unlock()

	q.Reset()

	p.mu.Lock()
	q.detachLocked()
	q.shutdownLocked()
	q.refCount--
	p.mu.Unlock()
}
