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

// Package tpool implements a worker pool serving bounded job queues.
//
// A Pool owns a fixed set of workers; any number of Process queues may
// be attached to it. Dispatching into a full queue blocks (or reports
// ErrQueueFull in non-blocking mode), which bounds memory under fast
// producers. Results carry the serial number assigned at dispatch and
// are handed back strictly in serial order, regardless of completion
// order. A queue may also run input-only, discarding results.
//
// Workers pick jobs only from queues with room to deposit a future
// result, and idle workers park on their own condition variable in a
// LIFO stack, so an idle pool wakes the minimum number of threads.
package tpool

import (
	"sync"

	"github.com/pkg/errors"
)

// Pool is a fixed-size set of workers serving the attached queues.
type Pool struct {
	mu sync.Mutex

	nwaiting int // workers waiting for jobs
	njobs    int // jobs queued over all attached queues
	shutdown bool

	qHead *Process // circular list of attached queues

	tsize     int
	workers   []*worker
	tStack    []bool // idle flag per worker
	tStackTop int    // lowest idle worker index, -1 when none

	wg sync.WaitGroup
}

type worker struct {
	p       *Pool
	idx     int
	pending *sync.Cond // on p.mu, signalled when work may be available
}

// New creates a pool of n workers, each parked on its own condition
// variable until a queue has work for it.
func New(n int) *Pool {
	if n < 1 {
		n = 1
	}
	p := &Pool{
		tsize:     n,
		workers:   make([]*worker, n),
		tStack:    make([]bool, n),
		tStackTop: -1,
	}
	for i := 0; i < n; i++ {
		w := &worker{p: p, idx: i, pending: sync.NewCond(&p.mu)}
		p.workers[i] = w
		p.wg.Add(1)
		go p.run(w)
	}
	return p
}

// Destroy shuts the pool down and waits for every worker to exit.
// Queues should be flushed and destroyed first.
func (p *Pool) Destroy() {
	p.mu.Lock()
	p.shutdown = true
	for _, w := range p.workers {
		w.pending.Signal()
	}
	p.mu.Unlock()
	p.wg.Wait()
}

// run is the worker loop: find an attached queue that has jobs and room
// for their results, drain it while that stays true, otherwise park on
// the per-worker condition in the idle stack.
func (p *Pool) run(w *worker) {
	defer p.wg.Done()

	p.mu.Lock()
	for !p.shutdown {
		var q *Process
		work2do := false
		first := p.qHead
		for q = first; q != nil; {
			if q.jobHead != nil && q.qsize-q.nResult > p.tsize-p.nwaiting && q.shutdown == 0 {
				work2do = true
				break
			}
			q = q.next
			if q == first {
				break
			}
		}

		if !work2do {
			p.nwaiting++
			if p.tStackTop == -1 || p.tStackTop > w.idx {
				p.tStackTop = w.idx
			}
			p.tStack[w.idx] = true
			w.pending.Wait()
			p.tStack[w.idx] = false
			p.tStackTop = -1
			for i := 0; i < p.tsize; i++ {
				if p.tStack[i] {
					p.tStackTop = i
					break
				}
			}
			p.nwaiting--
			continue
		}

		q.refCount++
		for q.jobHead != nil && q.qsize-q.nResult > q.nProcessing {
			if p.shutdown || q.shutdown != 0 {
				break
			}
			j := q.jobHead
			q.jobHead = j.next
			if q.jobHead == nil {
				q.jobTail = nil
			}
			q.nProcessing++
			if q.nJob >= q.qsize {
				q.inputNotFull.Broadcast()
			}
			q.nJob--
			if q.nJob == 0 {
				q.inputEmpty.Broadcast()
			}
			p.njobs--

			p.mu.Unlock()
			data, err := runJob(j)
			if err != nil {
				p.errorShutdown(j)
				return
			}
			p.addResult(j, data)
			p.mu.Lock()
		}

		// a queue whose count hits zero was already destroyed and
		// detached; it may not be touched again
		q.refCount--
		if q.refCount > 0 && p.qHead != nil {
			p.qHead = p.qHead.next
		}
	}
	p.mu.Unlock()
}

// runJob executes the job, turning a panic or a returned error into a
// job failure.
func runJob(j *job) (data interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("tpool: job panicked: %v", r)
		}
	}()
	data = j.fn()
	if e, ok := data.(error); ok && e != nil {
		err = e
	}
	return data, err
}

// errorShutdown retires the failed job and marks every attached queue
// as shut down in error, waking all of their waiters. Called by a
// worker whose job failed; the worker exits afterwards.
func (p *Pool) errorShutdown(j *job) {
	p.mu.Lock()
	j.q.nProcessing--
	if j.q.nProcessing == 0 {
		j.q.noneProcessing.Broadcast()
	}
	first := p.qHead
	if first != nil {
		q := first
		for {
			q.shutdownLocked()
			q.shutdown = shutdownError
			q = q.next
			if q == first {
				break
			}
		}
	}
	p.mu.Unlock()
}

// wakeNextWorker signals the lowest-index idle worker, but only when
// the pool has more queued jobs, over all attached queues, than there
// are running workers and queue q still has room for their results; waking beyond that only
// burns CPU on queues that cannot be served.
// Called with p.mu held.
func (p *Pool) wakeNextWorker(q *Process) {
	p.qHead = q
	if p.tStackTop >= 0 &&
		p.njobs > p.tsize-p.nwaiting &&
		q.nProcessing < q.qsize-q.nResult {
		p.workers[p.tStackTop].pending.Signal()
	}
}

// addResult retires a finished job: account for it, and unless the
// queue is input-only, append the result and wake ordered readers when
// the next wanted serial arrived.
func (p *Pool) addResult(j *job, data interface{}) {
	q := j.q
	p.mu.Lock()
	q.nProcessing--
	if q.nProcessing == 0 {
		q.noneProcessing.Broadcast()
	}
	if q.inOnly {
		p.mu.Unlock()
		if j.resultCleanup != nil {
			j.resultCleanup(data)
		}
		return
	}

	r := &Result{data: data, cleanup: j.resultCleanup, serial: j.serial}
	q.nResult++
	if q.resultTail != nil {
		q.resultTail.next = r
		q.resultTail = r
	} else {
		q.resultHead, q.resultTail = r, r
	}
	if r.serial == q.nextSerial {
		q.outputAvail.Broadcast()
	}
	p.mu.Unlock()
}
