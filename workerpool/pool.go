package workerpool

import "sync"

// Job is a unit of work that may fail.
type Job func() error

// Pool runs Jobs on a fixed number of worker goroutines. Jobs may be added
// in batches at any point before Stop. The zero value is not usable; use New.
type Pool struct {
	m    sync.Mutex
	cond *sync.Cond

	queue   []Job
	pending int
	stopped bool
	err     error
}

// New starts a pool with n workers.
func New(n int) *Pool {
	if n < 1 {
		n = 1
	}
	p := &Pool{}
	p.cond = sync.NewCond(&p.m)
	for i := 0; i < n; i++ {
		go p.work()
	}
	return p
}

// Add enqueues jobs to be run by the pool's workers.
func (p *Pool) Add(jobs []Job) {
	p.m.Lock()
	defer p.m.Unlock()
	p.queue = append(p.queue, jobs...)
	p.pending += len(jobs)
	p.cond.Broadcast()
}

// Wait blocks until all added jobs have completed, or until the pool is
// stopped. It returns the first error encountered by any job.
func (p *Pool) Wait() error {
	p.m.Lock()
	defer p.m.Unlock()
	for p.pending > 0 && !p.stopped {
		p.cond.Wait()
	}
	return p.err
}

// Stop shuts the workers down. Jobs that have not started yet are abandoned;
// jobs already running are allowed to finish.
func (p *Pool) Stop() {
	p.m.Lock()
	defer p.m.Unlock()
	p.stopped = true
	p.cond.Broadcast()
}

func (p *Pool) work() {
	for {
		p.m.Lock()
		for len(p.queue) == 0 && !p.stopped {
			p.cond.Wait()
		}
		if p.stopped {
			p.m.Unlock()
			return
		}
		job := p.queue[0]
		p.queue = p.queue[1:]
		p.m.Unlock()

		err := job()

		p.m.Lock()
		if err != nil && p.err == nil {
			p.err = err
		}
		p.pending--
		if p.pending == 0 {
			p.cond.Broadcast()
		}
		p.m.Unlock()
	}
}
