package uploader

import "sync"

// WorkerPool is a bounded pool of worker goroutines with drain semantics.
// Submit admits tasks FIFO and runs at most the pool's capacity
// concurrently; Wait blocks until every submitted task has finished.
// Task panics are not recovered; tasks are expected to handle their own
// failures internally.
type WorkerPool struct {
	tasks   chan func()
	workers sync.WaitGroup
	pending sync.WaitGroup
}

// NewWorkerPool starts n workers. n must be >= 1.
func NewWorkerPool(n int) *WorkerPool {
	if n < 1 {
		n = 1
	}
	p := &WorkerPool{
		tasks: make(chan func(), n),
	}
	p.workers.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer p.workers.Done()
			for task := range p.tasks {
				task()
				p.pending.Done()
			}
		}()
	}
	return p
}

// Submit enqueues a task for execution as soon as a worker is free.
// It must not be called concurrently with Close.
func (p *WorkerPool) Submit(task func()) {
	p.pending.Add(1)
	p.tasks <- task
}

// Wait blocks until all tasks submitted so far have completed.
func (p *WorkerPool) Wait() {
	p.pending.Wait()
}

// Close drains outstanding tasks and stops the workers.
func (p *WorkerPool) Close() {
	p.pending.Wait()
	close(p.tasks)
	p.workers.Wait()
}
