// Package processing runs fire-and-forget work on a bounded pool of
// goroutines. Producers never block: when the buffer is full the job is
// dropped and logged.
package processing

import (
	"context"
	"log"
	"sync"
)

// Job is one unit of background work. Name is only used for logging.
type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

// Processor consumes Jobs on a fixed number of workers.
type Processor struct {
	queue   chan Job
	workers int

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// New builds a Processor with queue capacity tied to worker count.
func New(workers int) *Processor {
	if workers <= 0 {
		workers = 1
	}
	return &Processor{
		queue:   make(chan Job, workers*4),
		workers: workers,
	}
}

// Start launches the workers. They exit when ctx is cancelled or once Close
// has drained the queue.
func (p *Processor) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}
}

// Submit queues job and reports whether it was accepted.
func (p *Processor) Submit(job Job) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		log.Printf("[processing] closed, dropping %s", job.Name)
		return false
	}
	select {
	case p.queue <- job:
		return true
	default:
		log.Printf("[processing] queue full, dropping %s", job.Name)
		return false
	}
}

// Close stops accepting jobs and waits for queued ones to finish.
func (p *Processor) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Processor) worker(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-p.queue:
			if !ok {
				return
			}
			if err := job.Run(ctx); err != nil {
				log.Printf("[processing] %s failed: %v", job.Name, err)
			}
		}
	}
}
