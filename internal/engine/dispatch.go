package engine

import "sync"

// dispatcher runs posted callbacks in order on a background goroutine that
// exits when the queue is empty.
type dispatcher struct {
	mu      sync.Mutex
	queue   []func()
	running bool
	idle    sync.Cond
}

func (d *dispatcher) post(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.queue = append(d.queue, fn)
	if !d.running {
		d.running = true
		go d.drain()
	}
}

func (d *dispatcher) drain() {
	d.mu.Lock()
	for len(d.queue) > 0 {
		fn := d.queue[0]
		d.queue[0] = nil
		d.queue = d.queue[1:]
		d.mu.Unlock()
		fn()
		d.mu.Lock()
	}
	d.queue = nil
	d.running = false
	d.idle.Broadcast()
	d.mu.Unlock()
}

// wait blocks until every posted callback has run.
func (d *dispatcher) wait() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for d.running {
		d.idle.Wait()
	}
}

// Flush blocks until every pending event has been delivered. It must not
// be called from an event listener.
func (e *Engine) Flush() { e.events.wait() }
