package memory

import "sync"

// dispatcher delivers listener notifications in the order the state changes
// happened, without holding the state lock while listeners run. Listeners may
// read from the backend but must not write to it.
type dispatcher struct {
	mu      sync.Mutex
	cond    *sync.Cond
	next    uint64
	serving uint64
}

// run must be called with the state lock held; unlock releases it.
func (d *dispatcher) run(unlock func(), calls []func()) {
	d.mu.Lock()
	if d.cond == nil {
		d.cond = sync.NewCond(&d.mu)
	}
	ticket := d.next
	d.next++
	d.mu.Unlock()

	unlock()

	d.mu.Lock()
	for d.serving != ticket {
		d.cond.Wait()
	}
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		d.serving++
		d.cond.Broadcast()
		d.mu.Unlock()
	}()
	for _, call := range calls {
		call()
	}
}
