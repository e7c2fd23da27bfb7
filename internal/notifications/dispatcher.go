package notifications

import (
	"log"
	"sync"
)

// Dispatcher decouples alert emission from delivery so that raising an
// alert never blocks the caller, in particular never blocks the
// orchestrator's critical section. Alerts are queued and delivered by a
// background worker; when the queue is full the alert is dropped and
// logged, honoring the best-effort contract.
type Dispatcher struct {
	notifier Notifier
	queue    chan Alert
	stop     chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
}

// NewDispatcher creates a dispatcher with the given queue capacity and
// starts its delivery worker. A nil notifier turns delivery into a no-op.
func NewDispatcher(notifier Notifier, capacity int) *Dispatcher {
	if capacity <= 0 {
		capacity = 64
	}

	d := &Dispatcher{
		notifier: notifier,
		queue:    make(chan Alert, capacity),
		stop:     make(chan struct{}),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

// Dispatch enqueues an alert without blocking. Returns false if the queue
// was full and the alert was dropped.
func (d *Dispatcher) Dispatch(alert Alert) bool {
	select {
	case d.queue <- alert:
		return true
	default:
		log.Printf("alert queue full, dropping alert %s [%s] %s", alert.ID, alert.Rule, alert.Message)
		return false
	}
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case alert := <-d.queue:
			d.deliver(alert)
		case <-d.stop:
			// Drain whatever is still queued before exiting
			for {
				select {
				case alert := <-d.queue:
					d.deliver(alert)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) deliver(alert Alert) {
	if d.notifier == nil {
		return
	}
	if err := d.notifier.Send(alert); err != nil {
		log.Printf("failed to deliver alert %s: %v", alert.ID, err)
	}
}

// Close stops the worker after draining queued alerts. Safe to call more
// than once.
func (d *Dispatcher) Close() {
	d.once.Do(func() {
		close(d.stop)
	})
	d.wg.Wait()
}
