package events

import (
	"context"
	"sync"

	"github.com/kfcrebrand/registration/internal/domain/registration"
)

// Collector keeps published events in memory. It backs tests and local
// development where no bridge webhook is configured.
type Collector struct {
	mu     sync.Mutex
	events []registration.Event
}

func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) Publish(_ context.Context, event registration.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.events = append(c.events, event)
	return nil
}

func (c *Collector) Events() []registration.Event {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]registration.Event(nil), c.events...)
}

var _ registration.EventSink = (*Collector)(nil)
