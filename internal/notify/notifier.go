// Package notify fans pipeline events out to registered observers. Delivery
// is best-effort and at-least-once; a panicking subscriber never breaks the
// scan pipeline.
package notify

import (
	"sync"

	"github.com/wms-platform/scan-gateway/internal/domain"
	"github.com/wms-platform/scan-gateway/pkg/logging"
)

// Handler receives a pipeline event. Handlers run on their own goroutine and
// must not assume delivery order across events.
type Handler func(event domain.Event)

// Notifier is a registration-based event dispatcher
type Notifier struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]Handler
	logger *logging.Logger
}

// New creates a Notifier
func New(logger *logging.Logger) *Notifier {
	return &Notifier{
		subs:   make(map[int]Handler),
		logger: logger.WithComponent("notifier"),
	}
}

// Subscribe registers a handler and returns an unsubscribe function
func (n *Notifier) Subscribe(handler Handler) func() {
	n.mu.Lock()
	id := n.nextID
	n.nextID++
	n.subs[id] = handler
	n.mu.Unlock()

	return func() {
		n.mu.Lock()
		delete(n.subs, id)
		n.mu.Unlock()
	}
}

// Emit delivers the event to every current subscriber, each on its own
// goroutine with panic recovery.
func (n *Notifier) Emit(event domain.Event) {
	n.mu.RLock()
	handlers := make([]Handler, 0, len(n.subs))
	for _, h := range n.subs {
		handlers = append(handlers, h)
	}
	n.mu.RUnlock()

	for _, handler := range handlers {
		go func(h Handler) {
			defer func() {
				if recovered := recover(); recovered != nil {
					n.logger.Panic(recovered)
				}
			}()
			h(event)
		}(handler)
	}
}
