package jobs

import (
	"context"
	"sync"

	"github.com/talenthos/talenthos/errors"
)

// Handler executes jobs for exactly one queue. Domain packages implement
// this interface so the queue infrastructure stays decoupled from domain
// logic.
//
// Delivery is at-least-once: Execute must start with an idempotency guard
// that detects an already-produced artifact (evaluation row, delivery log
// entry) and short-circuits to success, so a redelivered job never repeats
// its side effect. Errors wrapped with Permanent skip remaining retries.
type Handler interface {
	// Queue returns the queue name this handler is bound to
	Queue() string

	// Execute runs one delivery attempt. The context carries the
	// per-queue handler timeout; a deadline hit is a retryable failure.
	Execute(ctx context.Context, job *Job) error
}

// Registry maps queue names to their handlers.
// Thread-safe for concurrent registration and lookup.
type Registry struct {
	handlers map[string]Handler
	mu       sync.RWMutex
}

// NewRegistry creates an empty handler registry
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
	}
}

// Register adds a handler for its queue.
// Returns an error if the queue already has a handler.
func (r *Registry) Register(handler Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	queue := handler.Queue()
	if queue == "" {
		return errors.New("handler queue name cannot be empty")
	}
	if _, exists := r.handlers[queue]; exists {
		return errors.Newf("handler already registered for queue: %s", queue)
	}
	r.handlers[queue] = handler
	return nil
}

// Get retrieves the handler for a queue, or nil if none is registered
func (r *Registry) Get(queue string) Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.handlers[queue]
}

// Queues returns all registered queue names
func (r *Registry) Queues() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	queues := make([]string, 0, len(r.handlers))
	for queue := range r.handlers {
		queues = append(queues, queue)
	}
	return queues
}
