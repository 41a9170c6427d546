package event

import (
	"slices"
	"sync"
	"sync/atomic"

	"github.com/erp/production/internal/domain/shared"
)

// subscription binds a handler to a set of event types. An empty set matches
// every event.
type subscription struct {
	handler shared.EventHandler
	types   map[string]struct{}
}

func (s subscription) matches(eventType string) bool {
	if len(s.types) == 0 {
		return true
	}
	_, ok := s.types[eventType]
	return ok
}

// HandlerRegistry keeps subscriptions in registration order. Lookups read an
// immutable snapshot and never block writers.
type HandlerRegistry struct {
	mu   sync.Mutex
	subs atomic.Pointer[[]subscription]
}

func NewHandlerRegistry() *HandlerRegistry {
	r := &HandlerRegistry{}
	r.subs.Store(&[]subscription{})
	return r
}

// Register subscribes handler to eventTypes, or to every event when none are given.
func (r *HandlerRegistry) Register(handler shared.EventHandler, eventTypes ...string) {
	sub := subscription{handler: handler, types: make(map[string]struct{}, len(eventTypes))}
	for _, t := range eventTypes {
		sub.types[t] = struct{}{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	next := append(slices.Clone(*r.subs.Load()), sub)
	r.subs.Store(&next)
}

// Unregister drops every subscription of handler.
func (r *HandlerRegistry) Unregister(handler shared.EventHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	next := slices.DeleteFunc(slices.Clone(*r.subs.Load()), func(s subscription) bool {
		return s.handler == handler
	})
	r.subs.Store(&next)
}

// GetHandlers returns the handlers matching eventType in registration order.
func (r *HandlerRegistry) GetHandlers(eventType string) []shared.EventHandler {
	var out []shared.EventHandler
	for _, s := range *r.subs.Load() {
		if s.matches(eventType) {
			out = append(out, s.handler)
		}
	}
	return out
}
