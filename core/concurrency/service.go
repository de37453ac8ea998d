// File: core/concurrency/service.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Per-context service registry. Each service type exists at most once per
// IOContext and lives until the context is shut down.

package concurrency

import (
	"reflect"
	"sync"
)

// Shutdowner is implemented by services that hold OS resources.
type Shutdowner interface {
	Shutdown()
}

type servicesRegistry struct {
	mu    sync.Mutex
	byKey map[reflect.Type]any
	order []any
}

func (r *servicesRegistry) init() {
	r.byKey = make(map[reflect.Type]any)
}

func (r *servicesRegistry) shutdownAll() {
	r.mu.Lock()
	order := r.order
	r.mu.Unlock()
	for i := len(order) - 1; i >= 0; i-- {
		if s, ok := order[i].(Shutdowner); ok {
			s.Shutdown()
		}
	}
}

// UseService returns the service of type S registered on c, creating it with
// factory on first use.
func UseService[S any](c *IOContext, factory func(*IOContext) S) S {
	key := reflect.TypeOf((*S)(nil)).Elem()
	r := &c.services
	r.mu.Lock()
	if s, ok := r.byKey[key]; ok {
		r.mu.Unlock()
		return s.(S)
	}
	r.mu.Unlock()

	// factory may itself use other services, so it runs unlocked
	created := factory(c)

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.byKey[key]; ok {
		if sd, ok := any(created).(Shutdowner); ok {
			sd.Shutdown()
		}
		return s.(S)
	}
	r.byKey[key] = created
	r.order = append(r.order, created)
	return created
}

// AddService registers svc as the service of type S on c.
func AddService[S any](c *IOContext, svc S) error {
	key := reflect.TypeOf((*S)(nil)).Elem()
	r := &c.services
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byKey[key]; ok {
		return ErrServiceExists
	}
	r.byKey[key] = svc
	r.order = append(r.order, svc)
	return nil
}

// HasService reports whether a service of type S is registered on c.
func HasService[S any](c *IOContext) bool {
	r := &c.services
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.byKey[reflect.TypeOf((*S)(nil)).Elem()]
	return ok
}
