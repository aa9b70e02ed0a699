package server

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/moodlog/internal/gate"
	"github.com/desertthunder/moodlog/internal/shared"
	"github.com/facebookgo/clock"
)

const defaultRetention = 5 * time.Minute

type registered struct {
	act    *gate.Activation
	expire *clock.Timer // disposes an activation nobody finished
	reap   *clock.Timer
}

func (item *registered) stop() {
	if item.expire != nil {
		item.expire.Stop()
	}
	if item.reap != nil {
		item.reap.Stop()
	}
}

// Registry holds live and recently finished activations by id.
//
// An activation still unfinished retention after its auto-save deadline is disposed, so an
// abandoned check-in whose timer will never write does not stay registered.
type Registry struct {
	mu        sync.Mutex
	items     map[string]*registered
	clock     clock.Clock
	retention time.Duration
	logger    *log.Logger
}

// NewRegistry keeps finished activations queryable for retention before dropping them.
func NewRegistry(c clock.Clock, retention time.Duration, logger *log.Logger) *Registry {
	if c == nil {
		c = clock.New()
	}
	if retention <= 0 {
		retention = defaultRetention
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Registry{
		items:     make(map[string]*registered),
		clock:     c,
		retention: retention,
		logger:    logger,
	}
}

// Add tracks a, scheduling its removal once it finishes.
func (r *Registry) Add(a *gate.Activation) {
	idle := r.retention
	if at := a.AutoSaveAt(); !at.IsZero() {
		idle += max(at.Sub(r.clock.Now()), 0)
	}

	item := &registered{act: a}
	r.mu.Lock()
	r.items[a.ID()] = item
	item.expire = r.clock.AfterFunc(idle, func() { r.expire(a) })
	r.mu.Unlock()

	go func() {
		<-a.Done()
		r.mu.Lock()
		defer r.mu.Unlock()
		if cur, ok := r.items[a.ID()]; ok && cur == item && item.reap == nil {
			item.expire.Stop()
			item.reap = r.clock.AfterFunc(r.retention, func() { r.Remove(a.ID()) })
		}
	}()
}

// expire disposes a if it is still unfinished; the Done watcher then schedules removal.
func (r *Registry) expire(a *gate.Activation) {
	if a.State().Terminal() {
		return
	}
	r.logger.Warn("disposing idle check-in", "user", a.UserID(), "activation", a.ID(), "state", a.State())
	a.Dispose()
}

// Get returns the activation id owned by userID.
func (r *Registry) Get(userID, id string) (*gate.Activation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[id]
	if !ok || item.act.UserID() != userID {
		return nil, fmt.Errorf("%w: %s", shared.ErrActivationNotFound, id)
	}
	return item.act, nil
}

// Remove forgets id without disposing it.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if item, ok := r.items[id]; ok {
		item.stop()
		delete(r.items, id)
	}
}

// Len returns the number of tracked activations.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// DisposeAll tears down every tracked activation and empties the registry.
func (r *Registry) DisposeAll() {
	r.mu.Lock()
	items := r.items
	r.items = make(map[string]*registered)
	r.mu.Unlock()

	live := 0
	for _, item := range items {
		item.stop()
		if !item.act.State().Terminal() {
			live++
		}
		item.act.Dispose()
	}
	if live > 0 {
		r.logger.Info("disposed pending check-ins", "count", live)
	}
}
