package notification

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/nerrad567/gray-logic-alarms/internal/bacnet"
)

// Registry caches notification classes in memory over a Repository.
//
// Unlike most caches the registry hands out the live *Class rather than a
// copy: the dispatch engine must see recipient list changes, and Class
// guards its own list.
//
// All public methods are thread-safe.
type Registry struct {
	repo    Repository
	cache   map[uint32]*Class
	cacheMu sync.RWMutex
	logger  Logger
}

// NewRegistry creates a new class registry backed by repo.
func NewRegistry(repo Repository) *Registry {
	return &Registry{
		repo:   repo,
		cache:  make(map[uint32]*Class),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// Refresh reloads every class from the repository. It should be called on
// startup before transitions are processed.
func (r *Registry) Refresh(ctx context.Context) error {
	classes, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading notification classes: %w", err)
	}

	cache := make(map[uint32]*Class, len(classes))
	for _, c := range classes {
		cache[c.Instance] = c
	}

	r.cacheMu.Lock()
	r.cache = cache
	r.cacheMu.Unlock()

	r.logger.Info("notification class cache refreshed", "count", len(classes))
	return nil
}

// Get returns the cached class.
func (r *Registry) Get(instance uint32) (*Class, error) {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	c, ok := r.cache[instance]
	if !ok {
		return nil, ErrClassNotFound
	}
	return c, nil
}

// List returns all cached classes ordered by instance.
func (r *Registry) List() []*Class {
	r.cacheMu.RLock()
	out := make([]*Class, 0, len(r.cache))
	for _, c := range r.cache {
		out = append(out, c)
	}
	r.cacheMu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Instance < out[j].Instance })
	return out
}

// Put persists c and makes it the cached class for its instance.
func (r *Registry) Put(ctx context.Context, c *Class) error {
	if err := r.repo.Save(ctx, c); err != nil {
		return fmt.Errorf("saving notification class %d: %w", c.Instance, err)
	}

	r.cacheMu.Lock()
	r.cache[c.Instance] = c
	r.cacheMu.Unlock()

	r.logger.Debug("notification class saved", "class", c.Instance, "recipients", c.RecipientCount())
	return nil
}

// Delete removes a class from the repository and the cache.
func (r *Registry) Delete(ctx context.Context, instance uint32) error {
	if err := r.repo.Delete(ctx, instance); err != nil {
		return fmt.Errorf("deleting notification class %d: %w", instance, err)
	}

	r.cacheMu.Lock()
	delete(r.cache, instance)
	r.cacheMu.Unlock()
	return nil
}

// ApplyRecipientList writes a flat recipient list to a class and persists
// the result. It returns false without error when the list is malformed,
// in which case nothing changes.
func (r *Registry) ApplyRecipientList(ctx context.Context, instance uint32, values []bacnet.Value) (bool, error) {
	c, err := r.Get(instance)
	if err != nil {
		return false, err
	}

	previous := c.Recipients()
	if !c.SetRecipientList(values) {
		return false, nil
	}

	if err := r.repo.Save(ctx, c); err != nil {
		c.ReplaceRecipients(previous)
		return false, fmt.Errorf("saving notification class %d: %w", instance, err)
	}
	return true, nil
}
