package partition

import (
	"context"
	"errors"
	"sync"

	"github.com/lawnchairsociety/castcore/internal/entity"
)

// ErrUnknownPartition is returned when no partition serves the requested map.
var ErrUnknownPartition = errors.New("no such partition")

// Router forwards requests to the partition that owns the requesting unit.
// Partitions are registered before Run; afterwards the router is read only.
type Router struct {
	dir   *entity.Directory
	parts map[entity.MapKey]*Partition
	order []entity.MapKey
}

// NewRouter creates a router over the shared directory.
func NewRouter(dir *entity.Directory) *Router {
	return &Router{dir: dir, parts: make(map[entity.MapKey]*Partition)}
}

// Add registers a partition.
func (r *Router) Add(p *Partition) {
	if _, ok := r.parts[p.Key()]; !ok {
		r.order = append(r.order, p.Key())
	}
	r.parts[p.Key()] = p
}

// Get returns the partition for a key.
func (r *Router) Get(key entity.MapKey) (*Partition, bool) {
	p, ok := r.parts[key]
	return p, ok
}

// Keys returns the registered partition keys in the order they were added.
func (r *Router) Keys() []entity.MapKey {
	return append([]entity.MapKey(nil), r.order...)
}

// Submit queues req on the partition that owns req.Unit.
func (r *Router) Submit(req Request) error {
	key, ok := r.dir.Locate(req.Unit)
	if !ok {
		return ErrUnknownUnit
	}
	return r.SubmitTo(key, req)
}

// SubmitTo queues req on a specific partition, as spawns must.
func (r *Router) SubmitTo(key entity.MapKey, req Request) error {
	p, ok := r.parts[key]
	if !ok {
		return ErrUnknownPartition
	}
	return p.Submit(req)
}

// Run runs every partition on its own goroutine until ctx is cancelled.
func (r *Router) Run(ctx context.Context) error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, key := range r.order {
		p := r.parts[key]
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := p.Run(ctx); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return errors.Join(errs...)
}
