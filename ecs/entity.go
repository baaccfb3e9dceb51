package ecs

import (
	"sync/atomic"

	"github.com/kamstrup/intmap"
	"go.uber.org/zap"
)

// changeClock is the process-wide stamp source for Entity.Changed. Stamps are
// strictly increasing, so mutation order is observable across entities.
var changeClock atomic.Uint64

func nextStamp() uint64 { return changeClock.Add(1) }

// Entity is a mutable set of at-most-one-per-type component instances.
// Removed components stay resolvable through the allowDisposed accessors
// until the entity's next structural mutation, at which point they return to
// their type's free-list.
type Entity struct {
	byID    *intmap.Map[TypeId, *Component]
	ordered []*Component // insertion order, disposed-marked slots included until swept

	size     int
	changed  uint64
	disposed bool
	log      *zap.Logger
	watcher  func(*Entity)
}

// entityFreeList is the shared pool of disposed entities. The runtime is
// single-threaded by contract, so a plain slice suffices.
var entityFreeList []*Entity

// NewEntity allocates an entity holding the given components.
func NewEntity(components ...*Component) *Entity {
	e := &Entity{
		byID: intmap.New[TypeId, *Component](8),
		log:  zap.NewNop(),
	}
	e.initialize(components)
	return e
}

// Pooled returns a reused disposed entity, reinitialized and populated with
// the given components, or a freshly allocated one if the pool is empty.
func Pooled(components ...*Component) *Entity {
	if n := len(entityFreeList); n > 0 {
		e := entityFreeList[n-1]
		entityFreeList = entityFreeList[:n-1]
		e.initialize(components)
		return e
	}
	return NewEntity(components...)
}

func (e *Entity) initialize(components []*Component) {
	e.size = 0
	e.disposed = false
	e.changed = nextStamp()
	e.watcher = nil
	if e.log == nil {
		e.log = zap.NewNop()
	}
	for _, c := range components {
		if c != nil {
			e.Add(c)
		}
	}
}

// Changed returns the stamp of the entity's last structural mutation.
func (e *Entity) Changed() uint64 { return e.changed }

// Size returns the number of non-disposed components held.
func (e *Entity) Size() int { return e.size }

// Disposed reports whether the entity has been disposed and not yet
// reinitialized.
func (e *Entity) Disposed() bool { return e.disposed }

// SetLogger replaces the entity's logger, used for the non-fatal duplicate
// add warning. The engine installs its own logger on adopted entities.
func (e *Entity) SetLogger(log *zap.Logger) {
	if log != nil {
		e.log = log
	}
}

func (e *Entity) mustLive(op string) {
	if e.disposed {
		panic("ecs: " + op + " on disposed entity")
	}
}

// sweep releases components that were removed before this mutation. Removal
// hides a component from lookup immediately; the instance itself returns to
// its pool here, on the next structural mutation at the latest.
func (e *Entity) sweep() {
	kept := e.ordered[:0]
	for _, c := range e.ordered {
		if c.disposed {
			e.byID.Del(c.typ.id)
			c.typ.release(c)
			continue
		}
		kept = append(kept, c)
	}
	e.ordered = kept
}

// unlink drops c from the insertion-order list without releasing it.
func (e *Entity) unlink(c *Component) {
	for i, held := range e.ordered {
		if held == c {
			e.ordered = append(e.ordered[:i], e.ordered[i+1:]...)
			return
		}
	}
}

// Add inserts a component. If a non-disposed component of the same type is
// already present, the new instance is discarded back to its pool, a warning
// is logged, and the existing one is retained; the call is not an error.
func (e *Entity) Add(c *Component) *Entity {
	e.mustLive("Add")
	if c == nil {
		return e
	}
	e.sweep()

	id := c.typ.id
	if existing, ok := e.byID.Get(id); ok && !existing.disposed {
		if existing != c {
			e.log.Warn("component already present, keeping existing instance",
				zap.String("type", c.typ.name))
			c.typ.release(c)
		}
		return e
	}

	e.byID.Put(id, c)
	e.ordered = append(e.ordered, c)
	e.size++
	e.changed = nextStamp()
	e.notify()
	return e
}

// Remove marks the held component of the given type as disposed. It stops
// resolving through Has/Get immediately, but remains reachable with
// allowDisposed until the next structural mutation returns it to its pool.
// Reports whether a component was actually removed.
func (e *Entity) Remove(ct *ComponentType) bool {
	e.mustLive("Remove")
	e.sweep()

	c, ok := e.byID.Get(ct.id)
	if !ok || c.disposed {
		return false
	}
	c.disposed = true
	e.size--
	e.changed = nextStamp()
	e.notify()
	return true
}

// Replace removes any existing component of the same type and inserts the
// new one, bumping the change stamp exactly once.
func (e *Entity) Replace(c *Component) *Entity {
	e.mustLive("Replace")
	if c == nil {
		return e
	}
	e.sweep()

	id := c.typ.id
	if existing, ok := e.byID.Get(id); ok {
		if existing == c {
			return e
		}
		if !existing.disposed {
			e.size--
		}
		e.byID.Del(id)
		e.unlink(existing)
		existing.typ.release(existing)
	}

	e.byID.Put(id, c)
	e.ordered = append(e.ordered, c)
	e.size++
	e.changed = nextStamp()
	e.notify()
	return e
}

// Has reports whether a component of the given type is present. Disposed
// components count only when allowDisposed is passed as true.
func (e *Entity) Has(ct *ComponentType, allowDisposed ...bool) bool {
	return e.hasID(ct.id, len(allowDisposed) > 0 && allowDisposed[0])
}

func (e *Entity) hasID(id TypeId, allowDisposed bool) bool {
	c, ok := e.byID.Get(id)
	if !ok {
		return false
	}
	return allowDisposed || !c.disposed
}

// Get returns the held component of the given type, or nil. Disposed
// components resolve only when allowDisposed is passed as true.
func (e *Entity) Get(ct *ComponentType, allowDisposed ...bool) *Component {
	c, ok := e.byID.Get(ct.id)
	if !ok {
		return nil
	}
	if c.disposed && !(len(allowDisposed) > 0 && allowDisposed[0]) {
		return nil
	}
	return c
}

// GetAll appends the descriptors of all non-disposed components to buf, in
// insertion order, and returns the result. Passing a reused buffer avoids
// allocation.
func (e *Entity) GetAll(buf []*ComponentType) []*ComponentType {
	for _, c := range e.ordered {
		if !c.disposed {
			buf = append(buf, c.typ)
		}
	}
	return buf
}

// Dispose releases every held component to its pool, marks the entity
// disposed, and returns it to the shared entity free-list. Any further use
// before reinitialization panics.
func (e *Entity) Dispose() {
	e.mustLive("Dispose")

	e.disposed = true
	e.changed = nextStamp()
	e.notify()
	e.watcher = nil

	for _, c := range e.ordered {
		e.byID.Del(c.typ.id)
		c.typ.release(c)
	}
	e.ordered = e.ordered[:0]
	e.size = 0
	e.log = zap.NewNop()

	entityFreeList = append(entityFreeList, e)
}

// watch installs the engine's change hook. At most one watcher is active;
// the engine owning the entity is the only caller.
func (e *Entity) watch(fn func(*Entity)) {
	e.watcher = fn
}

func (e *Entity) notify() {
	if e.watcher != nil {
		e.watcher(e)
	}
}
