package ecs

import (
	"fmt"

	"github.com/kamstrup/intmap"
	"go.uber.org/zap"
)

// Registry assigns stable type identities, resolves mixed component
// references, and owns the per-type instance free-lists. Each Registry is an
// independent type universe; construct one per Engine (or per test) rather
// than sharing ambient global state.
type Registry struct {
	byName map[string]*ComponentType
	byID   *intmap.Map[TypeId, *ComponentType]
	nextID TypeId
	log    *zap.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]*ComponentType),
		byID:   intmap.New[TypeId, *ComponentType](64),
		log:    zap.NewNop(),
	}
}

// SetLogger replaces the registry's logger. The default is a no-op logger.
func (r *Registry) SetLogger(log *zap.Logger) {
	if log != nil {
		r.log = log
	}
}

// Register binds the descriptor to the next free TypeId. Re-registering a
// name with an identical layout is idempotent and returns the descriptor
// bound first; a different layout fails with ErrDuplicateComponentID.
func (r *Registry) Register(ct *ComponentType) (*ComponentType, error) {
	return r.RegisterAs(ct, r.nextID)
}

// RegisterAs binds the descriptor to a specific TypeId.
func (r *Registry) RegisterAs(ct *ComponentType, id TypeId) (*ComponentType, error) {
	if existing, ok := r.byName[ct.name]; ok {
		if existing.layout != ct.layout {
			return nil, fmt.Errorf("%w: %q already registered with layout %q (got %q)",
				ErrDuplicateComponentID, ct.name, existing.layout, ct.layout)
		}
		return existing, nil
	}
	if existing, ok := r.byID.Get(id); ok {
		return nil, fmt.Errorf("%w: id %d already bound to %q",
			ErrDuplicateComponentID, id, existing.name)
	}

	ct.id = id
	r.byName[ct.name] = ct
	r.byID.Put(id, ct)
	if id >= r.nextID {
		r.nextID = id + 1
	}
	r.log.Debug("component type registered",
		zap.String("name", ct.name), zap.Int("id", int(id)))
	return ct, nil
}

// Define creates and registers a descriptor in one call.
func (r *Registry) Define(name string, fields ...string) (*ComponentType, error) {
	return r.Register(NewComponentType(name, fields...))
}

// Resolve returns the descriptor bound to the given type name.
func (r *Registry) Resolve(name string) (*ComponentType, error) {
	ct, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownComponentType, name)
	}
	return ct, nil
}

// ResolveID returns the descriptor bound to the given TypeId.
func (r *Registry) ResolveID(id TypeId) (*ComponentType, error) {
	ct, ok := r.byID.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: id %d", ErrUnknownComponentType, id)
	}
	return ct, nil
}

// Acquire returns a pooled (or freshly allocated) instance of the given type,
// reset to defaults. The caller owns the instance exclusively until it is
// released back, either directly or through an owning entity.
func (r *Registry) Acquire(id TypeId) (*Component, error) {
	ct, err := r.ResolveID(id)
	if err != nil {
		return nil, err
	}
	return ct.acquire(), nil
}

// Release clears the instance and returns it to its type's free-list.
func (r *Registry) Release(c *Component) {
	if c == nil {
		return
	}
	c.typ.release(c)
}

// resolveComponent turns a mixed component reference (name, TypeId,
// descriptor, or instance) into a component instance. Names, ids, and
// descriptors produce a pooled instance of the resolved type; instances pass
// through untouched. All downstream code operates on TypeId only.
func (r *Registry) resolveComponent(ref any) (*Component, error) {
	switch v := ref.(type) {
	case *Component:
		return v, nil
	case *ComponentType:
		ct, err := r.Resolve(v.name)
		if err != nil {
			return nil, err
		}
		return ct.acquire(), nil
	case string:
		ct, err := r.Resolve(v)
		if err != nil {
			return nil, err
		}
		return ct.acquire(), nil
	case TypeId:
		return r.Acquire(v)
	default:
		return nil, fmt.Errorf("%w: unsupported component reference %T", ErrUnknownComponentType, ref)
	}
}

// resolveTypeID turns a mixed type reference into a TypeId.
func (r *Registry) resolveTypeID(ref any) (TypeId, error) {
	switch v := ref.(type) {
	case TypeId:
		if _, err := r.ResolveID(v); err != nil {
			return -1, err
		}
		return v, nil
	case *ComponentType:
		ct, err := r.Resolve(v.name)
		if err != nil {
			return -1, err
		}
		return ct.id, nil
	case *Component:
		return v.typ.id, nil
	case string:
		ct, err := r.Resolve(v)
		if err != nil {
			return -1, err
		}
		return ct.id, nil
	default:
		return -1, fmt.Errorf("%w: unsupported type reference %T", ErrUnknownComponentType, ref)
	}
}
