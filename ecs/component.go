package ecs

import "strings"

// TypeId identifies a registered component type. Ids are stable for the
// lifetime of the Registry that assigned them.
type TypeId int

// ComponentType describes the shape of a component kind: its name, its
// ordered field list, and the id bound by a Registry. A descriptor is inert
// until registered; registration assigns the id exactly once.
type ComponentType struct {
	name       string
	fields     []string
	fieldIndex map[string]int
	id         TypeId
	layout     string

	pool []*Component
}

// NewComponentType builds a descriptor for the given type name and ordered
// field list.
func NewComponentType(name string, fields ...string) *ComponentType {
	ct := &ComponentType{
		name:       name,
		fields:     append([]string(nil), fields...),
		fieldIndex: make(map[string]int, len(fields)),
		id:         -1,
	}
	for i, f := range fields {
		ct.fieldIndex[f] = i
	}
	ct.layout = strings.Join(ct.fields, ",")
	return ct
}

// Name returns the component type name.
func (ct *ComponentType) Name() string { return ct.name }

// ID returns the TypeId bound by the registry, or -1 if unregistered.
func (ct *ComponentType) ID() TypeId { return ct.id }

// Fields returns the ordered field names of this type.
func (ct *ComponentType) Fields() []string { return ct.fields }

// Layout returns the field-layout signature string. Two descriptors with the
// same name must share the same layout.
func (ct *ComponentType) Layout() string { return ct.layout }

// New allocates a fresh instance of this type with all fields unset.
func (ct *ComponentType) New() *Component {
	return &Component{typ: ct, values: make([]any, len(ct.fields))}
}

// acquire pops a pooled instance or allocates a new one. Pooled instances
// were cleared on release, so the result is always reset to defaults.
func (ct *ComponentType) acquire() *Component {
	if n := len(ct.pool); n > 0 {
		c := ct.pool[n-1]
		ct.pool = ct.pool[:n-1]
		return c
	}
	return ct.New()
}

// release clears the instance and returns it to this type's free-list. The
// pool owns the instance from this point on.
func (ct *ComponentType) release(c *Component) {
	for i := range c.values {
		c.values[i] = nil
	}
	c.disposed = false
	ct.pool = append(ct.pool, c)
}

// Component is a field-value record tagged with the type that shaped it.
// Instances come from their type's free-list and go back to it when the
// owning entity removes or disposes them.
type Component struct {
	typ      *ComponentType
	values   []any
	disposed bool
}

// Type returns the descriptor this instance was created from.
func (c *Component) Type() *ComponentType { return c.typ }

// TypeID returns the TypeId of this instance's type.
func (c *Component) TypeID() TypeId { return c.typ.id }

// Get returns the value of the named field. Unknown fields panic; field names
// are fixed at type registration and a miss is a programmer error.
func (c *Component) Get(field string) any {
	i, ok := c.typ.fieldIndex[field]
	if !ok {
		panic("ecs: component type " + c.typ.name + " has no field " + field)
	}
	return c.values[i]
}

// Set assigns the named field and returns the component for chaining.
func (c *Component) Set(field string, value any) *Component {
	i, ok := c.typ.fieldIndex[field]
	if !ok {
		panic("ecs: component type " + c.typ.name + " has no field " + field)
	}
	c.values[i] = value
	return c
}

// Float reads the named field as a float64, treating an unset field as zero.
// Convenience for numeric components; int and float values both convert.
func (c *Component) Float(field string) float64 {
	switch v := c.Get(field).(type) {
	case nil:
		return 0
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		panic("ecs: field " + field + " of " + c.typ.name + " is not numeric")
	}
}
