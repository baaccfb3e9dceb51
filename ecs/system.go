package ecs

// System is a unit of per-tick behavior. The engine invokes registered
// systems in registration order on every Update.
type System interface {
	Update(dt float64)
}

// Initializer is optionally implemented by systems that need a one-time
// setup pass. Start runs Init on every registered system, in order, before
// the first tick; a returned error aborts the start.
type Initializer interface {
	Init(e *Engine) error
}

// SystemFunc adapts a plain per-tick function to the System interface.
type SystemFunc func(dt float64)

func (f SystemFunc) Update(dt float64) { f(dt) }

// builtSystem pairs an optional init hook with an update function. Produced
// by NewSystem; the init hook typically obtains nodes and registers action
// or node listeners against the engine.
type builtSystem struct {
	init   func(e *Engine) error
	update func(dt float64)
}

// NewSystem builds a system from an optional init hook and a per-tick update
// function. Either may be nil.
func NewSystem(init func(e *Engine) error, update func(dt float64)) System {
	return &builtSystem{init: init, update: update}
}

func (s *builtSystem) Init(e *Engine) error {
	if s.init == nil {
		return nil
	}
	return s.init(e)
}

func (s *builtSystem) Update(dt float64) {
	if s.update != nil {
		s.update(dt)
	}
}
