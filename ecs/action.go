package ecs

import "time"

// occurrence is one recorded trigger of an action.
type occurrence struct {
	time time.Time
	data any
	meta any
}

// Action is a named, timestamped event payload. Triggers accumulate between
// ticks; the engine dispatches the whole batch, in trigger order, on the next
// Update call. Listeners receive the Action positioned at the occurrence
// being dispatched and may iterate the full batch with Each.
type Action struct {
	name      string
	pending   []occurrence
	batch     []occurrence
	current   int
	listeners []func(*Action)
}

// NewAction creates a standalone action with the given name. Engine-managed
// actions are created lazily by TriggerAction and OnAction.
func NewAction(name string) *Action {
	return &Action{name: name, current: -1}
}

// Name returns the action's name.
func (a *Action) Name() string { return a.name }

// Trigger records an occurrence with the current monotonic timestamp. The
// occurrence becomes visible to listeners on the next engine tick.
func (a *Action) Trigger(data, meta any) {
	a.pending = append(a.pending, occurrence{time: time.Now(), data: data, meta: meta})
}

// Time returns the timestamp of the occurrence being dispatched.
func (a *Action) Time() time.Time { return a.at().time }

// Data returns the data payload of the occurrence being dispatched.
func (a *Action) Data() any { return a.at().data }

// Meta returns the meta payload of the occurrence being dispatched.
func (a *Action) Meta() any { return a.at().meta }

func (a *Action) at() occurrence {
	if a.current < 0 || a.current >= len(a.batch) {
		return occurrence{}
	}
	return a.batch[a.current]
}

// Each iterates every occurrence of the current batch in trigger order.
// Useful when several triggers of the same name accumulated between ticks.
func (a *Action) Each(fn func(data, meta any, at time.Time)) {
	for _, o := range a.batch {
		fn(o.data, o.meta, o.time)
	}
}

// listen registers a listener invoked once per occurrence at dispatch.
func (a *Action) listen(fn func(*Action)) {
	a.listeners = append(a.listeners, fn)
}

// beginDispatch freezes the pending occurrences into the current batch.
// Triggers fired by listeners land in a fresh pending list for the next tick.
func (a *Action) beginDispatch() {
	a.batch = a.pending
	a.pending = nil
	a.current = -1
}

// dispatchNext positions the action at its next batched occurrence and
// invokes every listener with it.
func (a *Action) dispatchNext() {
	a.current++
	for _, fn := range a.listeners {
		fn(a)
	}
}

// endDispatch clears the batch once the engine has delivered it.
func (a *Action) endDispatch() {
	a.batch = nil
	a.current = -1
}
