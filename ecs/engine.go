package ecs

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"go.uber.org/zap"
)

// EngineStats provides statistics about engine execution.
type EngineStats struct {
	Ticks       uint64
	SystemCount int
	Systems     []SystemStats
}

// SystemStats provides execution statistics for a single system.
type SystemStats struct {
	Name           string
	ExecutionCount int64
	MinDuration    time.Duration
	MaxDuration    time.Duration
	AvgDuration    time.Duration
	LastDuration   time.Duration
	TotalDuration  time.Duration
}

type systemStatsInternal struct {
	name           string
	executionCount int64
	minDuration    time.Duration
	maxDuration    time.Duration
	totalDuration  time.Duration
	lastDuration   time.Duration
}

// Engine ties storage, membership, systems, and actions together. It owns the
// registry, the active entity set, the node cache (one Node per distinct
// signature, for the engine's lifetime), the ordered system list, and the
// action dispatch queue, and drives the per-tick algorithm in Update.
//
// The whole tick runs synchronously in the caller's goroutine; exactly one
// logical actor mutates the world at a time, so no locking is involved.
type Engine struct {
	registry *Registry
	log      *zap.Logger

	entities    []*Entity
	entityIndex map[*Entity]int

	nodes     map[string]*Node
	nodeOrder []*Node

	systems     []System
	systemStats []*systemStatsInternal

	actions     map[string]*Action
	actionQueue []*Action

	updateFns []func(dt float64)

	running bool
	ticks   uint64
}

// NewEngine creates an engine around the given registry.
func NewEngine(registry *Registry) *Engine {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Engine{
		registry:    registry,
		log:         zap.NewNop(),
		entityIndex: make(map[*Entity]int),
		nodes:       make(map[string]*Node),
		actions:     make(map[string]*Action),
	}
}

// SetLogger replaces the engine's logger. The registry and every entity the
// engine adopts afterwards inherit it.
func (en *Engine) SetLogger(log *zap.Logger) {
	if log == nil {
		return
	}
	en.log = log
	en.registry.SetLogger(log)
}

// Registry returns the engine's type registry.
func (en *Engine) Registry() *Registry { return en.registry }

// Ticks returns the number of completed Update calls.
func (en *Engine) Ticks() uint64 { return en.ticks }

// EntityCount returns the size of the active entity set.
func (en *Engine) EntityCount() int { return len(en.entities) }

// AddEntity inserts the entity into the active set and reconciles its
// membership against every cached node. Further mutations of the entity
// route back into the node cache automatically.
func (en *Engine) AddEntity(e *Entity) {
	if e == nil || e.disposed {
		return
	}
	if _, ok := en.entityIndex[e]; ok {
		return
	}
	e.SetLogger(en.log)
	en.entityIndex[e] = len(en.entities)
	en.entities = append(en.entities, e)
	e.watch(en.entityChanged)
	for _, n := range en.nodeOrder {
		n.UpdateEntity(e)
	}
}

// RemoveEntity detaches the entity from the active set and every cached node
// without disposing it. Removed-notifications are delivered on the next
// node flush as usual.
func (en *Engine) RemoveEntity(e *Entity) {
	idx, ok := en.entityIndex[e]
	if !ok {
		return
	}
	last := len(en.entities) - 1
	en.entities[idx] = en.entities[last]
	en.entityIndex[en.entities[idx]] = idx
	en.entities = en.entities[:last]
	delete(en.entityIndex, e)

	e.watch(nil)
	for _, n := range en.nodeOrder {
		n.RemoveEntity(e)
	}
}

// entityChanged is the change hook installed on adopted entities. Disposal
// drops the entity from the engine; any other structural mutation reconciles
// node membership.
func (en *Engine) entityChanged(e *Entity) {
	if e.disposed {
		en.RemoveEntity(e)
		return
	}
	for _, n := range en.nodeOrder {
		n.UpdateEntity(e)
	}
}

// BuildEntity resolves a mixed list of component references (names, TypeIds,
// descriptors, or instances) into component instances, builds a pooled
// entity holding them, and adds it to the engine.
func (en *Engine) BuildEntity(specs ...any) (*Entity, error) {
	components := make([]*Component, 0, len(specs))
	for _, spec := range specs {
		c, err := en.registry.resolveComponent(spec)
		if err != nil {
			return nil, fmt.Errorf("build entity: %w", err)
		}
		components = append(components, c)
	}
	e := Pooled()
	e.SetLogger(en.log)
	for _, c := range components {
		e.Add(c)
	}
	en.AddEntity(e)
	return e, nil
}

// AddSystem appends a system to the ordered system list. Registration order
// is execution order.
func (en *Engine) AddSystem(s System) {
	if s == nil {
		panic("ecs: nil system")
	}
	en.systems = append(en.systems, s)
	en.systemStats = append(en.systemStats, &systemStatsInternal{
		name:        systemName(s),
		minDuration: time.Duration(1<<63 - 1),
	})
}

// AddSystemFunc normalizes a plain per-tick function into a System and
// appends it.
func (en *Engine) AddSystemFunc(fn func(dt float64)) {
	if fn == nil {
		panic("ecs: nil system func")
	}
	en.AddSystem(SystemFunc(fn))
}

// AddSystems appends several systems in the given order.
func (en *Engine) AddSystems(systems ...System) {
	for _, s := range systems {
		en.AddSystem(s)
	}
}

func systemName(s System) string {
	t := reflect.TypeOf(s)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if name := t.Name(); name != "" {
		return name
	}
	return t.String()
}

// GetNode canonicalizes the given type references into a signature and
// returns the cached node for it, creating and seeding one from the current
// active entity set on first request. Requests for the same set of types, in
// any order, share a single node.
func (en *Engine) GetNode(types ...any) (*Node, error) {
	if len(types) == 0 {
		return nil, fmt.Errorf("%w: empty type list", ErrInvalidNodeSignature)
	}
	ids := make([]TypeId, 0, len(types))
	for _, ref := range types {
		id, err := en.registry.resolveTypeID(ref)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidNodeSignature, err)
		}
		ids = append(ids, id)
	}

	sig := newSignature(ids)
	key := sig.Key()
	if n, ok := en.nodes[key]; ok {
		return n, nil
	}

	n := newNode(sig)
	for _, e := range en.entities {
		n.AddEntity(e)
	}
	en.nodes[key] = n
	en.nodeOrder = append(en.nodeOrder, n)
	en.log.Debug("node created", zap.String("signature", key), zap.Int("seeded", n.Size()))
	return n, nil
}

// Action returns the engine-managed action with the given name, creating it
// on first use.
func (en *Engine) Action(name string) *Action {
	a, ok := en.actions[name]
	if !ok {
		a = NewAction(name)
		en.actions[name] = a
	}
	return a
}

// TriggerAction records an occurrence of the named action for dispatch on
// the next Update call. Dispatch is never synchronous, so a trigger fired
// from a listener or system cannot re-enter other listeners mid-tick.
func (en *Engine) TriggerAction(name string, data, meta any) {
	a := en.Action(name)
	a.Trigger(data, meta)
	en.actionQueue = append(en.actionQueue, a)
}

// OnAction registers a listener for the named action. The listener fires
// once per occurrence during the dispatch phase of Update.
func (en *Engine) OnAction(name string, fn func(*Action)) {
	if fn == nil {
		panic("ecs: nil action listener")
	}
	en.Action(name).listen(fn)
}

// OnUpdate registers a callback invoked each tick after the systems, in
// registration order relative to other OnUpdate callbacks.
func (en *Engine) OnUpdate(fn func(dt float64)) {
	if fn == nil {
		panic("ecs: nil update callback")
	}
	en.updateFns = append(en.updateFns, fn)
}

// Start runs the one-time initialization pass over the registered systems
// and marks the engine running. done fires exactly once: with the first
// initialization error, or with nil once setup completed.
func (en *Engine) Start(done func(error)) {
	for _, s := range en.systems {
		init, ok := s.(Initializer)
		if !ok {
			continue
		}
		if err := init.Init(en); err != nil {
			en.log.Error("system initialization failed",
				zap.String("system", systemName(s)), zap.Error(err))
			if done != nil {
				done(err)
			}
			return
		}
	}
	en.running = true
	en.log.Info("engine started", zap.Int("systems", len(en.systems)))
	if done != nil {
		done(nil)
	}
}

// Update runs one tick, wholly synchronously:
//
//  1. dispatch every action queued since the previous tick, in strict
//     trigger order across all names;
//  2. run every system in registration order, then the OnUpdate callbacks;
//  3. flush every cached node in creation order, delivering the batched
//     added/removed notifications;
//  4. advance the tick counter.
func (en *Engine) Update(dt float64) {
	en.dispatchActions()

	for i, s := range en.systems {
		start := time.Now()
		s.Update(dt)
		duration := time.Since(start)

		stats := en.systemStats[i]
		stats.executionCount++
		stats.lastDuration = duration
		stats.totalDuration += duration
		if duration < stats.minDuration {
			stats.minDuration = duration
		}
		if duration > stats.maxDuration {
			stats.maxDuration = duration
		}
	}
	for _, fn := range en.updateFns {
		fn(dt)
	}

	for _, n := range en.nodeOrder {
		n.Finish()
	}

	en.ticks++
}

func (en *Engine) dispatchActions() {
	if len(en.actionQueue) == 0 {
		return
	}
	queue := en.actionQueue
	en.actionQueue = nil

	// Freeze each action's pending occurrences into its batch so Each sees
	// the whole inter-tick accumulation; triggers fired by listeners go to
	// the next tick.
	for _, a := range queue {
		if a.current == -1 && a.batch == nil {
			a.beginDispatch()
		}
	}
	for _, a := range queue {
		a.dispatchNext()
	}
	for _, a := range queue {
		a.endDispatch()
	}
}

// Run ticks the engine at the given interval until the context is cancelled.
// Start must have been called first.
func (en *Engine) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	lastTime := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			dt := now.Sub(lastTime).Seconds()
			lastTime = now
			en.Update(dt)
		}
	}
}

// Stats returns execution statistics for the registered systems.
func (en *Engine) Stats() *EngineStats {
	stats := &EngineStats{
		Ticks:       en.ticks,
		SystemCount: len(en.systems),
		Systems:     make([]SystemStats, len(en.systemStats)),
	}
	for i, internal := range en.systemStats {
		avgDuration := time.Duration(0)
		if internal.executionCount > 0 {
			avgDuration = internal.totalDuration / time.Duration(internal.executionCount)
		}
		stats.Systems[i] = SystemStats{
			Name:           internal.name,
			ExecutionCount: internal.executionCount,
			MinDuration:    internal.minDuration,
			MaxDuration:    internal.maxDuration,
			AvgDuration:    avgDuration,
			LastDuration:   internal.lastDuration,
			TotalDuration:  internal.totalDuration,
		}
	}
	return stats
}
