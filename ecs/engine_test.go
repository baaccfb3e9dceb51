package ecs_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/martikaljuve/typed-scent/ecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetNodeCanonicalization(t *testing.T) {
	tt := newTestTypes(t)
	engine := ecs.NewEngine(tt.registry)

	n1, err := engine.GetNode(tt.position, tt.velocity)
	require.NoError(t, err)

	// Reversed order, mixed reference kinds: same node instance.
	n2, err := engine.GetNode("velocity", tt.position)
	require.NoError(t, err)
	assert.Same(t, n1, n2)

	n3, err := engine.GetNode(tt.velocity.ID(), "position", tt.velocity)
	require.NoError(t, err)
	assert.Same(t, n1, n3, "duplicates collapse in the signature")
}

func TestGetNodeInvalidSignature(t *testing.T) {
	tt := newTestTypes(t)
	engine := ecs.NewEngine(tt.registry)

	_, err := engine.GetNode()
	assert.ErrorIs(t, err, ecs.ErrInvalidNodeSignature)

	_, err = engine.GetNode("position", "no-such-type")
	assert.ErrorIs(t, err, ecs.ErrInvalidNodeSignature)
}

func TestGetNodeSeedsFromActiveEntities(t *testing.T) {
	tt := newTestTypes(t)
	engine := ecs.NewEngine(tt.registry)

	engine.AddEntity(ecs.NewEntity(tt.newPosition(0, 0), tt.newVelocity(1, 1)))
	engine.AddEntity(ecs.NewEntity(tt.newPosition(0, 0)))

	node, err := engine.GetNode(tt.position, tt.velocity)
	require.NoError(t, err)
	assert.Equal(t, 1, node.Size())
}

func TestEngineTracksMutationsIntoNodes(t *testing.T) {
	tt := newTestTypes(t)
	engine := ecs.NewEngine(tt.registry)

	node, err := engine.GetNode(tt.position, tt.velocity)
	require.NoError(t, err)

	e := ecs.NewEntity(tt.newPosition(0, 0))
	engine.AddEntity(e)
	assert.Equal(t, 0, node.Size())

	e.Add(tt.newVelocity(1, 1))
	assert.Equal(t, 1, node.Size(), "mutation reconciles membership immediately")

	e.Remove(tt.velocity)
	assert.Equal(t, 0, node.Size())
}

func TestEngineDisposeDropsEntity(t *testing.T) {
	tt := newTestTypes(t)
	engine := ecs.NewEngine(tt.registry)

	node, err := engine.GetNode(tt.position)
	require.NoError(t, err)

	e := ecs.NewEntity(tt.newPosition(0, 0))
	engine.AddEntity(e)
	require.Equal(t, 1, node.Size())
	require.Equal(t, 1, engine.EntityCount())

	e.Dispose()
	assert.Equal(t, 0, node.Size())
	assert.Equal(t, 0, engine.EntityCount())
}

func TestBuildEntityMixedReferences(t *testing.T) {
	tt := newTestTypes(t)
	engine := ecs.NewEngine(tt.registry)

	vel := tt.newVelocity(2, 3)
	e, err := engine.BuildEntity("position", vel, tt.health)
	require.NoError(t, err)

	assert.True(t, e.Has(tt.position))
	assert.Same(t, vel, e.Get(tt.velocity))
	assert.True(t, e.Has(tt.health))
	assert.Equal(t, 1, engine.EntityCount())

	_, err = engine.BuildEntity("unregistered")
	assert.ErrorIs(t, err, ecs.ErrUnknownComponentType)
}

func TestSystemsRunInRegistrationOrder(t *testing.T) {
	tt := newTestTypes(t)
	engine := ecs.NewEngine(tt.registry)

	var order []string
	engine.AddSystemFunc(func(dt float64) { order = append(order, "s1") })
	engine.AddSystemFunc(func(dt float64) { order = append(order, "s2") })
	engine.OnUpdate(func(dt float64) { order = append(order, "u1") })
	engine.OnUpdate(func(dt float64) { order = append(order, "u2") })

	engine.Update(1)
	assert.Equal(t, []string{"s1", "s2", "u1", "u2"}, order)
	assert.Equal(t, uint64(1), engine.Ticks())
}

func TestSystemWriteOrderIsObservable(t *testing.T) {
	tt := newTestTypes(t)
	engine := ecs.NewEngine(tt.registry)

	e, err := engine.BuildEntity("name")
	require.NoError(t, err)

	engine.AddSystemFunc(func(dt float64) {
		e.Get(tt.name).Set("value", "first")
	})
	engine.AddSystemFunc(func(dt float64) {
		e.Get(tt.name).Set("value", "second")
	})

	engine.Update(1)
	assert.Equal(t, "second", e.Get(tt.name).Get("value"))
}

func TestActionsDispatchInTriggerOrderOnNextUpdate(t *testing.T) {
	tt := newTestTypes(t)
	engine := ecs.NewEngine(tt.registry)

	var fired []string
	engine.OnAction("x", func(a *ecs.Action) { fired = append(fired, "x") })
	engine.OnAction("y", func(a *ecs.Action) { fired = append(fired, "y") })

	engine.TriggerAction("x", nil, nil)
	engine.TriggerAction("y", nil, nil)
	engine.TriggerAction("x", nil, nil)
	assert.Empty(t, fired, "dispatch is never synchronous")

	engine.Update(1)
	assert.Equal(t, []string{"x", "y", "x"}, fired, "global FIFO across names")

	fired = fired[:0]
	engine.Update(1)
	assert.Empty(t, fired, "a batch dispatches exactly once")
}

func TestActionPayloadAndBatch(t *testing.T) {
	tt := newTestTypes(t)
	engine := ecs.NewEngine(tt.registry)

	type hit struct{ damage int }

	var seen []int
	var batch int
	engine.OnAction("hit", func(a *ecs.Action) {
		seen = append(seen, a.Data().(hit).damage)
		assert.Equal(t, "meta", a.Meta())
		assert.False(t, a.Time().IsZero())

		batch = 0
		a.Each(func(data, meta any, at time.Time) { batch++ })
	})

	engine.TriggerAction("hit", hit{damage: 3}, "meta")
	engine.TriggerAction("hit", hit{damage: 7}, "meta")
	engine.Update(1)

	assert.Equal(t, []int{3, 7}, seen, "one listener call per occurrence, in order")
	assert.Equal(t, 2, batch, "Each exposes the whole inter-tick batch")
}

func TestActionTriggeredDuringDispatchDefersToNextTick(t *testing.T) {
	tt := newTestTypes(t)
	engine := ecs.NewEngine(tt.registry)

	var count int
	engine.OnAction("ping", func(a *ecs.Action) {
		count++
		if count == 1 {
			engine.TriggerAction("ping", nil, nil)
		}
	})

	engine.TriggerAction("ping", nil, nil)
	engine.Update(1)
	require.Equal(t, 1, count)

	engine.Update(1)
	assert.Equal(t, 2, count)
}

func TestStartRunsInitializersOnce(t *testing.T) {
	tt := newTestTypes(t)
	engine := ecs.NewEngine(tt.registry)

	var inits []string
	engine.AddSystem(ecs.NewSystem(
		func(e *ecs.Engine) error {
			inits = append(inits, "a")
			return nil
		},
		nil,
	))
	engine.AddSystem(ecs.NewSystem(
		func(e *ecs.Engine) error {
			inits = append(inits, "b")
			return nil
		},
		nil,
	))

	var doneErr error
	var doneCalls int
	engine.Start(func(err error) {
		doneCalls++
		doneErr = err
	})

	assert.Equal(t, []string{"a", "b"}, inits)
	assert.Equal(t, 1, doneCalls)
	assert.NoError(t, doneErr)
}

func TestStartReportsInitializationError(t *testing.T) {
	tt := newTestTypes(t)
	engine := ecs.NewEngine(tt.registry)

	boom := errors.New("boom")
	engine.AddSystem(ecs.NewSystem(
		func(e *ecs.Engine) error { return boom },
		nil,
	))

	ran := false
	engine.AddSystem(ecs.NewSystem(
		func(e *ecs.Engine) error {
			ran = true
			return nil
		},
		nil,
	))

	var doneErr error
	engine.Start(func(err error) { doneErr = err })

	assert.ErrorIs(t, doneErr, boom)
	assert.False(t, ran, "initialization stops at the first failure")
}

// Scenario: one system integrates velocity into position each tick.
func TestMovementScenario(t *testing.T) {
	tt := newTestTypes(t)
	engine := ecs.NewEngine(tt.registry)

	e, err := engine.BuildEntity("position", "velocity")
	require.NoError(t, err)
	e.Get(tt.position).Set("x", 0.0).Set("y", 0.0)
	e.Get(tt.velocity).Set("dx", 1.0).Set("dy", 1.0)

	engine.AddSystem(ecs.NewSystem(
		nil,
		func(dt float64) {
			node, nerr := engine.GetNode(tt.position, tt.velocity)
			if nerr != nil {
				t.Fatal(nerr)
			}
			node.Each(func(ent *ecs.Entity) {
				pos := ent.Get(tt.position)
				vel := ent.Get(tt.velocity)
				pos.Set("x", pos.Float("x")+vel.Float("dx"))
				pos.Set("y", pos.Float("y")+vel.Float("dy"))
			})
		},
	))

	engine.Start(nil)
	for i := 0; i < 3; i++ {
		engine.Update(1)
	}

	pos := e.Get(tt.position)
	assert.Equal(t, 3.0, pos.Float("x"))
	assert.Equal(t, 3.0, pos.Float("y"))
}

// Scenario: removing a required component mid-tick fires onRemoved exactly
// once at the flush, and the entity leaves the node's traversal.
func TestRemovalNotificationScenario(t *testing.T) {
	tt := newTestTypes(t)
	engine := ecs.NewEngine(tt.registry)

	node, err := engine.GetNode(tt.position, tt.velocity)
	require.NoError(t, err)

	e, err := engine.BuildEntity("position", "velocity")
	require.NoError(t, err)

	var removed []*ecs.Entity
	node.OnRemoved(func(ent *ecs.Entity) { removed = append(removed, ent) })

	engine.AddSystemFunc(func(dt float64) {
		e.Remove(tt.velocity)
	})

	engine.Update(1)
	assert.Equal(t, []*ecs.Entity{e}, removed, "exactly one removal notification")

	var members []*ecs.Entity
	node.Each(func(ent *ecs.Entity) { members = append(members, ent) })
	assert.Empty(t, members)

	removed = removed[:0]
	engine.Update(1)
	assert.Empty(t, removed)
}

func TestEngineStats(t *testing.T) {
	tt := newTestTypes(t)
	engine := ecs.NewEngine(tt.registry)

	engine.AddSystemFunc(func(dt float64) { time.Sleep(time.Millisecond) })
	engine.Update(1)
	engine.Update(1)

	stats := engine.Stats()
	assert.Equal(t, uint64(2), stats.Ticks)
	require.Len(t, stats.Systems, 1)
	assert.Equal(t, int64(2), stats.Systems[0].ExecutionCount)
	assert.Greater(t, stats.Systems[0].TotalDuration, time.Duration(0))
	assert.GreaterOrEqual(t, stats.Systems[0].MaxDuration, stats.Systems[0].MinDuration)
}

func TestEngineRunUntilCancelled(t *testing.T) {
	tt := newTestTypes(t)
	engine := ecs.NewEngine(tt.registry)

	ticked := make(chan struct{})
	var once bool
	engine.AddSystemFunc(func(dt float64) {
		if !once {
			once = true
			close(ticked)
		}
	})

	engine.Start(nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-ticked
		cancel()
	}()

	engine.Run(ctx, time.Millisecond)
	assert.GreaterOrEqual(t, engine.Ticks(), uint64(1))
}
