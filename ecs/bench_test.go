package ecs_test

import (
	"testing"

	"github.com/martikaljuve/typed-scent/ecs"
)

func BenchmarkEntityAddRemove(b *testing.B) {
	tt := newTestTypes(b)
	e := ecs.NewEntity()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c, err := tt.registry.Acquire(tt.position.ID())
		if err != nil {
			b.Fatal(err)
		}
		e.Add(c)
		e.Remove(tt.position)
	}
}

func BenchmarkPooledEntityLifecycle(b *testing.B) {
	tt := newTestTypes(b)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		pos, _ := tt.registry.Acquire(tt.position.ID())
		vel, _ := tt.registry.Acquire(tt.velocity.ID())
		e := ecs.Pooled(pos, vel)
		e.Dispose()
	}
}

func BenchmarkNodeUpdateEntity(b *testing.B) {
	tt := newTestTypes(b)
	node := ecs.NewNode(tt.position, tt.velocity)
	e := ecs.NewEntity(tt.newPosition(0, 0), tt.newVelocity(1, 1))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		node.UpdateEntity(e)
	}
}

func BenchmarkNodeEach(b *testing.B) {
	tt := newTestTypes(b)
	node := ecs.NewNode(tt.position)
	for i := 0; i < 1000; i++ {
		node.AddEntity(ecs.NewEntity(tt.newPosition(float64(i), 0)))
	}
	node.Finish()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		node.Each(func(e *ecs.Entity) {})
	}
}

func BenchmarkEngineUpdate(b *testing.B) {
	tt := newTestTypes(b)
	engine := ecs.NewEngine(tt.registry)

	for i := 0; i < 1000; i++ {
		if _, err := engine.BuildEntity("position", "velocity"); err != nil {
			b.Fatal(err)
		}
	}

	node, err := engine.GetNode(tt.position, tt.velocity)
	if err != nil {
		b.Fatal(err)
	}
	engine.AddSystemFunc(func(dt float64) {
		node.Each(func(e *ecs.Entity) {
			pos := e.Get(tt.position)
			vel := e.Get(tt.velocity)
			pos.Set("x", pos.Float("x")+vel.Float("dx")*dt)
		})
	})
	engine.Start(nil)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		engine.Update(1.0 / 60.0)
	}
}
