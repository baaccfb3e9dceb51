package ecs_test

import (
	"testing"

	"github.com/martikaljuve/typed-scent/ecs"
	"github.com/stretchr/testify/require"
)

// testTypes is the shared set of component types used across the package
// tests. Each test builds its own registry so TypeIds never leak between
// tests.
type testTypes struct {
	registry *ecs.Registry
	position *ecs.ComponentType
	velocity *ecs.ComponentType
	health   *ecs.ComponentType
	name     *ecs.ComponentType
	tag      *ecs.ComponentType
}

func newTestTypes(t testing.TB) *testTypes {
	t.Helper()
	r := ecs.NewRegistry()

	tt := &testTypes{registry: r}
	var err error

	tt.position, err = r.Define("position", "x", "y")
	require.NoError(t, err)
	tt.velocity, err = r.Define("velocity", "dx", "dy")
	require.NoError(t, err)
	tt.health, err = r.Define("health", "current", "max")
	require.NoError(t, err)
	tt.name, err = r.Define("name", "value")
	require.NoError(t, err)
	tt.tag, err = r.Define("tag")
	require.NoError(t, err)

	return tt
}

func (tt *testTypes) newPosition(x, y float64) *ecs.Component {
	return tt.position.New().Set("x", x).Set("y", y)
}

func (tt *testTypes) newVelocity(dx, dy float64) *ecs.Component {
	return tt.velocity.New().Set("dx", dx).Set("dy", dy)
}

func (tt *testTypes) newHealth(current, max int) *ecs.Component {
	return tt.health.New().Set("current", current).Set("max", max)
}
