package ecs

import "errors"

// Sentinel errors surfaced by the registry and engine. Callers match them
// with errors.Is; the concrete messages carry the offending name or id.
var (
	// ErrDuplicateComponentID reports a registration that would bind an
	// already-bound name or id to a different field layout.
	ErrDuplicateComponentID = errors.New("duplicate component id")

	// ErrUnknownComponentType reports a reference to a type that was never
	// registered with the registry in use.
	ErrUnknownComponentType = errors.New("unknown component type")

	// ErrInvalidNodeSignature reports a node request with an empty or
	// unresolvable component type list.
	ErrInvalidNodeSignature = errors.New("invalid node signature")
)
