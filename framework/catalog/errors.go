package catalog

import "errors"

var (
	// ErrInvalidConstructor is returned when a registered constructor is not a
	// function of the form func(deps...) T or func(deps...) (T, error) with a
	// concrete T.
	ErrInvalidConstructor = errors.New("invalid constructor")

	// ErrDuplicateType is returned when two components register the same type.
	ErrDuplicateType = errors.New("duplicate candidate type")

	// ErrMultipleHosts is returned when more than one component is marked as
	// the host's entry component.
	ErrMultipleHosts = errors.New("more than one host component")

	// ErrFrozen is recorded when a type is added to a component that already
	// belongs to a built catalog.
	ErrFrozen = errors.New("component is frozen")
)
