package core

import "errors"

// Common errors.
var (
	ErrUnsupportedValue          = errors.New("type cannot be serialized to a document")
	ErrUnresolvableDiscriminator = errors.New("abstract type has no applicable discriminator entry for this value")
	ErrUnmatchedEnum             = errors.New("value does not match any declared choice")
	ErrCyclicStructure           = errors.New("cyclic structure")
	ErrNameCollision             = errors.New("duplicate document name")
	ErrTypeMismatch              = errors.New("value does not fit the declared type")
	ErrInvalidTarget             = errors.New("decode target must be a non-nil pointer")
	ErrNotFound                  = errors.New("document not found")
)
