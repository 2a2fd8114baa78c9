package object

import "errors"

var (
	// ErrMixinNotPresent indicates removal or lookup of a mixin that is not
	// attached to the object.
	ErrMixinNotPresent = errors.New("object: mixin not present")

	// ErrClosed indicates use of an object after Close.
	ErrClosed = errors.New("object: closed")

	// ErrTypeMismatch indicates a typed accessor whose Go type does not
	// match the registered layout of the mixin.
	ErrTypeMismatch = errors.New("object: mixin type mismatch")

	// ErrNotCopyable indicates a copy of an object hosting a mixin defined
	// without a Copy function.
	ErrNotCopyable = errors.New("object: mixin cannot be copied")

	// ErrForeignObject indicates objects bound to different registries.
	ErrForeignObject = errors.New("object: objects belong to different registries")
)
