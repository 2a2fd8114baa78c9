package registry

import "errors"

var (
	// ErrUnknownMixin indicates a mixin identifier, name or type that is not
	// registered (or only declared, never defined).
	ErrUnknownMixin = errors.New("registry: unknown mixin")

	// ErrUnsupportedMessage indicates a message that is not registered, or
	// that no attached mixin implements.
	ErrUnsupportedMessage = errors.New("registry: unsupported message")

	// ErrMixinConflict indicates two incompatible definitions for the same mixin key.
	ErrMixinConflict = errors.New("registry: conflicting mixin definition")

	// ErrSignatureMismatch indicates a message registered with two different signatures.
	ErrSignatureMismatch = errors.New("registry: message signature mismatch")

	// ErrInvalidDefinition indicates a malformed mixin or message definition.
	ErrInvalidDefinition = errors.New("registry: invalid definition")

	// ErrTooManyMixins indicates the configured mixin bound is exhausted.
	ErrTooManyMixins = errors.New("registry: too many mixins")

	// ErrTooManyMessages indicates the configured message bound is exhausted.
	ErrTooManyMessages = errors.New("registry: too many messages")

	// ErrModuleExists indicates a module name registered twice.
	ErrModuleExists = errors.New("registry: module already registered")

	// ErrUnknownModule indicates retraction of a module that is not registered.
	ErrUnknownModule = errors.New("registry: unknown module")

	// ErrMixinInUse indicates retraction of a mixin that live objects still host.
	ErrMixinInUse = errors.New("registry: mixin still attached to live objects")

	// ErrAlreadyInitialized indicates a second Init of the default registry.
	ErrAlreadyInitialized = errors.New("registry: default registry already initialized")
)
