package module

import "errors"

var (
	// ErrSymbolNotFound indicates a library without the module symbol.
	ErrSymbolNotFound = errors.New("module: symbol not found")

	// ErrBadSymbol indicates a module symbol of an unsupported type.
	ErrBadSymbol = errors.New("module: symbol has unsupported type")

	// ErrNotLoaded indicates an operation on a handle that was unloaded.
	ErrNotLoaded = errors.New("module: not loaded")
)
