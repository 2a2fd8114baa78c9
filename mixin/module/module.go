package module

import (
	"fmt"

	"github.com/joshuapare/mixkit/mixin/object"
	"github.com/joshuapare/mixkit/mixin/registry"
)

// Symbol is the name under which libraries export their module.
const Symbol = "Module"

// Module contributes definitions to a registry.
type Module interface {
	// Name identifies the module in the registry. It must be unique among
	// loaded modules.
	Name() string

	// Define registers the module's mixins and messages.
	Define(b *registry.Builder) error
}

// ObjectHook is implemented by modules that attach their mixins to objects
// handed to them, and detach them again before the module unloads.
type ObjectHook interface {
	ModifyObject(o *object.Object) error
	ReleaseObject(o *object.Object) error
}

// Func is a Module built from a name and a define function.
type Func struct {
	ModuleName string
	DefineFunc func(b *registry.Builder) error
}

// New returns a Module from a define function.
func New(name string, define func(b *registry.Builder) error) *Func {
	return &Func{ModuleName: name, DefineFunc: define}
}

func (f *Func) Name() string { return f.ModuleName }

func (f *Func) Define(b *registry.Builder) error {
	if f.DefineFunc == nil {
		return nil
	}
	return f.DefineFunc(b)
}

// fromSymbol accepts the shapes a library can export its module in.
func fromSymbol(sym any) (Module, error) {
	switch v := sym.(type) {
	case Module:
		return v, nil
	case *Module:
		if v == nil || *v == nil {
			return nil, fmt.Errorf("%w: nil %s", ErrBadSymbol, Symbol)
		}
		return *v, nil
	case func() Module:
		m := v()
		if m == nil {
			return nil, fmt.Errorf("%w: %s() returned nil", ErrBadSymbol, Symbol)
		}
		return m, nil
	case *func() Module:
		return fromSymbol(*v)
	default:
		return nil, fmt.Errorf("%w: %T", ErrBadSymbol, sym)
	}
}
