package demo

import (
	"context"
	"errors"
	"fmt"

	"github.com/joshuapare/mixkit/mixin/dispatch"
	"github.com/joshuapare/mixkit/mixin/module"
	"github.com/joshuapare/mixkit/mixin/object"
	"github.com/joshuapare/mixkit/mixin/registry"
)

// Step is the state of the demo object after one action.
type Step struct {
	Action      string `json:"action"`
	Mixins      int    `json:"mixins"`
	Sum         int    `json:"sum"`
	Specific    int    `json:"specific"` // 0 when no mixin implements it
	Exported    int    `json:"exported"` // valid when HasExported
	HasExported bool   `json:"has_exported"`
}

// Observe dispatches the demo messages on o.
func Observe(action string, o *object.Object) (Step, error) {
	st := Step{Action: action, Mixins: o.Len()}
	var err error
	if st.Sum, err = dispatch.Multicast(o, Sum, struct{}{}, dispatch.Sum[int]()); err != nil {
		return st, err
	}
	if st.Specific, err = dispatch.Unicast(o, Specific, struct{}{}); err != nil && !errors.Is(err, registry.ErrUnsupportedMessage) {
		return st, err
	}
	st.Exported, err = dispatch.Unicast(o, Exported, struct{}{})
	switch {
	case err == nil:
		st.HasExported = true
	case !errors.Is(err, registry.ErrUnsupportedMessage):
		return st, err
	}
	return st, nil
}

// Run plays the plugin scenario against a loader serving the demo paths:
// build an object from the executable and library mixins, then load,
// apply and unload each plugin in turn, observing the object after every
// action. pluginPaths overrides the plugin paths, for example with real Go
// plugins; missing entries fall back to the builtin ones.
func Run(ctx context.Context, l *module.Loader, pluginPaths map[string]string) (steps []Step, err error) {
	path := func(builtin string) string {
		if p, ok := pluginPaths[builtin]; ok {
			return p
		}
		return builtin
	}

	base, err := l.LoadAll(ctx, []string{ExePath, LibPath})
	if err != nil {
		return nil, err
	}
	o := object.New(l.Registry(), nil)
	defer func() {
		err = errors.Join(err, o.Close())
		for i := len(base) - 1; i >= 0; i-- {
			err = errors.Join(err, l.Unload(ctx, base[i]))
		}
	}()

	observe := func(action string) error {
		st, err := Observe(action, o)
		if err != nil {
			return fmt.Errorf("%s: %w", action, err)
		}
		steps = append(steps, st)
		return nil
	}

	for _, name := range []string{ExeMixin, LibMixin1, LibMixin2} {
		if err := o.AddByName(name); err != nil {
			return steps, err
		}
		if err := observe("add " + name); err != nil {
			return steps, err
		}
	}

	for _, p := range []string{PluginAPath, PluginAModPath, PluginBPath} {
		h, err := l.Load(ctx, path(p))
		if err != nil {
			return steps, err
		}
		if err := h.Modify(o); err != nil {
			return steps, errors.Join(err, l.Unload(ctx, h))
		}
		if err := observe("load " + h.Name()); err != nil {
			return steps, errors.Join(err, l.Unload(ctx, h))
		}
		if err := l.Unload(ctx, h); err != nil {
			return steps, err
		}
		if err := observe("unload " + h.Name()); err != nil {
			return steps, err
		}
	}
	return steps, nil
}
