package main

import (
	"context"
	"strings"

	"github.com/joshuapare/mixkit/internal/demo"
	"github.com/joshuapare/mixkit/mixin/module"
)

const builtinPrefix = "builtin:"

// cliBridge serves builtin demo paths statically and opens everything else
// as a Go plugin.
type cliBridge struct {
	static *module.StaticBridge
	plugin module.PluginBridge
}

func newBridge() cliBridge {
	return cliBridge{static: demo.NewBridge()}
}

func (b cliBridge) Open(ctx context.Context, path string) (module.Library, error) {
	if strings.HasPrefix(path, builtinPrefix) {
		return b.static.Open(ctx, path)
	}
	return b.plugin.Open(ctx, path)
}
