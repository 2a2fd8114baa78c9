// Package module loads and unloads units of code that contribute mixins and
// messages to a registry.
//
// A Module registers its definitions through a registry.Builder. Modules
// reach the process either statically (compiled in and served by a
// StaticBridge) or as Go plugins opened by a PluginBridge; both expose the
// module under the symbol "Module".
//
// The Loader guarantees the ordering the runtime relies on: a module is
// fully registered before Load returns, and on Unload its object hooks are
// released and its definitions retracted before the library is closed.
package module
