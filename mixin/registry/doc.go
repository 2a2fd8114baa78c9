// Package registry implements the process-wide Mixin Registry: the table
// that maps mixin identifiers to their layout, allocator and message
// implementations, and message identifiers to their signatures.
//
// # Modules
//
// Everything is registered on behalf of a module. RegisterModule runs a
// callback against a Builder and publishes its definitions atomically, or
// nothing at all if the callback fails. RetractModule withdraws them again,
// typically right before the module's code is unloaded.
//
// Several modules may refer to the same mixin: one defines it and others
// declare it, or several define it identically. They all resolve to the
// same identifier. Entries are reference counted per module and removed
// when the last module referring to them is retracted.
//
// # Identity
//
// Mixins are keyed by their canonical (NFC) name, or by Go type when the
// configuration selects type identity. Messages are always keyed by name;
// their Go signature is recorded and must match across modules.
//
// # Concurrency
//
// Readers work on an immutable View published through an atomic pointer,
// so dispatch never takes a lock. Registration and retraction serialize on
// a mutex and publish a new View.
package registry
