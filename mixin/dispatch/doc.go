// Package dispatch calls messages on objects.
//
// A Message is a typed handle for a named operation with signature
// func(A) R. Mixins implement it with Implement; callers invoke it through
// Unicast (exactly one implementer), Call (a chosen mixin) or Multicast
// (every implementer, folded with a Combinator).
//
// Dispatch resolves implementers on every call from the object's current
// slot array and the registry's current view. Nothing is cached across
// mutations except the message identifier, which is revalidated against
// the registry generation.
package dispatch
