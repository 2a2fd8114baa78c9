// Package object implements objects: runtime entities that mixins are
// attached to and detached from.
//
// An Object holds an array of slots, one per attached mixin, in attachment
// order. Every mutation builds a complete replacement array through the
// object's allocation strategy and swaps it in atomically, so readers
// (typically message dispatch) never lock and never see a half-applied
// change. A mutation that fails leaves the object as it was.
//
// Each mixin instance is preceded in its buffer by the handle of the
// object hosting it, so OwnerOf recovers the object from nothing but a
// mixin pointer:
//
//	func (h *Health) Damage(n int) {
//		o, _ := object.Owner(h)
//		...
//	}
//
// Objects must be closed to release their mixins. An object that becomes
// unreachable without being closed leaks its mixin buffers and keeps the
// registry's live counts for those mixins raised.
package object
