// Package ident defines the identifiers shared by every layer of the mixin
// runtime. Identifiers are dense small integers handed out by the registry
// so they can index fixed-size tables bounded by the configured maxima.
package ident

import "strconv"

// Mixin identifies a mixin type process-wide.
type Mixin uint32

// Message identifies a message signature process-wide.
type Message uint32

const (
	// InvalidMixin is never assigned to a registered mixin.
	InvalidMixin Mixin = ^Mixin(0)

	// InvalidMessage is never assigned to a registered message.
	InvalidMessage Message = ^Message(0)
)

// Valid reports whether id may refer to a registered mixin.
func (id Mixin) Valid() bool { return id != InvalidMixin }

func (id Mixin) String() string {
	if !id.Valid() {
		return "mixin(invalid)"
	}
	return "mixin#" + strconv.FormatUint(uint64(id), 10)
}

// Valid reports whether id may refer to a registered message.
func (id Message) Valid() bool { return id != InvalidMessage }

func (id Message) String() string {
	if !id.Valid() {
		return "message(invalid)"
	}
	return "message#" + strconv.FormatUint(uint64(id), 10)
}
