package registry

import (
	"reflect"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// canonicalName normalizes a declared name so modules built from sources
// with differently composed Unicode text still agree on identity.
func canonicalName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

// typeName is the default name of a Go mixin type: its package path and
// type name.
func typeName(t reflect.Type) string {
	if t.Name() == "" || t.PkgPath() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}
