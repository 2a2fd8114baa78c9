package dispatch

import "errors"

// ErrAmbiguousMessage indicates a unicast with several implementers at the
// highest priority under the strict policy.
var ErrAmbiguousMessage = errors.New("dispatch: ambiguous message")
