//go:build mixdebug

package alloc

// DebugChecks enables allocator ownership verification. Build with the
// mixdebug tag to turn it on.
const DebugChecks = true
