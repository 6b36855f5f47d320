//go:build !debug

// Package debug holds assertions for invariants of the volume layout and
// the wire protocol.  They are active only under the debug build tag and
// compile to no-ops otherwise, keeping them out of firmware builds.
package debug

// Enabled reports whether assertions are compiled in.  Wrap assertions
// that need setup work in `if debug.Enabled { ... }` so the whole block
// drops out of release builds.
const Enabled = false

// Assert panics with message if ok is false.
func Assert(ok bool, message string) {}

// AssertErrNil panics if err is not nil.
func AssertErrNil(err error) {}
