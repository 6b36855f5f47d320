//go:build debug

package debug

// Enabled reports whether assertions are compiled in.  Wrap assertions
// that need setup work in `if debug.Enabled { ... }` so the whole block
// drops out of release builds.
const Enabled = true

func Assert(ok bool, message string) {
	if !ok {
		panic(message)
	}
}

func AssertErrNil(err error) {
	if err != nil {
		panic(err)
	}
}
