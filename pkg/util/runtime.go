package util

import "fmt"

// Must panics on err. It is meant for setup steps that only fail on a
// programming error.
func Must(err error) {
	if err != nil {
		panic(err)
	}
}

// NewCrashCatcher returns a function to be deferred; it recovers a panic and
// hands the recovered value to every handler.
func NewCrashCatcher(crashHandler []func(any)) func() {
	return func() {
		err := recover()
		if err != nil {
			for _, handler := range crashHandler {
				handler(err)
			}
		}
	}
}

// PanicError converts a recovered value to an error.
func PanicError(r any) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("panic: %w [recovered]", err)
	}
	return fmt.Errorf("panic: %v [recovered]", r)
}
