// Package ttesting contains small assertion helpers shared by the tests.
//
// Each assertion runs as its own subtest so that a failing table prints the
// name of the check that failed.
package ttesting

import (
	"bytes"
	"testing"

	"github.com/pkg/errors"
)

func AssertEqualInt(t *testing.T, name string, got, want int) {
	t.Helper()
	t.Run(name, func(t *testing.T) {
		if got != want {
			t.Errorf("got %d; want %d", got, want)
		}
	})
}

func AssertEqualUint32(t *testing.T, name string, got, want uint32) {
	t.Helper()
	t.Run(name, func(t *testing.T) {
		if got != want {
			t.Errorf("got %d; want %d", got, want)
		}
	})
}

func AssertEqualString(t *testing.T, name string, got, want string) {
	t.Helper()
	t.Run(name, func(t *testing.T) {
		if got != want {
			t.Errorf("got %q; want %q", got, want)
		}
	})
}

func AssertEqualBytes(t *testing.T, name string, got, want []byte) {
	t.Helper()
	t.Run(name, func(t *testing.T) {
		if !bytes.Equal(got, want) {
			t.Errorf("got % x; want % x", got, want)
		}
	})
}

// AssertErrorIs checks that err wraps target. A nil target asserts no error.
func AssertErrorIs(t *testing.T, name string, err, target error) {
	t.Helper()
	t.Run(name, func(t *testing.T) {
		switch {
		case target == nil && err != nil:
			t.Errorf("got error %v; want none", err)
		case target != nil && !errors.Is(err, target):
			t.Errorf("got error %v; want %v", err, target)
		}
	})
}
