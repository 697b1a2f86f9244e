package rle

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Mode selects how the end of the run list is detected.
type Mode int

const (
	// ModeUnterminated decodes runs until the stream ends. The runs must
	// cover the image exactly.
	ModeUnterminated Mode = iota
	// ModeTerminated stops at a run whose repeat count is Terminator. Pixels
	// not covered by the runs are left fully transparent.
	ModeTerminated
)

// ErrUnknownMode is returned for a Mode other than the ones defined here.
var ErrUnknownMode = errors.New("rle: unknown mode")

// Terminator is the repeat count that ends the run list in ModeTerminated.
const Terminator = 0xff

var modeNames = map[Mode]string{
	ModeUnterminated: "unterminated",
	ModeTerminated:   "terminated",
}

func (m Mode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

func (m Mode) valid() bool {
	_, ok := modeNames[m]
	return ok
}

// ParseMode is the inverse of Mode.String. It also accepts the single
// letters "a" and "b" for the two revisions.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "unterminated", "a", "":
		return ModeUnterminated, nil
	case "terminated", "b":
		return ModeTerminated, nil
	}
	return 0, errors.Wrapf(ErrUnknownMode, "%q", s)
}

// Set implements flag.Value.
func (m *Mode) Set(s string) error {
	v, err := ParseMode(s)
	if err != nil {
		return err
	}
	*m = v
	return nil
}
