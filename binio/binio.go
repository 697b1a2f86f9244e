package binio

import (
	"bytes"
	"encoding/binary"
	"io"
	"unicode/utf8"

	"github.com/pkg/errors"
)

var (
	// ErrTruncated is returned when the stream ends before a value was fully read.
	ErrTruncated = errors.New("binio: truncated input")
	// ErrMalformedText is returned when string bytes are not valid UTF-8.
	ErrMalformedText = errors.New("binio: malformed text")
	// ErrMalformed is returned for values that cannot be valid, such as a
	// varint overflowing 64 bits or an implausibly long string.
	ErrMalformed = errors.New("binio: malformed input")
)

const (
	// MaxStringLength is the largest string length prefix that is accepted.
	MaxStringLength = 1 << 20

	maxVarintBytes = 10
)

// Reader wraps an io.Reader with decoders for the primitive values.
type Reader struct {
	r   io.Reader
	tmp [4]byte
}

// NewReader returns a Reader reading from r.
//
// r is read in small pieces; wrap it in a bufio.Reader if it is a file.
func NewReader(r io.Reader) *Reader {
	if br, ok := r.(*Reader); ok {
		return br
	}
	return &Reader{r: r}
}

// Read implements io.Reader.
func (r *Reader) Read(p []byte) (int, error) {
	return r.r.Read(p)
}

func (r *Reader) readFull(b []byte, what string) error {
	if _, err := io.ReadFull(r.r, b); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return errors.Wrapf(ErrTruncated, "reading %s", what)
		}
		return errors.Wrapf(err, "reading %s", what)
	}
	return nil
}

// ReadByte implements io.ByteReader. Unlike the other methods, a clean end of
// stream is reported as a bare io.EOF so callers can use it as a terminator.
func (r *Reader) ReadByte() (byte, error) {
	n, err := io.ReadFull(r.r, r.tmp[:1])
	if n == 1 {
		return r.tmp[0], nil
	}
	if err == io.ErrUnexpectedEOF {
		err = io.EOF
	}
	return 0, err
}

// ReadUint8 reads a single byte.
func (r *Reader) ReadUint8(what string) (uint8, error) {
	if err := r.readFull(r.tmp[:1], what); err != nil {
		return 0, err
	}
	return r.tmp[0], nil
}

// ReadBool reads a single byte; any nonzero value is true.
func (r *Reader) ReadBool(what string) (bool, error) {
	b, err := r.ReadUint8(what)
	return b != 0, err
}

// ReadUint16 reads a little-endian uint16.
func (r *Reader) ReadUint16(what string) (uint16, error) {
	if err := r.readFull(r.tmp[:2], what); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(r.tmp[:2]), nil
}

// ReadUint32 reads a little-endian uint32.
func (r *Reader) ReadUint32(what string) (uint32, error) {
	if err := r.readFull(r.tmp[:4], what); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(r.tmp[:4]), nil
}

// ReadVarint reads an unsigned base-128 integer. Each byte contributes its
// low 7 bits, least significant group first; a clear high bit ends the value.
func (r *Reader) ReadVarint(what string) (uint64, error) {
	var v uint64
	for i := 0; i < maxVarintBytes; i++ {
		b, err := r.ReadUint8(what)
		if err != nil {
			return 0, err
		}
		if i == maxVarintBytes-1 && b > 1 {
			break
		}
		v |= uint64(b&0x7f) << (7 * uint(i))
		if b&0x80 == 0 {
			return v, nil
		}
	}
	return 0, errors.Wrapf(ErrMalformed, "reading %s: varint overflows 64 bits", what)
}

// ReadString reads a varint length followed by that many bytes of UTF-8 text.
func (r *Reader) ReadString(what string) (string, error) {
	n, err := r.ReadVarint(what + " length")
	if err != nil {
		return "", err
	}
	if n > MaxStringLength {
		return "", errors.Wrapf(ErrMalformed, "reading %s: length %d exceeds %d", what, n, MaxStringLength)
	}

	// Grow with the data actually present rather than trusting n.
	var buf bytes.Buffer
	copied, err := io.CopyN(&buf, r.r, int64(n))
	if err != nil {
		if err == io.EOF {
			return "", errors.Wrapf(ErrTruncated, "reading %s: got %d of %d bytes", what, copied, n)
		}
		return "", errors.Wrapf(err, "reading %s", what)
	}
	if !utf8.Valid(buf.Bytes()) {
		return "", errors.Wrapf(ErrMalformedText, "reading %s", what)
	}
	return buf.String(), nil
}

// IsTruncated reports whether err was caused by a short read.
func IsTruncated(err error) bool {
	return errors.Is(err, ErrTruncated)
}
