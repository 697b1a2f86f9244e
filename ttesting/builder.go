package ttesting

import (
	"bytes"
	"encoding/binary"
)

// Builder assembles little-endian binary fixtures for tests.
type Builder struct {
	bytes.Buffer
}

func (b *Builder) Uint8(v uint8) *Builder {
	b.WriteByte(v)
	return b
}

func (b *Builder) Uint16(vs ...uint16) *Builder {
	for _, v := range vs {
		binary.Write(&b.Buffer, binary.LittleEndian, v)
	}
	return b
}

func (b *Builder) Uint32(v uint32) *Builder {
	binary.Write(&b.Buffer, binary.LittleEndian, v)
	return b
}

func (b *Builder) Varint(v uint64) *Builder {
	for v >= 0x80 {
		b.WriteByte(byte(v) | 0x80)
		v >>= 7
	}
	b.WriteByte(byte(v))
	return b
}

// String writes s with a varint length prefix.
func (b *Builder) String(s string) *Builder {
	b.Varint(uint64(len(s)))
	b.WriteString(s)
	return b
}

func (b *Builder) Raw(p ...byte) *Builder {
	b.Write(p)
	return b
}

// RLE returns an rle image header followed by body.
func RLE(w, h uint32, alpha bool, body ...byte) []byte {
	var b Builder
	b.Uint32(w).Uint32(h)
	if alpha {
		b.Uint8(1)
	} else {
		b.Uint8(0)
	}
	b.Raw(body...)
	return b.Bytes()
}
