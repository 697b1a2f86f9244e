// Package meta reads the binary atlas index (*.meta) that accompanies the
// game's packed sprite atlases.
//
// The index starts with three fields whose meaning is not known (a uint32
// that looks like a format version, a string and a uint32 bit mask). They are
// kept in Header so that the table following them stays aligned. The table
// is a uint16 count of data files; each data file is a path, a uint16 sprite
// count and that many sprite records. A sprite record is a path followed by
// eight uint16 values: the crop rectangle in the atlas, then the trim offset
// and untrimmed size.
//
// All integers are little-endian and all strings are varint length-prefixed.
package meta

import (
	"bufio"
	"image"
	"io"
	"os"
	"strings"

	"github.com/bradfitz/iter"
	"github.com/golang/glog"
	"github.com/pkg/errors"

	"badc0de.net/pkg/go-celeste/binio"
)

// Header holds the leading fields of an index. None of them are interpreted.
type Header struct {
	Version     uint32
	Description string
	Flags       uint32
}

// Sprite is a named rectangle within an atlas.
type Sprite struct {
	Path string

	X, Y, Width, Height uint16

	// Trim information relative to the sprite's original canvas. Recorded
	// but not used when cropping.
	OffsetX, OffsetY      uint16
	RealWidth, RealHeight uint16
}

// Rect returns the sprite's rectangle in atlas pixel space.
func (s Sprite) Rect() image.Rectangle {
	return image.Rect(int(s.X), int(s.Y), int(s.X)+int(s.Width), int(s.Y)+int(s.Height))
}

// Trimmed reports whether the sprite was trimmed when it was packed, i.e.
// whether its original canvas differs from the stored rectangle.
func (s Sprite) Trimmed() bool {
	return s.OffsetX != 0 || s.OffsetY != 0 || s.RealWidth != s.Width || s.RealHeight != s.Height
}

// DataFile is the sprite table of one atlas image.
type DataFile struct {
	Path    string
	Sprites []Sprite
}

// Metadata is a parsed index.
type Metadata struct {
	Header    Header
	DataFiles []DataFile
}

// DataFile returns the data file with the passed logical path.
func (m *Metadata) DataFile(path string) (*DataFile, bool) {
	path = normalizePath(path)
	for i := range m.DataFiles {
		if m.DataFiles[i].Path == path {
			return &m.DataFiles[i], true
		}
	}
	return nil, false
}

// Sprites returns the total number of sprites across all data files.
func (m *Metadata) Sprites() int {
	n := 0
	for _, df := range m.DataFiles {
		n += len(df.Sprites)
	}
	return n
}

func normalizePath(p string) string {
	return strings.ReplaceAll(p, `\`, "/")
}

func readHeader(r *binio.Reader) (Header, error) {
	var h Header
	var err error
	if h.Version, err = r.ReadUint32("header version"); err != nil {
		return h, err
	}
	if h.Description, err = r.ReadString("header description"); err != nil {
		return h, err
	}
	if h.Flags, err = r.ReadUint32("header flags"); err != nil {
		return h, err
	}
	return h, nil
}

func readSprite(r *binio.Reader) (Sprite, error) {
	var s Sprite
	path, err := r.ReadString("sprite path")
	if err != nil {
		return s, err
	}
	s.Path = normalizePath(path)

	fields := []struct {
		name string
		dst  *uint16
	}{
		{"x", &s.X},
		{"y", &s.Y},
		{"width", &s.Width},
		{"height", &s.Height},
		{"offset x", &s.OffsetX},
		{"offset y", &s.OffsetY},
		{"real width", &s.RealWidth},
		{"real height", &s.RealHeight},
	}
	for _, f := range fields {
		if *f.dst, err = r.ReadUint16(f.name); err != nil {
			return s, errors.Wrapf(err, "sprite %q", s.Path)
		}
	}
	return s, nil
}

func readDataFile(r *binio.Reader) (DataFile, error) {
	var df DataFile
	path, err := r.ReadString("data file path")
	if err != nil {
		return df, err
	}
	df.Path = normalizePath(path)

	n, err := r.ReadUint16("sprite count")
	if err != nil {
		return df, errors.Wrapf(err, "data file %q", df.Path)
	}
	glog.V(1).Infof("meta: data file %q: %d sprites", df.Path, n)

	df.Sprites = make([]Sprite, 0, n)
	for i := range iter.N(int(n)) {
		s, err := readSprite(r)
		if err != nil {
			return df, errors.Wrapf(err, "data file %q: sprite %d", df.Path, i)
		}
		glog.V(2).Infof("meta: %+v", s)
		df.Sprites = append(df.Sprites, s)
	}
	return df, nil
}

// Parse reads an index from r. Any short read fails the whole parse; there
// is no partial result.
func Parse(r io.Reader) (*Metadata, error) {
	br := binio.NewReader(r)

	h, err := readHeader(br)
	if err != nil {
		return nil, errors.Wrap(err, "meta: could not read header")
	}
	glog.V(2).Infof("meta: version %d, description %q, flags %032b", h.Version, h.Description, h.Flags)

	n, err := br.ReadUint16("data file count")
	if err != nil {
		return nil, errors.Wrap(err, "meta: could not read data file count")
	}

	m := &Metadata{
		Header:    h,
		DataFiles: make([]DataFile, 0, n),
	}
	for i := range iter.N(int(n)) {
		df, err := readDataFile(br)
		if err != nil {
			return nil, errors.Wrapf(err, "meta: data file %d", i)
		}
		m.DataFiles = append(m.DataFiles, df)
	}
	return m, nil
}

// ParseFile opens and parses the index at path.
func ParseFile(path string) (*Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "meta: opening index")
	}
	defer f.Close()

	return Parse(bufio.NewReader(f))
}
