package rle

import (
	"image"
	"image/color"
	"io"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"badc0de.net/pkg/go-celeste/binio"
)

var (
	// ErrInsufficientPixelData is returned when the runs produce fewer
	// pixels than the header declares.
	ErrInsufficientPixelData = errors.New("rle: image does not contain enough pixels")
	// ErrExcessPixelData is returned when the runs produce more pixels than
	// the header declares.
	ErrExcessPixelData = errors.New("rle: image contains too many pixels")
	// ErrTooLarge is returned for headers declaring more than MaxPixels.
	ErrTooLarge = errors.New("rle: image dimensions too large")
)

// MaxPixels bounds width*height before anything is allocated.
const MaxPixels = 1 << 28

const (
	bytesPerPixel = 4
	maxPrealloc   = 16 << 20
)

// Header is the fixed-size preamble of an rle image.
type Header struct {
	Width, Height uint32
	HasAlpha      bool
}

// Pixels returns width*height.
func (h Header) Pixels() uint64 {
	return uint64(h.Width) * uint64(h.Height)
}

// Options configures decoding. A nil *Options is ModeUnterminated.
type Options struct {
	Mode Mode
}

func (o *Options) mode() Mode {
	if o == nil {
		return ModeUnterminated
	}
	return o.Mode
}

type decoder struct {
	r    *binio.Reader
	mode Mode
	h    Header

	pix []byte
}

func (d *decoder) readHeader() error {
	var err error
	if d.h.Width, err = d.r.ReadUint32("width"); err != nil {
		return err
	}
	if d.h.Height, err = d.r.ReadUint32("height"); err != nil {
		return err
	}
	if d.h.HasAlpha, err = d.r.ReadBool("alpha flag"); err != nil {
		return err
	}
	if d.h.Pixels() > MaxPixels {
		return errors.Wrapf(ErrTooLarge, "%dx%d", d.h.Width, d.h.Height)
	}
	return nil
}

// readRun reads one run record. done is set when the run list has ended and
// nothing was consumed for the record.
func (d *decoder) readRun() (n uint8, c color.NRGBA, done bool, err error) {
	n, err = d.r.ReadByte()
	if err == io.EOF {
		return 0, c, true, nil
	}
	if err != nil {
		return 0, c, false, errors.Wrap(err, "reading run length")
	}
	if d.mode == ModeTerminated && n == Terminator {
		return 0, c, true, nil
	}

	c.A = 0xff
	if d.h.HasAlpha {
		if c.A, err = d.r.ReadUint8("alpha"); err != nil {
			return 0, c, false, err
		}
		if c.A == 0 {
			return n, color.NRGBA{}, false, nil
		}
	}
	if c.B, err = d.r.ReadUint8("blue"); err != nil {
		return 0, c, false, err
	}
	if c.G, err = d.r.ReadUint8("green"); err != nil {
		return 0, c, false, err
	}
	if c.R, err = d.r.ReadUint8("red"); err != nil {
		return 0, c, false, err
	}
	return n, c, false, nil
}

func (d *decoder) decode() error {
	if err := d.readHeader(); err != nil {
		return err
	}
	want := int(d.h.Pixels()) * bytesPerPixel
	d.pix = make([]byte, 0, min(want, maxPrealloc))

	runs := 0
	for {
		n, c, done, err := d.readRun()
		if err != nil {
			return errors.Wrapf(err, "run %d", runs)
		}
		if done {
			break
		}
		for i := 0; i < int(n); i++ {
			d.pix = append(d.pix, c.R, c.G, c.B, c.A)
		}
		runs++
	}
	glog.V(2).Infof("rle: %dx%d alpha=%v: %d runs, %d of %d bytes", d.h.Width, d.h.Height, d.h.HasAlpha, runs, len(d.pix), want)

	switch {
	case len(d.pix) > want:
		return errors.Wrapf(ErrExcessPixelData, "got %d bytes, want %d", len(d.pix), want)
	case len(d.pix) < want && d.mode == ModeTerminated:
		d.pix = append(d.pix, make([]byte, want-len(d.pix))...)
	case len(d.pix) < want:
		return errors.Wrapf(ErrInsufficientPixelData, "got %d bytes, want %d", len(d.pix), want)
	}
	return nil
}

// DecodeHeader reads only the header from r.
func DecodeHeader(r io.Reader) (Header, error) {
	d := decoder{r: binio.NewReader(r)}
	if err := d.readHeader(); err != nil {
		return Header{}, err
	}
	return d.h, nil
}

// DecodeConfig returns the color model and dimensions of an rle image
// without decoding the runs.
func DecodeConfig(r io.Reader) (image.Config, error) {
	h, err := DecodeHeader(r)
	if err != nil {
		return image.Config{}, err
	}
	return image.Config{
		ColorModel: color.NRGBAModel,
		Width:      int(h.Width),
		Height:     int(h.Height),
	}, nil
}

// Decode reads an rle image from r.
//
// The returned image has its origin at (0, 0) and exactly width*height
// pixels; on error no image is returned.
func Decode(r io.Reader, o *Options) (*image.NRGBA, error) {
	if m := o.mode(); !m.valid() {
		return nil, errors.Wrapf(ErrUnknownMode, "%v", m)
	}
	d := decoder{
		r:    binio.NewReader(r),
		mode: o.mode(),
	}
	if err := d.decode(); err != nil {
		return nil, err
	}
	return &image.NRGBA{
		Pix:    d.pix,
		Stride: int(d.h.Width) * bytesPerPixel,
		Rect:   image.Rect(0, 0, int(d.h.Width), int(d.h.Height)),
	}, nil
}
