// Package atlas cuts sprites out of a decoded atlas image using the
// rectangles from its index.
package atlas

import (
	"fmt"
	"image"
	"image/draw"
	"path"
	"strings"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"badc0de.net/pkg/go-celeste/meta"
)

// ErrOutOfBounds is returned when a sprite rectangle does not fit the atlas.
var ErrOutOfBounds = errors.New("atlas: sprite rectangle out of bounds")

// Extract copies the sprite's rectangle out of img into a new image whose
// origin is (0, 0). The rectangle is relative to img's top-left corner.
//
// Only X, Y, Width and Height are used; trim information is ignored.
func Extract(img image.Image, s meta.Sprite) (*image.NRGBA, error) {
	b := img.Bounds()
	r := s.Rect().Add(b.Min)
	if r.Max.X > b.Max.X || r.Max.Y > b.Max.Y {
		return nil, errors.Wrapf(ErrOutOfBounds, "sprite %q at %v in %dx%d atlas", s.Path, s.Rect(), b.Dx(), b.Dy())
	}

	dst := image.NewNRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	if src, ok := img.(*image.NRGBA); ok {
		n := r.Dx() * 4
		for y := 0; y < r.Dy(); y++ {
			i := src.PixOffset(r.Min.X, r.Min.Y+y)
			copy(dst.Pix[y*dst.Stride:y*dst.Stride+n], src.Pix[i:i+n])
		}
		return dst, nil
	}
	draw.Draw(dst, dst.Rect, img, r.Min, draw.Src)
	return dst, nil
}

// SpritePath returns the slash-separated output path of a sprite: the data
// file's path as a directory, then the sprite's path with its extension
// replaced by ext.
func SpritePath(dataFile, sprite, ext string) string {
	sprite = strings.TrimSuffix(sprite, path.Ext(sprite))
	return path.Join(dataFile, sprite+ext)
}

// SpriteFailure records why one sprite could not be split out.
type SpriteFailure struct {
	Sprite meta.Sprite
	Err    error
}

// SplitError lists the sprites that failed during Split.
type SplitError struct {
	DataFile string
	Failures []SpriteFailure
}

func (e *SplitError) Error() string {
	if len(e.Failures) == 1 {
		return fmt.Sprintf("atlas %q: sprite %q: %v", e.DataFile, e.Failures[0].Sprite.Path, e.Failures[0].Err)
	}
	return fmt.Sprintf("atlas %q: %d sprites failed, first %q: %v", e.DataFile, len(e.Failures), e.Failures[0].Sprite.Path, e.Failures[0].Err)
}

// Unwrap returns the errors of the individual failures.
func (e *SplitError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f.Err
	}
	return errs
}

// Split extracts every sprite of df from img in order and passes it to fn.
// A sprite that fails to extract, or for which fn returns an error, is
// logged and skipped. The returned error is a *SplitError if any failed.
func Split(img image.Image, df *meta.DataFile, fn func(meta.Sprite, *image.NRGBA) error) error {
	var failures []SpriteFailure
	for _, s := range df.Sprites {
		sub, err := Extract(img, s)
		if err == nil {
			err = fn(s, sub)
		}
		if err != nil {
			glog.Errorf("atlas %q: skipping sprite %q: %v", df.Path, s.Path, err)
			failures = append(failures, SpriteFailure{Sprite: s, Err: err})
		}
	}
	if len(failures) > 0 {
		return &SplitError{DataFile: df.Path, Failures: failures}
	}
	return nil
}
