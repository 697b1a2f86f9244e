package imageprint

import (
	"bytes"
	"image"
	"image/color"
	"strings"
	"testing"

	"badc0de.net/pkg/go-celeste/ttesting"
)

func checker() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.SetNRGBA(0, 0, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	img.SetNRGBA(1, 1, color.NRGBA{R: 10, G: 10, B: 10, A: 255})
	return img
}

func TestPrintNoColor(t *testing.T) {
	var b bytes.Buffer
	p := &Printer{W: &b, Mode: ModeNoColor}
	if err := p.Print(checker(), "checker.png"); err != nil {
		t.Fatalf("failed to print: %v", err)
	}
	ttesting.AssertEqualString(t, "ascii art", b.String(), "##  \n  ..\n")
}

func TestPrint24bit(t *testing.T) {
	var b bytes.Buffer
	p := &Printer{W: &b, Mode: Mode24bit, Blanks: true}
	if err := p.Print(checker(), "checker.png"); err != nil {
		t.Fatalf("failed to print: %v", err)
	}
	if !strings.Contains(b.String(), "\x1b[48;2;255;255;255m  \x1b[0m") {
		t.Errorf("missing white pixel escape in %q", b.String())
	}
	ttesting.AssertEqualInt(t, "lines", strings.Count(b.String(), "\n"), 2)
}

func TestPrintITerm(t *testing.T) {
	var b bytes.Buffer
	p := &Printer{W: &b, Mode: ModeITerm}
	if err := p.Print(checker(), "checker.png"); err != nil {
		t.Fatalf("failed to print: %v", err)
	}
	if !strings.Contains(b.String(), "\033]1337;File=name=") || !strings.Contains(b.String(), "width=2px;height=2px:") {
		t.Errorf("unexpected iterm output %q", b.String())
	}
}

func TestThumbnail(t *testing.T) {
	big := image.NewNRGBA(image.Rect(0, 0, 400, 100))
	small := Thumbnail(40, 40, big)
	ttesting.AssertEqualInt(t, "width", small.Bounds().Dx(), 40)
	ttesting.AssertEqualInt(t, "height", small.Bounds().Dy(), 10)

	if Thumbnail(0, 0, big) != image.Image(big) {
		t.Errorf("zero bounds should leave the image alone")
	}
	if Thumbnail(1000, 1000, big) != image.Image(big) {
		t.Errorf("an image that fits should be returned unchanged")
	}
}
