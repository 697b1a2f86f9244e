// Package imageprint previews decoded images on a terminal.
//
// It is a debugging aid for checking that an asset decoded sensibly without
// leaving the shell; nothing it prints is meant to be parsed.
package imageprint

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	ic "image/color"
	"image/png"
	"io"
	"os"

	"github.com/gookit/color"
	"github.com/nfnt/resize"
)

// Mode selects how pixels are drawn.
type Mode int

const (
	// Mode24bit sets the background with 24-bit color escape sequences.
	Mode24bit Mode = iota
	// Mode256Color prints through gookit/color, which falls back to the
	// 256 color palette on terminals without true color.
	Mode256Color
	// ModeNoColor prints shades as ASCII art without escape sequences.
	ModeNoColor
	// ModeITerm sends the image inline using iTerm2's escape sequences.
	ModeITerm
	// ModeRasTerm picks kitty, iTerm or sixel graphics, whichever the
	// terminal supports.
	ModeRasTerm
)

// Printer draws images on a terminal.
type Printer struct {
	W    io.Writer
	Mode Mode
	// Blanks draws each pixel as two colored blanks instead of ASCII
	// shades. Ignored by the graphics modes.
	Blanks bool
}

// NewPrinter returns a printer writing to stdout.
func NewPrinter(mode Mode, blanks bool) *Printer {
	return &Printer{W: os.Stdout, Mode: mode, Blanks: blanks}
}

func (p *Printer) out() io.Writer {
	if p.W == nil {
		return os.Stdout
	}
	return p.W
}

// asciiShade picks a two character shade for the brightness of c.
func asciiShade(r, g, b uint32) string {
	switch a := ((r + g + b) / 3) >> 8; {
	case a < 32:
		return ".."
	case a < 64:
		return "--"
	case a < 128:
		return "=="
	default:
		return "##"
	}
}

func (p *Printer) pixel(w io.Writer, col ic.Color) {
	cR, cG, cB, cA := col.RGBA()
	if cA == 0 {
		if p.Mode == ModeNoColor {
			fmt.Fprint(w, "  ")
		} else {
			fmt.Fprint(w, "\x1b[0m  ")
		}
		return
	}

	text := "  "
	if !p.Blanks {
		text = asciiShade(cR, cG, cB)
	}
	switch p.Mode {
	case ModeNoColor:
		fmt.Fprint(w, text)
	case Mode256Color:
		fmt.Fprint(w, color.RGB(uint8(cR>>8), uint8(cG>>8), uint8(cB>>8), true).Sprint(text))
	default:
		fmt.Fprintf(w, "\x1b[48;2;%d;%d;%dm%s\x1b[0m", uint8(cR>>8), uint8(cG>>8), uint8(cB>>8), text)
	}
}

func (p *Printer) printText(i image.Image) {
	w := p.out()
	b := i.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			p.pixel(w, i.At(x, y))
		}
		if p.Mode != ModeNoColor {
			fmt.Fprint(w, "\x1b[0m")
		}
		fmt.Fprint(w, "\n")
	}
}

// printITerm draws an image using iTerm2's escape sequences.
//
// https://www.iterm2.com/documentation-images.html
func (p *Printer) printITerm(i image.Image, fn string) error {
	b := &bytes.Buffer{}
	bEnc := base64.NewEncoder(base64.StdEncoding, b)
	if err := png.Encode(bEnc, i); err != nil {
		return err
	}
	bEnc.Close()
	name := base64.StdEncoding.EncodeToString([]byte(fn))
	_, err := fmt.Fprintf(p.out(), "\n\033]1337;File=name=%s;inline=1;size=%d;width=%dpx;height=%dpx:%s\a\n", name, b.Len(), i.Bounds().Dx(), i.Bounds().Dy(), b.String())
	return err
}

// Print draws i. name is used by modes that transfer a file name.
func (p *Printer) Print(i image.Image, name string) error {
	switch p.Mode {
	case ModeITerm:
		return p.printITerm(i, name)
	case ModeRasTerm:
		return p.printRasTerm(i)
	}
	p.printText(i)
	return nil
}

// Thumbnail shrinks i to fit within maxW x maxH, keeping its aspect ratio.
// Images that already fit are returned unchanged.
func Thumbnail(maxW, maxH uint, i image.Image) image.Image {
	if maxW == 0 || maxH == 0 {
		return i
	}
	return resize.Thumbnail(maxW, maxH, i, resize.NearestNeighbor)
}
