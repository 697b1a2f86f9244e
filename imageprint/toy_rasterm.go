package imageprint

import (
	"fmt"
	"image"

	"github.com/BourgeoisBear/rasterm"
	"github.com/andybons/gogif"
	"github.com/pkg/errors"
)

// printRasTerm draws an image using the RasTerm library.
//
// This should enable drawing in kitty, iTerm2, WezTerm and sixel terminals.
func (p *Printer) printRasTerm(i image.Image) error {
	w := p.out()
	if rasterm.IsTermKitty() {
		if err := (rasterm.Settings{}).KittyWriteImage(w, i); err != nil {
			return err
		}
		fmt.Fprint(w, "\n")
		return nil
	}
	if rasterm.IsTermItermWez() {
		if err := (rasterm.Settings{}).ItermWriteImage(w, i); err != nil {
			return err
		}
		fmt.Fprint(w, "\n")
		return nil
	}
	if capable, err := rasterm.IsSixelCapable(); capable && err == nil {
		palettedImage := image.NewPaletted(i.Bounds(), nil)
		quantizer := gogif.MedianCutQuantizer{NumColor: 64}
		quantizer.Quantize(palettedImage, i.Bounds(), i, i.Bounds().Min)

		if err := (rasterm.Settings{}).SixelWriteImage(w, palettedImage); err != nil {
			return err
		}
		fmt.Fprint(w, "\n")
		return nil
	}
	return errors.New("imageprint: terminal supports no known graphics protocol")
}
