package main

import (
	"flag"
	"image"
	"path/filepath"

	"badc0de.net/pkg/go-celeste/convert"
	"badc0de.net/pkg/go-celeste/imageprint"
	"badc0de.net/pkg/go-celeste/rle"
)

var (
	col256   = flag.Bool("col256", false, "whether to use 256 col instead of 24 bit")
	col      = flag.Bool("col", true, "whether to use color at all")
	iterm    = flag.Bool("iterm", false, "whether to print with iterm escape code instead of 24 bit")
	rasterm  = flag.Bool("rasterm", false, "whether to print with kitty, iterm or sixel graphics, whichever the terminal supports")
	blanks   = flag.Bool("blanks", true, "whether to just use colored blanks instead of some bad ascii art")
	downsize = flag.Bool("downsize", true, "whether to shrink the preview to fit the terminal")
)

func printerMode() imageprint.Mode {
	switch {
	case *rasterm:
		return imageprint.ModeRasTerm
	case !*col:
		return imageprint.ModeNoColor
	case *iterm:
		return imageprint.ModeITerm
	case *col256:
		return imageprint.Mode256Color
	}
	return imageprint.Mode24bit
}

func fitTerminal(img image.Image) image.Image {
	termSize, err := GetTermSize()
	if err != nil {
		return img
	}
	if (termSize.WSXPixel != 0 && termSize.WSYPixel != 0) && (*rasterm || *iterm) {
		// Graphics protocols draw real pixels, so fit the pixel size.
		return imageprint.Thumbnail(termSize.WSXPixel/2, termSize.WSYPixel/2, img)
	}
	// Each pixel takes two columns.
	return imageprint.Thumbnail(termSize.WSCol/2, termSize.WSRow, img)
}

func printHandler(path string) error {
	c := convert.Converter{Options: rle.Options{Mode: rleMode}}
	img, err := c.DecodeFile(path)
	if err != nil {
		return err
	}

	var out image.Image = img
	if *downsize {
		out = fitTerminal(img)
	}
	return imageprint.NewPrinter(printerMode(), *blanks).Print(out, filepath.Base(path))
}
