// Package rle implements a decoder for the run-length encoded bitmaps that
// the game ships as *.data files.
//
// A file starts with a 9 byte header: width and height as little-endian
// uint32, then a byte that is nonzero if the image carries an alpha channel.
// The rest of the file is a sequence of runs. Each run is a repeat count
// followed by a color. With an alpha channel the color is the alpha byte, and
// only if alpha is nonzero the blue, green and red bytes; without one it is
// always blue, green and red and alpha is implied to be opaque.
//
// Two revisions of the format exist and nothing in the file tells them apart,
// so the caller picks one with Options.Mode. See Mode for the differences.
package rle
