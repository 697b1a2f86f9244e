// Package binio reads the primitive values found in the game's binary asset
// files: little-endian fixed-width integers, base-128 variable-length
// integers and length-prefixed UTF-8 strings.
//
// All short reads are reported as ErrTruncated, wrapped with the name of the
// value that was being read, so that a caller can tell a malformed file from
// an I/O failure and skip the asset.
package binio
