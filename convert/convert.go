// Package convert drives the decoders over a game install: it converts
// every rle image in a directory tree to PNG and splits atlases into
// individual sprite files.
//
// A file or sprite that fails to decode is logged and skipped; it never stops
// the remaining work.
package convert

import (
	"bufio"
	"context"
	"image"
	"image/png"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"badc0de.net/pkg/go-celeste/paths"
	"badc0de.net/pkg/go-celeste/rle"
)

const (
	// DataExt is the extension of rle image files.
	DataExt = ".data"
	// PNGExt is the extension given to output files.
	PNGExt = ".png"
)

// Stats counts the outcome of a conversion.
type Stats struct {
	Converted int64
	Failed    int64
}

type counters struct {
	converted, failed atomic.Int64
}

func (c *counters) stats() Stats {
	return Stats{Converted: c.converted.Load(), Failed: c.failed.Load()}
}

// Converter converts rle images to PNG.
type Converter struct {
	Options rle.Options
	// Workers bounds the number of files decoded at once. Zero means
	// runtime.NumCPU().
	Workers int
}

func (c *Converter) workers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.NumCPU()
}

// DecodeFile decodes the rle image at src.
func (c *Converter) DecodeFile(src string) (*image.NRGBA, error) {
	f, err := os.Open(src)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return rle.Decode(bufio.NewReader(f), &c.Options)
}

// ConvertFile decodes the rle image at src and writes it as a PNG to dst,
// creating dst's parent directories.
func (c *Converter) ConvertFile(src, dst string) error {
	img, err := c.DecodeFile(src)
	if err != nil {
		return errors.Wrapf(err, "decoding %s", src)
	}
	return WritePNG(dst, img)
}

// WritePNG encodes img to path, creating its parent directories.
func WritePNG(path string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrap(err, "creating output directory")
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating output file")
	}
	w := bufio.NewWriter(f)
	if err := png.Encode(w, img); err != nil {
		f.Close()
		return errors.Wrapf(err, "encoding %s", path)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return errors.Wrapf(err, "writing %s", path)
	}
	return f.Close()
}

// walkError decides how a walk continues after p could not be read. Only an
// unreadable root ends the walk; anything below it is logged and skipped.
func walkError(root, p string, d fs.DirEntry, err error) error {
	if p == root {
		return err
	}
	glog.Errorf("skipping %s: %v", p, err)
	if d != nil && d.IsDir() {
		return filepath.SkipDir
	}
	return nil
}

// findFiles walks root and sends the path of every regular file with the
// passed extension, relative to root, on the returned channel.
func findFiles(ctx context.Context, g *errgroup.Group, root, ext string) <-chan string {
	out := make(chan string)
	g.Go(func() error {
		defer close(out)
		return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return walkError(root, p, d, err)
			}

			// Ignore hidden files and directories.
			if p != root && strings.HasPrefix(d.Name(), ".") {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			if !d.Type().IsRegular() || !strings.EqualFold(filepath.Ext(p), ext) {
				return nil
			}

			rel, err := filepath.Rel(root, p)
			if err != nil {
				return err
			}
			select {
			case out <- rel:
			case <-ctx.Done():
				return ctx.Err()
			}
			return nil
		})
	})
	return out
}

// ConvertTree converts every rle image below srcRoot into a PNG at the same
// relative path below dstRoot.
//
// The returned error is only set when the tree could not be walked or ctx
// was cancelled; failures of individual files are counted in Stats.
func (c *Converter) ConvertTree(ctx context.Context, srcRoot, dstRoot string) (Stats, error) {
	var n counters

	g, ctx := errgroup.WithContext(ctx)
	files := findFiles(ctx, g, srcRoot, DataExt)

	var work errgroup.Group
	work.SetLimit(c.workers())
	for rel := range files {
		work.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			dst, err := paths.OutputPath(dstRoot, filepath.ToSlash(rel), PNGExt)
			if err == nil {
				glog.Infof("Processing %s", filepath.Join(srcRoot, rel))
				err = c.ConvertFile(filepath.Join(srcRoot, rel), dst)
			}
			if err != nil {
				glog.Errorf("skipping %s: %v", rel, err)
				n.failed.Add(1)
				return nil
			}
			n.converted.Add(1)
			return nil
		})
	}
	work.Wait()

	if err := g.Wait(); err != nil {
		return n.stats(), errors.Wrapf(err, "walking %s", srcRoot)
	}
	return n.stats(), nil
}
