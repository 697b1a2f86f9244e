package convert

import (
	"bufio"
	"context"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"badc0de.net/pkg/go-celeste/atlas"
	"badc0de.net/pkg/go-celeste/meta"
	"badc0de.net/pkg/go-celeste/paths"
	"badc0de.net/pkg/go-celeste/rle"
)

// LoadAtlas loads an atlas image. Files ending in DataExt are decoded as rle
// images with o; anything else goes through the registered image formats.
func LoadAtlas(path string, o *rle.Options) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening atlas")
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), DataExt) {
		img, err := rle.Decode(bufio.NewReader(f), o)
		if err != nil {
			return nil, errors.Wrapf(err, "decoding atlas %s", path)
		}
		return img, nil
	}

	img, format, err := image.Decode(bufio.NewReader(f))
	if err != nil {
		return nil, errors.Wrapf(err, "decoding atlas %s", path)
	}
	glog.V(1).Infof("loaded %s atlas %s: %v", format, path, img.Bounds())
	return img, nil
}

// SplitAtlas writes each sprite of df, cut out of img, to
// dstDir/<df.Path>/<sprite path>.png.
//
// Sprites that fail are logged, counted and skipped.
func SplitAtlas(ctx context.Context, img image.Image, df *meta.DataFile, dstDir string) (Stats, error) {
	var n counters
	err := atlas.Split(img, df, func(s meta.Sprite, sub *image.NRGBA) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		dst, err := paths.OutputPath(dstDir, atlas.SpritePath(df.Path, s.Path, PNGExt), PNGExt)
		if err != nil {
			return err
		}
		glog.Infof("Processing %s", dst)
		if err := WritePNG(dst, sub); err != nil {
			return err
		}
		n.converted.Add(1)
		return nil
	})

	var serr *atlas.SplitError
	if errors.As(err, &serr) {
		n.failed.Add(int64(len(serr.Failures)))
	}
	if err := ctx.Err(); err != nil {
		return n.stats(), err
	}
	return n.stats(), nil
}

// AtlasSource finds the image for a data file of the index at metaPath. A
// PNG already converted into outRoot is preferred; otherwise the rle file
// next to the index in srcRoot is used.
func AtlasSource(srcRoot, outRoot, metaRel string, df *meta.DataFile) (string, error) {
	dir := filepath.Dir(filepath.FromSlash(metaRel))
	for _, c := range []struct{ root, ext string }{
		{outRoot, PNGExt},
		{srcRoot, DataExt},
	} {
		if c.root == "" {
			continue
		}
		p, err := paths.OutputPath(filepath.Join(c.root, dir), df.Path, c.ext)
		if err != nil {
			return "", err
		}
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", errors.Errorf("no atlas image for %q next to %s", df.Path, metaRel)
}

// SplitIndex parses the index at srcRoot/metaRel and splits every one of
// its atlases into outRoot, next to where the atlas itself was converted.
//
// An atlas that cannot be found or decoded is logged and skipped.
func (c *Converter) SplitIndex(ctx context.Context, srcRoot, outRoot, metaRel string) (Stats, error) {
	m, err := meta.ParseFile(filepath.Join(srcRoot, filepath.FromSlash(metaRel)))
	if err != nil {
		return Stats{}, err
	}
	glog.Infof("%s: %d data files, %d sprites", metaRel, len(m.DataFiles), m.Sprites())

	var total Stats
	for i := range m.DataFiles {
		df := &m.DataFiles[i]
		src, err := AtlasSource(srcRoot, outRoot, metaRel, df)
		if err == nil {
			var img image.Image
			if img, err = LoadAtlas(src, &c.Options); err == nil {
				var s Stats
				s, err = SplitAtlas(ctx, img, df, filepath.Join(outRoot, filepath.Dir(filepath.FromSlash(metaRel))))
				total.Converted += s.Converted
				total.Failed += s.Failed
			}
		}
		if ctx.Err() != nil {
			return total, ctx.Err()
		}
		if err != nil {
			glog.Errorf("skipping atlas %q: %v", df.Path, err)
			total.Failed += int64(len(df.Sprites))
		}
	}
	return total, nil
}
