// Command celesterip converts the game's rle images to PNG and splits its
// sprite atlases into one PNG per sprite.
//
//	celesterip -content_dir ~/.steam/steam/steamapps/common/Celeste/Content -out_dir /tmp/celeste
//
// Use -print to preview a single rle image on the terminal instead.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"badc0de.net/pkg/flagutil/v1"
	"github.com/common-nighthawk/go-figure"
	"github.com/golang/glog"

	"badc0de.net/pkg/go-celeste/convert"
	"badc0de.net/pkg/go-celeste/manifest"
	"badc0de.net/pkg/go-celeste/meta"
	"badc0de.net/pkg/go-celeste/paths"
	"badc0de.net/pkg/go-celeste/rle"
)

var (
	outDir       = flag.String("out_dir", "", "directory to write PNGs to; mirrors the layout of -content_dir")
	metaPaths    = flag.String("meta", "Graphics/Atlases/Gameplay.meta", "comma separated atlas indexes to split, relative to -content_dir")
	workers      = flag.Int("workers", 0, "number of images decoded concurrently; 0 means one per CPU")
	skipConvert  = flag.Bool("skip_convert", false, "do not convert rle images; only split atlases")
	skipSplit    = flag.Bool("skip_split", false, "do not split atlases")
	manifestPath = flag.String("manifest", "", "if set, record parsed atlas indexes in this sqlite database")
	printPath    = flag.String("print", "", "preview this rle image on the terminal and exit")
	banner       = flag.Bool("banner", false, "print a banner before starting")

	rleMode    rle.Mode
	contentDir string
)

func init() {
	flag.Var(&rleMode, "rle_mode", "rle revision: 'unterminated' (runs end with the file) or 'terminated' (runs end with a 255 count, short images are padded)")
	paths.SetupFilePathFlag("Content", "content_dir", &contentDir)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func recordManifest(db *manifest.DB, rel string) {
	m, err := meta.ParseFile(filepath.Join(contentDir, filepath.FromSlash(rel)))
	if err != nil {
		glog.Errorf("manifest: skipping %s: %v", rel, err)
		return
	}
	if err := db.AddMetadata(rel, m); err != nil {
		glog.Errorf("manifest: recording %s: %v", rel, err)
	}
}

func run(ctx context.Context) error {
	c := &convert.Converter{
		Options: rle.Options{Mode: rleMode},
		Workers: *workers,
	}

	if !*skipConvert {
		stats, err := c.ConvertTree(ctx, contentDir, *outDir)
		if err != nil {
			return err
		}
		glog.Infof("converted %d images, %d failed", stats.Converted, stats.Failed)
	}

	var db *manifest.DB
	if *manifestPath != "" {
		var err error
		if db, err = manifest.Open(*manifestPath); err != nil {
			return err
		}
		defer db.Close()
	}

	for _, rel := range splitList(*metaPaths) {
		if db != nil {
			recordManifest(db, rel)
		}
		if *skipSplit {
			continue
		}
		stats, err := c.SplitIndex(ctx, contentDir, *outDir, rel)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			glog.Errorf("skipping index %s: %v", rel, err)
			continue
		}
		glog.Infof("%s: wrote %d sprites, %d failed", rel, stats.Converted, stats.Failed)
	}
	return nil
}

func main() {
	flagutil.Parse()
	flag.Set("logtostderr", "true")

	if *banner {
		figure.NewFigure("celesterip", "", true).Print()
		fmt.Println()
	}

	if *printPath != "" {
		if err := printHandler(*printPath); err != nil {
			glog.Exitf("error previewing %s: %v", *printPath, err)
		}
		return
	}

	if contentDir == "" || *outDir == "" {
		fmt.Fprintf(os.Stderr, "usage: %s -content_dir DIR -out_dir DIR\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx); err != nil {
		glog.Exitf("celesterip: %v", err)
	}
}
