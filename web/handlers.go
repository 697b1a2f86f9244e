// Package web serves decoded assets and atlas sprites over HTTP.
//
// Every request reads and decodes its files afresh; nothing is cached
// between requests other than by the client through ETags.
package web

import (
	"bytes"
	"fmt"
	"html/template"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"image/png"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/ericpauley/go-quantize/quantize"
	"github.com/golang/glog"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/klauspost/compress/gzhttp"
	"github.com/pkg/errors"
	"github.com/vincent-petithory/dataurl"
	"golang.org/x/net/trace"

	"badc0de.net/pkg/go-celeste/atlas"
	"badc0de.net/pkg/go-celeste/convert"
	"badc0de.net/pkg/go-celeste/datafiles"
	"badc0de.net/pkg/go-celeste/imageprint"
	"badc0de.net/pkg/go-celeste/meta"
	"badc0de.net/pkg/go-celeste/paths"
	"badc0de.net/pkg/go-celeste/rle"
)

const (
	generation = 1 // bump if the way we generate images changes
	thumbSize  = 48
)

// Handler serves the assets below a content directory.
type Handler struct {
	contentDir string
	indexes    []string
	options    rle.Options

	tmpl *template.Template
}

// NewHandler constructs a handler for contentDir. indexes are the atlas
// indexes, relative to contentDir, whose sprites are browsable.
func NewHandler(contentDir string, indexes []string, o rle.Options) (*Handler, error) {
	tmpl, err := template.ParseFS(datafiles.HTMLTemplates, "*.html")
	if err != nil {
		return nil, errors.Wrap(err, "parsing templates")
	}
	return &Handler{
		contentDir: contentDir,
		indexes:    indexes,
		options:    o,
		tmpl:       tmpl,
	}, nil
}

// etag derives a weak ETag from the request-specific key and the state of
// the files an answer was generated from.
func etag(key string, files ...string) string {
	h := xxhash.New()
	fmt.Fprintf(h, "%d:%s", generation, key)
	for _, f := range files {
		if s, err := os.Stat(f); err == nil {
			fmt.Fprintf(h, ":%s:%d:%d", f, s.Size(), s.ModTime().UnixNano())
		}
	}
	return fmt.Sprintf(`W/"%016x"`, h.Sum64())
}

// notModified sets caching headers and reports whether the client's copy is
// current, in which case the response has already been written.
func notModified(w http.ResponseWriter, r *http.Request, tag string, files ...string) bool {
	w.Header().Set("Cache-Control", "public, max-age=36000") // 36000 = 10h
	w.Header().Set("ETag", tag)
	for _, f := range files {
		if s, err := os.Stat(f); err == nil {
			w.Header().Set("Last-Modified", s.ModTime().UTC().Format(http.TimeFormat))
		}
	}
	if r.Header.Get("If-None-Match") == tag {
		w.WriteHeader(http.StatusNotModified)
		return true
	}
	return false
}

// writeGIF quantizes img to a palette with a leading transparent entry.
func writeGIF(w io.Writer, img image.Image) error {
	q := quantize.MedianCutQuantizer{}
	pal := q.Quantize(make(color.Palette, 0, 255), img) // 255 colors plus transparency
	pm := image.NewPaletted(img.Bounds(), append(color.Palette{color.Transparent}, pal...))
	draw.Draw(pm, img.Bounds(), img, img.Bounds().Min, draw.Over)
	return gif.Encode(w, pm, nil)
}

func writeImage(w http.ResponseWriter, r *http.Request, img image.Image) {
	var b bytes.Buffer
	mime := "image/png"
	var err error
	if r.URL.Query().Get("format") == "gif" {
		mime = "image/gif"
		err = writeGIF(&b, img)
	} else {
		err = png.Encode(&b, img)
	}
	if err != nil {
		http.Error(w, "failed to encode image", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", mime)
	w.Header().Set("Content-Length", strconv.Itoa(b.Len()))
	w.WriteHeader(http.StatusOK)
	w.Write(b.Bytes())
}

func (h *Handler) dataHandler(w http.ResponseWriter, r *http.Request) {
	tr := trace.New("celesteweb.data", r.URL.Path)
	defer tr.Finish()

	rel := mux.Vars(r)["path"]
	file, err := paths.Join(h.contentDir, rel)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if notModified(w, r, etag("data:"+rel+":"+r.URL.Query().Get("format")+":"+h.options.Mode.String(), file), file) {
		tr.LazyPrintf("not modified")
		return
	}

	c := convert.Converter{Options: h.options}
	img, err := c.DecodeFile(file)
	if err != nil {
		tr.LazyPrintf("decode failed: %v", err)
		tr.SetError()
		if errors.Is(err, fs.ErrNotExist) {
			http.Error(w, "no such file", http.StatusNotFound)
			return
		}
		glog.Errorf("error decoding %s: %v", file, err)
		http.Error(w, "failed to decode image", http.StatusUnprocessableEntity)
		return
	}
	tr.LazyPrintf("decoded %v", img.Bounds())
	writeImage(w, r, img)
}

// loadIndex parses the i-th configured index.
func (h *Handler) loadIndex(i int) (string, *meta.Metadata, error) {
	if i < 0 || i >= len(h.indexes) {
		return "", nil, fs.ErrNotExist
	}
	file, err := paths.Join(h.contentDir, h.indexes[i])
	if err != nil {
		return "", nil, err
	}
	m, err := meta.ParseFile(file)
	return file, m, err
}

// loadDataFile parses the index named in the request and picks its data file
// by position, writing an error response if either fails.
func (h *Handler) loadDataFile(w http.ResponseWriter, r *http.Request) (idx, dfIdx int, file string, df *meta.DataFile, ok bool) {
	vars := mux.Vars(r)
	idx, err := strconv.Atoi(vars["index"])
	if err != nil {
		http.Error(w, "index not a number", http.StatusBadRequest)
		return 0, 0, "", nil, false
	}
	file, m, err := h.loadIndex(idx)
	if errors.Is(err, fs.ErrNotExist) {
		http.Error(w, "no such index", http.StatusNotFound)
		return 0, 0, "", nil, false
	}
	if err != nil {
		glog.Errorf("error parsing index %s: %v", file, err)
		http.Error(w, "failed to parse index", http.StatusUnprocessableEntity)
		return 0, 0, "", nil, false
	}
	dfIdx, err = strconv.Atoi(vars["datafile"])
	if err != nil || dfIdx < 0 || dfIdx >= len(m.DataFiles) {
		http.Error(w, "no such data file", http.StatusNotFound)
		return 0, 0, "", nil, false
	}
	return idx, dfIdx, file, &m.DataFiles[dfIdx], true
}

func (h *Handler) atlasSource(idx int, df *meta.DataFile) (string, error) {
	return convert.AtlasSource(h.contentDir, "", h.indexes[idx], df)
}

func (h *Handler) loadAtlas(idx int, df *meta.DataFile) (image.Image, error) {
	src, err := h.atlasSource(idx, df)
	if err != nil {
		return nil, err
	}
	return convert.LoadAtlas(src, &h.options)
}

// spriteHref is the address of a sprite of the dfIdx-th data file of the
// idx-th index.
func spriteHref(idx, dfIdx int, sprite string) string {
	segs := strings.Split(sprite, "/")
	for i := range segs {
		segs[i] = url.PathEscape(segs[i])
	}
	return fmt.Sprintf("/atlas/%d/%d/%s.png", idx, dfIdx, strings.Join(segs, "/"))
}

func (h *Handler) spriteHandler(w http.ResponseWriter, r *http.Request) {
	tr := trace.New("celesteweb.sprite", r.URL.Path)
	defer tr.Finish()

	idx, dfIdx, metaFile, df, ok := h.loadDataFile(w, r)
	if !ok {
		tr.SetError()
		return
	}

	name := strings.TrimSuffix(mux.Vars(r)["sprite"], ".png")
	var sprite *meta.Sprite
	for i := range df.Sprites {
		if df.Sprites[i].Path == name {
			sprite = &df.Sprites[i]
			break
		}
	}
	if sprite == nil {
		http.Error(w, "no such sprite", http.StatusNotFound)
		return
	}

	src, err := h.atlasSource(idx, df)
	if err != nil {
		tr.LazyPrintf("no atlas: %v", err)
		tr.SetError()
		glog.Errorf("error finding atlas %q: %v", df.Path, err)
		http.Error(w, "failed to load atlas", http.StatusUnprocessableEntity)
		return
	}
	key := fmt.Sprintf("sprite:%d:%d:%s:%s:%s", idx, dfIdx, name, r.URL.Query().Get("format"), h.options.Mode)
	if notModified(w, r, etag(key, metaFile, src), metaFile, src) {
		tr.LazyPrintf("not modified")
		return
	}

	img, err := convert.LoadAtlas(src, &h.options)
	if err != nil {
		tr.LazyPrintf("atlas failed: %v", err)
		tr.SetError()
		glog.Errorf("error loading atlas %q: %v", df.Path, err)
		http.Error(w, "failed to load atlas", http.StatusUnprocessableEntity)
		return
	}

	sub, err := atlas.Extract(img, *sprite)
	if err != nil {
		tr.LazyPrintf("extract failed: %v", err)
		tr.SetError()
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	writeImage(w, r, sub)
}

type spriteRow struct {
	Sprite meta.Sprite
	Href   string
	Thumb  template.URL
}

func (h *Handler) dataFileHandler(w http.ResponseWriter, r *http.Request) {
	tr := trace.New("celesteweb.datafile", r.URL.Path)
	defer tr.Finish()

	idx, dfIdx, _, df, ok := h.loadDataFile(w, r)
	if !ok {
		tr.SetError()
		return
	}

	// Thumbnails are best effort; the table is useful without them.
	img, err := h.loadAtlas(idx, df)
	if err != nil {
		glog.Warningf("no thumbnails for %q: %v", df.Path, err)
	}

	rows := make([]spriteRow, 0, len(df.Sprites))
	for _, s := range df.Sprites {
		row := spriteRow{
			Sprite: s,
			Href:   spriteHref(idx, dfIdx, s.Path),
		}
		if img != nil {
			if sub, err := atlas.Extract(img, s); err == nil {
				var b bytes.Buffer
				if err := png.Encode(&b, imageprint.Thumbnail(thumbSize, thumbSize, sub)); err == nil {
					row.Thumb = template.URL(dataurl.New(b.Bytes(), "image/png").String())
				}
			}
		}
		rows = append(rows, row)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.tmpl.ExecuteTemplate(w, "datafile.html", struct {
		DataFile *meta.DataFile
		Sprites  []spriteRow
	}{df, rows}); err != nil {
		glog.Errorf("error rendering data file page: %v", err)
	}
}

type indexRow struct {
	Path      string
	DataFiles []meta.DataFile
	Err       error
}

func (h *Handler) indexHandler(w http.ResponseWriter, r *http.Request) {
	var indexes []indexRow
	for i, rel := range h.indexes {
		row := indexRow{Path: rel}
		if _, m, err := h.loadIndex(i); err != nil {
			row.Err = err
		} else {
			row.DataFiles = m.DataFiles
		}
		indexes = append(indexes, row)
	}

	var images []string
	err := filepath.WalkDir(h.contentDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.EqualFold(filepath.Ext(p), convert.DataExt) {
			return nil
		}
		if rel, err := filepath.Rel(h.contentDir, p); err == nil {
			images = append(images, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		glog.Warningf("listing images in %s: %v", h.contentDir, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.tmpl.ExecuteTemplate(w, "index.html", struct {
		Indexes []indexRow
		Images  []string
	}{indexes, images}); err != nil {
		glog.Errorf("error rendering index page: %v", err)
	}
}

// RegisterRoutes adds the handler's routes to r.
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/", h.indexHandler)
	r.HandleFunc("/data/{path:.+\\.data}", h.dataHandler)
	r.HandleFunc("/atlas/{index:[0-9]+}/{datafile:[0-9]+}/", h.dataFileHandler)
	r.HandleFunc("/atlas/{index:[0-9]+}/{datafile:[0-9]+}/{sprite:.+}", h.spriteHandler)
}

// Wrap adds gzip compression and, if logw is not nil, access logging in
// combined log format.
func Wrap(next http.Handler, logw io.Writer) http.Handler {
	gz, err := gzhttp.NewWrapper(gzhttp.MinSize(0))
	if err != nil {
		// Only reachable with invalid options.
		panic(err)
	}
	next = gz(next)
	if logw != nil {
		next = handlers.CombinedLoggingHandler(logw, next)
	}
	return next
}
