package web

import (
	"bytes"
	"compress/gzip"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorilla/mux"

	"badc0de.net/pkg/go-celeste/rle"
	"badc0de.net/pkg/go-celeste/ttesting"
)

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
}

// content lays out a small install: a 4x2 atlas (red left half, blue right
// half), a 1x1 green atlas in a subdirectory, their index, and a broken image.
func content(t *testing.T) string {
	dir := t.TempDir()

	var b ttesting.Builder
	b.Uint32(0).String("").Uint32(0).Uint16(2)
	b.String("Gameplay0").Uint16(3)
	b.String(`characters\left`).Uint16(0, 0, 2, 2, 0, 0, 2, 2)
	b.String(`characters\right`).Uint16(2, 0, 2, 2, 1, 1, 4, 4)
	b.String(`bad`).Uint16(3, 0, 2, 2, 0, 0, 2, 2)
	b.String(`Sub\Atlas0`).Uint16(1)
	b.String(`tiles\x y`).Uint16(0, 0, 1, 1, 0, 0, 1, 1)
	writeFile(t, filepath.Join(dir, "Graphics", "Atlases", "Gameplay.meta"), b.Bytes())

	writeFile(t, filepath.Join(dir, "Graphics", "Atlases", "Gameplay0.data"), ttesting.RLE(4, 2, false,
		2, 0, 0, 255, 2, 255, 0, 0,
		2, 0, 0, 255, 2, 255, 0, 0,
	))
	writeFile(t, filepath.Join(dir, "Graphics", "Atlases", "Sub", "Atlas0.data"), ttesting.RLE(1, 1, false, 1, 0, 255, 0))
	writeFile(t, filepath.Join(dir, "Graphics", "broken.data"), ttesting.RLE(9, 9, true, 1, 0))
	return dir
}

func server(t *testing.T) *httptest.Server {
	return serverIn(t, content(t), rle.Options{})
}

func serverIn(t *testing.T, dir string, o rle.Options) *httptest.Server {
	h, err := NewHandler(dir, []string{"Graphics/Atlases/Gameplay.meta"}, o)
	if err != nil {
		t.Fatalf("failed to create handler: %v", err)
	}
	r := mux.NewRouter()
	h.RegisterRoutes(r)
	s := httptest.NewServer(Wrap(r, nil))
	t.Cleanup(s.Close)
	return s
}

func get(t *testing.T, s *httptest.Server, path string, hdr ...string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest("GET", s.URL+path, nil)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	resp, err := s.Client().Do(req)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("GET %s: reading body: %v", path, err)
	}
	return resp, body
}

func decodePNG(t *testing.T, body []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(body))
	if err != nil {
		t.Fatalf("response is not a png: %v", err)
	}
	return img
}

func TestData(t *testing.T) {
	s := server(t)

	resp, body := get(t, s, "/data/Graphics/Atlases/Gameplay0.data")
	ttesting.AssertEqualInt(t, "status", resp.StatusCode, http.StatusOK)
	ttesting.AssertEqualString(t, "content type", resp.Header.Get("Content-Type"), "image/png")
	img := decodePNG(t, body)
	ttesting.AssertEqualInt(t, "width", img.Bounds().Dx(), 4)

	resp, _ = get(t, s, "/data/Graphics/broken.data")
	ttesting.AssertEqualInt(t, "broken", resp.StatusCode, http.StatusUnprocessableEntity)

	resp, _ = get(t, s, "/data/Graphics/missing.data")
	ttesting.AssertEqualInt(t, "missing", resp.StatusCode, http.StatusNotFound)
}

func TestDataETag(t *testing.T) {
	s := server(t)

	resp, _ := get(t, s, "/data/Graphics/Atlases/Gameplay0.data")
	tag := resp.Header.Get("ETag")
	if !strings.HasPrefix(tag, `W/"`) {
		t.Fatalf("got ETag %q; want a weak tag", tag)
	}
	resp, _ = get(t, s, "/data/Graphics/Atlases/Gameplay0.data", "If-None-Match", tag)
	ttesting.AssertEqualInt(t, "revalidated", resp.StatusCode, http.StatusNotModified)

	resp, _ = get(t, s, "/data/Graphics/Atlases/Gameplay0.data?format=gif", "If-None-Match", tag)
	ttesting.AssertEqualInt(t, "other format", resp.StatusCode, http.StatusOK)
}

func TestDataGIF(t *testing.T) {
	s := server(t)

	resp, body := get(t, s, "/data/Graphics/Atlases/Gameplay0.data?format=gif")
	ttesting.AssertEqualInt(t, "status", resp.StatusCode, http.StatusOK)
	ttesting.AssertEqualString(t, "content type", resp.Header.Get("Content-Type"), "image/gif")
	img, err := gif.Decode(bytes.NewReader(body))
	if err != nil {
		t.Fatalf("response is not a gif: %v", err)
	}
	r, _, b, a := img.At(0, 0).RGBA()
	if a != 0xffff || r < b {
		t.Errorf("top-left pixel should be opaque red, got %v", img.At(0, 0))
	}
}

func TestSprite(t *testing.T) {
	s := server(t)

	resp, body := get(t, s, "/atlas/0/0/characters/right.png")
	ttesting.AssertEqualInt(t, "status", resp.StatusCode, http.StatusOK)
	img := decodePNG(t, body)
	ttesting.AssertEqualInt(t, "width", img.Bounds().Dx(), 2)
	ttesting.AssertEqualInt(t, "height", img.Bounds().Dy(), 2)
	if got := color.NRGBAModel.Convert(img.At(1, 1)).(color.NRGBA); got != (color.NRGBA{B: 255, A: 255}) {
		t.Errorf("got %v; want blue", got)
	}

	for path, want := range map[string]int{
		"/atlas/0/0/bad":                     http.StatusUnprocessableEntity,
		"/atlas/0/0/characters/none":         http.StatusNotFound,
		"/atlas/0/9/characters/left":         http.StatusNotFound,
		"/atlas/7/0/characters/left":         http.StatusNotFound,
		"/atlas/0/Gameplay0/characters/left": http.StatusNotFound,
		"/atlas/0/0/characters/left":         http.StatusOK,
	} {
		resp, _ := get(t, s, path)
		ttesting.AssertEqualInt(t, path, resp.StatusCode, want)
	}
}

func TestPages(t *testing.T) {
	s := server(t)

	resp, body := get(t, s, "/")
	ttesting.AssertEqualInt(t, "index status", resp.StatusCode, http.StatusOK)
	for _, want := range []string{"Graphics/Atlases/Gameplay.meta", `href="/atlas/0/0/"`, `href="/atlas/0/1/"`, "/data/Graphics/broken.data"} {
		if !bytes.Contains(body, []byte(want)) {
			t.Errorf("index page is missing %q", want)
		}
	}

	resp, body = get(t, s, "/atlas/0/0/")
	ttesting.AssertEqualInt(t, "data file status", resp.StatusCode, http.StatusOK)
	if n := bytes.Count(body, []byte(`src="data:image/png;base64,`)); n != 2 {
		t.Errorf("got %d inline thumbnails; want 2", n)
	}
	if !bytes.Contains(body, []byte("1,1 of 4x4")) {
		t.Errorf("trim information missing from data file page")
	}
}

func TestNestedDataFile(t *testing.T) {
	s := server(t)

	resp, body := get(t, s, "/atlas/0/1/")
	ttesting.AssertEqualInt(t, "data file status", resp.StatusCode, http.StatusOK)
	if !bytes.Contains(body, []byte("<h1>Sub/Atlas0</h1>")) {
		t.Errorf("data file page does not name Sub/Atlas0")
	}
	const href = "/atlas/0/1/tiles/x%20y.png"
	if !bytes.Contains(body, []byte(`href="`+href+`"`)) {
		t.Fatalf("data file page has no link to %s", href)
	}

	resp, body = get(t, s, href)
	ttesting.AssertEqualInt(t, "sprite status", resp.StatusCode, http.StatusOK)
	img := decodePNG(t, body)
	if got := color.NRGBAModel.Convert(img.At(0, 0)).(color.NRGBA); got != (color.NRGBA{G: 255, A: 255}) {
		t.Errorf("got %v; want green", got)
	}
}

func TestSpriteHref(t *testing.T) {
	ttesting.AssertEqualString(t, "nested", spriteHref(2, 3, "a b/c#d"), "/atlas/2/3/a%20b/c%23d.png")
	ttesting.AssertEqualString(t, "flat", spriteHref(0, 0, "x"), "/atlas/0/0/x.png")
}

func TestSpriteETag(t *testing.T) {
	dir := content(t)
	s := serverIn(t, dir, rle.Options{})
	const path = "/atlas/0/0/characters/left.png"

	resp, _ := get(t, s, path)
	tag := resp.Header.Get("ETag")
	ttesting.AssertEqualString(t, "cache control", resp.Header.Get("Cache-Control"), "public, max-age=36000")
	resp, _ = get(t, s, path, "If-None-Match", tag)
	ttesting.AssertEqualInt(t, "revalidated", resp.StatusCode, http.StatusNotModified)

	other := serverIn(t, dir, rle.Options{Mode: rle.ModeTerminated})
	resp, _ = get(t, other, path, "If-None-Match", tag)
	ttesting.AssertEqualInt(t, "other mode", resp.StatusCode, http.StatusOK)
}

func TestIndexWithoutContent(t *testing.T) {
	s := serverIn(t, filepath.Join(t.TempDir(), "missing"), rle.Options{})

	resp, body := get(t, s, "/")
	ttesting.AssertEqualInt(t, "status", resp.StatusCode, http.StatusOK)
	if !bytes.Contains(body, []byte("failed to parse")) {
		t.Errorf("index page does not report the unreadable index")
	}
	if bytes.Contains(body, []byte("/data/")) {
		t.Errorf("index page lists images from a missing directory")
	}
}

func TestGzip(t *testing.T) {
	s := server(t)

	req, err := http.NewRequest("GET", s.URL+"/", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Accept-Encoding", "gzip")
	tr := &http.Transport{DisableCompression: true}
	resp, err := (&http.Client{Transport: tr}).Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	ttesting.AssertEqualString(t, "encoding", resp.Header.Get("Content-Encoding"), "gzip")
	zr, err := gzip.NewReader(resp.Body)
	if err != nil {
		t.Fatalf("body is not gzip: %v", err)
	}
	body, _ := io.ReadAll(zr)
	if !bytes.Contains(body, []byte("Atlas indexes")) {
		t.Errorf("unexpected body %q", body)
	}
}
