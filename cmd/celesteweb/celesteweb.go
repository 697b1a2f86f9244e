// Command celesteweb serves the game's images and atlas sprites over HTTP.
package main

import (
	"flag"
	"io"
	"net/http"
	"os"
	"strings"

	"badc0de.net/pkg/flagutil/v1"
	"github.com/golang/glog"
	"github.com/gorilla/mux"
	_ "golang.org/x/net/trace"

	"badc0de.net/pkg/go-celeste/paths"
	"badc0de.net/pkg/go-celeste/rle"
	"badc0de.net/pkg/go-celeste/web"
)

var (
	listenAddress = flag.String("listen_address", ":8080", "http listen address for celesteweb")
	metaPaths     = flag.String("meta", "Graphics/Atlases/Gameplay.meta", "comma separated atlas indexes to browse, relative to -content_dir")
	accessLog     = flag.Bool("access_log", true, "whether to write an access log to stderr")

	rleMode    rle.Mode
	contentDir string
)

func init() {
	flag.Var(&rleMode, "rle_mode", "rle revision: 'unterminated' or 'terminated'")
	paths.SetupFilePathFlag("Content", "content_dir", &contentDir)
}

func main() {
	flagutil.Parse()
	flag.Set("logtostderr", "true")

	if contentDir == "" {
		glog.Exitf("-content_dir not set and the game's Content directory was not found")
	}

	var indexes []string
	for _, p := range strings.Split(*metaPaths, ",") {
		if p = strings.TrimSpace(p); p != "" {
			indexes = append(indexes, p)
		}
	}

	h, err := web.NewHandler(contentDir, indexes, rle.Options{Mode: rleMode})
	if err != nil {
		glog.Exitf("celesteweb: %v", err)
	}

	r := mux.NewRouter()
	h.RegisterRoutes(r)
	// x/net/trace registers /debug/requests and /debug/events here.
	r.PathPrefix("/debug/").Handler(http.DefaultServeMux)

	var logw io.Writer
	if *accessLog {
		logw = os.Stderr
	}

	glog.Infof("celesteweb serving %s on %s", contentDir, *listenAddress)
	glog.Fatal(http.ListenAndServe(*listenAddress, web.Wrap(r, logw)))
}
