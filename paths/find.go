// Package paths locates the game's content directory and maps asset paths
// to output paths.
package paths

import (
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/golang/glog"
	"github.com/pkg/errors"
)

// EnvContentDir names an environment variable that, when set, is tried
// before the default install locations.
const EnvContentDir = "CELESTE_DIR"

// possibleDirs lists directories that may contain the game's Content
// directory, most specific first.
func possibleDirs() []string {
	var dirs []string
	if d := os.Getenv(EnvContentDir); d != "" {
		dirs = append(dirs, d)
	}
	if wd, err := os.Getwd(); err == nil {
		dirs = append(dirs, wd)
	}
	home, _ := os.UserHomeDir()
	switch runtime.GOOS {
	case "windows":
		dirs = append(dirs,
			`C:\Program Files (x86)\Steam\steamapps\common\Celeste`,
			`C:\Program Files\Steam\steamapps\common\Celeste`,
		)
	case "darwin":
		if home != "" {
			dirs = append(dirs, filepath.Join(home, "Library/Application Support/Steam/steamapps/common/Celeste/Celeste.app/Contents/Resources"))
		}
	default:
		if home != "" {
			dirs = append(dirs,
				filepath.Join(home, ".steam/steam/steamapps/common/Celeste"),
				filepath.Join(home, ".local/share/Steam/steamapps/common/Celeste"),
			)
		}
	}
	return dirs
}

// Find returns the first candidate directory in which rel exists, joined
// with rel, or an empty string.
//
// For example, for "Content" it may return
// "/home/user/.steam/steam/steamapps/common/Celeste/Content".
func Find(rel string) string {
	for _, dir := range possibleDirs() {
		p := filepath.Join(dir, filepath.FromSlash(rel))
		if _, err := os.Stat(p); err == nil {
			glog.V(1).Infof("paths.Find(%q)=%s", rel, p)
			return p
		}
	}
	return ""
}

// Open locates rel the same way Find does, and opens it.
func Open(rel string) (interface {
	io.ReadCloser
	io.Seeker
}, error) {
	p := Find(rel)
	if p == "" {
		return nil, errors.Errorf("paths.Open(%q): not found in any of %q", rel, possibleDirs())
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, errors.Wrapf(err, "paths.Open(%q)", rel)
	}
	return f, nil
}
