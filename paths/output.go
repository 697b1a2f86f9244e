package paths

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// ReplaceExt returns p with its extension replaced by ext. A path without
// an extension gets ext appended.
func ReplaceExt(p, ext string) string {
	return strings.TrimSuffix(p, filepath.Ext(p)) + ext
}

// Join joins the slash-separated relative path rel under root. Paths that
// would escape root are rejected.
func Join(root, rel string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", errors.Errorf("paths: %q escapes %s", rel, root)
	}
	return filepath.Join(root, clean), nil
}

// OutputPath is Join with the extension of rel replaced by ext.
func OutputPath(root, rel, ext string) (string, error) {
	p, err := Join(root, rel)
	if err != nil {
		return "", err
	}
	return ReplaceExt(p, ext), nil
}
