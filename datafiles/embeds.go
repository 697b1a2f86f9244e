// Package datafiles embeds the static files served by the sprite browser.
package datafiles

import "embed"

// HTMLTemplates holds the html/template sources of the sprite browser.
//
//go:embed index.html datafile.html
var HTMLTemplates embed.FS
