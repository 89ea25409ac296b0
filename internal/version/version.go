// Package version exposes the doorman release version.
package version

import (
	_ "embed" // for go:embed
	"strings"
)

// VERSION holds the server's version
//
//go:embed VERSION
var VERSION string

func init() {
	VERSION = strings.TrimSpace(VERSION)
}
