// Package render provides the fiber.Views engine for the HTML pages.
//
// The templates are embedded into the binary; a directory configured with
// Conf.Dir replaces them, which allows to restyle the pages without a
// rebuild. Pages are rendered into the "layout" template through its
// {{embed}} action.
package render

import (
	"embed"
	"io/fs"
	"net/http"

	"github.com/gofiber/template/html/v2"
	"github.com/pkg/errors"
	"github.com/zachmann/go-utils/fileutils"
)

// Template names
const (
	Layout   = "layout"
	Login    = "login"
	Register = "register"
	Success  = "success"
	Error    = "error"
)

const extension = ".html"

//go:embed templates/*.html
var embedded embed.FS

// Conf configures where templates are loaded from
type Conf struct {
	// Dir overrides the embedded templates with the *.html files in this
	// directory
	Dir string `yaml:"dir"`
	// Reload re-parses the templates on every render
	Reload bool `yaml:"reload"`
}

// New creates the views engine and parses all templates, so broken
// templates are reported at startup.
func New(conf Conf) (*html.Engine, error) {
	var engine *html.Engine
	if conf.Dir != "" {
		if !fileutils.FileExists(conf.Dir) {
			return nil, errors.Errorf("templates directory '%s' does not exist", conf.Dir)
		}
		engine = html.New(conf.Dir, extension)
	} else {
		sub, err := fs.Sub(embedded, "templates")
		if err != nil {
			return nil, errors.WithStack(err)
		}
		engine = html.NewFileSystem(http.FS(sub), extension)
	}
	engine.Reload(conf.Reload)
	if err := engine.Load(); err != nil {
		return nil, errors.Wrap(err, "could not load templates")
	}
	return engine, nil
}
