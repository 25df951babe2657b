// Package web bundles the HTML templates of the profile app.
package web

import (
	"embed"
	"io/fs"
	"net/http"

	"github.com/gofiber/template/html/v2"
)

//go:embed templates
var templates embed.FS

// NewViewEngine returns the fiber view engine over the embedded templates.
// Template names are paths below templates/ without the extension.
func NewViewEngine() *html.Engine {
	sub, err := fs.Sub(templates, "templates")
	if err != nil {
		panic(err)
	}
	return html.NewFileSystem(http.FS(sub), ".html")
}
