// Package views embeds the HTML templates and builds the render engine.
package views

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/template/html/v2"
)

//go:embed layouts includes posts users about core
var FS embed.FS

// Layout wraps every full page.
const Layout = "layouts/base"

// NewEngine parses the embedded templates. reload re-reads them on every
// render, which is only useful when editing templates locally.
func NewEngine(reload bool) *html.Engine {
	engine := html.NewFileSystem(http.FS(FS), ".html")
	engine.Reload(reload)
	engine.AddFunc("dict", dict)
	engine.AddFunc("date", formatDate)
	engine.AddFunc("media", mediaURL)
	engine.AddFunc("linebreaks", linebreaks)
	return engine
}

// dict builds a map from alternating keys and values so a partial can take
// more than one argument.
func dict(pairs ...interface{}) (map[string]interface{}, error) {
	if len(pairs)%2 != 0 {
		return nil, fmt.Errorf("dict expects an even number of arguments, got %d", len(pairs))
	}
	m := make(map[string]interface{}, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict key %v is not a string", pairs[i])
		}
		m[key] = pairs[i+1]
	}
	return m, nil
}

func formatDate(t time.Time) string {
	return t.Format("02 January 2006")
}

func mediaURL(key string) string {
	return "/media/" + strings.TrimLeft(key, "/")
}

func linebreaks(text string) template.HTML {
	escaped := template.HTMLEscapeString(strings.ReplaceAll(text, "\r\n", "\n"))
	return template.HTML(strings.ReplaceAll(escaped, "\n", "<br>"))
}
