package views

import (
	"embed"
	"html/template"
	"net/url"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

const (
	// Index renders the stock table with optional filter, report and message sections.
	Index = "index"
	// Edit renders the take-stock form for one item.
	Edit = "edit"
)

// Load parses the embedded page templates.
func Load() (*template.Template, error) {
	return template.New("views").
		Funcs(template.FuncMap{"pathEscape": url.PathEscape}).
		ParseFS(templateFS, "templates/*.tmpl")
}
