package templates

import (
	"embed"
	"fmt"
	"html/template"
	"strings"
)

//go:embed *.html
var files embed.FS

var funcs = template.FuncMap{
	"usd": func(v float64) string { return fmt.Sprintf("$%.4f", v) },
	"usdptr": func(v *float64) string {
		if v == nil {
			return "unlimited"
		}
		return fmt.Sprintf("$%.4f", *v)
	},
	"join": strings.Join,
}

// Load parses every page. Templates are addressed by file name.
func Load() (*template.Template, error) {
	return template.New("").Funcs(funcs).ParseFS(files, "*.html")
}
