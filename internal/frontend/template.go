package frontend

import (
	"embed"
	"html/template"
	"io"
	"net/url"

	"github.com/labstack/echo/v4"
)

//go:embed views/*.html
var templateFS embed.FS

//go:embed views/icon.svg
var assetsFS embed.FS

const viewsPattern = "views/*.html"

// Template adapts html/template to echo's Renderer
type Template struct {
	templates *template.Template
}

func newTemplate() *Template {
	funcs := template.FuncMap{
		"pathescape": url.PathEscape,
	}
	return &Template{
		templates: template.Must(template.New("").Funcs(funcs).ParseFS(templateFS, viewsPattern)),
	}
}

func (t *Template) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	return t.templates.ExecuteTemplate(w, name, data)
}
