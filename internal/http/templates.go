package http

import (
	"embed"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

// pageTemplates holds every page plus the shared header and footer partials
var pageTemplates = template.Must(template.New("").ParseFS(templateFS, "templates/*.html"))
