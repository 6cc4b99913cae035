package notifications

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	tmplNewQuery = "new_query.html"
	tmplResponse = "response.html"
	tmplReminder = "reminder.html"
	tmplReport   = "report.html"
)

func parseTemplates() (*template.Template, error) {
	return template.New("emails").ParseFS(templateFS, "templates/*.html")
}

func render(tmpl *template.Template, name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
