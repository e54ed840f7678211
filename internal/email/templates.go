package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

// Render returns the subject and HTML body for a template. Data keys are
// exposed to the template as .Data.
func Render(name string, data map[string]any) (string, string, error) {
	subject, ok := subjects[name]
	if !ok {
		return "", "", fmt.Errorf("unknown email template %q", name)
	}

	files := []string{"templates/base.html", "templates/" + name + ".html"}
	tmpl, err := template.New("base.html").ParseFS(templateFS, files...)
	if err != nil {
		return "", "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email", map[string]any{"Subject": subject, "Data": data}); err != nil {
		return "", "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return subject, buf.String(), nil
}
