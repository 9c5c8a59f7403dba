package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

type baseEmailData struct {
	Title   string
	Heading string
	Name    string
}

type diligenceAssignedEmailData struct {
	baseEmailData
	DiligenceTitle string
}

type statusRevertedEmailData struct {
	baseEmailData
	DiligenceTitle string
	PreviousStatus string
	NewStatus      string
	Reason         string
}

type paymentEmailData struct {
	baseEmailData
	DiligenceTitle string
}

type proofReviewedEmailData struct {
	baseEmailData
	DiligenceTitle string
	Approved       bool
}

func renderEmailTemplate(name string, data any) (string, error) {
	tmpl, err := template.New("base.html").ParseFS(templateFS, "templates/base.html", "templates/"+name)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render email template %s: %w", name, err)
	}
	return buf.String(), nil
}
