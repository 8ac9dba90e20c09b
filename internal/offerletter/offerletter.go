// Package offerletter renders the offer letter sent with an offer email,
// as HTML and optionally as a PDF printed by headless Chrome.
package offerletter

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"html/template"
	"time"
)

//go:embed letter.html
var letterHTML string

var letterTemplate = template.Must(template.New("letter").Parse(letterHTML))

// DateLayout formats the letter date.
const DateLayout = "January 2, 2006"

// Letter holds the fields printed on an offer letter.
type Letter struct {
	CandidateName string
	RoleName      string
	Compensation  string
	CompanyName   string
	HRName        string
	HREmail       string
	Date          string
}

// RenderHTML executes the letter template.
func RenderHTML(l Letter) (string, error) {
	if l.Date == "" {
		l.Date = time.Now().Format(DateLayout)
	}
	var buf bytes.Buffer
	if err := letterTemplate.Execute(&buf, l); err != nil {
		return "", fmt.Errorf("failed to render offer letter: %w", err)
	}
	return buf.String(), nil
}

// Printer converts an HTML document to PDF.
type Printer interface {
	PrintPDF(ctx context.Context, html string) ([]byte, error)
}

// Generator produces offer letters. A nil Printer disables PDF output.
type Generator struct {
	Printer Printer
}

// Document is a rendered letter.
type Document struct {
	HTML string
	PDF  []byte
}

// Filename returns the attachment name for a candidate's letter.
func Filename(candidateName string) string {
	name := []rune{}
	for _, r := range candidateName {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			name = append(name, r)
		case r == ' ' || r == '-' || r == '_':
			name = append(name, '_')
		}
	}
	if len(name) == 0 {
		return "offer_letter.pdf"
	}
	return "offer_letter_" + string(name) + ".pdf"
}

// Generate renders the letter and, when a printer is configured, its PDF.
func (g *Generator) Generate(ctx context.Context, l Letter) (*Document, error) {
	html, err := RenderHTML(l)
	if err != nil {
		return nil, err
	}
	doc := &Document{HTML: html}
	if g == nil || g.Printer == nil {
		return doc, nil
	}
	pdf, err := g.Printer.PrintPDF(ctx, html)
	if err != nil {
		return doc, fmt.Errorf("failed to print offer letter: %w", err)
	}
	doc.PDF = pdf
	return doc, nil
}
