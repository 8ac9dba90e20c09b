package gmail

import (
	"bytes"
	"embed"
	"fmt"
	"html"
	"html/template"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
)

//go:embed templates/*.html
var templateFiles embed.FS

var (
	templates     map[string]*template.Template
	templatesErr  error
	templatesOnce sync.Once
)

func loadTemplates() (map[string]*template.Template, error) {
	templatesOnce.Do(func() {
		entries, err := templateFiles.ReadDir("templates")
		if err != nil {
			templatesErr = fmt.Errorf("failed to read templates: %w", err)
			return
		}
		templates = make(map[string]*template.Template, len(entries))
		for _, e := range entries {
			name := strings.TrimSuffix(e.Name(), ".html")
			t, err := template.New(name).Option("missingkey=zero").ParseFS(templateFiles, "templates/"+e.Name())
			if err != nil {
				templatesErr = fmt.Errorf("failed to parse template %s: %w", name, err)
				return
			}
			templates[name] = t
		}
	})
	return templates, templatesErr
}

// Rendered is a message ready to be encoded.
type Rendered struct {
	Subject string
	HTML    string
	Text    string
}

// Render executes the named template against payload and derives the
// plain-text alternative from the HTML body.
func Render(name string, payload map[string]string) (*Rendered, error) {
	set, err := loadTemplates()
	if err != nil {
		return nil, err
	}
	t, ok := set[name]
	if !ok {
		return nil, fmt.Errorf("unknown template %q", name)
	}

	var subject, body bytes.Buffer
	if err := t.ExecuteTemplate(&subject, "subject", payload); err != nil {
		return nil, fmt.Errorf("failed to render %s subject: %w", name, err)
	}
	if err := t.ExecuteTemplate(&body, "body", payload); err != nil {
		return nil, fmt.Errorf("failed to render %s body: %w", name, err)
	}

	text, err := PlainText(body.String())
	if err != nil {
		return nil, err
	}
	return &Rendered{
		Subject: strings.TrimSpace(html.UnescapeString(subject.String())),
		HTML:    body.String(),
		Text:    text,
	}, nil
}

// PlainText strips markup, keeping one line per block element.
func PlainText(htmlBody string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlBody))
	if err != nil {
		return "", fmt.Errorf("failed to parse html: %w", err)
	}
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("p, div, h1, h2, h3, h4, li, tr").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})
	doc.Find("td").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml(" ")
	})

	var lines []string
	for _, line := range strings.Split(doc.Find("body").Text(), "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n"), nil
}
