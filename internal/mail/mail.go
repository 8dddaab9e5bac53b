// Package mail renders and delivers transactional email.
package mail

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

//go:embed templates/*.html
var templateFS embed.FS

// Mailer delivers the transactional emails the app sends.
type Mailer interface {
	// SendWelcome greets a freshly signed-up user and points them at their
	// account page.
	SendWelcome(ctx context.Context, to, name, url string) error
	// SendPasswordReset delivers the single-use reset link.
	SendPasswordReset(ctx context.Context, to, name, url string) error
}

// Message is a rendered email ready for delivery.
type Message struct {
	To      string
	ToName  string
	Subject string
	HTML    string
	Text    string
}

// templateData feeds both email templates.
type templateData struct {
	FirstName string
	URL       string
}

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// renderMessage renders one of the embedded templates into a Message with
// both an HTML body and a Markdown-ish plain text alternative.
func renderMessage(templateName, to, name, subject, url string) (*Message, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, templateName, templateData{
		FirstName: firstName(name),
		URL:       url,
	}); err != nil {
		return nil, fmt.Errorf("render %s: %w", templateName, err)
	}

	html := buf.String()
	text, err := htmltomarkdown.ConvertString(html)
	if err != nil {
		// Plain text is best effort. Fall back to just the link.
		text = url
	}

	return &Message{
		To:      to,
		ToName:  name,
		Subject: subject,
		HTML:    html,
		Text:    strings.TrimSpace(text),
	}, nil
}

// firstName extracts the leading name for a friendly salutation.
func firstName(name string) string {
	if i := strings.IndexByte(name, ' '); i > 0 {
		return name[:i]
	}
	return name
}
