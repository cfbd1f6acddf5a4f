// Package templates provides email template components
package templates

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
)

// ContactEmailProps is a contact form post as shown to the site owner.
type ContactEmailProps struct {
	Name    string
	Email   string
	Subject string
	Message string
}

// SubjectPrefix is prepended to the sender's subject line.
const SubjectPrefix = "Portfolio Contact: "

var contactTemplate = template.Must(template.New("contactEmail").Parse(`<h3 style="margin: 0 0 16px;">New Contact Form Submission</h3>
<p style="margin: 0 0 8px;"><strong>Name:</strong> {{.Name}}</p>
<p style="margin: 0 0 8px;"><strong>Email:</strong> {{.Email}}</p>
<p style="margin: 0 0 8px;"><strong>Subject:</strong> {{.Subject}}</p>
<p style="margin: 0 0 8px;"><strong>Message:</strong></p>
<p style="margin: 0;">{{.Message}}</p>`))

// ContactSubject returns the owner-facing subject line.
func ContactSubject(subject string) string {
	return SubjectPrefix + subject
}

// ContactText renders the plain-text body.
func ContactText(p ContactEmailProps) string {
	return fmt.Sprintf("Name: %s\nEmail: %s\nSubject: %s\nMessage: %s", p.Name, p.Email, p.Subject, p.Message)
}

// ContactHTML renders the HTML body. Every field is escaped and message line
// breaks become <br>.
func ContactHTML(p ContactEmailProps) string {
	data := struct {
		Name, Email, Subject string
		Message              template.HTML
	}{
		Name:    p.Name,
		Email:   p.Email,
		Subject: p.Subject,
		Message: multiline(p.Message),
	}

	var buf bytes.Buffer
	if err := contactTemplate.Execute(&buf, data); err != nil {
		return template.HTMLEscapeString(ContactText(p))
	}
	return GetEmailLayout(EmailLayoutProps{
		Title:     ContactSubject(p.Subject),
		Preheader: p.Subject,
		Content:   template.HTML(buf.String()),
	})
}

// multiline escapes s and joins its lines with <br>.
func multiline(s string) template.HTML {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = template.HTMLEscapeString(line)
	}
	return template.HTML(strings.Join(lines, "<br>"))
}
