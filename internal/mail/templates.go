package mail

import (
	"bytes"
	"embed"
	htmltemplate "html/template"
	texttemplate "text/template"
	"time"
)

//go:embed templates/*
var templateFS embed.FS

var (
	resetHTML = htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/password_reset.html"))
	resetText = texttemplate.Must(texttemplate.ParseFS(templateFS, "templates/password_reset.txt"))
)

// PasswordResetSubject is the subject line of reset emails.
const PasswordResetSubject = "إعادة تعيين كلمة المرور - المحترف لحساب الكميات"

type resetData struct {
	Name         string
	Link         string
	ValidMinutes int
}

// RenderPasswordReset builds the reset email for the given recipient.
func RenderPasswordReset(to, name, link string, validFor time.Duration) (Message, error) {
	data := resetData{Name: name, Link: link, ValidMinutes: int(validFor / time.Minute)}

	var htmlBuf, textBuf bytes.Buffer
	if err := resetHTML.Execute(&htmlBuf, data); err != nil {
		return Message{}, err
	}
	if err := resetText.Execute(&textBuf, data); err != nil {
		return Message{}, err
	}

	return Message{
		To:       to,
		Subject:  PasswordResetSubject,
		HTMLBody: htmlBuf.String(),
		TextBody: textBuf.String(),
	}, nil
}
