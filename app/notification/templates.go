package notification

import (
	"bytes"
	"html/template"
	"strings"
	texttemplate "text/template"
)

const (
	SubjectVerification  = "Verify your email"
	SubjectPasswordReset = "Reset your password"
)

type templateData struct {
	Name string
	Link string
}

var (
	verificationText = texttemplate.Must(texttemplate.New("verify").Parse(
		`Hi {{.Name}},

Please confirm your email address by opening the link below:

{{.Link}}

If you did not create an account, you can ignore this message.
`))
	verificationHTML = template.Must(template.New("verify").Parse(
		`<p>Hi {{.Name}},</p>
<p>Please confirm your email address by clicking the link below:</p>
<p><a href="{{.Link}}">Verify email</a></p>
<p>If you did not create an account, you can ignore this message.</p>
`))

	resetText = texttemplate.Must(texttemplate.New("reset").Parse(
		`Hi {{.Name}},

We received a request to reset your password. Open the link below to choose a new one:

{{.Link}}

If you did not request a reset, you can ignore this message.
`))
	resetHTML = template.Must(template.New("reset").Parse(
		`<p>Hi {{.Name}},</p>
<p>We received a request to reset your password. Click the link below to choose a new one:</p>
<p><a href="{{.Link}}">Reset password</a></p>
<p>If you did not request a reset, you can ignore this message.</p>
`))
)

func VerificationEmail(to, name, link string) (Message, error) {
	return render(to, SubjectVerification, name, link, verificationText, verificationHTML)
}

func PasswordResetEmail(to, name, link string) (Message, error) {
	return render(to, SubjectPasswordReset, name, link, resetText, resetHTML)
}

func render(to, subject, name, link string, text *texttemplate.Template, html *template.Template) (Message, error) {
	data := templateData{Name: strings.TrimSpace(name), Link: link}
	if data.Name == "" {
		data.Name = "there"
	}

	var textBuf, htmlBuf bytes.Buffer
	if err := text.Execute(&textBuf, data); err != nil {
		return Message{}, err
	}
	if err := html.Execute(&htmlBuf, data); err != nil {
		return Message{}, err
	}

	return Message{
		To:      to,
		Subject: subject,
		Text:    textBuf.String(),
		HTML:    htmlBuf.String(),
	}, nil
}
