// Package templates renders the transactional emails sent by the worker.
package templates

import (
	"bytes"
	"fmt"
	htmpl "html/template"
)

const base = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <style>
    .container { max-width: 620px; margin: 0 auto; font-family: sans-serif; color: #272727; }
    .code { font-size: 28px; letter-spacing: 6px; font-weight: bold; text-align: center; padding: 16px; background: #f6f6f6; }
    .button { display: inline-block; padding: 12px 24px; background: #272727; color: #fff; text-decoration: none; border-radius: 4px; }
    .footer { font-size: 12px; color: #999; margin-top: 24px; }
  </style>
</head>
<body>
  <div class="container">
    {{ block "content" . }}{{ end }}
    <p class="footer">You received this email because of an account action at WavLang. If this wasn't you, you can ignore this message.</p>
  </div>
</body>
</html>`

const verifyContent = `{{ define "content" }}
<h1>Verify your email account</h1>
<p>Hi {{ .Name }},</p>
<p>Enter this code to verify your email. It expires in 10 minutes.</p>
<p class="code">{{ .Code }}</p>
{{ end }}`

const resetContent = `{{ define "content" }}
<h1>Reset your password</h1>
<p>Hi {{ .Name }},</p>
<p>Click the button below to choose a new password. The link expires in 10 minutes.</p>
<p><a class="button" href="{{ .ResetURL }}">Reset Password</a></p>
{{ end }}`

const changedContent = `{{ define "content" }}
<h1>Password changed</h1>
<p>Hi {{ .Name }},</p>
<p>Your password was just changed. If you did not do this, contact support immediately.</p>
{{ end }}`

var templates = map[string]*htmpl.Template{
	"verify_email":     mustParse(verifyContent),
	"reset_password":   mustParse(resetContent),
	"password_changed": mustParse(changedContent),
}

var subjects = map[string]string{
	"verify_email":     "WavLang: Verify Your Email Account",
	"reset_password":   "WavLang: Reset Password",
	"password_changed": "WavLang: Your Password Was Changed",
}

func mustParse(content string) *htmpl.Template {
	return htmpl.Must(htmpl.Must(htmpl.New("email").Parse(base)).Parse(content))
}

// Render returns the subject and HTML body for a named template.
func Render(name string, data map[string]any) (subject, html string, err error) {
	t, ok := templates[name]
	if !ok {
		return "", "", fmt.Errorf("unknown email template %q", name)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", "", err
	}
	return subjects[name], buf.String(), nil
}
