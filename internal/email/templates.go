package email

import (
	"bytes"
	"fmt"
	htemplate "html/template"
	ttemplate "text/template"
	"time"
)

// Variables de template para cada clase de mensaje.

type otpVars struct {
	Username string
	Code     string
	TTL      string
}

type resetVars struct {
	Username string
	Link     string
	TTL      string
}

const otpHTMLTmpl = `<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
  <div style="background-color: #f8f9fa; padding: 20px; border-radius: 5px;">
    <h2 style="color: #333;">Two-Factor Authentication</h2>
    <p>Hello {{.Username}},</p>
    <p>Your verification code is:</p>
    <div style="background-color: #fff; padding: 15px; border-radius: 5px; text-align: center; margin: 20px 0;">
      <h1 style="color: #007bff; font-size: 32px; letter-spacing: 5px; margin: 0;">{{.Code}}</h1>
    </div>
    <p>This code will expire in {{.TTL}}.</p>
    <p><strong>If you didn't request this code, please ignore this email.</strong></p>
  </div>
</body>
</html>`

const otpTextTmpl = `Two-Factor Authentication

Hello {{.Username}},

Your verification code is: {{.Code}}

This code will expire in {{.TTL}}.

If you didn't request this code, please ignore this email.`

const resetHTMLTmpl = `<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
  <div style="background-color: #f8f9fa; padding: 20px; border-radius: 5px;">
    <h2 style="color: #333;">Password Reset</h2>
    <p>Hello {{.Username}},</p>
    <p>You requested a password reset. Click the link below to choose a new password:</p>
    <div style="background-color: #fff; padding: 15px; border-radius: 5px; text-align: center; margin: 20px 0;">
      <a href="{{.Link}}" style="color: #007bff; font-size: 18px;">Reset Password</a>
    </div>
    <p>This link will expire in {{.TTL}}.</p>
    <p>If you did not request this, please ignore this email.</p>
  </div>
</body>
</html>`

const resetTextTmpl = `Password Reset

Hello {{.Username}},

You requested a password reset. Use the link below to choose a new password:
{{.Link}}

This link will expire in {{.TTL}}.

If you did not request this, please ignore this email.`

// Templates contiene los templates compilados de los mensajes del servicio.
type Templates struct {
	otpHTML   *htemplate.Template
	otpText   *ttemplate.Template
	resetHTML *htemplate.Template
	resetText *ttemplate.Template
}

// NewTemplates compila los templates por defecto.
func NewTemplates() (*Templates, error) {
	t := &Templates{}
	var err error
	if t.otpHTML, err = htemplate.New("otp_html").Parse(otpHTMLTmpl); err != nil {
		return nil, fmt.Errorf("parse otp html template: %w", err)
	}
	if t.otpText, err = ttemplate.New("otp_text").Parse(otpTextTmpl); err != nil {
		return nil, fmt.Errorf("parse otp text template: %w", err)
	}
	if t.resetHTML, err = htemplate.New("reset_html").Parse(resetHTMLTmpl); err != nil {
		return nil, fmt.Errorf("parse reset html template: %w", err)
	}
	if t.resetText, err = ttemplate.New("reset_text").Parse(resetTextTmpl); err != nil {
		return nil, fmt.Errorf("parse reset text template: %w", err)
	}
	return t, nil
}

// RenderOTP produce el mensaje de código OTP.
func (t *Templates) RenderOTP(to, username, code string, ttl time.Duration) (Message, error) {
	vars := otpVars{Username: username, Code: code, TTL: formatDuration(ttl)}
	html, text, err := render(t.otpHTML, t.otpText, vars)
	if err != nil {
		return Message{}, err
	}
	return Message{
		Kind:     KindOTP,
		To:       to,
		Subject:  "Your Two-Factor Authentication Code",
		HTMLBody: html,
		TextBody: text,
	}, nil
}

// RenderReset produce el mensaje de password reset.
func (t *Templates) RenderReset(to, username, link string, ttl time.Duration) (Message, error) {
	vars := resetVars{Username: username, Link: link, TTL: formatDuration(ttl)}
	html, text, err := render(t.resetHTML, t.resetText, vars)
	if err != nil {
		return Message{}, err
	}
	return Message{
		Kind:     KindReset,
		To:       to,
		Subject:  "Password Reset Request",
		HTMLBody: html,
		TextBody: text,
	}, nil
}

func render(html *htemplate.Template, text *ttemplate.Template, data any) (string, string, error) {
	var htmlBuf, textBuf bytes.Buffer
	if err := html.Execute(&htmlBuf, data); err != nil {
		return "", "", fmt.Errorf("render html: %w", err)
	}
	if err := text.Execute(&textBuf, data); err != nil {
		return "", "", fmt.Errorf("render text: %w", err)
	}
	return htmlBuf.String(), textBuf.String(), nil
}

func formatDuration(d time.Duration) string {
	if d >= time.Hour {
		hours := int(d.Hours())
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}
	minutes := int(d.Minutes())
	if minutes <= 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", minutes)
}
