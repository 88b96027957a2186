package mail

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"math"
	"text/template"
	"time"
)

const (
	// SenderAddress is the From address of every mock message.
	SenderAddress = "noreply@telehealth.com"
	// SenderName is the display name of the sender.
	SenderName = "TeleHealth"

	verificationSubject = "Verify Your TeleHealth Account"
)

type verificationData struct {
	Name   string
	Link   string
	Code   string
	Expiry string // e.g. "24 hours" or "30 minutes"
}

var verificationText = template.Must(template.New("verification.txt").Parse(`Hello {{.Name}},

Thank you for signing up for TeleHealth!

Please verify your email address by clicking on the following link:
{{.Link}}

Or use this verification code: {{.Code}}

This link will expire in {{.Expiry}}.

If you didn't create an account with TeleHealth, please ignore this email.

Best regards,
The TeleHealth Team`))

var verificationHTML = htmltemplate.Must(htmltemplate.New("verification.html").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <style>
    body { font-family: 'Roboto', Arial, sans-serif; line-height: 1.6; color: #333; }
    .container { max-width: 600px; margin: 0 auto; padding: 20px; }
    .header { background-color: #6685FF; color: white; padding: 20px; text-align: center; }
    .content { padding: 30px 20px; background-color: #f9f9f9; }
    .button { display: inline-block; padding: 12px 30px; background-color: #6685FF; color: white; text-decoration: none; border-radius: 5px; margin: 20px 0; }
    .footer { text-align: center; padding: 20px; color: #666; font-size: 12px; }
  </style>
</head>
<body>
  <div class="container">
    <div class="header"><h1>TeleHealth</h1></div>
    <div class="content">
      <h2>Verify Your Email Address</h2>
      <p>Hello {{.Name}},</p>
      <p>Thank you for signing up for TeleHealth!</p>
      <p>Please verify your email address by clicking the button below:</p>
      <a href="{{.Link}}" class="button">Verify Email</a>
      <p>Or use this verification code: <strong>{{.Code}}</strong></p>
      <p><small>This link will expire in {{.Expiry}}.</small></p>
      <p>If you didn't create an account with TeleHealth, please ignore this email.</p>
    </div>
    <div class="footer"><p>Best regards,<br>The TeleHealth Team</p></div>
  </div>
</body>
</html>
`))

// expiryPhrase renders a link lifetime rounded up to whole hours, or to whole
// minutes below one hour.
func expiryPhrase(d time.Duration) string {
	if d >= time.Hour {
		return plural(int(math.Ceil(d.Hours())), "hour")
	}
	return plural(int(math.Ceil(d.Minutes())), "minute")
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// renderVerification returns the plaintext and HTML bodies.
func renderVerification(data verificationData) (string, string, error) {
	var text, html bytes.Buffer
	if err := verificationText.Execute(&text, data); err != nil {
		return "", "", fmt.Errorf("render text body: %w", err)
	}
	if err := verificationHTML.Execute(&html, data); err != nil {
		return "", "", fmt.Errorf("render html body: %w", err)
	}
	return text.String(), html.String(), nil
}
