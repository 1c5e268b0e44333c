// Package notify holds the outbound side channels: transactional
// email and mobile push. Both are fire-and-forget from the request
// path; failures are logged and never surfaced to the client.
package notify

import (
	"fmt"
	"log"
	"net/smtp"

	"github.com/iliyamo/user-account-service/internal/config"
)

// EmailKind selects the subject/body template of an outgoing mail.
type EmailKind string

const (
	EmailVerification  EmailKind = "verification" // OTP code after register/login/resend
	EmailPasswordReset EmailKind = "reset"        // OTP code for forgot-password
	EmailWelcome       EmailKind = "welcome"      // sent once after registration
)

// Mailer sends transactional email over SMTP. When no SMTP host is
// configured the mailer runs in disabled mode: every send is logged
// and dropped, which keeps development environments working without
// a mail server.
type Mailer struct {
	host string
	port string
	user string
	pass string
	from string
}

func NewMailer(cfg config.Config) *Mailer {
	return &Mailer{
		host: cfg.SMTPHost,
		port: cfg.SMTPPort,
		user: cfg.SMTPUser,
		pass: cfg.SMTPPass,
		from: cfg.SMTPFrom,
	}
}

// Send delivers one mail of the given kind. The code argument fills
// the OTP placeholder for verification/reset kinds and is ignored for
// welcome mail. Errors are returned so callers running in background
// goroutines can log them.
func (m *Mailer) Send(kind EmailKind, to, name, code string) error {
	if m.host == "" {
		log.Printf("mailer: disabled, dropping %s mail to %s", kind, to)
		return nil
	}

	subject, body := m.template(kind, name, code)
	msg := []byte(
		"From: " + m.from + "\r\n" +
			"To: " + to + "\r\n" +
			"Subject: " + subject + "\r\n" +
			"Content-Type: text/plain; charset=\"utf-8\"\r\n" +
			"\r\n" +
			body + "\r\n")

	addr := fmt.Sprintf("%s:%s", m.host, m.port)
	auth := smtp.PlainAuth("", m.user, m.pass, m.host)
	return smtp.SendMail(addr, auth, m.from, []string{to}, msg)
}

func (m *Mailer) template(kind EmailKind, name, code string) (subject, body string) {
	switch kind {
	case EmailPasswordReset:
		return "Reset your password",
			fmt.Sprintf("Hi %s,\n\nUse this code to reset your password: %s\nIt expires in one minute.", name, code)
	case EmailWelcome:
		return "Welcome aboard",
			fmt.Sprintf("Hi %s,\n\nYour account has been created. Verify your email to get started.", name)
	default:
		return "Verify your email",
			fmt.Sprintf("Hi %s,\n\nYour verification code is: %s\nIt expires in one minute.", name, code)
	}
}
