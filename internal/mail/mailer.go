// Package mail builds and sends the order confirmation message. Sending is
// behind the Mailer interface so handlers can be exercised without an SMTP
// server.
package mail

import (
	"fmt"
	"net"
	"net/smtp"
	"strings"
)

// Mailer dispatches a single HTML message to one or more recipients.
type Mailer interface {
	Send(to []string, subject, htmlBody string) error
}

// SMTPMailer sends mail through a plain SMTP relay.
type SMTPMailer struct {
	addr     string // host:port
	username string
	password string
	from     string
}

// NewSMTP creates an SMTP-backed mailer. When username is empty the relay
// is assumed to accept unauthenticated submissions (local dev).
func NewSMTP(addr, username, password, from string) *SMTPMailer {
	return &SMTPMailer{
		addr:     addr,
		username: username,
		password: password,
		from:     from,
	}
}

// Send delivers the message. No retries: a failed send surfaces to the
// caller and is logged there.
func (m *SMTPMailer) Send(to []string, subject, htmlBody string) error {
	var auth smtp.Auth
	if m.username != "" {
		auth = smtp.PlainAuth("", m.username, m.password, smtpHost(m.addr))
	}

	msg := buildMessage(m.from, to, subject, htmlBody)
	if err := smtp.SendMail(m.addr, auth, m.from, to, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// smtpHost extracts the hostname PlainAuth needs from a relay address.
// Addresses without a port, including bare IPv6 literals, pass through
// unchanged.
func smtpHost(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}

// buildMessage assembles an RFC 5322 message with an HTML body.
func buildMessage(from string, to []string, subject, htmlBody string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(htmlBody)
	return []byte(b.String())
}
