// Package notifier delivers rendered tickets to purchasers by
// email. The mailer is an explicitly constructed dependency with a
// defined ready state: when SMTP is not configured, Ready reports
// false and Send fails with ErrNotReady instead of the transport
// silently swallowing tickets.
package notifier

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/smtp"
)

// ErrNotReady is returned by Send when the mailer has no SMTP
// configuration. Callers treat ticket delivery as best-effort, so
// this surfaces as a partial-success response, never as a failed
// payment.
var ErrNotReady = errors.New("mail transport not configured")

// Mailer sends plain-text mail with a single PDF attachment over
// SMTP with PLAIN auth.
type Mailer struct {
	host string
	port string
	user string
	pass string
}

func NewMailer(host, port, user, pass string) *Mailer {
	return &Mailer{host: host, port: port, user: user, pass: pass}
}

// Ready reports whether the mailer has enough configuration to
// attempt delivery.
func (m *Mailer) Ready() bool { return m.host != "" && m.user != "" }

// Send delivers a plain-text body plus the given PDF attachment.
// The context is honored up-front; net/smtp itself does not take a
// context, matching how the rest of the stack treats outbound mail
// as a single blocking call.
func (m *Mailer) Send(ctx context.Context, to, subject, body string, pdf []byte, pdfName string) error {
	if !m.Ready() {
		return ErrNotReady
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := buildMessage(m.user, to, subject, body, pdf, pdfName)
	addr := m.host + ":" + m.port
	auth := smtp.PlainAuth("", m.user, m.pass, m.host)
	if err := smtp.SendMail(addr, auth, m.user, []string{to}, msg); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

// buildMessage assembles a multipart/mixed MIME message with a
// text part and one base64-encoded PDF attachment.
func buildMessage(from, to, subject, body string, pdf []byte, pdfName string) []byte {
	const boundary = "ticket-boundary-7a1f"
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", to)
	fmt.Fprintf(&buf, "Subject: %s\r\n", subject)
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", boundary)

	fmt.Fprintf(&buf, "--%s\r\n", boundary)
	buf.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	buf.WriteString(body)
	buf.WriteString("\r\n")

	if len(pdf) > 0 {
		fmt.Fprintf(&buf, "--%s\r\n", boundary)
		buf.WriteString("Content-Type: application/pdf\r\n")
		buf.WriteString("Content-Transfer-Encoding: base64\r\n")
		fmt.Fprintf(&buf, "Content-Disposition: attachment; filename=%q\r\n\r\n", pdfName)

		enc := base64.StdEncoding.EncodeToString(pdf)
		// 76-char lines per RFC 2045
		for len(enc) > 76 {
			buf.WriteString(enc[:76])
			buf.WriteString("\r\n")
			enc = enc[76:]
		}
		buf.WriteString(enc)
		buf.WriteString("\r\n")
	}

	fmt.Fprintf(&buf, "--%s--\r\n", boundary)
	return buf.Bytes()
}
