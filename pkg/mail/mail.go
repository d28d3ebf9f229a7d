// Package mail is a small SMTP mailer used for marketplace notifications.
package mail

import (
	"crypto/tls"
	"fmt"
	"net/smtp"
	"os"
	"strings"
)

// Mailer holds SMTP connection credentials (populated from env).
type Mailer struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
}

// FromEnv builds a Mailer from MAIL_* environment variables.
func FromEnv() *Mailer {
	return &Mailer{
		Host:     getenv("MAIL_HOST", "smtp.ethereal.email"),
		Port:     getenv("MAIL_PORT", "587"),
		Username: getenv("MAIL_USERNAME", ""),
		Password: getenv("MAIL_PASSWORD", ""),
		From:     getenv("MAIL_FROM", "no-reply@farm-market.local"),
		FromName: getenv("MAIL_FROM_NAME", "Farm Market"),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Send delivers one HTML email. Uses implicit TLS on port 465, STARTTLS
// otherwise.
func (m *Mailer) Send(to []string, subject, htmlBody string) error {
	if m.Username == "" {
		return fmt.Errorf("mail: MAIL_USERNAME not configured")
	}

	from := fmt.Sprintf("%s <%s>", m.FromName, m.From)
	raw := m.buildRaw(from, to, subject, htmlBody)

	addr := m.Host + ":" + m.Port
	auth := smtp.PlainAuth("", m.Username, m.Password, m.Host)

	if m.Port == "465" {
		return m.sendTLS(addr, auth, to, raw)
	}
	return smtp.SendMail(addr, auth, m.From, to, raw)
}

func (m *Mailer) buildRaw(from string, to []string, subject, body string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + strings.Join(to, ", ") + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	b.WriteString("\r\n")
	return []byte(b.String())
}

func (m *Mailer) sendTLS(addr string, auth smtp.Auth, to []string, raw []byte) error {
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: m.Host})
	if err != nil {
		return fmt.Errorf("mail: TLS dial: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, m.Host)
	if err != nil {
		return fmt.Errorf("mail: client: %w", err)
	}
	defer client.Quit()

	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("mail: auth: %w", err)
	}
	if err := client.Mail(m.From); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(raw); err != nil {
		return err
	}
	return w.Close()
}
