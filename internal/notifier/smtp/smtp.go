// Package smtp delivers magic links over SMTP.
package smtp

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"text/template"
	"time"

	"github.com/linkauth/server/internal/logger"
	"github.com/linkauth/server/internal/model"
)

// Config contains SMTP delivery parameters.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	SiteName string
	Timeout  time.Duration
}

// emailParams is passed as data when executing the email template.
type emailParams struct {
	Name     string
	SiteName string
	Link     string
	Expiry   time.Duration
}

const defaultEmailTemplate = `Hi {{if .Name}}{{.Name}}{{else}}there{{end}},

Use the link below to sign in to {{.SiteName}}:

{{.Link}}

The link is valid for {{printf "%.f" .Expiry.Minutes}} minutes and can be used only once.

If you did not request this email, you can ignore it.


Regards,

{{.SiteName}}
`

var _ model.Notifier = (*Notifier)(nil)

// Notifier sends magic link emails through a single SMTP host. Every send
// dials a fresh connection bounded by Config.Timeout; a slow or unreachable
// relay fails the issuance instead of holding the request.
type Notifier struct {
	cfg    Config
	tmpl   *template.Template
	logger *logger.Logger
}

func New(cfg Config, logger *logger.Logger) (*Notifier, error) {
	tmpl, err := template.New("email").Parse(defaultEmailTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse email template: %w", err)
	}

	return &Notifier{
		cfg:    cfg,
		tmpl:   tmpl,
		logger: logger,
	}, nil
}

// Send delivers the magic link to the given address.
func (n *Notifier) Send(ctx context.Context, email, displayName, link string) error {
	body, err := n.composeMessage(email, displayName, link)
	if err != nil {
		return err
	}

	if err := n.deliver(ctx, email, body); err != nil {
		n.logger.Error("SMTP notifier: delivery failed",
			"email", email,
			"host", n.cfg.Host,
			"error", err.Error())
		return fmt.Errorf("failed to deliver email: %w", err)
	}

	n.logger.Debug("SMTP notifier: email delivered",
		"email", email)

	return nil
}

func (n *Notifier) composeMessage(email, displayName, link string) ([]byte, error) {
	var body bytes.Buffer

	fmt.Fprintf(&body, "From: %s\r\n", n.cfg.From)
	fmt.Fprintf(&body, "To: %s\r\n", email)
	fmt.Fprintf(&body, "Subject: Sign in to %s\r\n", n.cfg.SiteName)
	body.WriteString("MIME-Version: 1.0\r\n")
	body.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	body.WriteString("\r\n")

	err := n.tmpl.Execute(&body, emailParams{
		Name:     displayName,
		SiteName: n.cfg.SiteName,
		Link:     link,
		Expiry:   model.TokenDuration,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to execute email template: %w", err)
	}

	return body.Bytes(), nil
}

func (n *Notifier) deliver(ctx context.Context, email string, body []byte) error {
	addr := net.JoinHostPort(n.cfg.Host, fmt.Sprintf("%d", n.cfg.Port))

	dialer := net.Dialer{Timeout: n.cfg.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to dial smtp host: %w", err)
	}
	// The deadline bounds the whole SMTP conversation, not just the dial.
	if err := conn.SetDeadline(time.Now().Add(n.cfg.Timeout)); err != nil {
		conn.Close()
		return fmt.Errorf("failed to set connection deadline: %w", err)
	}

	client, err := smtp.NewClient(conn, n.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to create smtp client: %w", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: n.cfg.Host}); err != nil {
			return fmt.Errorf("failed to start tls: %w", err)
		}
	}

	if n.cfg.Username != "" {
		auth := smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("failed to authenticate: %w", err)
		}
	}

	if err := client.Mail(n.cfg.From); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	if err := client.Rcpt(email); err != nil {
		return fmt.Errorf("failed to set recipient: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to open message body: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		w.Close()
		return fmt.Errorf("failed to write message body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close message body: %w", err)
	}

	return client.Quit()
}
