package mail

import (
	"context"
	"crypto/tls"
	"net"
	"net/smtp"
	"time"

	"github.com/rs/zerolog"

	"github.com/nhle/taskd/internal/model"
)

// defaultTimeout bounds a whole SMTP exchange when the context has no deadline.
const defaultTimeout = 30 * time.Second

// SMTPSender delivers mail through an authenticated SMTP relay.
type SMTPSender struct {
	cfg     model.SMTPConfig
	timeout time.Duration
	now     func() time.Time
}

// NewSMTPSender returns a sender for cfg. The password must already be
// resolved (see credential.Resolve).
func NewSMTPSender(cfg model.SMTPConfig) *SMTPSender {
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &SMTPSender{cfg: cfg, timeout: timeout, now: time.Now}
}

// Send composes and delivers one message. Every failure is returned as a
// *DeliveryError.
func (s *SMTPSender) Send(ctx context.Context, to, subject, body string) error {
	from := s.cfg.Sender()

	msg, err := Compose(from, to, subject, body, s.now())
	if err != nil {
		return &DeliveryError{Recipient: to, Stage: "compose", Err: err}
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	conn, err := s.dial(ctx)
	if err != nil {
		return &DeliveryError{Recipient: to, Stage: "dial", Err: err}
	}
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	// Closing the connection unblocks the exchange when ctx is cancelled early.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		conn.Close()
		return &DeliveryError{Recipient: to, Stage: "greeting", Err: err}
	}
	defer client.Close()

	if !s.cfg.TLS {
		if ok, _ := client.Extension("STARTTLS"); ok {
			tlsConfig := &tls.Config{ServerName: s.cfg.Host}
			if err := client.StartTLS(tlsConfig); err != nil {
				return &DeliveryError{Recipient: to, Stage: "starttls", Err: err}
			}
		}
	}

	if s.cfg.Username != "" {
		auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return &DeliveryError{Recipient: to, Stage: "auth", Err: err}
		}
	}

	if stage, err := sendMailViaSMTPClient(client, from, to, msg); err != nil {
		return &DeliveryError{Recipient: to, Stage: stage, Err: err}
	}
	return nil
}

// dial opens either an implicit TLS connection or a plain one that may be
// upgraded with STARTTLS.
func (s *SMTPSender) dial(ctx context.Context) (net.Conn, error) {
	addr := net.JoinHostPort(s.cfg.Host, s.cfg.Port)

	if s.cfg.TLS {
		d := &tls.Dialer{Config: &tls.Config{ServerName: s.cfg.Host}}
		return d.DialContext(ctx, "tcp", addr)
	}

	var d net.Dialer
	return d.DialContext(ctx, "tcp", addr)
}

// sendMailViaSMTPClient runs MAIL/RCPT/DATA/QUIT on an already-authenticated
// client and names the stage that failed.
func sendMailViaSMTPClient(client *smtp.Client, from, to string, msg []byte) (string, error) {
	if err := client.Mail(from); err != nil {
		return "MAIL FROM", err
	}

	if err := client.Rcpt(to); err != nil {
		return "RCPT TO", err
	}

	writer, err := client.Data()
	if err != nil {
		return "DATA", err
	}

	if _, err := writer.Write(msg); err != nil {
		return "DATA", err
	}

	if err := writer.Close(); err != nil {
		return "DATA", err
	}

	return "QUIT", client.Quit()
}

// LogSender stands in for SMTP when no relay is configured: it records
// each message in the log and reports success.
type LogSender struct {
	log zerolog.Logger
}

// NewLogSender returns a LogSender writing to log.
func NewLogSender(log zerolog.Logger) *LogSender {
	return &LogSender{log: log.With().Str("component", "mail").Logger()}
}

func (s *LogSender) Send(_ context.Context, to, subject, body string) error {
	s.log.Info().
		Str("to", to).
		Str("subject", subject).
		Int("body_bytes", len(body)).
		Msg("smtp not configured, message not delivered")
	return nil
}

// NewSender picks an SMTPSender when cfg is usable and a LogSender otherwise.
func NewSender(cfg model.SMTPConfig, log zerolog.Logger) Sender {
	if cfg.Enabled() {
		return NewSMTPSender(cfg)
	}
	return NewLogSender(log)
}
