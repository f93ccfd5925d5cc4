package mailer

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"gopkg.in/gomail.v2"
)

// SMTPOptions configures the SMTP transport
type SMTPOptions struct {
	Host     string
	Port     int
	Secure   bool
	User     string
	Password string
}

// smtpSender opens one connection per message. The whole exchange is bound
// to the caller's context: a done context closes the conversation.
type smtpSender struct {
	opts   SMTPOptions
	dialer net.Dialer
}

// NewSMTPSender returns a Sender delivering through the server in opts.
// Secure selects implicit TLS; otherwise STARTTLS is used when offered.
func NewSMTPSender(opts SMTPOptions) Sender {
	return &smtpSender{opts: opts}
}

func (s *smtpSender) Send(ctx context.Context, msg *gomail.Message) error {
	addr := net.JoinHostPort(s.opts.Host, strconv.Itoa(s.opts.Port))
	conn, err := s.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to smtp server: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	// unblocks any pending read or write once ctx is done
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()

	tlsConfig := &tls.Config{ServerName: s.opts.Host}
	if s.opts.Secure {
		conn = tls.Client(conn, tlsConfig)
	}

	client, err := smtp.NewClient(conn, s.opts.Host)
	if err != nil {
		return sendErr(ctx, err)
	}
	defer client.Close()

	if !s.opts.Secure {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(tlsConfig); err != nil {
				return sendErr(ctx, err)
			}
		}
	}

	if s.opts.User != "" {
		if ok, _ := client.Extension("AUTH"); ok {
			auth := smtp.PlainAuth("", s.opts.User, s.opts.Password, s.opts.Host)
			if err := client.Auth(auth); err != nil {
				return sendErr(ctx, err)
			}
		}
	}

	deliver := gomail.SendFunc(func(from string, to []string, body io.WriterTo) error {
		if err := client.Mail(from); err != nil {
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
		if _, err := body.WriteTo(w); err != nil {
			w.Close()
			return err
		}
		return w.Close()
	})

	if err := gomail.Send(deliver, msg); err != nil {
		return sendErr(ctx, err)
	}

	return sendErr(ctx, client.Quit())
}

// sendErr reports ctx's error alongside err when the exchange was cut short.
func sendErr(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return errors.Join(ctxErr, err)
	}
	return err
}
