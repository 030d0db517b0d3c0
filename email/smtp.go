package email

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"time"

	"github.com/jrsteele09/go-session-auth/challenge"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
)

const (
	DefaultSMTPTimeout     = 15 * time.Second
	DefaultSMTPMaxAttempts = 3
	defaultBackoffBase     = 200 * time.Millisecond
)

// SMTPSettings describes the relay and the envelope used for outgoing codes.
type SMTPSettings struct {
	Host                 string
	Port                 int
	Username             string
	Password             string
	FromEmail            string
	FromName             string
	StartTLS             bool
	SSL                  bool
	Timeout              time.Duration
	MaxAttempts          int
	VerificationSubject  string
	PasswordResetSubject string
}

// SendFunc transmits one fully formed message.
type SendFunc func(ctx context.Context, from string, to []string, msg []byte) error

// SMTPDispatcher sends codes through an SMTP relay, retrying with exponential backoff.
type SMTPDispatcher struct {
	settings    SMTPSettings
	logger      zerolog.Logger
	send        SendFunc
	backoffBase time.Duration
}

type SMTPOption func(*SMTPDispatcher)

func WithLogger(logger zerolog.Logger) SMTPOption {
	return func(d *SMTPDispatcher) {
		d.logger = logger
	}
}

// WithSendFunc replaces the network transport (primarily for testing)
func WithSendFunc(send SendFunc) SMTPOption {
	return func(d *SMTPDispatcher) {
		d.send = send
	}
}

// WithBackoffBase sets the first retry delay; later delays double.
func WithBackoffBase(base time.Duration) SMTPOption {
	return func(d *SMTPDispatcher) {
		d.backoffBase = base
	}
}

func NewSMTPDispatcher(settings SMTPSettings, options ...SMTPOption) (*SMTPDispatcher, error) {
	if settings.Host == "" {
		return nil, errors.New("[NewSMTPDispatcher] host is required")
	}
	if settings.FromEmail == "" {
		return nil, errors.New("[NewSMTPDispatcher] sender address is required")
	}
	if settings.Timeout <= 0 {
		settings.Timeout = DefaultSMTPTimeout
	}
	if settings.MaxAttempts < 1 {
		settings.MaxAttempts = DefaultSMTPMaxAttempts
	}

	d := &SMTPDispatcher{
		settings:    settings,
		logger:      zerolog.Nop(),
		backoffBase: defaultBackoffBase,
	}
	d.send = d.dialAndSend
	for _, opt := range options {
		opt(d)
	}
	return d, nil
}

func (d *SMTPDispatcher) Mode() string {
	return "smtp"
}

// Deliver builds the message and sends it, making at most MaxAttempts attempts.
func (d *SMTPDispatcher) Deliver(ctx context.Context, msg Message) error {
	body := d.buildMessage(msg)
	backoff := retry.WithMaxRetries(uint64(d.settings.MaxAttempts-1), retry.NewExponential(d.backoffBase))

	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		attemptCtx, cancel := context.WithTimeout(ctx, d.settings.Timeout)
		defer cancel()

		if err := d.send(attemptCtx, d.settings.FromEmail, []string{msg.Email}, body); err != nil {
			d.logger.Warn().Err(err).
				Str("user_id", msg.UserID).
				Str("email", MaskEmail(msg.Email)).
				Int("attempt", attempt).
				Msgf("%s email attempt failed", eventName(msg.Purpose))
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return deliveryError("%s email not delivered after %d attempt(s): %v", eventName(msg.Purpose), attempt, err)
	}

	d.logger.Info().
		Str("mode", d.Mode()).
		Str("user_id", msg.UserID).
		Str("email", MaskEmail(msg.Email)).
		Int("attempt", attempt).
		Msgf("%s email delivered", eventName(msg.Purpose))
	return nil
}

func (d *SMTPDispatcher) buildMessage(msg Message) []byte {
	subject := d.settings.VerificationSubject
	purposeLine := "Your FoodLens verification code is:"
	fallbackLine := "If you did not request this code, you can ignore this email."
	if msg.Purpose == challenge.PurposePasswordReset {
		subject = d.settings.PasswordResetSubject
		purposeLine = "Your FoodLens password reset code is:"
		fallbackLine = "If you did not request this reset, you can ignore this email."
	}
	ttlMinutes := max(1, (msg.TTLSeconds+59)/60)

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "From: %s\r\n", d.formattedFrom())
	fmt.Fprintf(&buf, "To: %s\r\n", msg.Email)
	fmt.Fprintf(&buf, "Subject: %s\r\n", subject)
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	buf.WriteString("\r\n")
	fmt.Fprintf(&buf, "%s\r\n\r\n%s\r\n\r\nThis code expires in %d minute(s).\r\n%s\r\n", purposeLine, msg.Code, ttlMinutes, fallbackLine)
	return buf.Bytes()
}

func (d *SMTPDispatcher) formattedFrom() string {
	if d.settings.FromName == "" {
		return d.settings.FromEmail
	}
	return (&mail.Address{Name: d.settings.FromName, Address: d.settings.FromEmail}).String()
}

// dialAndSend performs one SMTP conversation bounded by the context deadline.
func (d *SMTPDispatcher) dialAndSend(ctx context.Context, from string, to []string, msg []byte) error {
	addr := net.JoinHostPort(d.settings.Host, strconv.Itoa(d.settings.Port))
	tlsConfig := &tls.Config{ServerName: d.settings.Host, MinVersion: tls.VersionTLS12}

	var conn net.Conn
	var err error
	if d.settings.SSL {
		dialer := &tls.Dialer{Config: tlsConfig}
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	} else {
		var dialer net.Dialer
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return errors.Wrap(err, "[SMTPDispatcher.dialAndSend] dial")
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, d.settings.Host)
	if err != nil {
		conn.Close()
		return errors.Wrap(err, "[SMTPDispatcher.dialAndSend] smtp.NewClient")
	}
	defer client.Close()

	if !d.settings.SSL && d.settings.StartTLS {
		if err := client.StartTLS(tlsConfig); err != nil {
			return errors.Wrap(err, "[SMTPDispatcher.dialAndSend] StartTLS")
		}
	}
	if d.settings.Username != "" {
		auth := smtp.PlainAuth("", d.settings.Username, d.settings.Password, d.settings.Host)
		if err := client.Auth(auth); err != nil {
			return errors.Wrap(err, "[SMTPDispatcher.dialAndSend] Auth")
		}
	}
	if err := client.Mail(from); err != nil {
		return errors.Wrap(err, "[SMTPDispatcher.dialAndSend] Mail")
	}
	for _, rcpt := range to {
		if err := client.Rcpt(rcpt); err != nil {
			return errors.Wrap(err, "[SMTPDispatcher.dialAndSend] Rcpt")
		}
	}
	w, err := client.Data()
	if err != nil {
		return errors.Wrap(err, "[SMTPDispatcher.dialAndSend] Data")
	}
	if _, err := w.Write(msg); err != nil {
		return errors.Wrap(err, "[SMTPDispatcher.dialAndSend] Write")
	}
	if err := w.Close(); err != nil {
		return errors.Wrap(err, "[SMTPDispatcher.dialAndSend] Close")
	}
	return client.Quit()
}
