package email

import (
	"github.com/jrsteele09/go-session-auth/internal/config"
	"github.com/rs/zerolog"
)

// NewFromConfig picks the dispatcher for the configured delivery mode. A misconfigured
// smtp relay yields a dispatcher that refuses every message.
func NewFromConfig(c config.EmailConfig, logger zerolog.Logger) Dispatcher {
	switch c.GetEmailDeliveryMode() {
	case config.DeliveryDisabled:
		return NewDisabledDispatcher("")
	case config.DeliverySMTP:
		d, err := NewSMTPDispatcher(SMTPSettings{
			Host:                 c.GetSMTPHost(),
			Port:                 c.GetSMTPPort(),
			Username:             c.GetSMTPUsername(),
			Password:             c.GetSMTPPassword(),
			FromEmail:            c.GetSenderFrom(),
			FromName:             c.GetSenderName(),
			StartTLS:             c.UseSTARTTLS(),
			SSL:                  c.UseSSL(),
			Timeout:              c.GetSMTPTimeout(),
			MaxAttempts:          c.GetSMTPMaxAttempts(),
			VerificationSubject:  c.GetVerificationSubject(),
			PasswordResetSubject: c.GetPasswordResetSubject(),
		}, WithLogger(logger))
		if err != nil {
			logger.Error().Err(err).
				Bool("host_set", c.GetSMTPHost() != "").
				Bool("from_set", c.GetSenderFrom() != "").
				Msg("smtp delivery misconfigured")
			return &DisabledDispatcher{reason: "email SMTP is misconfigured", mode: "smtp"}
		}
		return d
	default:
		return NewLogDispatcher(logger, c.IsLogCodeEnabled())
	}
}
