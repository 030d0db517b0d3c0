package config

import "time"

// DeliveryMode selects how challenge codes leave the service.
type DeliveryMode string

const (
	DeliveryDisabled DeliveryMode = "disabled"
	DeliveryLog      DeliveryMode = "log"
	DeliverySMTP     DeliveryMode = "smtp"
)

type EmailConfig interface {
	GetEmailDeliveryMode() DeliveryMode
	IsLogCodeEnabled() bool
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPTimeout() time.Duration
	GetSMTPMaxAttempts() int
	UseSTARTTLS() bool
	UseSSL() bool
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetSenderFrom() string
	GetSenderName() string
	GetVerificationSubject() string
	GetPasswordResetSubject() string
}

type Email struct {
	DeliveryMode         DeliveryMode `env:"AUTH_EMAIL_VERIFICATION_DELIVERY_MODE"    envDefault:"log"`
	LogCode              bool         `env:"AUTH_EMAIL_VERIFICATION_LOG_CODE_ENABLED" envDefault:"false"`
	SMTPHost             string       `env:"AUTH_EMAIL_SMTP_HOST"`
	SMTPPort             int          `env:"AUTH_EMAIL_SMTP_PORT"                     envDefault:"587"`
	SMTPTimeoutSeconds   int          `env:"AUTH_EMAIL_SMTP_TIMEOUT_SECONDS"          envDefault:"15"`
	SMTPMaxAttempts      int          `env:"AUTH_EMAIL_SMTP_MAX_ATTEMPTS"             envDefault:"3"`
	SMTPStartTLS         bool         `env:"AUTH_EMAIL_SMTP_STARTTLS"                 envDefault:"true"`
	SMTPSSL              bool         `env:"AUTH_EMAIL_SMTP_SSL"                      envDefault:"false"`
	SMTPUsername         string       `env:"AUTH_EMAIL_SMTP_USERNAME"`
	SMTPPassword         string       `env:"AUTH_EMAIL_SMTP_PASSWORD"`
	SenderFrom           string       `env:"AUTH_EMAIL_SENDER_FROM"`
	SenderName           string       `env:"AUTH_EMAIL_SENDER_NAME"                   envDefault:"FoodLens"`
	VerificationSubject  string       `env:"AUTH_EMAIL_VERIFICATION_SUBJECT"          envDefault:"FoodLens verification code"`
	PasswordResetSubject string       `env:"AUTH_EMAIL_PASSWORD_RESET_SUBJECT"        envDefault:"FoodLens password reset code"`
}

var _ EmailConfig = Email{}

func (e Email) GetEmailDeliveryMode() DeliveryMode {
	return e.DeliveryMode
}

func (e Email) IsLogCodeEnabled() bool {
	return e.LogCode
}

func (e Email) GetSMTPHost() string {
	return e.SMTPHost
}

func (e Email) GetSMTPPort() int {
	return e.SMTPPort
}

func (e Email) GetSMTPTimeout() time.Duration {
	return time.Duration(e.SMTPTimeoutSeconds) * time.Second
}

func (e Email) GetSMTPMaxAttempts() int {
	return e.SMTPMaxAttempts
}

func (e Email) UseSTARTTLS() bool {
	return e.SMTPStartTLS
}

func (e Email) UseSSL() bool {
	return e.SMTPSSL
}

func (e Email) GetSMTPUsername() string {
	return e.SMTPUsername
}

func (e Email) GetSMTPPassword() string {
	return e.SMTPPassword
}

func (e Email) GetSenderFrom() string {
	return e.SenderFrom
}

func (e Email) GetSenderName() string {
	return e.SenderName
}

func (e Email) GetVerificationSubject() string {
	return e.VerificationSubject
}

func (e Email) GetPasswordResetSubject() string {
	return e.PasswordResetSubject
}
