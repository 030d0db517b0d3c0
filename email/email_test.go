package email_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/go-session-auth/challenge"
	"github.com/jrsteele09/go-session-auth/email"
	"github.com/jrsteele09/go-session-auth/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testMessage(purpose challenge.Purpose) email.Message {
	return email.Message{
		Purpose:    purpose,
		Email:      "alice@example.com",
		Code:       "042137",
		TTLSeconds: 600,
		UserID:     "usr_1",
	}
}

func testSettings() email.SMTPSettings {
	return email.SMTPSettings{
		Host:                 "smtp.example.com",
		Port:                 587,
		FromEmail:            "noreply@example.com",
		FromName:             "FoodLens",
		MaxAttempts:          3,
		VerificationSubject:  "FoodLens verification code",
		PasswordResetSubject: "FoodLens password reset code",
	}
}

func TestMaskEmail(t *testing.T) {
	cases := map[string]string{
		"alice@example.com": "al***@example.com",
		"ab@example.com":    "a*@example.com",
		"a@example.com":     "a*@example.com",
		"not-an-email":      "***",
	}
	for input, expected := range cases {
		require.Equal(t, expected, email.MaskEmail(input), input)
	}
}

func TestDisabledDispatcher(t *testing.T) {
	d := email.NewDisabledDispatcher("")
	err := d.Deliver(context.Background(), testMessage(challenge.PurposeVerification))
	require.ErrorIs(t, err, email.ErrDelivery)
	require.Equal(t, "disabled", d.Mode())
}

// TestLogDispatcher tests that codes only reach the log when asked for
func TestLogDispatcher(t *testing.T) {
	t.Run("code hidden", func(t *testing.T) {
		var buf bytes.Buffer
		d := email.NewLogDispatcher(zerolog.New(&buf), false)
		require.NoError(t, d.Deliver(context.Background(), testMessage(challenge.PurposeVerification)))
		require.NotContains(t, buf.String(), "042137")
		require.NotContains(t, buf.String(), "alice@example.com")
		require.Contains(t, buf.String(), "al***@example.com")
	})

	t.Run("code logged", func(t *testing.T) {
		var buf bytes.Buffer
		d := email.NewLogDispatcher(zerolog.New(&buf), true)
		require.NoError(t, d.Deliver(context.Background(), testMessage(challenge.PurposePasswordReset)))
		require.Contains(t, buf.String(), "042137")
		require.Contains(t, buf.String(), "password reset code prepared")
	})
}

func TestSMTPDispatcher_Retry(t *testing.T) {
	t.Run("succeeds on a later attempt", func(t *testing.T) {
		var calls atomic.Int32
		var sent []byte
		d, err := email.NewSMTPDispatcher(testSettings(),
			email.WithBackoffBase(time.Millisecond),
			email.WithSendFunc(func(_ context.Context, from string, to []string, msg []byte) error {
				if calls.Add(1) < 3 {
					return errors.New("connection reset")
				}
				require.Equal(t, "noreply@example.com", from)
				require.Equal(t, []string{"alice@example.com"}, to)
				sent = msg
				return nil
			}),
		)
		require.NoError(t, err)

		require.NoError(t, d.Deliver(context.Background(), testMessage(challenge.PurposeVerification)))
		require.Equal(t, int32(3), calls.Load())
		require.Contains(t, string(sent), "Subject: FoodLens verification code")
		require.Contains(t, string(sent), "042137")
		require.Contains(t, string(sent), "expires in 10 minute(s)")
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		var calls atomic.Int32
		d, err := email.NewSMTPDispatcher(testSettings(),
			email.WithBackoffBase(time.Millisecond),
			email.WithSendFunc(func(context.Context, string, []string, []byte) error {
				calls.Add(1)
				return errors.New("relay down")
			}),
		)
		require.NoError(t, err)

		err = d.Deliver(context.Background(), testMessage(challenge.PurposePasswordReset))
		require.ErrorIs(t, err, email.ErrDelivery)
		require.Equal(t, int32(3), calls.Load())
	})

	t.Run("reset subject", func(t *testing.T) {
		var sent string
		d, err := email.NewSMTPDispatcher(testSettings(), email.WithSendFunc(func(_ context.Context, _ string, _ []string, msg []byte) error {
			sent = string(msg)
			return nil
		}))
		require.NoError(t, err)

		require.NoError(t, d.Deliver(context.Background(), testMessage(challenge.PurposePasswordReset)))
		require.True(t, strings.Contains(sent, "Subject: FoodLens password reset code"))
		require.Contains(t, sent, "\"FoodLens\" <noreply@example.com>")
	})
}

func TestNewFromConfig(t *testing.T) {
	load := func(t *testing.T, vars map[string]string) config.Config {
		t.Helper()
		c, err := config.LoadFrom(vars)
		require.NoError(t, err)
		return c
	}

	d := email.NewFromConfig(load(t, map[string]string{}), zerolog.Nop())
	require.Equal(t, "log", d.Mode())

	d = email.NewFromConfig(load(t, map[string]string{"AUTH_EMAIL_VERIFICATION_DELIVERY_MODE": "disabled"}), zerolog.Nop())
	require.Equal(t, "disabled", d.Mode())

	d = email.NewFromConfig(load(t, map[string]string{"AUTH_EMAIL_VERIFICATION_DELIVERY_MODE": "smtp"}), zerolog.Nop())
	require.Equal(t, "smtp", d.Mode())
	require.ErrorIs(t, d.Deliver(context.Background(), testMessage(challenge.PurposeVerification)), email.ErrDelivery)

	d = email.NewFromConfig(load(t, map[string]string{
		"AUTH_EMAIL_VERIFICATION_DELIVERY_MODE": "smtp",
		"AUTH_EMAIL_SMTP_HOST":                  "smtp.example.com",
		"AUTH_EMAIL_SENDER_FROM":                "noreply@example.com",
	}), zerolog.Nop())
	_, ok := d.(*email.SMTPDispatcher)
	require.True(t, ok)
}
