package email

import (
	"context"
	"fmt"

	"github.com/jrsteele09/go-session-auth/challenge"
	autherrors "github.com/jrsteele09/go-session-auth/internal/errors"
)

// ErrDelivery is returned (wrapped) by every dispatcher that could not hand a code over.
var ErrDelivery = autherrors.ErrDelivery

// Message is one challenge code addressed to a user.
type Message struct {
	Purpose    challenge.Purpose
	Email      string
	Code       string
	TTLSeconds int
	UserID     string
}

// Dispatcher delivers challenge codes. Implementations must be safe for concurrent use
// and are never called while the auth service holds its lock.
type Dispatcher interface {
	Deliver(ctx context.Context, msg Message) error
	Mode() string
}

func deliveryError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrDelivery, fmt.Sprintf(format, args...))
}

func eventName(purpose challenge.Purpose) string {
	if purpose == challenge.PurposePasswordReset {
		return "password reset"
	}
	return "verification"
}
