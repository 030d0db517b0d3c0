package ids

import (
	"strings"

	"github.com/oklog/ulid/v2"
)

const (
	UserPrefix          = "usr"
	SessionPrefix       = "sess"
	FamilyPrefix        = "family"
	VerificationPrefix  = "evr"
	PasswordResetPrefix = "prs"
)

// New returns a prefixed, time-ordered identifier such as "sess_01j9z3...".
func New(prefix string) string {
	return prefix + "_" + strings.ToLower(ulid.Make().String())
}
