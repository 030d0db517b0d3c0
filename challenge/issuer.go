package challenge

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"time"

	autherrors "github.com/jrsteele09/go-session-auth/internal/errors"
	"github.com/jrsteele09/go-session-auth/internal/ids"
	"github.com/pkg/errors"
)

const (
	codeSpace    = 1_000_000
	secretLength = 32
)

var codeLimit = big.NewInt(codeSpace)

// Issuer generates six digit codes, stores only their HMAC and checks presented codes
// against the attempt limit and TTL.
type Issuer struct {
	repo    Repo
	secret  []byte
	nowFunc func() time.Time
}

type IssuerOption func(*Issuer)

// WithNowFunc sets the clock (primarily for testing)
func WithNowFunc(now func() time.Time) IssuerOption {
	return func(i *Issuer) {
		i.nowFunc = now
	}
}

// WithSecret sets the HMAC key used to hash codes. A random key is used otherwise,
// which invalidates outstanding codes on restart.
func WithSecret(secret []byte) IssuerOption {
	return func(i *Issuer) {
		if len(secret) > 0 {
			i.secret = append([]byte(nil), secret...)
		}
	}
}

func NewIssuer(repo Repo, options ...IssuerOption) (*Issuer, error) {
	if repo == nil {
		return nil, errors.New("[NewIssuer] challenge repo is required")
	}
	issuer := &Issuer{
		repo:    repo,
		nowFunc: time.Now,
	}
	for _, opt := range options {
		opt(issuer)
	}
	if len(issuer.secret) == 0 {
		issuer.secret = make([]byte, secretLength)
		if _, err := rand.Read(issuer.secret); err != nil {
			return nil, errors.Wrap(err, "[NewIssuer] rand.Read")
		}
	}
	return issuer, nil
}

// Issue creates a new record for the user, superseding any live record of the same purpose.
// The raw code is returned once so it can be delivered.
func (i *Issuer) Issue(purpose Purpose, userID, email string, policy Policy) (*Record, string, error) {
	n, err := rand.Int(rand.Reader, codeLimit)
	if err != nil {
		return nil, "", errors.Wrap(err, "[Issuer.Issue] rand.Int")
	}
	code := fmt.Sprintf("%06d", n.Int64())

	record := &Record{
		ID:        ids.New(idPrefix(purpose)),
		Purpose:   purpose,
		UserID:    userID,
		Email:     email,
		CodeHash:  i.hashCode(userID, code),
		ExpiresAt: i.nowFunc().Add(policy.TTL),
	}
	if err := i.repo.Put(record); err != nil {
		return nil, "", errors.Wrap(err, "[Issuer.Issue] Put")
	}
	return record, code, nil
}

// Verify checks a presented code. A wrong code counts against the record; reaching the
// policy's attempt limit consumes and locks it, after which even the right code is refused.
func (i *Issuer) Verify(purpose Purpose, userID, code string, policy Policy) (Outcome, error) {
	record, err := i.repo.Get(purpose, userID)
	if autherrors.Is(err, autherrors.ErrNotFound) {
		return OutcomeMissing, nil
	}
	if err != nil {
		return OutcomeMissing, errors.Wrap(err, "[Issuer.Verify] Get")
	}

	now := i.nowFunc()
	if record.Locked {
		return OutcomeLocked, nil
	}
	if record.ConsumedAt != nil || !now.Before(record.ExpiresAt) {
		return OutcomeExpired, nil
	}

	expected := i.hashCode(userID, strings.TrimSpace(code))
	if !hmac.Equal([]byte(record.CodeHash), []byte(expected)) {
		record.FailedAttempts++
		outcome := OutcomeInvalid
		if record.FailedAttempts >= policy.MaxAttempts {
			record.ConsumedAt = &now
			record.Locked = true
			outcome = OutcomeLocked
		}
		if err := i.repo.Put(record); err != nil {
			return outcome, errors.Wrap(err, "[Issuer.Verify] Put")
		}
		return outcome, nil
	}

	record.ConsumedAt = &now
	if err := i.repo.Put(record); err != nil {
		return OutcomeVerified, errors.Wrap(err, "[Issuer.Verify] Put")
	}
	return OutcomeVerified, nil
}

// Discard drops the record only while it is still the given, unconsumed record, so a
// newer reissue is left alone.
func (i *Issuer) Discard(purpose Purpose, userID, recordID string) error {
	record, err := i.repo.Get(purpose, userID)
	if autherrors.Is(err, autherrors.ErrNotFound) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "[Issuer.Discard] Get")
	}
	if record.ID != recordID || record.ConsumedAt != nil {
		return nil
	}
	return i.repo.Delete(purpose, userID)
}

// DiscardAll drops every record held for the user.
func (i *Issuer) DiscardAll(userID string) error {
	return i.repo.DeleteUser(userID)
}

func (i *Issuer) hashCode(userID, code string) string {
	mac := hmac.New(sha256.New, i.secret)
	mac.Write([]byte(userID + ":" + code))
	return hex.EncodeToString(mac.Sum(nil))
}

func idPrefix(purpose Purpose) string {
	if purpose == PurposePasswordReset {
		return ids.PasswordResetPrefix
	}
	return ids.VerificationPrefix
}
