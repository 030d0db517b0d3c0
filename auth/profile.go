package auth

import (
	"context"
	"strings"

	"github.com/jrsteele09/go-session-auth/internal/utils"
)

func (s *Service) GetProfile(_ context.Context, userID string) (view *ProfileView, err error) {
	defer func() { s.observe("get_profile", err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	profile, err := s.users.GetProfile(userID)
	if err != nil {
		return nil, NewError(CodeProfileNotFound).forUser(userID)
	}
	return newProfileView(profile), nil
}

// UpdateProfile applies the set fields. A blank display name clears it; a blank locale or
// timezone keeps the current value. Display name and locale are mirrored onto the user.
func (s *Service) UpdateProfile(_ context.Context, userID string, update ProfileUpdate) (view *ProfileView, err error) {
	defer func() { s.observe("update_profile", err) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	profile, err := s.users.GetProfile(userID)
	if err != nil {
		return nil, NewError(CodeProfileNotFound).forUser(userID)
	}
	user, err := s.users.GetByID(userID)
	if err != nil {
		return nil, NewError(CodeUserNotFound).forUser(userID)
	}

	if update.DisplayName != nil {
		profile.DisplayName = utils.NonEmpty(strings.TrimSpace(*update.DisplayName))
	}
	if update.Locale != nil {
		if locale := strings.TrimSpace(*update.Locale); locale != "" {
			profile.Locale = locale
		}
	}
	if update.Timezone != nil {
		if timezone := strings.TrimSpace(*update.Timezone); timezone != "" {
			profile.Timezone = timezone
		}
	}
	now := s.nowTime()
	profile.UpdatedAt = now

	user.DisplayName = utils.Clone(profile.DisplayName)
	user.Locale = profile.Locale
	user.UpdatedAt = now

	if err := s.users.UpdateProfile(profile); err != nil {
		return nil, internalError(err)
	}
	if err := s.users.Update(user); err != nil {
		return nil, internalError(err)
	}
	return newProfileView(profile), nil
}
