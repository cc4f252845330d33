package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// ProfileService manages the acting user's profile and the admin user list.
type ProfileService struct {
	profiles ProfileRepository
	now      func() time.Time
	location *time.Location
	logger   *slog.Logger
}

// NewProfileService constructs a ProfileService. A nil location means UTC.
func NewProfileService(profiles ProfileRepository, now func() time.Time, location *time.Location) *ProfileService {
	return NewProfileServiceWithLogger(profiles, now, location, nil)
}

// NewProfileServiceWithLogger constructs a ProfileService with a specified logger.
func NewProfileServiceWithLogger(profiles ProfileRepository, now func() time.Time, location *time.Location, logger *slog.Logger) *ProfileService {
	if now == nil {
		now = time.Now
	}
	if location == nil {
		location = time.UTC
	}
	return &ProfileService{profiles: profiles, now: now, location: location, logger: defaultLogger(logger)}
}

func (s *ProfileService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ProfileService", operation, attrs...)
}

func (s *ProfileService) ready() error {
	if s == nil {
		return fmt.Errorf("ProfileService is nil")
	}
	if s.profiles == nil {
		return fmt.Errorf("profile repository not configured")
	}
	return nil
}

// GetProfile returns the acting user's profile.
func (s *ProfileService) GetProfile(ctx context.Context, principal Principal) (Profile, error) {
	if err := s.ready(); err != nil {
		return Profile{}, err
	}
	if principal.UserID == "" {
		return Profile{}, ErrUnauthenticated
	}
	profile, err := s.profiles.GetProfile(ctx, principal.UserID)
	if err != nil {
		return Profile{}, mapRepoError(err)
	}
	return profile, nil
}

// UpdateProfile changes the acting user's phone number and avatar URL.
func (s *ProfileService) UpdateProfile(ctx context.Context, params UpdateProfileParams) (profile Profile, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "UpdateProfile", "principal_id", params.Principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update profile", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "profile updated")
	}()

	profile, err = s.GetProfile(ctx, params.Principal)
	if err != nil {
		return
	}

	if params.PhoneNumber != nil {
		profile.PhoneNumber = normalizeOptionalString(params.PhoneNumber)
	}
	if params.AvatarURL != nil {
		profile.AvatarURL = normalizeOptionalString(params.AvatarURL)
	}

	if err = s.profiles.UpdateProfile(ctx, profile); err != nil {
		err = mapRepoError(err)
		return
	}
	return
}

// ListUsers returns every profile, newest first, for administrators.
func (s *ProfileService) ListUsers(ctx context.Context, principal Principal) ([]Profile, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if !principal.IsAdmin() {
		return nil, ErrUnauthorized
	}

	profiles, err := s.profiles.ListProfiles(ctx)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return profiles, nil
}

// SetBlocked blocks or unblocks a user. Administrators cannot block themselves.
func (s *ProfileService) SetBlocked(ctx context.Context, params SetBlockedParams) (profile Profile, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "SetBlocked",
		"principal_id", params.Principal.UserID,
		"user_id", params.UserID,
		"blocked", params.Blocked,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to change blocked flag", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "blocked flag changed")
	}()

	if !params.Principal.IsAdmin() {
		err = ErrUnauthorized
		return
	}
	if params.UserID == params.Principal.UserID {
		err = newValidationError("user_id", "you cannot block your own account")
		return
	}

	profile, err = s.profiles.GetProfile(ctx, params.UserID)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	profile.IsBlocked = params.Blocked
	if err = s.profiles.UpdateProfile(ctx, profile); err != nil {
		err = mapRepoError(err)
	}
	return
}

// DeleteUser removes a user together with their reservations and sessions.
func (s *ProfileService) DeleteUser(ctx context.Context, principal Principal, userID string) (err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "DeleteUser", "principal_id", principal.UserID, "user_id", userID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete user", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "user deleted")
	}()

	if !principal.IsAdmin() {
		err = ErrUnauthorized
		return
	}
	if userID == principal.UserID {
		err = newValidationError("user_id", "you cannot delete your own account")
		return
	}

	err = mapRepoError(s.profiles.DeleteProfile(ctx, userID))
	return
}

// ExportUsers renders the user list as a CSV file for administrators.
func (s *ProfileService) ExportUsers(ctx context.Context, principal Principal) (UserExport, error) {
	profiles, err := s.ListUsers(ctx, principal)
	if err != nil {
		return UserExport{}, err
	}
	return RenderUserExport(profiles, s.now().In(s.location), s.location), nil
}

func normalizeOptionalString(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
