package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// AdminOpsService implements the privileged create-admin and reset-password
// operations.
type AdminOpsService struct {
	profiles     ProfileRepository
	credentials  CredentialRepository
	hashPassword PasswordHasher
	tempPassword func() (string, error)
	idGenerator  func() string
	now          func() time.Time
	logger       *slog.Logger
}

// NewAdminOpsService constructs the service.
func NewAdminOpsService(profiles ProfileRepository, credentials CredentialRepository, idGenerator func() string, now func() time.Time) *AdminOpsService {
	return NewAdminOpsServiceWithLogger(profiles, credentials, idGenerator, now, nil)
}

// NewAdminOpsServiceWithLogger constructs the service with a specified logger.
func NewAdminOpsServiceWithLogger(profiles ProfileRepository, credentials CredentialRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *AdminOpsService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &AdminOpsService{
		profiles:     profiles,
		credentials:  credentials,
		hashPassword: HashPassword,
		tempPassword: GenerateTemporaryPassword,
		idGenerator:  idGenerator,
		now:          now,
		logger:       defaultLogger(logger),
	}
}

// WithPasswordFuncs overrides password hashing and temporary password generation.
func (s *AdminOpsService) WithPasswordFuncs(hash PasswordHasher, temp func() (string, error)) *AdminOpsService {
	if hash != nil {
		s.hashPassword = hash
	}
	if temp != nil {
		s.tempPassword = temp
	}
	return s
}

func (s *AdminOpsService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AdminOpsService", operation, attrs...)
}

func (s *AdminOpsService) ready() error {
	if s == nil {
		return fmt.Errorf("AdminOpsService is nil")
	}
	if s.profiles == nil || s.credentials == nil {
		return fmt.Errorf("identity repositories not configured")
	}
	return nil
}

// authorize re-reads the caller's stored profile and requires the admin role.
func (s *AdminOpsService) authorize(ctx context.Context, principal Principal) error {
	if principal.UserID == "" {
		return ErrUnauthenticated
	}
	caller, err := s.profiles.GetProfile(ctx, principal.UserID)
	if err != nil {
		if err = mapRepoError(err); errors.Is(err, ErrNotFound) {
			return ErrUnauthorized
		}
		return err
	}
	if caller.Role != RoleAdmin || caller.IsBlocked {
		return ErrUnauthorized
	}
	return nil
}

// CreateAdmin provisions a new administrator on behalf of an administrator.
func (s *AdminOpsService) CreateAdmin(ctx context.Context, params CreateAdminParams) (result CreateAdminResult, err error) {
	if err = s.ready(); err != nil {
		return
	}
	if err = s.authorize(ctx, params.Principal); err != nil {
		s.loggerWith(ctx, "CreateAdmin", "principal_id", params.Principal.UserID).
			WarnContext(ctx, "create-admin rejected", "error", err, "error_kind", ErrorKind(err))
		return
	}
	return s.ProvisionAdmin(ctx, params.Name, params.Email)
}

// ProvisionAdmin creates an identity with a temporary password that must be
// changed, then promotes its profile to admin with the given name. When the
// promotion fails the identity is removed again and ErrProfileSetupFailed is
// returned.
func (s *AdminOpsService) ProvisionAdmin(ctx context.Context, name, email string) (result CreateAdminResult, err error) {
	if err = s.ready(); err != nil {
		return
	}

	name = strings.TrimSpace(name)
	email = normalizeEmail(email)

	logger := s.loggerWith(ctx, "ProvisionAdmin", "email", email)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to provision admin", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("user_id", result.Profile.ID).InfoContext(ctx, "admin provisioned")
	}()

	if vErr := validateIdentity(name, email); vErr.HasErrors() {
		err = vErr
		return
	}

	var password string
	password, err = s.tempPassword()
	if err != nil {
		return
	}

	var profile Profile
	profile, err = createIdentity(ctx, s.profiles, s.credentials, s.hashPassword, s.idGenerator, s.now, email, "", password, true)
	if err != nil {
		return
	}

	profile.Name = name
	profile.Role = RoleAdmin
	if updateErr := s.profiles.UpdateProfile(ctx, profile); updateErr != nil {
		logger.ErrorContext(ctx, "profile promotion failed, removing identity", "error", updateErr, "user_id", profile.ID)
		if delErr := s.profiles.DeleteProfile(ctx, profile.ID); delErr != nil {
			err = errors.Join(ErrProfileSetupFailed, delErr)
			return
		}
		err = ErrProfileSetupFailed
		return
	}

	result = CreateAdminResult{Profile: profile, TemporaryPassword: password}
	return
}

// ResetPassword assigns a fresh temporary password to a user and flags it for change.
func (s *AdminOpsService) ResetPassword(ctx context.Context, params ResetPasswordParams) (password string, err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "ResetPassword", "principal_id", params.Principal.UserID, "user_id", params.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to reset password", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "password reset")
	}()

	if err = s.authorize(ctx, params.Principal); err != nil {
		return
	}
	if strings.TrimSpace(params.UserID) == "" {
		err = newValidationError("userId", "userId is required")
		return
	}

	var profile Profile
	profile, err = s.profiles.GetProfile(ctx, params.UserID)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	var temp, hashed string
	temp, err = s.tempPassword()
	if err != nil {
		return
	}
	hashed, err = s.hashPassword(temp)
	if err != nil {
		err = fmt.Errorf("hash password: %w", err)
		return
	}
	if err = s.credentials.UpsertCredential(ctx, Credential{UserID: profile.ID, PasswordHash: hashed, UpdatedAt: s.now()}); err != nil {
		err = mapRepoError(err)
		return
	}

	profile.MustChangePassword = true
	if err = s.profiles.UpdateProfile(ctx, profile); err != nil {
		err = mapRepoError(err)
		return
	}

	password = temp
	return
}
