package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"
)

// AuthService coordinates sign-up, sign-in, session refresh and access tokens.
type AuthService struct {
	profiles       ProfileRepository
	credentials    CredentialRepository
	sessions       SessionRepository
	hashPassword   PasswordHasher
	verifyPassword PasswordVerifier
	idGenerator    func() string
	tokenGenerator func() string
	now            func() time.Time
	sessionTTL     time.Duration
	signer         *TokenSigner
	logger         *slog.Logger
}

// NewAuthService constructs an AuthService with the provided dependencies.
func NewAuthService(profiles ProfileRepository, credentials CredentialRepository, sessions SessionRepository, idGenerator, tokenGenerator func() string, now func() time.Time, sessionTTL time.Duration) *AuthService {
	return NewAuthServiceWithLogger(profiles, credentials, sessions, idGenerator, tokenGenerator, now, sessionTTL, nil)
}

// NewAuthServiceWithLogger constructs an AuthService with a specified logger.
func NewAuthServiceWithLogger(profiles ProfileRepository, credentials CredentialRepository, sessions SessionRepository, idGenerator, tokenGenerator func() string, now func() time.Time, sessionTTL time.Duration, logger *slog.Logger) *AuthService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if tokenGenerator == nil {
		tokenGenerator = idGenerator
	}
	if now == nil {
		now = time.Now
	}
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}
	return &AuthService{
		profiles:       profiles,
		credentials:    credentials,
		sessions:       sessions,
		hashPassword:   HashPassword,
		verifyPassword: VerifyPassword,
		idGenerator:    idGenerator,
		tokenGenerator: tokenGenerator,
		now:            now,
		sessionTTL:     sessionTTL,
		logger:         defaultLogger(logger),
	}
}

// WithPasswordFuncs replaces the password hasher and verifier. Nil keeps the current one.
func (s *AuthService) WithPasswordFuncs(hash PasswordHasher, verify PasswordVerifier) *AuthService {
	if hash != nil {
		s.hashPassword = hash
	}
	if verify != nil {
		s.verifyPassword = verify
	}
	return s
}

// WithAccessTokens enables IssueAccessToken and VerifyAccessToken.
func (s *AuthService) WithAccessTokens(signer *TokenSigner) *AuthService {
	s.signer = signer
	return s
}

func (s *AuthService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AuthService", operation, attrs...)
}

func (s *AuthService) ready() error {
	if s == nil {
		return fmt.Errorf("AuthService is nil")
	}
	if s.profiles == nil || s.credentials == nil {
		return fmt.Errorf("identity repositories not configured")
	}
	if s.sessions == nil {
		return fmt.Errorf("session repository not configured")
	}
	return nil
}

// SignUp registers a worker identity with its profile and starts a session.
func (s *AuthService) SignUp(ctx context.Context, params SignUpParams) (result AuthenticateResult, err error) {
	if err = s.ready(); err != nil {
		return
	}

	email := normalizeEmail(params.Email)
	name := strings.TrimSpace(params.Name)

	logger := s.loggerWith(ctx, "SignUp", "email", email)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "sign-up failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("user_id", result.Profile.ID, "session_id", result.Session.ID).InfoContext(ctx, "sign-up succeeded")
	}()

	vErr := validateIdentity(name, email)
	vErr.merge(validatePassword("password", params.Password))
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var profile Profile
	profile, err = s.createIdentity(ctx, email, name, params.Password, false)
	if err != nil {
		return
	}

	var session Session
	session, err = s.startSession(ctx, profile.ID)
	if err != nil {
		return
	}

	result = AuthenticateResult{Profile: profile, Session: session}
	return
}

// createIdentity stores a worker profile and its credential, removing the
// profile again when the credential cannot be written.
func (s *AuthService) createIdentity(ctx context.Context, email, name, password string, mustChange bool) (Profile, error) {
	return createIdentity(ctx, s.profiles, s.credentials, s.hashPassword, s.idGenerator, s.now, email, name, password, mustChange)
}

func createIdentity(ctx context.Context, profiles ProfileRepository, credentials CredentialRepository, hash PasswordHasher, idGenerator func() string, now func() time.Time, email, name, password string, mustChange bool) (Profile, error) {
	if _, err := profiles.GetProfileByEmail(ctx, email); err == nil {
		return Profile{}, ErrAlreadyExists
	} else if mapped := mapRepoError(err); !errors.Is(mapped, ErrNotFound) {
		return Profile{}, mapped
	}

	hashed, err := hash(password)
	if err != nil {
		return Profile{}, fmt.Errorf("hash password: %w", err)
	}

	created := now()
	profile := Profile{
		ID:                 idGenerator(),
		Email:              email,
		Name:               name,
		Role:               RoleWorker,
		MustChangePassword: mustChange,
		CreatedAt:          created,
	}
	if err := profiles.CreateProfile(ctx, profile); err != nil {
		return Profile{}, mapRepoError(err)
	}

	if err := credentials.UpsertCredential(ctx, Credential{UserID: profile.ID, PasswordHash: hashed, UpdatedAt: created}); err != nil {
		if delErr := profiles.DeleteProfile(ctx, profile.ID); delErr != nil {
			return Profile{}, errors.Join(mapRepoError(err), delErr)
		}
		return Profile{}, mapRepoError(err)
	}
	return profile, nil
}

// Authenticate validates credentials and issues a new session token.
func (s *AuthService) Authenticate(ctx context.Context, params AuthenticateParams) (result AuthenticateResult, err error) {
	if err = s.ready(); err != nil {
		return
	}

	email := normalizeEmail(params.Email)
	password := params.Password

	logger := s.loggerWith(ctx, "Authenticate",
		"email", email,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "authentication failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With(
			"user_id", result.Profile.ID,
			"session_id", result.Session.ID,
		).InfoContext(ctx, "authentication succeeded")
	}()

	if email == "" || password == "" {
		err = ErrInvalidCredentials
		return
	}

	var profile Profile
	profile, err = s.profiles.GetProfileByEmail(ctx, email)
	if err != nil {
		if err = mapRepoError(err); errors.Is(err, ErrNotFound) {
			err = ErrInvalidCredentials
		}
		return
	}

	var cred Credential
	cred, err = s.credentials.GetCredential(ctx, profile.ID)
	if err != nil {
		if err = mapRepoError(err); errors.Is(err, ErrNotFound) {
			err = ErrInvalidCredentials
		}
		return
	}

	if err = s.verifyPassword(cred.PasswordHash, password); err != nil {
		err = ErrInvalidCredentials
		return
	}

	if profile.IsBlocked {
		err = ErrAccountDisabled
		return
	}

	var session Session
	session, err = s.startSession(ctx, profile.ID)
	if err != nil {
		return
	}

	result = AuthenticateResult{Profile: profile, Session: session}
	return
}

func (s *AuthService) startSession(ctx context.Context, userID string) (Session, error) {
	now := s.now()
	id := s.idGenerator()
	token := s.tokenGenerator()
	if token == "" {
		token = id
	}

	if err := s.sessions.DeleteExpiredSessions(ctx, now); err != nil {
		return Session{}, err
	}

	session, err := s.sessions.CreateSession(ctx, Session{
		ID:        id,
		UserID:    userID,
		Token:     token,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	})
	if err != nil {
		return Session{}, mapRepoError(err)
	}
	return session, nil
}

// RefreshSession rotates an existing session token, extending its validity window.
func (s *AuthService) RefreshSession(ctx context.Context, params RefreshSessionParams) (result RefreshSessionResult, err error) {
	if err = s.ready(); err != nil {
		return
	}

	token := strings.TrimSpace(params.Token)
	logger := s.loggerWith(ctx, "RefreshSession",
		"token_provided", token != "",
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "session refresh failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With(
			"session_id", result.Session.ID,
			"user_id", result.Session.UserID,
		).InfoContext(ctx, "session refreshed")
	}()

	var session Session
	session, err = s.activeSession(ctx, token)
	if err != nil {
		return
	}

	now := s.now()
	newToken := s.tokenGenerator()
	if newToken == "" {
		newToken = session.Token
	}

	session.Token = newToken
	session.UpdatedAt = now
	session.ExpiresAt = now.Add(s.sessionTTL)

	session, err = s.sessions.UpdateSession(ctx, session)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	result = RefreshSessionResult{Session: session}
	return
}

// RevokeSession invalidates an existing session token.
func (s *AuthService) RevokeSession(ctx context.Context, token string) error {
	if err := s.ready(); err != nil {
		return err
	}

	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return ErrUnauthenticated
	}

	logger := s.loggerWith(ctx, "RevokeSession", "token_provided", true)

	if _, err := s.sessions.RevokeSession(ctx, trimmed, s.now()); err != nil {
		err = mapRepoError(err)
		if errors.Is(err, ErrNotFound) {
			err = ErrUnauthenticated
		}
		logger.ErrorContext(ctx, "failed to revoke session", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	if err := s.sessions.DeleteExpiredSessions(ctx, s.now()); err != nil {
		logger.ErrorContext(ctx, "failed to prune expired sessions", "error", err, "error_kind", ErrorKind(err))
		return err
	}
	logger.InfoContext(ctx, "session revoked")
	return nil
}

// ValidateSession verifies that the provided token corresponds to an active
// session of an unblocked profile and returns its principal.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (principal Principal, err error) {
	if err = s.ready(); err != nil {
		return
	}

	trimmed := strings.TrimSpace(token)
	logger := s.loggerWith(ctx, "ValidateSession", "token_provided", trimmed != "")
	defer func() {
		if err != nil {
			logger.WarnContext(ctx, "session validation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("principal_id", principal.UserID).DebugContext(ctx, "session validated")
	}()

	var session Session
	session, err = s.activeSession(ctx, trimmed)
	if err != nil {
		return
	}

	principal, err = s.activePrincipal(ctx, session.UserID)
	return
}

func (s *AuthService) activeSession(ctx context.Context, token string) (Session, error) {
	if token == "" {
		return Session{}, ErrUnauthenticated
	}

	session, err := s.sessions.GetSession(ctx, token)
	if err != nil {
		if err = mapRepoError(err); errors.Is(err, ErrNotFound) {
			return Session{}, ErrUnauthenticated
		}
		return Session{}, err
	}

	now := s.now()
	if session.RevokedAt != nil && !session.RevokedAt.IsZero() {
		return Session{}, ErrSessionRevoked
	}
	if !session.ExpiresAt.IsZero() && !session.ExpiresAt.After(now) {
		return Session{}, ErrSessionExpired
	}
	return session, nil
}

func (s *AuthService) activePrincipal(ctx context.Context, userID string) (Principal, error) {
	profile, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		if err = mapRepoError(err); errors.Is(err, ErrNotFound) {
			return Principal{}, ErrUnauthenticated
		}
		return Principal{}, err
	}
	if profile.IsBlocked {
		return Principal{}, ErrAccountDisabled
	}
	return profile.Principal(), nil
}

// ChangePassword replaces the acting user's password and clears the
// must-change flag set by temporary passwords.
func (s *AuthService) ChangePassword(ctx context.Context, params ChangePasswordParams) (err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "ChangePassword", "principal_id", params.Principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "password change failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "password changed")
	}()

	if params.Principal.UserID == "" {
		err = ErrUnauthenticated
		return
	}
	if vErr := validatePassword("new_password", params.NewPassword); vErr.HasErrors() {
		err = vErr
		return
	}

	var cred Credential
	cred, err = s.credentials.GetCredential(ctx, params.Principal.UserID)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	if err = s.verifyPassword(cred.PasswordHash, params.CurrentPassword); err != nil {
		err = ErrInvalidCredentials
		return
	}

	var hashed string
	hashed, err = s.hashPassword(params.NewPassword)
	if err != nil {
		err = fmt.Errorf("hash password: %w", err)
		return
	}
	if err = s.credentials.UpsertCredential(ctx, Credential{UserID: cred.UserID, PasswordHash: hashed, UpdatedAt: s.now()}); err != nil {
		err = mapRepoError(err)
		return
	}

	var profile Profile
	profile, err = s.profiles.GetProfile(ctx, params.Principal.UserID)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	if profile.MustChangePassword {
		profile.MustChangePassword = false
		if err = s.profiles.UpdateProfile(ctx, profile); err != nil {
			err = mapRepoError(err)
			return
		}
	}
	return nil
}

// IssueAccessToken signs a short-lived bearer token for the privileged functions.
func (s *AuthService) IssueAccessToken(ctx context.Context, principal Principal) (token AccessToken, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if s.signer == nil {
		err = fmt.Errorf("access tokens not configured")
		return
	}
	if principal.UserID == "" {
		err = ErrUnauthenticated
		return
	}

	token, err = s.signer.Sign(principal)
	if err == nil {
		s.loggerWith(ctx, "IssueAccessToken", "principal_id", principal.UserID).
			InfoContext(ctx, "access token issued", "expires_at", token.ExpiresAt)
	}
	return
}

// VerifyAccessToken checks the token signature and expiry and returns the
// caller's current principal. The role is read from the stored profile, not
// from the token.
func (s *AuthService) VerifyAccessToken(ctx context.Context, token string) (Principal, error) {
	if err := s.ready(); err != nil {
		return Principal{}, err
	}
	if s.signer == nil {
		return Principal{}, fmt.Errorf("access tokens not configured")
	}

	claimed, err := s.signer.Verify(strings.TrimSpace(token))
	if err != nil {
		s.loggerWith(ctx, "VerifyAccessToken").WarnContext(ctx, "access token rejected", "error", err, "error_kind", ErrorKind(err))
		return Principal{}, err
	}

	principal, err := s.activePrincipal(ctx, claimed.UserID)
	if errors.Is(err, ErrUnauthenticated) {
		return Principal{}, ErrInvalidToken
	}
	return principal, err
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateIdentity(name, email string) *ValidationError {
	vErr := &ValidationError{}
	if name == "" {
		vErr.add("name", "name is required")
	}
	if email == "" {
		vErr.add("email", "email is required")
	} else if _, err := mail.ParseAddress(email); err != nil {
		vErr.add("email", "email is invalid")
	}
	return vErr
}
