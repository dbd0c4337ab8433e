// Package auth registers users, issues and checks session tokens, and
// enforces roles.
package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/safar/storefront/internal/apperr"
	"github.com/safar/storefront/internal/logging"
	"github.com/safar/storefront/internal/metrics"
	"github.com/safar/storefront/internal/models"
	"github.com/safar/storefront/internal/store"
	"github.com/safar/storefront/internal/validate"
	"golang.org/x/crypto/bcrypt"
)

const invalidCredentials = "invalid email or password"

const maxPasswordBytes = 72

// Identity is the authenticated caller, read from the live user record.
type Identity = models.PublicUser

type RegisterInput struct {
	Username string `json:"username" validate:"required,max=64"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,max=72"`
}

type Session struct {
	Token     string
	ExpiresAt time.Time
	User      Identity
}

type Service struct {
	users     store.UserStore
	tokens    *TokenManager
	revoker   Revoker
	metrics   *metrics.Metrics
	validator *validate.Validator
	// dummyHash is compared against when the email is unknown so both
	// failure paths cost one bcrypt comparison.
	dummyHash []byte
}

func NewService(users store.UserStore, tokens *TokenManager, revoker Revoker, m *metrics.Metrics) *Service {
	if revoker == nil {
		revoker = NopRevoker{}
	}
	dummy, _ := bcrypt.GenerateFromPassword([]byte("storefront-placeholder"), bcrypt.DefaultCost)
	return &Service{
		users:     users,
		tokens:    tokens,
		revoker:   revoker,
		metrics:   m,
		validator: validate.New(),
		dummyHash: dummy,
	}
}

func (s *Service) TokenTTL() time.Duration {
	return s.tokens.TTL()
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*Identity, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}

	user, err := s.createUser(ctx, in, models.RoleUser)
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx).WithField("user_id", user.ID).Info("User registered")
	public := user.Public()
	return &public, nil
}

func (s *Service) createUser(ctx context.Context, in RegisterInput, role models.Role) (*models.User, error) {
	// bcrypt rejects input longer than 72 bytes; the tag above counts runes.
	if len(in.Password) > maxPasswordBytes {
		return nil, apperr.Validation("password must be at most %d bytes", maxPasswordBytes)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Server("error registering user", err)
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: string(hash),
		Role:         role,
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		var dup *store.DuplicateError
		if errors.As(err, &dup) {
			return nil, apperr.Conflict("user with this %s already exists", dup.Field)
		}
		return nil, apperr.Server("error registering user", err)
	}
	return user, nil
}

// Login checks credentials and issues a session. Unknown email and wrong
// password produce the same error.
func (s *Service) Login(ctx context.Context, email, password string) (_ *Session, err error) {
	defer func() { s.metrics.RecordLogin(err) }()

	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, apperr.Validation("email and password are required")
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return nil, apperr.Server("error logging in", err)
		}
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		logging.FromContext(ctx).Warn("Login failed")
		return nil, apperr.Auth(invalidCredentials)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		logging.FromContext(ctx).WithField("user_id", user.ID).Warn("Login failed")
		return nil, apperr.Auth(invalidCredentials)
	}

	token, claims, err := s.tokens.Issue(user)
	if err != nil {
		return nil, apperr.Server("error logging in", err)
	}

	return &Session{Token: token, ExpiresAt: claims.ExpiresAt.Time, User: user.Public()}, nil
}

// Authenticate resolves a session token to the current identity of its user.
func (s *Service) Authenticate(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, apperr.Auth("unauthorized user")
	}

	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, apperr.Auth("invalid or expired session")
	}

	revoked, err := s.revoker.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, apperr.Server("error checking session", err)
	}
	if revoked {
		return nil, apperr.Auth("invalid or expired session")
	}

	user, err := s.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.Auth("invalid or expired session")
		}
		return nil, apperr.Server("error checking session", err)
	}

	identity := user.Public()
	return &identity, nil
}

// Logout revokes token for its remaining lifetime. Tokens that no longer
// parse are already unusable, so they are ignored.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil
	}

	ttl := time.Until(claims.ExpiresAt.Time)
	if err := s.revoker.Revoke(ctx, claims.ID, ttl); err != nil {
		logging.FromContext(ctx).WithError(err).Warn("Token revocation failed")
	}
	return nil
}

func RequireRole(identity *Identity, role models.Role) error {
	if identity == nil {
		return apperr.Auth("unauthorized user")
	}
	if identity.Role != role {
		return apperr.Forbidden("access denied")
	}
	return nil
}

// EnsureAdmin creates the bootstrap admin or promotes the existing account
// with that email.
func (s *Service) EnsureAdmin(ctx context.Context, username, email, password string) error {
	existing, err := s.users.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Role == models.RoleAdmin {
			return nil
		}
		if err := s.users.UpdateUserRole(ctx, existing.ID, models.RoleAdmin); err != nil {
			return apperr.Server("error promoting admin", err)
		}
		logging.FromContext(ctx).WithField("user_id", existing.ID).Info("Promoted bootstrap admin")
		return nil
	case !errors.Is(err, store.ErrNotFound):
		return apperr.Server("error loading admin", err)
	}

	in := RegisterInput{Username: username, Email: email, Password: password}
	if err := s.validator.Struct(in); err != nil {
		return err
	}

	user, err := s.createUser(ctx, in, models.RoleAdmin)
	if err != nil {
		return err
	}

	logging.FromContext(ctx).WithField("user_id", user.ID).Info("Created bootstrap admin")
	return nil
}
