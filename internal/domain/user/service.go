package user

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BigBr41n/Dz-Stores-Finder/internal/platform/apperr"
	"github.com/BigBr41n/Dz-Stores-Finder/internal/platform/password"
)

var (
	ErrEmailTaken         = errors.New("email already taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotVerified        = errors.New("account not verified")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrAlreadyActivated   = errors.New("account already activated")
	ErrMissingPassword    = errors.New("old and new password are required")
	ErrInvalidRole        = errors.New("invalid role")
)

const DefaultTokenTTL = time.Hour

// Notifier delivers account mail. Each call may fail; the caller decides
// whether the failure aborts the operation.
type Notifier interface {
	SendActivation(ctx context.Context, email, name, token string) error
	SendResetToken(ctx context.Context, email, name, token string) error
	NotifyPasswordChanged(ctx context.Context, email, name string) error
}

type TokenIssuer interface {
	IssueAccess(userID, role string) (string, error)
	IssueRefresh(userID string) (string, error)
	ParseRefresh(token string) (string, error)
}

// LoginResult echoes the submitted credentials next to the issued tokens.
type LoginResult struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	User         *User  `json:"-"`
}

type Tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type Service struct {
	repo       Repository
	hasher     PasswordHasher
	notifier   Notifier
	background Notifier
	tokens     TokenIssuer
	log        *zap.Logger

	tokenTTL time.Duration
	now      func() time.Time
	newToken func() (string, error)
}

type Option func(*Service)

// WithBackgroundNotifier routes the non-fatal mails (reset token, password
// changed) through n, typically a queue.
func WithBackgroundNotifier(n Notifier) Option {
	return func(s *Service) { s.background = n }
}

func WithTokenTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.tokenTTL = ttl
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithTokenGenerator(gen func() (string, error)) Option {
	return func(s *Service) { s.newToken = gen }
}

func NewService(repo Repository, hasher PasswordHasher, notifier Notifier, tokens TokenIssuer, log *zap.Logger, opts ...Option) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{
		repo:     repo,
		hasher:   hasher,
		notifier: notifier,
		tokens:   tokens,
		log:      log.Named("account"),
		tokenTTL: DefaultTokenTTL,
		now:      time.Now,
		newToken: NewVerificationToken,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.background == nil {
		s.background = notifier
	}
	return s
}

// NewVerificationToken returns 32 random bytes, hex encoded.
func NewVerificationToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func (s *Service) SignUp(ctx context.Context, name, email, plain string) (*User, error) {
	name = strings.TrimSpace(name)
	email = NormalizeEmail(email)
	if name == "" || email == "" {
		return nil, apperr.BadRequest("validation_error", "name and email are required", nil)
	}
	if err := password.Validate(plain); err != nil {
		return nil, apperr.BadRequest("weak_password", err.Error(), err)
	}

	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, apperr.Conflict("email_taken", "user already exists", ErrEmailTaken)
	} else if !errors.Is(err, ErrNotFound) {
		return nil, s.internal("signup lookup", err)
	}

	token, err := s.newToken()
	if err != nil {
		return nil, s.internal("generate activation token", err)
	}

	u := &User{
		Name:            name,
		Email:           email,
		Role:            RoleUser,
		ActivationToken: token,
		ActiveExpires:   s.now().Add(s.tokenTTL).UnixMilli(),
	}
	u.SetPassword(plain)

	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, apperr.Conflict("email_taken", "user already exists", err)
		}
		return nil, s.internal("create user", err)
	}

	if err := s.notifier.SendActivation(ctx, u.Email, u.Name, token); err != nil {
		s.log.Error("activation mail failed, removing account",
			zap.String("email", u.Email), zap.Error(err))
		if delErr := s.repo.DeleteByEmail(ctx, u.Email); delErr != nil {
			s.log.Error("compensating delete failed", zap.String("email", u.Email), zap.Error(delErr))
		}
		return nil, apperr.Internal("activation_email_failed", "could not send activation email", err)
	}

	s.log.Info("user signed up", zap.String("user_id", u.ID))
	return u, nil
}

// Login checks the password before the verified flag.
func (s *Service) Login(ctx context.Context, email, plain string) (*LoginResult, error) {
	u, err := s.repo.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperr.NotFound("user_not_found", "user not found", err)
		}
		return nil, s.internal("login lookup", err)
	}

	if !s.hasher.Compare(u.PasswordHash, plain) {
		return nil, apperr.Unauthorized("invalid_credentials", "invalid credentials", ErrInvalidCredentials)
	}
	if !u.Verified {
		return nil, apperr.Unauthorized("account_not_verified", "please verify your email first", ErrNotVerified)
	}

	tokens, err := s.issue(u)
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		Email:        email,
		Password:     plain,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		User:         u,
	}, nil
}

func (s *Service) Activate(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, apperr.InvalidOrExpired("invalid_token", "activation token is invalid or expired", ErrInvalidToken)
	}

	u, err := s.repo.FindByActivationToken(ctx, token, s.now())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, apperr.InvalidOrExpired("invalid_token", "activation token is invalid or expired", ErrInvalidToken)
		}
		return false, s.internal("activation lookup", err)
	}
	if u.Verified {
		return false, apperr.Conflict("already_activated", "account already activated", ErrAlreadyActivated)
	}

	u.Verified = true
	u.ActivationToken = ""
	u.ActiveExpires = 0
	if err := s.repo.Save(ctx, u); err != nil {
		return false, s.internal("activate user", err)
	}

	s.log.Info("account activated", zap.String("user_id", u.ID))
	return true, nil
}

func (s *Service) ForgotPassword(ctx context.Context, email string) (bool, error) {
	email = NormalizeEmail(email)
	u, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.log.Info("password reset requested for unknown email")
			return false, apperr.NotFound("invalid_email", "invalid email", err)
		}
		return false, s.internal("forgot password lookup", err)
	}

	token, err := s.newToken()
	if err != nil {
		return false, s.internal("generate reset token", err)
	}
	u.ChangePassToken = token
	u.ChangePassTokenExpires = s.now().Add(s.tokenTTL).UnixMilli()
	if err := s.repo.Save(ctx, u); err != nil {
		return false, s.internal("store reset token", err)
	}

	if err := s.background.SendResetToken(ctx, u.Email, u.Name, token); err != nil {
		s.log.Warn("reset mail not dispatched", zap.String("user_id", u.ID), zap.Error(err))
	}
	return true, nil
}

func (s *Service) ConfirmForgotPassword(ctx context.Context, token, newPassword string) (bool, error) {
	if token == "" {
		return false, apperr.InvalidOrExpired("invalid_token", "reset token is invalid or expired", ErrInvalidToken)
	}
	if err := password.Validate(newPassword); err != nil {
		return false, apperr.BadRequest("weak_password", err.Error(), err)
	}

	u, err := s.repo.FindByResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, apperr.InvalidOrExpired("invalid_token", "reset token is invalid or expired", ErrInvalidToken)
		}
		return false, s.internal("reset lookup", err)
	}
	if u.ChangePassTokenExpires <= s.now().UnixMilli() {
		return false, apperr.InvalidOrExpired("invalid_token", "reset token is invalid or expired", ErrInvalidToken)
	}

	u.SetPassword(newPassword)
	u.ChangePassToken = ""
	u.ChangePassTokenExpires = 0
	if err := s.repo.Save(ctx, u); err != nil {
		return false, s.internal("reset password", err)
	}

	s.notifyChanged(ctx, u)
	return true, nil
}

func (s *Service) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if oldPassword == "" || newPassword == "" {
		return apperr.BadRequest("missing_password", "old and new password are required", ErrMissingPassword)
	}

	u, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return apperr.NotFound("user_not_found", "user not found", err)
		}
		return s.internal("change password lookup", err)
	}
	if !s.hasher.Compare(u.PasswordHash, oldPassword) {
		return apperr.Unauthorized("invalid_credentials", "old password is incorrect", ErrInvalidCredentials)
	}
	if err := password.Validate(newPassword); err != nil {
		return apperr.BadRequest("weak_password", err.Error(), err)
	}

	u.SetPassword(newPassword)
	if err := s.repo.Save(ctx, u); err != nil {
		return s.internal("change password", err)
	}

	s.notifyChanged(ctx, u)
	return nil
}

// Refresh exchanges a refresh token for a new token pair.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Tokens, error) {
	userID, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return nil, apperr.Unauthorized("invalid_refresh_token", "refresh token is invalid or expired", err)
	}

	u, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperr.Unauthorized("user_not_found", "user no longer exists", err)
		}
		return nil, s.internal("refresh lookup", err)
	}
	if !u.Verified {
		return nil, apperr.Unauthorized("account_not_verified", "please verify your email first", ErrNotVerified)
	}
	return s.issue(u)
}

func (s *Service) GetByID(ctx context.Context, id string) (*User, error) {
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperr.NotFound("user_not_found", "user not found", err)
		}
		return nil, s.internal("get user", err)
	}
	return u, nil
}

func (s *Service) List(ctx context.Context) ([]User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, s.internal("list users", err)
	}
	return users, nil
}

func (s *Service) UpdateRole(ctx context.Context, id, role string) error {
	if !ValidRole(role) {
		return apperr.BadRequest("invalid_role", "role must be admin, user or editor", ErrInvalidRole)
	}
	if err := s.repo.UpdateRole(ctx, id, role); err != nil {
		if errors.Is(err, ErrNotFound) {
			return apperr.NotFound("user_not_found", "user not found", err)
		}
		return s.internal("update role", err)
	}
	s.log.Info("role updated", zap.String("user_id", id), zap.String("role", role))
	return nil
}

func (s *Service) issue(u *User) (*Tokens, error) {
	access, err := s.tokens.IssueAccess(u.ID, u.Role)
	if err != nil {
		return nil, s.internal("issue access token", err)
	}
	refresh, err := s.tokens.IssueRefresh(u.ID)
	if err != nil {
		return nil, s.internal("issue refresh token", err)
	}
	return &Tokens{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *Service) notifyChanged(ctx context.Context, u *User) {
	if err := s.background.NotifyPasswordChanged(ctx, u.Email, u.Name); err != nil {
		s.log.Warn("password change notice not dispatched", zap.String("user_id", u.ID), zap.Error(err))
	}
}

func (s *Service) internal(op string, err error) error {
	s.log.Error(op, zap.Error(err))
	return apperr.Internal("internal_error", "internal server error", err)
}
