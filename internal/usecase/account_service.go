package usecase

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"cmaxbonds/internal/domain"
	"cmaxbonds/internal/metrics"
	"cmaxbonds/pkg/logger"
)

var comparePassword = bcrypt.CompareHashAndPassword

// unknownUserHash is compared against when the username does not exist
var unknownUserHash, _ = bcrypt.GenerateFromPassword([]byte("cmax-unknown-user"), bcrypt.DefaultCost)

// DefaultUser is seeded into an empty user store
type DefaultUser struct {
	Username string
	Password string
	Email    string
	Role     string
}

// DefaultUsers are the accounts created on first start
var DefaultUsers = []DefaultUser{
	{Username: "admin", Password: "admin123", Email: "admin@cmax.com", Role: domain.RoleAdmin},
	{Username: "usuario1", Password: "user123", Email: "usuario1@cmax.com", Role: domain.RoleUser},
}

// AccountOption configures an AccountService
type AccountOption func(*AccountService)

// WithAccountClock overrides the clock used for code expiry
func WithAccountClock(now func() time.Time) AccountOption {
	return func(s *AccountService) { s.now = now }
}

// WithCodeGenerator overrides the verification code generator
func WithCodeGenerator(gen func() (string, error)) AccountOption {
	return func(s *AccountService) { s.newCode = gen }
}

// AccountService handles login and the password reset flow
type AccountService struct {
	users   domain.UserRepository
	resets  domain.ResetSessionStore
	codeTTL time.Duration
	now     func() time.Time
	newCode func() (string, error)
	log     *logger.Logger
	metrics *metrics.Recorder
}

// NewAccountService creates a new AccountService
func NewAccountService(
	users domain.UserRepository,
	resets domain.ResetSessionStore,
	codeTTL time.Duration,
	log *logger.Logger,
	rec *metrics.Recorder,
	opts ...AccountOption,
) *AccountService {
	s := &AccountService{
		users:   users,
		resets:  resets,
		codeTTL: codeTTL,
		now:     time.Now,
		newCode: GenerateVerificationCode,
		log:     log,
		metrics: rec,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsureDefaultUsers seeds the default accounts when the store is empty
func (s *AccountService) EnsureDefaultUsers(ctx context.Context) error {
	existing, err := s.users.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}
	if len(existing) > 0 {
		s.log.Debug("user store already populated", logger.Int("users", len(existing)))
		return nil
	}

	for _, du := range DefaultUsers {
		hash, err := HashPassword(du.Password)
		if err != nil {
			return err
		}
		user := &domain.User{Username: du.Username, Password: hash, Email: du.Email, Role: du.Role}
		if err := s.users.Create(ctx, user); err != nil && !errors.Is(err, domain.ErrUserExists) {
			return fmt.Errorf("seed user %s: %w", du.Username, err)
		}
		s.log.Info("seeded default user", logger.String("username", du.Username), logger.String("role", du.Role))
	}
	return nil
}

// Login checks credentials and returns the matching user.
// Plaintext passwords left by older stores are upgraded to bcrypt on success.
func (s *AccountService) Login(ctx context.Context, username, password string) (*domain.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if errors.Is(err, domain.ErrUserNotFound) {
		// keep the response time close to that of a wrong password
		_ = comparePassword(unknownUserHash, []byte(password))
		s.metrics.Login(false)
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if user.HasHashedPassword() {
		if err := comparePassword([]byte(user.Password), []byte(password)); err != nil {
			s.metrics.Login(false)
			return nil, domain.ErrInvalidCredentials
		}
	} else {
		if subtle.ConstantTimeCompare([]byte(user.Password), []byte(password)) != 1 {
			s.metrics.Login(false)
			return nil, domain.ErrInvalidCredentials
		}
		s.upgradePassword(ctx, user.Username, password)
	}

	s.metrics.Login(true)
	return user, nil
}

func (s *AccountService) upgradePassword(ctx context.Context, username, password string) {
	hash, err := HashPassword(password)
	if err == nil {
		err = s.users.UpdatePassword(ctx, username, hash)
	}
	if err != nil {
		s.log.Warn("failed to upgrade plaintext password", logger.String("username", username), logger.Error(err))
		return
	}
	s.log.Info("upgraded plaintext password to bcrypt", logger.String("username", username))
}

// RequestReset issues a verification code for username
func (s *AccountService) RequestReset(ctx context.Context, username string) (*domain.ResetSession, error) {
	if _, err := s.users.GetByUsername(ctx, username); err != nil {
		s.metrics.ResetEvent("request", false)
		return nil, err
	}

	code, err := s.newCode()
	if err != nil {
		return nil, fmt.Errorf("generate verification code: %w", err)
	}

	session := &domain.ResetSession{
		ID:        uuid.NewString(),
		Username:  username,
		Code:      code,
		ExpiresAt: s.now().Add(s.codeTTL),
	}
	if err := s.resets.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save reset session: %w", err)
	}

	// no mail transport: the log is the delivery channel
	s.log.Info("verification code issued",
		logger.String("username", username),
		logger.String("code", code),
		logger.String("expires_at", session.ExpiresAt.Format(time.RFC3339)),
	)
	s.metrics.ResetEvent("request", true)
	return session, nil
}

// VerifyCode marks the reset session as verified when code matches before expiry
func (s *AccountService) VerifyCode(ctx context.Context, sessionID, code string) error {
	session, err := s.liveSession(ctx, sessionID)
	if err != nil {
		s.metrics.ResetEvent("verify", false)
		return domain.ErrCodeExpired
	}

	if subtle.ConstantTimeCompare([]byte(session.Code), []byte(code)) != 1 {
		s.metrics.ResetEvent("verify", false)
		return domain.ErrCodeIncorrect
	}

	session.Verified = true
	if err := s.resets.Save(ctx, session); err != nil {
		return fmt.Errorf("save reset session: %w", err)
	}
	s.metrics.ResetEvent("verify", true)
	return nil
}

// ResetPassword consumes a verified reset session and replaces the password
func (s *AccountService) ResetPassword(ctx context.Context, sessionID, newPassword string) error {
	session, err := s.liveSession(ctx, sessionID)
	if err != nil {
		s.metrics.ResetEvent("reset", false)
		return domain.ErrNotVerified
	}
	if !session.Verified {
		s.metrics.ResetEvent("reset", false)
		return domain.ErrNotVerified
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, session.Username, hash); err != nil {
		s.metrics.ResetEvent("reset", false)
		return fmt.Errorf("%w: %v", domain.ErrPasswordNotUpdate, err)
	}

	if err := s.resets.Delete(ctx, session.ID); err != nil {
		s.log.Warn("failed to clear reset session", logger.String("session", session.ID), logger.Error(err))
	}
	s.log.Info("password reset", logger.String("username", session.Username))
	s.metrics.ResetEvent("reset", true)
	return nil
}

// ClearReset drops a reset session, if any
func (s *AccountService) ClearReset(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return s.resets.Delete(ctx, sessionID)
}

func (s *AccountService) liveSession(ctx context.Context, sessionID string) (*domain.ResetSession, error) {
	if sessionID == "" {
		return nil, domain.ErrResetNotFound
	}
	session, err := s.resets.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Expired(s.now()) {
		return nil, domain.ErrCodeExpired
	}
	return session, nil
}

// HashPassword hashes a password with bcrypt
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// GenerateVerificationCode returns a random six digit code
func GenerateVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
