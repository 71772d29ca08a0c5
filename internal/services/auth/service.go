package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/crickettalent/internal/dependencies/clock"
	"github.com/mcoot/crickettalent/internal/dependencies/random"
	"github.com/mcoot/crickettalent/internal/model"
	"github.com/mcoot/crickettalent/internal/storage"
)

// Errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

const (
	minPasswordLength    = 8
	maxPasswordLength    = 72 // bcrypt ignores anything longer
	maxDisplayNameLength = 80
	tokenIssuer          = "crickettalent"
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_.-]{2,31}$`)

// Session is the result of a successful register or login
type Session struct {
	Token     string
	Account   model.Account
	ExpiresAt time.Time
}

// Claims are the JWT claims carried by an access token
type Claims struct {
	Kind model.ActorKind `json:"kind"`
	jwt.RegisteredClaims
}

// Service handles accounts and stateless token authentication.
// Tokens are signed JWTs, so any process sharing the secret can validate them.
type Service struct {
	storage storage.Storage
	clock   clock.Clock
	random  random.Random
	logger  *slog.Logger

	secret     []byte
	tokenTTL   time.Duration
	bcryptCost int
}

// Config holds configuration for the auth service
type Config struct {
	Secret     string
	TokenTTL   time.Duration
	BcryptCost int
}

// DefaultConfig returns default auth configuration
func DefaultConfig() Config {
	return Config{
		Secret:     "dev-secret-change-me",
		TokenTTL:   24 * time.Hour,
		BcryptCost: bcrypt.DefaultCost,
	}
}

// New creates a new auth Service
func New(storage storage.Storage, clock clock.Clock, random random.Random, cfg Config, logger *slog.Logger) *Service {
	defaults := DefaultConfig()
	if cfg.Secret == "" {
		cfg.Secret = defaults.Secret
	}
	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = defaults.TokenTTL
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = defaults.BcryptCost
	}
	return &Service{
		storage:    storage,
		clock:      clock,
		random:     random,
		logger:     logger.With(slog.String("component", "auth-service")),
		secret:     []byte(cfg.Secret),
		tokenTTL:   cfg.TokenTTL,
		bcryptCost: cfg.BcryptCost,
	}
}

// Register creates an account of the given kind and returns a session for it.
// Admin accounts cannot self-register; see EnsureAdmin.
func (s *Service) Register(ctx context.Context, username, password, displayName string, kind model.ActorKind) (*Session, error) {
	if kind == model.KindAdmin {
		return nil, model.ErrPermissionDenied
	}
	account, err := s.createAccount(ctx, username, password, displayName, kind)
	if err != nil {
		return nil, err
	}
	return s.newSession(account)
}

// EnsureAdmin creates the bootstrap admin account if the username is free.
// An existing account with that username is left untouched.
func (s *Service) EnsureAdmin(ctx context.Context, username, password string) error {
	_, err := s.createAccount(ctx, username, password, "Administrator", model.KindAdmin)
	if errors.Is(err, model.ErrUsernameTaken) {
		return nil
	}
	return err
}

// Login authenticates an account and returns a new session
func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	account, err := s.storage.GetAccountByUsername(ctx, normalizeUsername(username))
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.newSession(account)
}

// ValidateToken verifies a token's signature and expiry and returns the actor it names
func (s *Service) ValidateToken(token string) (model.Actor, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.clock.Now),
	)
	if err != nil || !parsed.Valid {
		return model.Actor{}, ErrInvalidToken
	}

	kind, err := model.ParseActorKind(string(claims.Kind))
	if err != nil || claims.Subject == "" {
		return model.Actor{}, ErrInvalidToken
	}

	return model.Actor{ID: model.AccountID(claims.Subject), Kind: kind}, nil
}

// GetAccount returns an account by ID
func (s *Service) GetAccount(ctx context.Context, id model.AccountID) (*model.Account, error) {
	return s.storage.GetAccount(ctx, id)
}

func (s *Service) createAccount(ctx context.Context, username, password, displayName string, kind model.ActorKind) (*model.Account, error) {
	username = normalizeUsername(username)
	displayName = strings.TrimSpace(displayName)

	if !usernamePattern.MatchString(username) {
		return nil, model.NewValidationError("username", "must be 3-32 characters of a-z, 0-9, '_', '.', '-'")
	}
	if len(password) < minPasswordLength || len(password) > maxPasswordLength {
		return nil, model.NewValidationError("password", fmt.Sprintf("must be %d-%d characters", minPasswordLength, maxPasswordLength))
	}
	if displayName == "" {
		displayName = username
	}
	if len(displayName) > maxDisplayNameLength {
		return nil, model.NewValidationError("display_name", fmt.Sprintf("must be at most %d characters", maxDisplayNameLength))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, err
	}

	account := &model.Account{
		ID:           model.AccountID(s.random.ID()),
		Username:     username,
		DisplayName:  displayName,
		Kind:         kind,
		PasswordHash: string(hash),
		CreatedAt:    s.clock.Now(),
	}

	if err := s.storage.CreateAccount(ctx, account); err != nil {
		return nil, err
	}

	s.logger.Info("account created",
		slog.String("account_id", string(account.ID)),
		slog.String("kind", string(kind)),
	)

	return account, nil
}

func (s *Service) newSession(account *model.Account) (*Session, error) {
	now := s.clock.Now()
	expiresAt := now.Add(s.tokenTTL)

	claims := Claims{
		Kind: account.Kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   string(account.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        s.random.ID(),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	return &Session{
		Token:     token,
		Account:   *account,
		ExpiresAt: expiresAt,
	}, nil
}

func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
