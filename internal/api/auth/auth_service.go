package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/skyvault/skyvault/config"
	"github.com/skyvault/skyvault/internal/api"
)

var _ AuthService = (*AuthServiceImpl)(nil)

type AuthService interface {
	// Register creates a new user. Username collisions surface as
	// api.ErrConflict, empty credentials as api.ErrBadRequest.
	Register(ctx context.Context, username, password, email string) error

	// Login verifies credentials and mints an access token. An unknown
	// username and a wrong password both return api.ErrUnauthenticated so
	// the response cannot be used to enumerate usernames.
	Login(ctx context.Context, username, password string) (*api.PublicUser, string, error)

	// Verify validates a token string and returns its claims.
	Verify(ctx context.Context, tokenString string) (*api.Claims, error)

	// AccessTokenTTL reports the configured token lifetime, used for the
	// auth cookie's max age.
	AccessTokenTTL() time.Duration
}

type AuthServiceImpl struct {
	logger *slog.Logger
	repo   AuthRepo
	jwtCfg config.JWTConfig
}

func NewAuthService(repo AuthRepo, jwtCfg config.JWTConfig, logger *slog.Logger) *AuthServiceImpl {
	return &AuthServiceImpl{
		logger: logger,
		repo:   repo,
		jwtCfg: jwtCfg,
	}
}

func (s *AuthServiceImpl) Register(ctx context.Context, username, password, email string) error {
	if username == "" || password == "" {
		return fmt.Errorf("username and password are required: %w", api.ErrBadRequest)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	var emailPtr *string
	if email != "" {
		emailPtr = &email
	}

	userID, err := s.repo.CreateUser(ctx, username, emailPtr, string(hashedPassword))
	if err != nil {
		if errors.Is(err, api.ErrConflict) {
			return err
		}
		s.logger.ErrorContext(ctx, "Failed to create user", slog.String("username", username), slog.Any("error", err))
		return fmt.Errorf("register: %w", err)
	}

	s.logger.InfoContext(ctx, "User registered", slog.String("username", username), slog.Int64("userID", userID))
	return nil
}

func (s *AuthServiceImpl) Login(ctx context.Context, username, password string) (*api.PublicUser, string, error) {
	user, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			// Same error as a wrong password; no username-enumeration signal.
			return nil, "", api.ErrUnauthenticated
		}
		s.logger.ErrorContext(ctx, "Login lookup failed", slog.String("username", username), slog.Any("error", err))
		return nil, "", fmt.Errorf("login: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logger.WarnContext(ctx, "Login failed", slog.String("username", username))
		return nil, "", api.ErrUnauthenticated
	}

	token, err := s.generateAccessToken(user)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate access token: %w", err)
	}

	return &api.PublicUser{ID: user.ID, Username: user.Username}, token, nil
}

func (s *AuthServiceImpl) Verify(ctx context.Context, tokenString string) (*api.Claims, error) {
	claims := &api.Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtCfg.SecretKey), nil
	})
	if err != nil || !token.Valid {
		return nil, api.ErrUnauthenticated
	}

	if claims.ExpiresAt == nil || time.Now().After(claims.ExpiresAt.Time) {
		return nil, api.ErrUnauthenticated
	}
	if s.jwtCfg.Issuer != "" && claims.Issuer != s.jwtCfg.Issuer {
		return nil, api.ErrUnauthenticated
	}
	if !api.VerifyAudience(claims.Audience, s.jwtCfg.Audience) {
		return nil, api.ErrUnauthenticated
	}

	return claims, nil
}

func (s *AuthServiceImpl) AccessTokenTTL() time.Duration {
	return s.jwtCfg.AccessTokenTTL
}

func (s *AuthServiceImpl) generateAccessToken(user *User) (string, error) {
	now := time.Now()
	claims := &api.Claims{
		UserID:   user.ID,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.jwtCfg.Issuer,
			Audience:  jwt.ClaimStrings{s.jwtCfg.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.jwtCfg.AccessTokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtCfg.SecretKey))
}
