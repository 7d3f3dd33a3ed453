package auth

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/skyvault/skyvault/config"
	"github.com/skyvault/skyvault/internal/api"
)

// MockAuthRepo is a mock implementation of the AuthRepo interface
type MockAuthRepo struct {
	mock.Mock
}

func (m *MockAuthRepo) CreateUser(ctx context.Context, username string, email *string, passwordHash string) (int64, error) {
	args := m.Called(ctx, username, email, passwordHash)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAuthRepo) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *MockAuthRepo) GetUserByID(ctx context.Context, id int64) (*User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		SecretKey:      "test-access-secret",
		Issuer:         "test-issuer",
		Audience:       "test-audience",
		AccessTokenTTL: 15 * time.Minute,
	}
}

func TestRegister(t *testing.T) {
	mockRepo := new(MockAuthRepo)
	logger := slog.Default()
	service := NewAuthService(mockRepo, testJWTConfig(), logger)

	// Test case: successful registration
	t.Run("Success", func(t *testing.T) {
		ctx := context.Background()

		// The hash is bcrypt output, never the plaintext password.
		mockRepo.On("CreateUser", ctx, "alice", (*string)(nil), mock.MatchedBy(func(hash string) bool {
			return strings.HasPrefix(hash, "$2") && bcrypt.CompareHashAndPassword([]byte(hash), []byte("pw123456")) == nil
		})).Return(int64(1), nil).Once()

		err := service.Register(ctx, "alice", "pw123456", "")

		assert.NoError(t, err)
		mockRepo.AssertExpectations(t)
	})

	// Test case: username already exists
	t.Run("DuplicateUsername", func(t *testing.T) {
		ctx := context.Background()

		mockRepo.On("CreateUser", ctx, "alice", (*string)(nil), mock.AnythingOfType("string")).
			Return(int64(0), api.ErrConflict).Once()

		err := service.Register(ctx, "alice", "pw123456", "")

		assert.Error(t, err)
		assert.ErrorIs(t, err, api.ErrConflict)
		mockRepo.AssertExpectations(t)
	})

	// Test case: empty credentials are rejected before touching the store
	t.Run("EmptyInput", func(t *testing.T) {
		ctx := context.Background()

		err := service.Register(ctx, "", "pw123456", "")
		assert.ErrorIs(t, err, api.ErrBadRequest)

		err = service.Register(ctx, "alice", "", "")
		assert.ErrorIs(t, err, api.ErrBadRequest)

		mockRepo.AssertNotCalled(t, "CreateUser", ctx, "", mock.Anything, mock.Anything)
	})

	// Test case: optional email is passed through
	t.Run("WithEmail", func(t *testing.T) {
		ctx := context.Background()
		email := "alice@example.com"

		mockRepo.On("CreateUser", ctx, "alice2", &email, mock.AnythingOfType("string")).
			Return(int64(2), nil).Once()

		err := service.Register(ctx, "alice2", "pw123456", email)

		assert.NoError(t, err)
		mockRepo.AssertExpectations(t)
	})
}

func TestLogin(t *testing.T) {
	mockRepo := new(MockAuthRepo)
	logger := slog.Default()
	service := NewAuthService(mockRepo, testJWTConfig(), logger)

	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("pw123456"), bcrypt.DefaultCost)
	user := &User{
		ID:           7,
		Username:     "alice",
		PasswordHash: string(hashedPassword),
	}

	// Test case: successful login returns a verifiable token
	t.Run("Success", func(t *testing.T) {
		ctx := context.Background()

		mockRepo.On("GetUserByUsername", ctx, "alice").Return(user, nil).Once()

		publicUser, token, err := service.Login(ctx, "alice", "pw123456")

		require.NoError(t, err)
		assert.Equal(t, int64(7), publicUser.ID)
		assert.Equal(t, "alice", publicUser.Username)
		assert.NotEmpty(t, token)

		// register -> login -> verify round trip
		claims, err := service.Verify(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, int64(7), claims.UserID)
		assert.Equal(t, "alice", claims.Username)
		mockRepo.AssertExpectations(t)
	})

	// Test case: unknown username
	t.Run("UserNotFound", func(t *testing.T) {
		ctx := context.Background()

		mockRepo.On("GetUserByUsername", ctx, "nobody").Return(nil, api.ErrNotFound).Once()

		publicUser, token, err := service.Login(ctx, "nobody", "pw123456")

		assert.Nil(t, publicUser)
		assert.Empty(t, token)
		assert.ErrorIs(t, err, api.ErrUnauthenticated)
		mockRepo.AssertExpectations(t)
	})

	// Test case: wrong password is indistinguishable from unknown username
	t.Run("WrongPassword", func(t *testing.T) {
		ctx := context.Background()

		mockRepo.On("GetUserByUsername", ctx, "alice").Return(user, nil).Once()

		publicUser, token, err := service.Login(ctx, "alice", "wrong-password")

		assert.Nil(t, publicUser)
		assert.Empty(t, token)
		assert.ErrorIs(t, err, api.ErrUnauthenticated)

		// Identical error value for both failure modes.
		mockRepo.On("GetUserByUsername", ctx, "nobody").Return(nil, api.ErrNotFound).Once()
		_, _, errUnknown := service.Login(ctx, "nobody", "whatever")
		assert.Equal(t, err, errUnknown)
		mockRepo.AssertExpectations(t)
	})
}

func TestVerify(t *testing.T) {
	mockRepo := new(MockAuthRepo)
	logger := slog.Default()
	service := NewAuthService(mockRepo, testJWTConfig(), logger)

	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("pw123456"), bcrypt.DefaultCost)
	user := &User{ID: 7, Username: "alice", PasswordHash: string(hashedPassword)}

	mintToken := func(t *testing.T) string {
		t.Helper()
		mockRepo.On("GetUserByUsername", mock.Anything, "alice").Return(user, nil).Once()
		_, token, err := service.Login(context.Background(), "alice", "pw123456")
		require.NoError(t, err)
		return token
	}

	// Test case: tampering with any byte of the token fails verification
	t.Run("TamperedToken", func(t *testing.T) {
		ctx := context.Background()
		token := mintToken(t)

		for i := 0; i < len(token); i += 7 {
			raw := []byte(token)
			raw[i] ^= 0x01
			_, err := service.Verify(ctx, string(raw))
			assert.ErrorIs(t, err, api.ErrUnauthenticated, "flipped byte at %d should invalidate token", i)
		}
	})

	// Test case: expired token is rejected
	t.Run("ExpiredToken", func(t *testing.T) {
		ctx := context.Background()

		cfg := testJWTConfig()
		cfg.AccessTokenTTL = -time.Minute
		expiredService := NewAuthService(mockRepo, cfg, logger)

		mockRepo.On("GetUserByUsername", mock.Anything, "alice").Return(user, nil).Once()
		_, token, err := expiredService.Login(ctx, "alice", "pw123456")
		require.NoError(t, err)

		_, err = expiredService.Verify(ctx, token)
		assert.ErrorIs(t, err, api.ErrUnauthenticated)
	})

	// Test case: token signed with a different key is rejected
	t.Run("WrongKey", func(t *testing.T) {
		ctx := context.Background()

		otherCfg := testJWTConfig()
		otherCfg.SecretKey = "a-different-secret"
		otherService := NewAuthService(mockRepo, otherCfg, logger)

		token := mintToken(t)
		_, err := otherService.Verify(ctx, token)
		assert.ErrorIs(t, err, api.ErrUnauthenticated)
	})

	// Test case: garbage input
	t.Run("Malformed", func(t *testing.T) {
		_, err := service.Verify(context.Background(), "not-a-token")
		assert.ErrorIs(t, err, api.ErrUnauthenticated)
	})
}
