package api

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Sentinel errors shared by all services. Handlers map them to HTTP statuses;
// anything unwrapped falls through as a generic 500.
var (
	ErrNotFound        = errors.New("requested item not found")
	ErrConflict        = errors.New("item already exists or conflict")
	ErrUnauthenticated = errors.New("authentication required or invalid credentials")
	ErrBadRequest      = errors.New("invalid input")
	ErrInternal        = errors.New("internal error")
)

// LoginRequest represents the expected JSON body for user login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse represents the successful JSON response after login. The
// access token is also set as an httpOnly cookie; it is included in the body
// for clients that prefer bearer-header transport.
type LoginResponse struct {
	User        PublicUser `json:"user"`
	AccessToken string     `json:"access_token,omitempty"`
	Message     string     `json:"message,omitempty"`
}

// PublicUser is the externally visible shape of a user. The password hash
// never leaves the auth package.
type PublicUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// RegisterRequest represents the expected JSON body for user registration.
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email,omitempty"`
}

// Response represents a generic API response for success or error messages.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// AddFavoriteRequest is the body for POST /api/favorites.
type AddFavoriteRequest struct {
	ItemID   string `json:"itemId"`
	ItemName string `json:"itemName,omitempty"`
}

// RemoveFavoriteRequest is the body for DELETE /api/favorites.
type RemoveFavoriteRequest struct {
	ItemID string `json:"itemId"`
}

// Favorite is one row of the authenticated user's favorites list.
type Favorite struct {
	ItemID    string    `json:"itemId"`
	ItemName  string    `json:"itemName,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Claims represents the custom claims included in the JWT access token.
type Claims struct {
	UserID               int64  `json:"uid"`
	Username             string `json:"usr"`
	jwt.RegisteredClaims        // Embeds ExpiresAt, IssuedAt, Issuer, Audience, ID.
}
