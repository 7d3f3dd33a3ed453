// Package favsync mirrors a user's server-side favorites into local state.
// Client speaks the wire contract; Controller layers optimistic updates with
// rollback on top of it.
package favsync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/skyvault/skyvault/internal/api"
)

// Service is the favorites surface the Controller needs. *Client satisfies
// it; tests inject fakes.
type Service interface {
	List(ctx context.Context) ([]api.Favorite, error)
	Add(ctx context.Context, itemID, itemName string) error
	Remove(ctx context.Context, itemID string) error
}

var _ Service = (*Client)(nil)

// Client is an HTTP client for the favorites API. The auth cookie is held in
// an in-memory jar; a bearer token is also kept for header-based transports.
type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

func NewClient(baseURL string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	return &Client{
		baseURL: baseURL,
		http: &http.Client{
			Jar:     jar,
			Timeout: 15 * time.Second,
		},
	}, nil
}

// Register creates an account. It does not log the user in.
func (c *Client) Register(ctx context.Context, username, password, email string) error {
	body := api.RegisterRequest{Username: username, Password: password, Email: email}
	_, err := c.do(ctx, http.MethodPost, "/api/register", body, http.StatusCreated)
	return err
}

// Login authenticates and stores the session token for subsequent calls.
func (c *Client) Login(ctx context.Context, username, password string) (*api.PublicUser, error) {
	body := api.LoginRequest{Username: username, Password: password}
	respBody, err := c.do(ctx, http.MethodPost, "/api/login", body, http.StatusOK)
	if err != nil {
		return nil, err
	}

	var resp api.LoginResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode login response: %w", err)
	}
	c.token = resp.AccessToken
	return &resp.User, nil
}

// Logout drops the session on both sides. It succeeds even when the session
// is already gone.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodPost, "/api/logout", nil, http.StatusOK)
	c.token = ""
	return err
}

// List fetches the authoritative favorites list, newest first. A transport
// failure is retried once; HTTP-level errors are not.
func (c *Client) List(ctx context.Context) ([]api.Favorite, error) {
	respBody, err := c.do(ctx, http.MethodGet, "/api/favorites", nil, http.StatusOK)
	if err != nil && isTransport(err) {
		respBody, err = c.do(ctx, http.MethodGet, "/api/favorites", nil, http.StatusOK)
	}
	if err != nil {
		return nil, err
	}

	var favs []api.Favorite
	if err := json.Unmarshal(respBody, &favs); err != nil {
		return nil, fmt.Errorf("failed to decode favorites list: %w", err)
	}
	return favs, nil
}

// Add favorites an item. Safe to repeat; the server treats duplicates as
// success.
func (c *Client) Add(ctx context.Context, itemID, itemName string) error {
	body := api.AddFavoriteRequest{ItemID: itemID, ItemName: itemName}
	_, err := c.do(ctx, http.MethodPost, "/api/favorites", body, http.StatusCreated)
	return err
}

// Remove unfavorites an item. api.ErrNotFound means the server had no such
// favorite, which signals a desynced mirror.
func (c *Client) Remove(ctx context.Context, itemID string) error {
	body := api.RemoveFavoriteRequest{ItemID: itemID}
	_, err := c.do(ctx, http.MethodDelete, "/api/favorites", body, http.StatusOK)
	return err
}

type transportError struct{ err error }

func (e *transportError) Error() string { return e.err.Error() }
func (e *transportError) Unwrap() error { return e.err }

func isTransport(err error) bool {
	var te *transportError
	return errors.As(err, &te)
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, wantStatus int) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		js, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(js)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &transportError{err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &transportError{err: err}
	}

	if resp.StatusCode != wantStatus {
		return nil, statusError(resp.StatusCode)
	}
	return respBody, nil
}

func statusError(status int) error {
	switch status {
	case http.StatusBadRequest:
		return api.ErrBadRequest
	case http.StatusUnauthorized:
		return api.ErrUnauthenticated
	case http.StatusNotFound:
		return api.ErrNotFound
	case http.StatusConflict:
		return api.ErrConflict
	default:
		return fmt.Errorf("unexpected status %d: %w", status, api.ErrInternal)
	}
}
