package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/skyvault/skyvault/app/observability/metrics"
	"github.com/skyvault/skyvault/internal/api"
)

type AuthHandler struct {
	authService AuthService
	cookies     *CookieHelper
	logger      *slog.Logger
}

func NewAuthHandler(authService AuthService, cookies *CookieHelper, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		cookies:     cookies,
		logger:      logger,
	}
}

// Register godoc
// @Summary      Register a new user
// @Accept       json
// @Produce      json
// @Success      201 {object} api.Response
// @Failure      400 {object} api.Response "Invalid input"
// @Failure      409 {object} api.Response "Username taken"
// @Router       /api/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "Register"))

	var req api.RegisterRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode register request", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if req.Username == "" || req.Password == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "username and password are required")
		return
	}

	if err := h.authService.Register(ctx, req.Username, req.Password, req.Email); err != nil {
		switch {
		case errors.Is(err, api.ErrConflict):
			api.ErrorResponse(w, r, http.StatusConflict, "username already exists")
		case errors.Is(err, api.ErrBadRequest):
			api.ErrorResponse(w, r, http.StatusBadRequest, "username and password are required")
		default:
			l.ErrorContext(ctx, "Register failed", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusInternalServerError, "server error")
		}
		return
	}

	if m := metrics.Get(); m != nil {
		m.RegisterRequestsTotal.Add(ctx, 1)
	}
	api.WriteJSONResponse(w, r, http.StatusCreated, map[string]string{"message": "registered"})
}

// Login godoc
// @Summary      Log in with username and password
// @Accept       json
// @Produce      json
// @Success      200 {object} api.LoginResponse
// @Failure      400 {object} api.Response "Missing fields"
// @Failure      401 {object} api.Response "Invalid credentials"
// @Router       /api/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "Login"))

	var req api.LoginRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode login request", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if req.Username == "" || req.Password == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "username and password are required")
		return
	}

	user, token, err := h.authService.Login(ctx, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, api.ErrUnauthenticated) {
			api.ErrorResponse(w, r, http.StatusUnauthorized, "invalid credentials")
			return
		}
		l.ErrorContext(ctx, "Login failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "server error")
		return
	}

	h.cookies.SetAuthCookie(w, token, h.authService.AccessTokenTTL())

	if m := metrics.Get(); m != nil {
		m.LoginRequestsTotal.Add(ctx, 1)
	}
	l.InfoContext(ctx, "User logged in", slog.Int64("userID", user.ID))
	api.WriteJSONResponse(w, r, http.StatusOK, api.LoginResponse{
		User:        *user,
		AccessToken: token,
		Message:     "ok",
	})
}

// Logout godoc
// @Summary      Log out (clears the auth cookie)
// @Produce      json
// @Success      200 {object} api.Response
// @Router       /api/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	// Tokens are stateless; logout only instructs the client to drop its
	// token, so it succeeds whether or not the caller is authenticated.
	h.cookies.ClearAuthCookie(w)
	api.WriteJSONResponse(w, r, http.StatusOK, map[string]string{"message": "logged out"})
}
