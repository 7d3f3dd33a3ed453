package router

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyvault/skyvault/config"
	"github.com/skyvault/skyvault/internal/api"
	"github.com/skyvault/skyvault/internal/api/auth"
	"github.com/skyvault/skyvault/internal/api/catalog"
	"github.com/skyvault/skyvault/internal/api/favorites"
)

// memAuthRepo is an in-memory AuthRepo so the full HTTP stack can run
// without Postgres.
type memAuthRepo struct {
	mu     sync.Mutex
	nextID int64
	users  map[string]*auth.User
}

func newMemAuthRepo() *memAuthRepo {
	return &memAuthRepo{nextID: 1, users: map[string]*auth.User{}}
}

func (r *memAuthRepo) CreateUser(ctx context.Context, username string, email *string, passwordHash string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.users[username]; exists {
		return 0, api.ErrConflict
	}
	id := r.nextID
	r.nextID++
	r.users[username] = &auth.User{
		ID:           id,
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
	}
	return id, nil
}

func (r *memAuthRepo) GetUserByUsername(ctx context.Context, username string) (*auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[username]
	if !ok {
		return nil, api.ErrNotFound
	}
	u := *user
	return &u, nil
}

func (r *memAuthRepo) GetUserByID(ctx context.Context, id int64) (*auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.ID == id {
			u := *user
			return &u, nil
		}
	}
	return nil, api.ErrNotFound
}

type favKey struct {
	userID int64
	itemID string
}

// memFavoritesRepo mirrors the uniqueness and not-found semantics of the
// Postgres repository.
type memFavoritesRepo struct {
	mu   sync.Mutex
	rows map[favKey]api.Favorite
}

func newMemFavoritesRepo() *memFavoritesRepo {
	return &memFavoritesRepo{rows: map[favKey]api.Favorite{}}
}

func (r *memFavoritesRepo) ListByUserID(ctx context.Context, userID int64) ([]api.Favorite, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	favs := []api.Favorite{}
	for key, fav := range r.rows {
		if key.userID == userID {
			favs = append(favs, fav)
		}
	}
	sort.Slice(favs, func(i, j int) bool { return favs[i].CreatedAt.After(favs[j].CreatedAt) })
	return favs, nil
}

func (r *memFavoritesRepo) Add(ctx context.Context, userID int64, itemID, itemName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := favKey{userID: userID, itemID: itemID}
	if _, exists := r.rows[key]; exists {
		return nil
	}
	r.rows[key] = api.Favorite{ItemID: itemID, ItemName: itemName, CreatedAt: time.Now()}
	return nil
}

func (r *memFavoritesRepo) Remove(ctx context.Context, userID int64, itemID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := favKey{userID: userID, itemID: itemID}
	if _, exists := r.rows[key]; !exists {
		return api.ErrNotFound
	}
	delete(r.rows, key)
	return nil
}

// stubCatalogService avoids real upstream calls in router tests.
type stubCatalogService struct{}

func (stubCatalogService) Items(ctx context.Context) (json.RawMessage, error) {
	return json.RawMessage(`{"success":true,"items":[]}`), nil
}

func (stubCatalogService) Election(ctx context.Context) (json.RawMessage, error) {
	return json.RawMessage(`{"success":true}`), nil
}

func (stubCatalogService) PlayerProfiles(ctx context.Context, name string) (json.RawMessage, error) {
	if name == "no_such_player" {
		return nil, api.ErrNotFound
	}
	return json.RawMessage(`{"success":true,"profiles":[]}`), nil
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := slog.Default()

	jwtCfg := config.JWTConfig{
		SecretKey:      "router-test-secret",
		Issuer:         "skyvault-test",
		Audience:       "skyvault-client",
		AccessTokenTTL: time.Hour,
	}
	cookies := auth.NewCookieHelper(config.CookieConfig{Name: "sv_token"})

	authService := auth.NewAuthService(newMemAuthRepo(), jwtCfg, logger)
	authHandler := auth.NewAuthHandler(authService, cookies, logger)

	favoritesService := favorites.NewServiceImpl(newMemFavoritesRepo(), logger)
	favoritesHandler := favorites.NewFavoritesHandler(favoritesService, logger)

	catalogHandler := catalog.NewCatalogHandler(stubCatalogService{}, logger)

	r := SetupRouter(&Config{
		AuthHandler:            authHandler,
		FavoritesHandler:       favoritesHandler,
		CatalogHandler:         catalogHandler,
		AuthenticateMiddleware: auth.Authenticate(authService, cookies, logger),
		AllowedOrigins:         []string{"*"},
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

type testClient struct {
	t    *testing.T
	http *http.Client
	base string
}

func newTestClient(t *testing.T, srv *httptest.Server) *testClient {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &testClient{
		t:    t,
		http: &http.Client{Jar: jar},
		base: srv.URL,
	}
}

func (c *testClient) do(method, path string, body any) (*http.Response, []byte) {
	c.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, c.base+path, reader)
	require.NoError(c.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(c.t, err)
	return resp, buf.Bytes()
}

func TestFullSessionLifecycle(t *testing.T) {
	srv := newTestServer(t)
	client := newTestClient(t, srv)

	// Register alice.
	resp, _ := client.do(http.MethodPost, "/api/register", api.RegisterRequest{Username: "alice", Password: "pw123456"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// Second registration with the same username conflicts.
	resp, _ = client.do(http.MethodPost, "/api/register", api.RegisterRequest{Username: "alice", Password: "other"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Log in; the session cookie lands in the jar.
	resp, body := client.do(http.MethodPost, "/api/login", api.LoginRequest{Username: "alice", Password: "pw123456"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var loginResp api.LoginResponse
	require.NoError(t, json.Unmarshal(body, &loginResp))
	assert.Equal(t, "alice", loginResp.User.Username)
	assert.NotEmpty(t, loginResp.AccessToken)

	// Fresh account has an empty favorites list.
	resp, body = client.do(http.MethodGet, "/api/favorites", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, string(body))

	// Favorite an item; a repeat add stays a single row.
	resp, _ = client.do(http.MethodPost, "/api/favorites", api.AddFavoriteRequest{ItemID: "DIAMOND_SWORD", ItemName: "Diamond Sword"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp, _ = client.do(http.MethodPost, "/api/favorites", api.AddFavoriteRequest{ItemID: "DIAMOND_SWORD", ItemName: "Diamond Sword"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body = client.do(http.MethodGet, "/api/favorites", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var favs []api.Favorite
	require.NoError(t, json.Unmarshal(body, &favs))
	require.Len(t, favs, 1)
	assert.Equal(t, "DIAMOND_SWORD", favs[0].ItemID)
	assert.Equal(t, "Diamond Sword", favs[0].ItemName)

	// Unfavorite; removing again is a 404.
	resp, _ = client.do(http.MethodDelete, "/api/favorites", api.RemoveFavoriteRequest{ItemID: "DIAMOND_SWORD"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = client.do(http.MethodDelete, "/api/favorites", api.RemoveFavoriteRequest{ItemID: "DIAMOND_SWORD"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = client.do(http.MethodGet, "/api/favorites", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, string(body))

	// Logout clears the cookie; protected routes reject afterwards.
	resp, _ = client.do(http.MethodPost, "/api/logout", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = client.do(http.MethodGet, "/api/favorites", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	srv := newTestServer(t)
	client := newTestClient(t, srv)

	resp, _ := client.do(http.MethodPost, "/api/register", api.RegisterRequest{Username: "alice", Password: "pw123456"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// Wrong password and unknown username produce the same status and body,
	// modulo the request id.
	respWrongPw, bodyWrongPw := client.do(http.MethodPost, "/api/login", api.LoginRequest{Username: "alice", Password: "wrong"})
	respUnknown, bodyUnknown := client.do(http.MethodPost, "/api/login", api.LoginRequest{Username: "nobody", Password: "wrong"})

	assert.Equal(t, http.StatusUnauthorized, respWrongPw.StatusCode)
	assert.Equal(t, http.StatusUnauthorized, respUnknown.StatusCode)

	var a, b map[string]any
	require.NoError(t, json.Unmarshal(bodyWrongPw, &a))
	require.NoError(t, json.Unmarshal(bodyUnknown, &b))
	delete(a, "request_id")
	delete(b, "request_id")
	assert.Equal(t, a, b)
}

func TestFavoritesRequireAuthentication(t *testing.T) {
	srv := newTestServer(t)
	client := newTestClient(t, srv)

	resp, _ := client.do(http.MethodGet, "/api/favorites", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = client.do(http.MethodPost, "/api/favorites", api.AddFavoriteRequest{ItemID: "DIAMOND_SWORD"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = client.do(http.MethodDelete, "/api/favorites", api.RemoveFavoriteRequest{ItemID: "DIAMOND_SWORD"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestBearerHeaderAuthentication(t *testing.T) {
	srv := newTestServer(t)
	client := newTestClient(t, srv)

	resp, _ := client.do(http.MethodPost, "/api/register", api.RegisterRequest{Username: "bob", Password: "pw123456"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp, body := client.do(http.MethodPost, "/api/login", api.LoginRequest{Username: "bob", Password: "pw123456"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var loginResp api.LoginResponse
	require.NoError(t, json.Unmarshal(body, &loginResp))

	// A cookie-less client authenticates with the bearer token instead.
	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/favorites", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+loginResp.AccessToken)

	bare := &http.Client{}
	bearerResp, err := bare.Do(req)
	require.NoError(t, err)
	defer bearerResp.Body.Close()
	assert.Equal(t, http.StatusOK, bearerResp.StatusCode)

	// A tampered token is rejected.
	raw := []byte(loginResp.AccessToken)
	raw[len(raw)/2] ^= 0x01
	req2, err := http.NewRequest(http.MethodGet, srv.URL+"/api/favorites", nil)
	require.NoError(t, err)
	req2.Header.Set("Authorization", "Bearer "+string(raw))

	tamperedResp, err := bare.Do(req2)
	require.NoError(t, err)
	defer tamperedResp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, tamperedResp.StatusCode)
}

func TestUsersDoNotSeeEachOthersFavorites(t *testing.T) {
	srv := newTestServer(t)

	alice := newTestClient(t, srv)
	resp, _ := alice.do(http.MethodPost, "/api/register", api.RegisterRequest{Username: "alice", Password: "pw123456"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp, _ = alice.do(http.MethodPost, "/api/login", api.LoginRequest{Username: "alice", Password: "pw123456"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = alice.do(http.MethodPost, "/api/favorites", api.AddFavoriteRequest{ItemID: "HYPERION"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	bob := newTestClient(t, srv)
	resp, _ = bob.do(http.MethodPost, "/api/register", api.RegisterRequest{Username: "bob", Password: "pw123456"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp, _ = bob.do(http.MethodPost, "/api/login", api.LoginRequest{Username: "bob", Password: "pw123456"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := bob.do(http.MethodGet, "/api/favorites", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, string(body))

	// Bob removing alice's favorite is a 404 against his own set.
	resp, _ = bob.do(http.MethodDelete, "/api/favorites", api.RemoveFavoriteRequest{ItemID: "HYPERION"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealthAndCatalogRoutes(t *testing.T) {
	srv := newTestServer(t)
	client := newTestClient(t, srv)

	resp, body := client.do(http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var health map[string]any
	require.NoError(t, json.Unmarshal(body, &health))
	assert.Equal(t, true, health["ok"])
	assert.NotEmpty(t, health["time"])

	// Catalog routes are public.
	resp, _ = client.do(http.MethodGet, "/api/items", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = client.do(http.MethodGet, "/api/election", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = client.do(http.MethodGet, "/api/players/Steve/profiles", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = client.do(http.MethodGet, "/api/players/no_such_player/profiles", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
