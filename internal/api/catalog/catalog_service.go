package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/skyvault/skyvault/internal/api"
)

var _ CatalogService = (*ServiceImpl)(nil)

// CatalogService proxies the third-party item catalog and player-profile
// lookups so the browser never talks to the upstream APIs (or carries the
// API key) itself. Responses are passed through verbatim and cached.
type CatalogService interface {
	Items(ctx context.Context) (json.RawMessage, error)
	Election(ctx context.Context) (json.RawMessage, error)
	PlayerProfiles(ctx context.Context, name string) (json.RawMessage, error)
}

type ServiceImpl struct {
	logger         *slog.Logger
	client         *http.Client
	cache          *cache.Cache
	hypixelBaseURL string
	mojangBaseURL  string
	apiKey         string
}

func NewServiceImpl(hypixelBaseURL, mojangBaseURL, apiKey string, cacheTTL time.Duration, logger *slog.Logger) *ServiceImpl {
	if cacheTTL == 0 {
		cacheTTL = 10 * time.Minute
	}
	return &ServiceImpl{
		logger:         logger,
		client:         &http.Client{Timeout: 15 * time.Second},
		cache:          cache.New(cacheTTL, 2*cacheTTL),
		hypixelBaseURL: hypixelBaseURL,
		mojangBaseURL:  mojangBaseURL,
		apiKey:         apiKey,
	}
}

// Items returns the upstream SkyBlock item catalog.
func (s *ServiceImpl) Items(ctx context.Context) (json.RawMessage, error) {
	return s.cachedGet(ctx, "catalog:items", s.hypixelBaseURL+"/v2/resources/skyblock/items", "")
}

// Election returns the upstream mayor-election resource.
func (s *ServiceImpl) Election(ctx context.Context) (json.RawMessage, error) {
	return s.cachedGet(ctx, "catalog:election", s.hypixelBaseURL+"/v2/resources/skyblock/election", "")
}

// PlayerProfiles resolves a player name to a UUID via Mojang, then fetches
// the player's SkyBlock profiles. Unknown names surface as api.ErrNotFound.
func (s *ServiceImpl) PlayerProfiles(ctx context.Context, name string) (json.RawMessage, error) {
	cacheKey := "profiles:" + name
	if cached, found := s.cache.Get(cacheKey); found {
		return cached.(json.RawMessage), nil
	}

	uuid, err := s.resolveUUID(ctx, name)
	if err != nil {
		return nil, err
	}

	profilesURL := fmt.Sprintf("%s/v2/skyblock/profiles?uuid=%s", s.hypixelBaseURL, url.QueryEscape(uuid))
	body, err := s.get(ctx, profilesURL, s.apiKey)
	if err != nil {
		return nil, err
	}

	s.cache.Set(cacheKey, json.RawMessage(body), cache.DefaultExpiration)
	return body, nil
}

func (s *ServiceImpl) resolveUUID(ctx context.Context, name string) (string, error) {
	resolveURL := fmt.Sprintf("%s/users/profiles/minecraft/%s", s.mojangBaseURL, url.PathEscape(name))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resolveURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build mojang request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("mojang lookup failed: %w", err)
	}
	defer resp.Body.Close()

	// Mojang answers 204 or 404 for unknown names depending on the endpoint
	// generation.
	if resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusNotFound {
		return "", fmt.Errorf("player %q: %w", name, api.ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("mojang lookup returned status %d: %w", resp.StatusCode, api.ErrInternal)
	}

	var mojangProfile struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&mojangProfile); err != nil {
		return "", fmt.Errorf("failed to decode mojang response: %w", err)
	}
	if mojangProfile.ID == "" {
		return "", fmt.Errorf("player %q: %w", name, api.ErrNotFound)
	}

	return mojangProfile.ID, nil
}

func (s *ServiceImpl) cachedGet(ctx context.Context, cacheKey, rawURL, apiKey string) (json.RawMessage, error) {
	if cached, found := s.cache.Get(cacheKey); found {
		return cached.(json.RawMessage), nil
	}

	body, err := s.get(ctx, rawURL, apiKey)
	if err != nil {
		return nil, err
	}

	s.cache.Set(cacheKey, json.RawMessage(body), cache.DefaultExpiration)
	return body, nil
}

func (s *ServiceImpl) get(ctx context.Context, rawURL, apiKey string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build upstream request: %w", err)
	}
	if apiKey != "" {
		req.Header.Set("API-Key", apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, api.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		s.logger.WarnContext(ctx, "Upstream returned non-OK status", slog.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("upstream returned status %d: %w", resp.StatusCode, api.ErrInternal)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read upstream response: %w", err)
	}

	return body, nil
}
