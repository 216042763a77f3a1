// Package w2g is a minimal Watch2Gether API client: room creation plus a
// liveness probe for previously created rooms.
package w2g

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/recallhq/recall/internal/domain"
)

// Default endpoints.
const (
	DefaultAPIBase  = "https://api.w2g.tv"
	DefaultRoomBase = "https://w2g.tv/rooms/"
)

// Client talks to the Watch2Gether HTTP API.
type Client struct {
	httpClient *http.Client
	apiBase    string
	roomBase   string
	apiKey     string
	logger     *zap.Logger
}

// Config holds client settings.
type Config struct {
	APIKey   string
	APIBase  string        // default DefaultAPIBase
	RoomBase string        // default DefaultRoomBase
	Timeout  time.Duration // default 10s
	Logger   *zap.Logger
}

// New creates a Watch2Gether client.
func New(cfg *Config) *Client {
	apiBase := cfg.APIBase
	if apiBase == "" {
		apiBase = DefaultAPIBase
	}
	roomBase := cfg.RoomBase
	if roomBase == "" {
		roomBase = DefaultRoomBase
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		apiBase:    strings.TrimSuffix(apiBase, "/"),
		roomBase:   roomBase,
		apiKey:     cfg.APIKey,
		logger:     cfg.Logger,
	}
}

type createRequest struct {
	APIKey string `json:"w2g_api_key"`
	Share  string `json:"share,omitempty"`
}

type createResponse struct {
	Streamkey string `json:"streamkey"`
}

// CreateRoom creates a room, optionally preloading a shared URL, and returns
// the public room URL.
func (c *Client) CreateRoom(ctx context.Context, preloadURL string) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("api key not configured: %w", domain.ErrRoomUnavailable)
	}

	body, err := json.Marshal(createRequest{APIKey: c.apiKey, Share: preloadURL})
	if err != nil {
		return "", fmt.Errorf("marshal create request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.apiBase+"/rooms/create.json", bytes.NewReader(body),
	)
	if err != nil {
		return "", fmt.Errorf("build create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("create room: %w: %w", domain.ErrRoomUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("Room creation API returned error", zap.Int("status", resp.StatusCode))
		return "", fmt.Errorf("create room: status %d: %w", resp.StatusCode, domain.ErrRoomUnavailable)
	}

	var parsed createResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode create response: %w", err)
	}
	if parsed.Streamkey == "" {
		return "", fmt.Errorf("no streamkey in create response: %w", domain.ErrRoomUnavailable)
	}

	roomURL := c.roomBase + parsed.Streamkey
	c.logger.Info("Created watch room", zap.String("room_url", roomURL))
	return roomURL, nil
}

// RoomAlive probes whether a previously created room is still accessible.
// Only a definitive 404 (or a URL outside our namespace) reports dead;
// transient failures report alive so a working room is never discarded over
// a service hiccup.
func (c *Client) RoomAlive(ctx context.Context, roomURL string) bool {
	if !strings.HasPrefix(roomURL, c.roomBase) {
		c.logger.Warn("Invalid room URL format", zap.String("room_url", roomURL))
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, roomURL, nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Room probe failed, assuming alive", zap.String("room_url", roomURL), zap.Error(err))
		return true
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		c.logger.Info("Room no longer exists", zap.String("room_url", roomURL))
		return false
	}
	return true
}
