package store

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// History is the body of GET /rooms/{roomId}/history.
type History struct {
	RoomID   string            `json:"roomId"`
	Payloads []json.RawMessage `json:"payloads"`
}

// Client fetches a room's edit history from a relay server over HTTP.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient returns a Fetcher for the server at baseURL. A ws:// or wss://
// URL is accepted and mapped to http:// or https://.
func NewClient(baseURL, token string, hc *http.Client) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{baseURL: HTTPBase(baseURL), token: token, http: hc}
}

// HTTPBase maps a relay WebSocket URL such as ws://host:8080/ws to the
// server's HTTP base URL.
func HTTPBase(relayURL string) string {
	base := strings.TrimSuffix(relayURL, "/")
	base = strings.TrimSuffix(base, "/ws")
	switch {
	case strings.HasPrefix(base, "ws://"):
		base = "http://" + strings.TrimPrefix(base, "ws://")
	case strings.HasPrefix(base, "wss://"):
		base = "https://" + strings.TrimPrefix(base, "wss://")
	}
	return base
}

func (c *Client) FetchEditHistory(ctx context.Context, roomID string) ([]json.RawMessage, error) {
	u := c.baseURL + "/rooms/" + url.PathEscape(roomID) + "/history"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch history: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch history: unexpected status %s", resp.Status)
	}

	var h History
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	return h.Payloads, nil
}
