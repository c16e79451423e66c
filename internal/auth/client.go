package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// RequestDevToken asks a server started with DEV_TOKENS for a token.
// An empty userID asks the server to mint one.
func RequestDevToken(ctx context.Context, baseURL, userID string, hc *http.Client) (token, user string, err error) {
	if hc == nil {
		hc = http.DefaultClient
	}
	body, err := json.Marshal(tokenRequest{UserID: userID})
	if err != nil {
		return "", "", fmt.Errorf("encode token request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/auth/token", bytes.NewReader(body))
	if err != nil {
		return "", "", fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := hc.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("request token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return "", "", fmt.Errorf("request token: unexpected status %s", resp.Status)
	}

	var out tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", "", fmt.Errorf("decode token response: %w", err)
	}
	return out.Token, out.UserID, nil
}
