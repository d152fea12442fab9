package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/makeasinger/lyrics-api/internal/auth"
	"github.com/makeasinger/lyrics-api/internal/config"
	"github.com/makeasinger/lyrics-api/internal/model"
)

// HeaderAPIKey carries the service key on platform requests
const HeaderAPIKey = "X-Api-Key"

// PlatformClient talks to the hosting platform: it resolves the caller through the
// platform's "me" endpoint and runs the platform's InvokeLLM integration.
type PlatformClient struct {
	httpClient *http.Client
	baseURL    string
	appID      string
	apiKey     string
}

// platformUser is the user document returned by the me endpoint
type platformUser struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

// NewPlatformClient creates a new platform API client
func NewPlatformClient(cfg *config.PlatformConfig) *PlatformClient {
	return &PlatformClient{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		baseURL: cfg.BaseURL,
		appID:   cfg.AppID,
		apiKey:  cfg.APIKey,
	}
}

// CurrentUser resolves the caller by forwarding their token to the me endpoint.
// Rejected or missing tokens resolve to no user; other failures are errors.
func (c *PlatformClient) CurrentUser(ctx context.Context, creds auth.Credentials) (*model.User, error) {
	if creds.BearerToken == "" {
		return nil, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.appURL("/entities/User/me"), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+creds.BearerToken)
	c.setAPIKey(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return nil, nil
	default:
		return nil, fmt.Errorf("platform auth error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var pu *platformUser
	if err := json.Unmarshal(respBody, &pu); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user: %w", err)
	}
	if pu == nil || pu.ID == "" {
		return nil, nil
	}

	return &model.User{ID: pu.ID, Email: pu.Email, Name: pu.FullName}, nil
}

// InvokeLLM runs the platform's InvokeLLM integration on behalf of the caller
// attached to ctx and returns the generated text.
func (c *PlatformClient) InvokeLLM(ctx context.Context, in *model.InvokeLLMRequest) (string, error) {
	bodyBytes, err := json.Marshal(in)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.appURL("/integration-endpoints/Core/InvokeLLM"), bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if creds, ok := auth.CredentialsFromContext(ctx); ok && creds.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+creds.BearerToken)
	}
	c.setAPIKey(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("InvokeLLM error (status %d): %s", resp.StatusCode, string(respBody))
	}

	return decodeLLMResult(respBody)
}

// decodeLLMResult accepts a JSON string (the text) or null (no text).
func decodeLLMResult(body []byte) (string, error) {
	var result interface{}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}

	switch v := result.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	default:
		return "", fmt.Errorf("unexpected InvokeLLM result type %T", v)
	}
}

func (c *PlatformClient) appURL(path string) string {
	return fmt.Sprintf("%s/api/apps/%s%s", c.baseURL, c.appID, path)
}

func (c *PlatformClient) setAPIKey(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set(HeaderAPIKey, c.apiKey)
	}
}

// IsConfigured returns true if the client has valid configuration
func (c *PlatformClient) IsConfigured() bool {
	return c.baseURL != ""
}
