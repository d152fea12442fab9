package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/makeasinger/lyrics-api/internal/auth"
	"github.com/makeasinger/lyrics-api/internal/logger"
	"github.com/makeasinger/lyrics-api/internal/model"
)

// fakePlatform records every call made by the handler.
type fakePlatform struct {
	user     *model.User
	userErr  error
	text     string
	llmErr   error
	creds    []auth.Credentials
	calls    []*model.InvokeLLMRequest
	ctxCreds []auth.Credentials
}

func (f *fakePlatform) CurrentUser(_ context.Context, creds auth.Credentials) (*model.User, error) {
	f.creds = append(f.creds, creds)
	return f.user, f.userErr
}

func (f *fakePlatform) InvokeLLM(ctx context.Context, req *model.InvokeLLMRequest) (string, error) {
	f.calls = append(f.calls, req)
	if creds, ok := auth.CredentialsFromContext(ctx); ok {
		f.ctxCreds = append(f.ctxCreds, creds)
	}
	return f.text, f.llmErr
}

// captureLogs redirects the global logger for the duration of the test.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	t.Cleanup(func() { logger.SetOutput(os.Stdout) })
	return &buf
}

func doRequest(t *testing.T, app *fiber.App, method, path, body string, headers map[string]string) *http.Response {
	t.Helper()

	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, path, bodyReader)
	require.NoError(t, err)

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var result map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &result), "body: %s", string(b))
	return result
}
