package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makeasinger/lyrics-api/internal/auth"
	"github.com/makeasinger/lyrics-api/internal/client"
	"github.com/makeasinger/lyrics-api/internal/config"
	"github.com/makeasinger/lyrics-api/internal/logger"
	"github.com/makeasinger/lyrics-api/internal/middleware"
	"github.com/makeasinger/lyrics-api/internal/model"
	"github.com/makeasinger/lyrics-api/internal/service"
)

const testJWTSecret = "test-secret-for-e2e"

type stubLLM struct {
	text  string
	err   error
	calls int
}

func (s *stubLLM) InvokeLLM(context.Context, *model.InvokeLLMRequest) (string, error) {
	s.calls++
	return s.text, s.err
}

func testConfig(mode string) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: "8000", BodyLimitMB: 1},
		Auth:   config.AuthConfig{Mode: mode},
		JWT:    config.JWTConfig{Secret: testJWTSecret},
		Transcription: config.TranscriptionConfig{
			Backend:         config.BackendPlatform,
			Prompt:          config.DefaultPrompt,
			MinLyricsLength: config.DefaultMinLyricsLength,
		},
	}
}

func setupApp(t *testing.T, mode string, llm *stubLLM, limiter fiber.Handler) *fiber.App {
	t.Helper()
	return setupAppWithLog(t, mode, llm, limiter, zerolog.Nop())
}

func setupAppWithLog(t *testing.T, mode string, llm *stubLLM, limiter fiber.Handler, log zerolog.Logger) *fiber.App {
	t.Helper()
	cfg := testConfig(mode)

	resolver, closeResolver := buildResolver(cfg, client.NewPlatformClient(&cfg.Platform), log)
	t.Cleanup(closeResolver)

	return newApp(cfg, appDeps{
		platform: service.NewPlatform(resolver, llm),
		limiter:  limiter,
		services: fiber.Map{"auth": mode},
	}, log)
}

func authHeader(t *testing.T) string {
	t.Helper()
	token, err := auth.GenerateLegacyToken(testJWTSecret, "test-user-123", "test@example.com")
	require.NoError(t, err)
	return "Bearer " + token
}

func doRequest(t *testing.T, app *fiber.App, method, path, body string, headers map[string]string) (*http.Response, map[string]interface{}) {
	t.Helper()

	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, bodyReader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	// Plain status replies such as /auth/verify carry a text body.
	var result map[string]interface{}
	if strings.HasPrefix(resp.Header.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(raw, &result), "body: %s", string(raw))
	}
	return resp, result
}

func TestBaseURL(t *testing.T) {
	app := setupApp(t, config.AuthModeJWT, &stubLLM{}, nil)

	resp, body := doRequest(t, app, http.MethodGet, "/", "", nil)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "timestamp")
	assert.NotEmpty(t, resp.Header.Get(fiber.HeaderXRequestID))
}

func TestHealth(t *testing.T) {
	app := setupApp(t, config.AuthModeJWT, &stubLLM{}, nil)

	resp, body := doRequest(t, app, http.MethodGet, "/health", "", nil)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, map[string]interface{}{"auth": "jwt"}, body["services"])
}

func TestTranscribe_Routes(t *testing.T) {
	lyrics := strings.Repeat("[Refrão] canta comigo ", 5)

	for _, path := range []string{"/api/transcribe", "/"} {
		t.Run(path, func(t *testing.T) {
			llm := &stubLLM{text: lyrics}
			app := setupApp(t, config.AuthModeJWT, llm, nil)

			resp, body := doRequest(t, app, http.MethodPost, path, `{"file_url":"https://x/test.mp3"}`, map[string]string{
				"Authorization": authHeader(t),
			})

			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, true, body["success"])
			assert.Equal(t, strings.TrimSpace(lyrics), body["lyrics"])
			assert.Equal(t, 1, llm.calls)
		})
	}
}

func TestTranscribe_NoAuth(t *testing.T) {
	llm := &stubLLM{text: "irrelevant"}
	app := setupApp(t, config.AuthModeJWT, llm, nil)

	resp, body := doRequest(t, app, http.MethodPost, "/api/transcribe", `{"file_url":"https://x/test.mp3"}`, nil)

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Unauthorized", body["error"])
	assert.Zero(t, llm.calls)
}

func TestTranscribe_GatewayMode(t *testing.T) {
	llm := &stubLLM{text: "Hello"}
	app := setupApp(t, config.AuthModeGateway, llm, nil)

	resp, body := doRequest(t, app, http.MethodPost, "/api/transcribe", `{"file_url":"https://x/test.mp3"}`, map[string]string{
		auth.HeaderUserID: "gw-user",
	})

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]interface{}{
		"success": false,
		"lyrics":  nil,
		"error":   "Could not extract lyrics",
	}, body)

	resp, _ = doRequest(t, app, http.MethodGet, "/auth/verify", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAuthVerify(t *testing.T) {
	app := setupApp(t, config.AuthModeJWT, &stubLLM{}, nil)

	resp, body := doRequest(t, app, http.MethodGet, "/auth/verify", "", map[string]string{
		"Authorization": authHeader(t),
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "test-user-123", resp.Header.Get(auth.HeaderUserID))
	assert.Nil(t, body)

	resp, body = doRequest(t, app, http.MethodGet, "/auth/verify", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Nil(t, body)
}

func TestErrorHandler_NotFound(t *testing.T) {
	app := setupApp(t, config.AuthModeJWT, &stubLLM{}, nil)

	resp, body := doRequest(t, app, http.MethodGet, "/missing", "", nil)

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body["error"], "Cannot GET /missing")
}

func TestTranscribe_RateLimited(t *testing.T) {
	mini, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mini.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	t.Cleanup(func() { rdb.Close() })

	llm := &stubLLM{text: strings.Repeat("letra ", 10)}
	app := setupApp(t, config.AuthModeJWT, llm, middleware.NewRateLimiter(rdb).TranscribeLimit(1))
	headers := map[string]string{"Authorization": authHeader(t)}

	resp, _ := doRequest(t, app, http.MethodPost, "/api/transcribe", `{"file_url":"https://x/a.mp3"}`, headers)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := doRequest(t, app, http.MethodPost, "/", `{"file_url":"https://x/a.mp3"}`, headers)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "Rate limit exceeded", body["error"])
	assert.NotEmpty(t, resp.Header.Get(fiber.HeaderRetryAfter))
	assert.Equal(t, 1, llm.calls)
}

func TestBuildResolver_PlatformMode(t *testing.T) {
	cfg := testConfig(config.AuthModePlatform)
	pc := client.NewPlatformClient(&config.PlatformConfig{BaseURL: "https://platform.example.com"})

	resolver, closeResolver := buildResolver(cfg, pc, zerolog.Nop())
	defer closeResolver()

	assert.Same(t, pc, resolver)
}

func TestBuildResolver_NoVerifiers(t *testing.T) {
	cfg := testConfig(config.AuthModeJWT)
	cfg.JWT.Secret = ""

	resolver, closeResolver := buildResolver(cfg, client.NewPlatformClient(&cfg.Platform), zerolog.Nop())
	defer closeResolver()

	tr, ok := resolver.(*auth.TokenResolver)
	require.True(t, ok)
	assert.False(t, tr.IsConfigured())
}

// logLevels returns the level of every JSON log line in buf.
func logLevels(t *testing.T, buf *bytes.Buffer) []string {
	t.Helper()
	var levels []string
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry), "line: %s", line)
		levels = append(levels, entry["level"].(string))
	}
	return levels
}

func countLevel(levels []string, level string) int {
	n := 0
	for _, l := range levels {
		if l == level {
			n++
		}
	}
	return n
}

func TestTranscribe_FailureLogsOneErrorLine(t *testing.T) {
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	t.Cleanup(func() { logger.SetOutput(os.Stdout) })

	llm := &stubLLM{err: errors.New("model unavailable")}
	app := setupAppWithLog(t, config.AuthModeJWT, llm, nil, zerolog.New(&buf))

	resp, body := doRequest(t, app, http.MethodPost, "/api/transcribe", `{"file_url":"https://x/test.mp3"}`, map[string]string{
		"Authorization": authHeader(t),
	})

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "model unavailable", body["error"])

	levels := logLevels(t, &buf)
	assert.Equal(t, 1, countLevel(levels, "error"), "levels: %v", levels)
	assert.Equal(t, 1, countLevel(levels, "warn"), "levels: %v", levels)
}

func TestPanic_IsRecoveredAndLogged(t *testing.T) {
	var buf bytes.Buffer
	app := setupAppWithLog(t, config.AuthModeJWT, &stubLLM{}, nil, zerolog.New(&buf))
	app.Get("/panic", func(c *fiber.Ctx) error {
		panic("boom")
	})

	resp, body := doRequest(t, app, http.MethodGet, "/panic", "", nil)

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, map[string]interface{}{"success": false, "error": "boom"}, body)

	out := buf.String()
	assert.Contains(t, out, `"message":"panic recovered"`)
	assert.Contains(t, out, `"message":"request"`)

	levels := logLevels(t, &buf)
	assert.Equal(t, 1, countLevel(levels, "error"), "levels: %v", levels)
}
