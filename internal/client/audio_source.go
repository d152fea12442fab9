package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"
)

const defaultAudioName = "audio.mp3"

// AudioSource opens the audio behind a file reference
type AudioSource interface {
	// Open returns the audio stream and a file name carrying its extension.
	Open(ctx context.Context, ref string) (io.ReadCloser, string, error)
}

// HTTPAudioSource downloads audio from http(s) URLs
type HTTPAudioSource struct {
	httpClient *http.Client
}

func NewHTTPAudioSource(timeout time.Duration) *HTTPAudioSource {
	return &HTTPAudioSource{
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (s *HTTPAudioSource) Open(ctx context.Context, ref string) (io.ReadCloser, string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return nil, "", fmt.Errorf("invalid file url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, "", fmt.Errorf("unsupported file url scheme %q", u.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to download audio: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, "", fmt.Errorf("audio download failed: status %d", resp.StatusCode)
	}

	return resp.Body, audioFileName(path.Base(u.Path)), nil
}

// AudioResolver reads bucket references from R2 and everything else over HTTP
type AudioResolver struct {
	r2  *R2Client
	web AudioSource
}

// NewAudioResolver creates a resolver. r2 may be nil when storage is not configured.
func NewAudioResolver(r2 *R2Client, web AudioSource) *AudioResolver {
	return &AudioResolver{r2: r2, web: web}
}

func (r *AudioResolver) Open(ctx context.Context, ref string) (io.ReadCloser, string, error) {
	if r.r2.IsConfigured() {
		if _, ok := r.r2.KeyFor(ref); ok {
			return r.r2.Open(ctx, ref)
		}
	}
	return r.web.Open(ctx, ref)
}

// audioFileName keeps the name when it carries an extension; transcription
// APIs detect the format from it.
func audioFileName(name string) string {
	if name == "" || name == "." || name == "/" || path.Ext(name) == "" {
		return defaultAudioName
	}
	return name
}
