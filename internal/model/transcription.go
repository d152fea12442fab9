package model

import (
	"encoding/json"
	"fmt"
)

// TranscribeBody is the raw request body. file_url is kept undecoded so that
// falsy JSON values of any type can be told apart from a wrong type.
type TranscribeBody struct {
	FileURL json.RawMessage `json:"file_url"`
}

// TranscribeRequest represents the request body for lyrics transcription
type TranscribeRequest struct {
	FileURL string `json:"file_url" validate:"required"`
}

// Request normalizes the body. Missing, null, "", false and 0 all yield an
// empty FileURL; any other non-string value is an error.
func (b *TranscribeBody) Request() (*TranscribeRequest, error) {
	if len(b.FileURL) == 0 {
		return &TranscribeRequest{}, nil
	}

	var v interface{}
	if err := json.Unmarshal(b.FileURL, &v); err != nil {
		return nil, fmt.Errorf("file_url: %w", err)
	}

	switch fileURL := v.(type) {
	case nil:
		return &TranscribeRequest{}, nil
	case string:
		return &TranscribeRequest{FileURL: fileURL}, nil
	case bool:
		if !fileURL {
			return &TranscribeRequest{}, nil
		}
	case float64:
		if fileURL == 0 {
			return &TranscribeRequest{}, nil
		}
	}

	return nil, fmt.Errorf("file_url must be a string, got %s", string(b.FileURL))
}

// User is the identity resolved for the caller
type User struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
}

// InvokeLLMRequest is sent to the model integration
type InvokeLLMRequest struct {
	Prompt                 string   `json:"prompt"`
	FileURLs               []string `json:"file_urls"`
	AddContextFromInternet bool     `json:"add_context_from_internet"`
}

// LyricsResponse is returned when the model ran, whether or not it produced usable lyrics
type LyricsResponse struct {
	Success bool    `json:"success"`
	Lyrics  *string `json:"lyrics"`
	Error   string  `json:"error,omitempty"`
}
