package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/makeasinger/lyrics-api/internal/config"
	"github.com/makeasinger/lyrics-api/internal/model"
)

// ErrInternetContextUnsupported is returned when a request asks for web-augmented answers
var ErrInternetContextUnsupported = errors.New("add_context_from_internet is not supported by the groq backend")

// GroqClient implements InvokeLLM on Groq's OpenAI-compatible API: every
// referenced file is transcribed with Whisper, then the chat model applies the
// prompt to the raw transcript.
type GroqClient struct {
	client             *openai.Client
	audio              AudioSource
	apiKey             string
	chatModel          string
	transcriptionModel string
}

// NewGroqClient creates a new Groq API client
func NewGroqClient(cfg *config.GroqConfig, audio AudioSource) *GroqClient {
	oc := openai.DefaultConfig(cfg.APIKey)
	oc.BaseURL = cfg.BaseURL
	oc.HTTPClient = &http.Client{
		Timeout: time.Duration(cfg.Timeout) * time.Second,
	}

	return &GroqClient{
		client:             openai.NewClientWithConfig(oc),
		audio:              audio,
		apiKey:             cfg.APIKey,
		chatModel:          cfg.ChatModel,
		transcriptionModel: cfg.TranscriptionModel,
	}
}

// InvokeLLM transcribes the referenced audio and formats it with the prompt
func (c *GroqClient) InvokeLLM(ctx context.Context, req *model.InvokeLLMRequest) (string, error) {
	if req.AddContextFromInternet {
		return "", ErrInternetContextUnsupported
	}
	if len(req.FileURLs) == 0 {
		return "", fmt.Errorf("no file urls to transcribe")
	}

	transcripts := make([]string, 0, len(req.FileURLs))
	for _, ref := range req.FileURLs {
		text, err := c.transcribe(ctx, ref)
		if err != nil {
			return "", err
		}
		transcripts = append(transcripts, text)
	}

	raw := strings.TrimSpace(strings.Join(transcripts, "\n\n"))
	if raw == "" {
		return "", nil
	}

	return c.ChatCompletion(ctx, req.Prompt, raw)
}

func (c *GroqClient) transcribe(ctx context.Context, ref string) (string, error) {
	body, name, err := c.audio.Open(ctx, ref)
	if err != nil {
		return "", err
	}
	defer body.Close()

	resp, err := c.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    c.transcriptionModel,
		Reader:   body,
		FilePath: name,
	})
	if err != nil {
		return "", fmt.Errorf("transcription failed: %w", err)
	}

	return resp.Text, nil
}

// ChatCompletion sends a chat completion request to Groq
func (c *GroqClient) ChatCompletion(ctx context.Context, system, user string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.chatModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: 0.2,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	return resp.Choices[0].Message.Content, nil
}

// IsConfigured returns true if the client has valid configuration
func (c *GroqClient) IsConfigured() bool {
	return c.apiKey != ""
}
