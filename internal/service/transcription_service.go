package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/makeasinger/lyrics-api/internal/auth"
	"github.com/makeasinger/lyrics-api/internal/config"
	"github.com/makeasinger/lyrics-api/internal/model"
)

// LLMInvoker runs a prompt against the referenced files and returns the generated text
type LLMInvoker interface {
	InvokeLLM(ctx context.Context, req *model.InvokeLLMRequest) (string, error)
}

// Platform is everything the transcription endpoint needs from the outside world
type Platform interface {
	auth.IdentityResolver
	LLMInvoker
}

type platform struct {
	auth.IdentityResolver
	LLMInvoker
}

// NewPlatform pairs an identity resolver with a model backend
func NewPlatform(identity auth.IdentityResolver, llm LLMInvoker) Platform {
	return &platform{IdentityResolver: identity, LLMInvoker: llm}
}

// TranscriptionService turns an audio reference into formatted lyrics
type TranscriptionService struct {
	platform  Platform
	prompt    string
	minLength int
}

func NewTranscriptionService(p Platform, cfg *config.TranscriptionConfig) *TranscriptionService {
	prompt := cfg.Prompt
	if prompt == "" {
		prompt = config.DefaultPrompt
	}
	return &TranscriptionService{
		platform:  p,
		prompt:    prompt,
		minLength: cfg.MinLyricsLength,
	}
}

// Authenticate resolves the caller. No user is StatusUnauthorized; a failing
// identity service is StatusFailed.
func (s *TranscriptionService) Authenticate(ctx context.Context, creds auth.Credentials) *Result {
	user, err := s.platform.CurrentUser(ctx, creds)
	if err != nil {
		return failed(fmt.Errorf("failed to resolve user: %w", err))
	}
	if user == nil {
		return &Result{Status: StatusUnauthorized}
	}
	return success(user, "")
}

// Transcribe invokes the model once for fileURL. Text shorter than the
// configured minimum after trimming is StatusShortfall.
func (s *TranscriptionService) Transcribe(ctx context.Context, fileURL string) *Result {
	if fileURL == "" {
		return &Result{Status: StatusMissingInput}
	}

	text, err := s.platform.InvokeLLM(ctx, &model.InvokeLLMRequest{
		Prompt:                 s.prompt,
		FileURLs:               []string{fileURL},
		AddContextFromInternet: false,
	})
	if err != nil {
		return failed(err)
	}

	lyrics := strings.TrimSpace(text)
	if lyrics == "" || utf8.RuneCountInString(lyrics) < s.minLength {
		return &Result{Status: StatusShortfall}
	}

	return success(nil, lyrics)
}

// Prompt returns the instruction sent with every transcription
func (s *TranscriptionService) Prompt() string {
	return s.prompt
}
