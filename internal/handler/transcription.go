package handler

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/makeasinger/lyrics-api/internal/auth"
	"github.com/makeasinger/lyrics-api/internal/logger"
	"github.com/makeasinger/lyrics-api/internal/model"
	"github.com/makeasinger/lyrics-api/internal/service"
	"github.com/makeasinger/lyrics-api/pkg/response"
)

type TranscriptionHandler struct {
	service   *service.TranscriptionService
	validator *validator.Validate
	log       zerolog.Logger
}

func NewTranscriptionHandler(svc *service.TranscriptionService, v *validator.Validate) *TranscriptionHandler {
	return &TranscriptionHandler{
		service:   svc,
		validator: v,
		log:       logger.WithComponent("transcription"),
	}
}

// Transcribe handles POST /api/transcribe
func (h *TranscriptionHandler) Transcribe(c *fiber.Ctx) error {
	creds := auth.CredentialsFromCtx(c)
	ctx := auth.WithCredentials(c.UserContext(), creds)

	res := h.service.Authenticate(ctx, creds)
	if !res.OK() {
		return h.respond(c, res)
	}
	user := res.User

	// The body is read as JSON regardless of Content-Type.
	var body model.TranscribeBody
	if err := json.Unmarshal(c.Body(), &body); err != nil {
		return h.respond(c, &service.Result{
			Status: service.StatusFailed,
			User:   user,
			Err:    fmt.Errorf("invalid request body: %w", err),
		})
	}

	req, err := body.Request()
	if err != nil {
		return h.respond(c, &service.Result{
			Status: service.StatusFailed,
			User:   user,
			Err:    fmt.Errorf("invalid request body: %w", err),
		})
	}

	if err := h.validator.Struct(req); err != nil {
		return h.respond(c, &service.Result{Status: service.StatusMissingInput, User: user})
	}

	res = h.service.Transcribe(ctx, req.FileURL)
	res.User = user
	return h.respond(c, res)
}

// respond is the only place a Result becomes an HTTP response.
func (h *TranscriptionHandler) respond(c *fiber.Ctx, res *service.Result) error {
	switch res.Status {
	case service.StatusSuccess:
		return response.Lyrics(c, res.Lyrics)
	case service.StatusUnauthorized:
		return response.Unauthorized(c)
	case service.StatusMissingInput:
		return response.BadRequest(c, response.MsgMissingFileURL)
	case service.StatusShortfall:
		return response.NoLyrics(c)
	}

	err := res.Err
	if err == nil {
		err = fmt.Errorf("unexpected result status %s", res.Status)
	}

	event := h.log.Error().Err(err).Str("path", c.Path())
	if rid, ok := c.Locals("requestid").(string); ok {
		event = event.Str("request_id", rid)
	}
	if res.User != nil {
		event = event.Str("user_id", res.User.ID)
	}
	event.Msg("transcription failed")

	return response.Failure(c, fiber.StatusInternalServerError, err.Error())
}
