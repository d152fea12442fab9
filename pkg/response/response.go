package response

import (
	"github.com/gofiber/fiber/v2"
	"github.com/makeasinger/lyrics-api/internal/model"
)

// Fixed messages
const (
	MsgUnauthorized    = "Unauthorized"
	MsgMissingFileURL  = "file_url is required"
	MsgNoLyrics        = "Could not extract lyrics"
	MsgRateLimited     = "Rate limit exceeded"
	MsgInternalFailure = "Internal Server Error"
)

// ErrorResponse is the body of requests rejected before any work is done
type ErrorResponse struct {
	Error string `json:"error"`
}

// FailureResponse is the body of requests that failed unexpectedly
type FailureResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func Error(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(ErrorResponse{Error: message})
}

func Unauthorized(c *fiber.Ctx) error {
	return Error(c, fiber.StatusUnauthorized, MsgUnauthorized)
}

func BadRequest(c *fiber.Ctx, message string) error {
	return Error(c, fiber.StatusBadRequest, message)
}

func RateLimited(c *fiber.Ctx) error {
	return Error(c, fiber.StatusTooManyRequests, MsgRateLimited)
}

// Failure reports an unexpected error with its message exposed to the caller.
func Failure(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(FailureResponse{Success: false, Error: message})
}

func Lyrics(c *fiber.Ctx, lyrics string) error {
	return c.Status(fiber.StatusOK).JSON(model.LyricsResponse{Success: true, Lyrics: &lyrics})
}

// NoLyrics is a normal outcome: the model ran but returned nothing usable.
func NoLyrics(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(model.LyricsResponse{Success: false, Lyrics: nil, Error: MsgNoLyrics})
}
