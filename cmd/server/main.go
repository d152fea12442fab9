package main

import (
	"context"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/makeasinger/lyrics-api/internal/auth"
	"github.com/makeasinger/lyrics-api/internal/client"
	"github.com/makeasinger/lyrics-api/internal/config"
	"github.com/makeasinger/lyrics-api/internal/handler"
	"github.com/makeasinger/lyrics-api/internal/logger"
	"github.com/makeasinger/lyrics-api/internal/middleware"
	"github.com/makeasinger/lyrics-api/internal/service"
	"github.com/makeasinger/lyrics-api/pkg/response"
)

// appDeps are the collaborators the HTTP layer is built from
type appDeps struct {
	platform service.Platform
	// limiter guards the transcription routes; nil disables rate limiting.
	limiter  fiber.Handler
	services fiber.Map
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		l := logger.Get()
		l.Fatal().Err(err).Msg("failed to load config")
	}

	log := logger.Init(logger.Config{
		Level:   cfg.Server.LogLevel,
		Format:  cfg.Server.LogFormat,
		Service: "lyrics-api",
	})

	platformClient := client.NewPlatformClient(&cfg.Platform)

	// Initialize R2 client (optional - audio is fetched over HTTP otherwise)
	var r2Client *client.R2Client
	if cfg.R2.AccessKeyID != "" && cfg.R2.SecretAccessKey != "" {
		r2Client, err = client.NewR2Client(&cfg.R2)
		if err != nil {
			log.Warn().Err(err).Msg("R2 client not initialized")
		}
	}

	resolver, closeResolver := buildResolver(cfg, platformClient, log)
	defer closeResolver()

	var llm service.LLMInvoker = platformClient
	var groqClient *client.GroqClient
	if cfg.Transcription.Backend == config.BackendGroq {
		audio := client.NewAudioResolver(r2Client, client.NewHTTPAudioSource(time.Duration(cfg.Groq.Timeout)*time.Second))
		groqClient = client.NewGroqClient(&cfg.Groq, audio)
		llm = groqClient
	}

	var limiter fiber.Handler
	if cfg.RateLimit.TranscribePerMin > 0 {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()

		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Warn().Err(err).Msg("redis not available, rate limiting fails open")
		}
		limiter = middleware.NewRateLimiter(redisClient).TranscribeLimit(cfg.RateLimit.TranscribePerMin)
	}

	app := newApp(cfg, appDeps{
		platform: service.NewPlatform(resolver, llm),
		limiter:  limiter,
		services: fiber.Map{
			"auth":      cfg.Auth.Mode,
			"backend":   cfg.Transcription.Backend,
			"platform":  platformClient.IsConfigured(),
			"groq":      groqClient != nil && groqClient.IsConfigured(),
			"r2":        r2Client.IsConfigured(),
			"ratelimit": limiter != nil,
		},
	}, log)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Info().Msg("shutting down server")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error().Err(err).Msg("server shutdown error")
		}
	}()

	addr := ":" + cfg.Server.Port
	log.Info().Str("addr", addr).Str("auth_mode", cfg.Auth.Mode).Str("backend", cfg.Transcription.Backend).Msg("server starting")
	if err := app.Listen(addr); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}

// buildResolver picks how callers are identified. The returned func releases
// verifier resources.
func buildResolver(cfg *config.Config, platformClient *client.PlatformClient, log zerolog.Logger) (auth.IdentityResolver, func()) {
	switch cfg.Auth.Mode {
	case config.AuthModeGateway:
		log.Info().Msg("gateway mode enabled, using header-based identity")
		return auth.NewGatewayResolver(), func() {}
	case config.AuthModePlatform:
		return platformClient, func() {}
	}

	// Zitadel JWKS first, legacy HMAC as fallback
	var verifiers []auth.TokenVerifier
	var closers []func() error
	if cfg.Zitadel.Issuer != "" {
		jwksVerifier, err := auth.NewJWKSVerifier(&cfg.Zitadel)
		if err != nil {
			log.Warn().Err(err).Msg("JWKS verifier not initialized")
		} else {
			verifiers = append(verifiers, jwksVerifier)
			closers = append(closers, jwksVerifier.Close)
		}
	}
	if cfg.JWT.Secret != "" {
		verifiers = append(verifiers, auth.NewLegacyVerifier(cfg.JWT.Secret))
	}

	return auth.NewTokenResolver(verifiers...), func() {
		for _, c := range closers {
			_ = c()
		}
	}
}

func newApp(cfg *config.Config, deps appDeps, log zerolog.Logger) *fiber.App {
	validate := validator.New()

	transcriptionService := service.NewTranscriptionService(deps.platform, &cfg.Transcription)
	transcriptionHandler := handler.NewTranscriptionHandler(transcriptionService, validate)
	authHandler := handler.NewAuthHandler(deps.platform)

	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    cfg.Server.BodyLimitMB * 1024 * 1024,
	})

	// Global middleware. recover sits inside the request logger so panics still get a request line.
	app.Use(requestid.New(requestid.Config{
		Generator: func() string { return uuid.New().String() },
	}))
	app.Use(middleware.RequestLogger(log))
	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c *fiber.Ctx, e interface{}) {
			log.Error().
				Interface("panic", e).
				Str("path", c.Path()).
				Str("stack", string(debug.Stack())).
				Msg("panic recovered")
		},
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Base URL - timestamp
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"timestamp": time.Now().Unix(),
		})
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":   "ok",
			"services": deps.services,
		})
	})

	// ForwardAuth verification endpoint; in gateway mode identity comes from the gateway itself
	if cfg.Auth.Mode != config.AuthModeGateway {
		app.Get("/auth/verify", authHandler.Verify)
	}

	handlers := []fiber.Handler{transcriptionHandler.Transcribe}
	if deps.limiter != nil {
		handlers = append([]fiber.Handler{deps.limiter}, handlers...)
	}
	app.Post("/api/transcribe", handlers...)
	// Serverless deployments post straight to the function root
	app.Post("/", handlers...)

	return app
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	if e, ok := err.(*fiber.Error); ok {
		return response.Error(c, e.Code, e.Message)
	}
	return response.Failure(c, fiber.StatusInternalServerError, err.Error())
}
