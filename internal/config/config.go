package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Auth modes
const (
	AuthModeJWT      = "jwt"
	AuthModeGateway  = "gateway"
	AuthModePlatform = "platform"
)

// Transcription backends
const (
	BackendPlatform = "platform"
	BackendGroq     = "groq"
)

// DefaultPrompt asks the model for a complete transcription of the sung lyrics.
const DefaultPrompt = `Transcreva integralmente a letra cantada neste arquivo de áudio.

Regras:
- Transcreva TODAS as palavras cantadas, do início ao fim, sem resumir nem pular trechos.
- Mantenha os marcadores de estrutura da música, como [Intro], [Verso 1], [Pré-Refrão], [Refrão], [Ponte] e [Final].
- Repita as seções repetidas exatamente como são cantadas.
- Marque trechos instrumentais longos com [Instrumental].
- Não inclua comentários, explicações ou qualquer texto que não seja a letra.`

// DefaultMinLyricsLength is the shortest trimmed transcription accepted as lyrics.
const DefaultMinLyricsLength = 20

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	filePath := os.Getenv(envKey + "_FILE")
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	os.Setenv(envKey, strings.TrimSpace(string(data)))
}

type Config struct {
	Server        ServerConfig
	Auth          AuthConfig
	JWT           JWTConfig
	Zitadel       ZitadelConfig
	Platform      PlatformConfig
	Transcription TranscriptionConfig
	Groq          GroqConfig
	R2            R2Config
	Redis         RedisConfig
	RateLimit     RateLimitConfig
}

type ServerConfig struct {
	Port        string
	Env         string
	LogLevel    string
	LogFormat   string
	BodyLimitMB int
}

type AuthConfig struct {
	Mode string
}

type JWTConfig struct {
	Secret string
}

type ZitadelConfig struct {
	Domain   string
	ClientID string
	Issuer   string
}

// PlatformConfig points at the hosting platform that owns users and the
// InvokeLLM integration.
type PlatformConfig struct {
	BaseURL string
	AppID   string
	APIKey  string
	Timeout int // seconds
}

type TranscriptionConfig struct {
	Backend         string
	Prompt          string
	MinLyricsLength int
}

type GroqConfig struct {
	APIKey             string
	BaseURL            string
	ChatModel          string
	TranscriptionModel string
	Timeout            int // seconds
}

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicURL       string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type RateLimitConfig struct {
	TranscribePerMin int
}

func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	readSecret("JWT_SECRET")
	readSecret("PLATFORM_API_KEY")
	readSecret("GROQ_API_KEY")
	readSecret("R2_ACCOUNT_ID")
	readSecret("R2_ACCESS_KEY_ID")
	readSecret("R2_SECRET_ACCESS_KEY")
	readSecret("REDIS_PASSWORD")
	readSecret("ZITADEL_CLIENT_ID")

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.AutomaticEnv()

	_ = v.BindEnv("server.port", "SERVER_PORT")
	_ = v.BindEnv("server.env", "SERVER_ENV")
	_ = v.BindEnv("server.log_level", "LOG_LEVEL")
	_ = v.BindEnv("server.log_format", "LOG_FORMAT")
	_ = v.BindEnv("server.body_limit_mb", "BODY_LIMIT_MB")
	_ = v.BindEnv("auth.mode", "AUTH_MODE")
	_ = v.BindEnv("jwt.secret", "JWT_SECRET")
	_ = v.BindEnv("zitadel.domain", "ZITADEL_DOMAIN")
	_ = v.BindEnv("zitadel.client_id", "ZITADEL_CLIENT_ID")
	_ = v.BindEnv("zitadel.issuer", "ZITADEL_ISSUER")
	_ = v.BindEnv("platform.base_url", "PLATFORM_BASE_URL")
	_ = v.BindEnv("platform.app_id", "PLATFORM_APP_ID")
	_ = v.BindEnv("platform.api_key", "PLATFORM_API_KEY")
	_ = v.BindEnv("platform.timeout", "PLATFORM_TIMEOUT")
	_ = v.BindEnv("transcription.backend", "TRANSCRIPTION_BACKEND")
	_ = v.BindEnv("transcription.prompt", "TRANSCRIPTION_PROMPT")
	_ = v.BindEnv("transcription.min_lyrics_length", "TRANSCRIPTION_MIN_LYRICS_LENGTH")
	_ = v.BindEnv("groq.api_key", "GROQ_API_KEY")
	_ = v.BindEnv("groq.base_url", "GROQ_BASE_URL")
	_ = v.BindEnv("groq.chat_model", "GROQ_CHAT_MODEL")
	_ = v.BindEnv("groq.transcription_model", "GROQ_TRANSCRIPTION_MODEL")
	_ = v.BindEnv("groq.timeout", "GROQ_TIMEOUT")
	_ = v.BindEnv("r2.account_id", "R2_ACCOUNT_ID")
	_ = v.BindEnv("r2.access_key_id", "R2_ACCESS_KEY_ID")
	_ = v.BindEnv("r2.secret_access_key", "R2_SECRET_ACCESS_KEY")
	_ = v.BindEnv("r2.bucket_name", "R2_BUCKET_NAME")
	_ = v.BindEnv("r2.public_url", "R2_PUBLIC_URL")
	_ = v.BindEnv("redis.addr", "REDIS_ADDR")
	_ = v.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = v.BindEnv("redis.db", "REDIS_DB")
	_ = v.BindEnv("ratelimit.transcribe_per_min", "RATELIMIT_TRANSCRIBE_PER_MIN")

	v.SetDefault("server.port", "8000")
	v.SetDefault("server.env", "development")
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_format", "console")
	v.SetDefault("server.body_limit_mb", 1)
	v.SetDefault("auth.mode", AuthModeJWT)
	v.SetDefault("platform.timeout", 120)
	v.SetDefault("transcription.backend", BackendPlatform)
	v.SetDefault("transcription.prompt", DefaultPrompt)
	v.SetDefault("transcription.min_lyrics_length", DefaultMinLyricsLength)
	v.SetDefault("groq.base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("groq.chat_model", "llama-3.3-70b-versatile")
	v.SetDefault("groq.transcription_model", "whisper-large-v3")
	v.SetDefault("groq.timeout", 120)
	v.SetDefault("redis.db", 0)
	v.SetDefault("ratelimit.transcribe_per_min", 0)

	// Try to read config file (optional)
	_ = v.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:        v.GetString("server.port"),
			Env:         v.GetString("server.env"),
			LogLevel:    v.GetString("server.log_level"),
			LogFormat:   v.GetString("server.log_format"),
			BodyLimitMB: v.GetInt("server.body_limit_mb"),
		},
		Auth: AuthConfig{
			Mode: strings.ToLower(v.GetString("auth.mode")),
		},
		JWT: JWTConfig{
			Secret: v.GetString("jwt.secret"),
		},
		Zitadel: ZitadelConfig{
			Domain:   v.GetString("zitadel.domain"),
			ClientID: v.GetString("zitadel.client_id"),
			Issuer:   v.GetString("zitadel.issuer"),
		},
		Platform: PlatformConfig{
			BaseURL: strings.TrimRight(v.GetString("platform.base_url"), "/"),
			AppID:   v.GetString("platform.app_id"),
			APIKey:  v.GetString("platform.api_key"),
			Timeout: v.GetInt("platform.timeout"),
		},
		Transcription: TranscriptionConfig{
			Backend:         strings.ToLower(v.GetString("transcription.backend")),
			Prompt:          v.GetString("transcription.prompt"),
			MinLyricsLength: v.GetInt("transcription.min_lyrics_length"),
		},
		Groq: GroqConfig{
			APIKey:             v.GetString("groq.api_key"),
			BaseURL:            v.GetString("groq.base_url"),
			ChatModel:          v.GetString("groq.chat_model"),
			TranscriptionModel: v.GetString("groq.transcription_model"),
			Timeout:            v.GetInt("groq.timeout"),
		},
		R2: R2Config{
			AccountID:       v.GetString("r2.account_id"),
			AccessKeyID:     v.GetString("r2.access_key_id"),
			SecretAccessKey: v.GetString("r2.secret_access_key"),
			BucketName:      v.GetString("r2.bucket_name"),
			PublicURL:       strings.TrimRight(v.GetString("r2.public_url"), "/"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		RateLimit: RateLimitConfig{
			TranscribePerMin: v.GetInt("ratelimit.transcribe_per_min"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var result *multierror.Error

	switch c.Auth.Mode {
	case AuthModeJWT:
		if c.JWT.Secret == "" && c.Zitadel.Issuer == "" {
			result = multierror.Append(result, fmt.Errorf("auth.mode %q needs jwt.secret or zitadel.issuer", c.Auth.Mode))
		}
	case AuthModeGateway:
	case AuthModePlatform:
		if c.Platform.BaseURL == "" {
			result = multierror.Append(result, fmt.Errorf("auth.mode %q needs platform.base_url", c.Auth.Mode))
		}
	default:
		result = multierror.Append(result, fmt.Errorf("unknown auth.mode %q", c.Auth.Mode))
	}

	switch c.Transcription.Backend {
	case BackendPlatform:
		if c.Platform.BaseURL == "" {
			result = multierror.Append(result, fmt.Errorf("transcription.backend %q needs platform.base_url", c.Transcription.Backend))
		}
	case BackendGroq:
		if c.Groq.APIKey == "" {
			result = multierror.Append(result, fmt.Errorf("transcription.backend %q needs groq.api_key", c.Transcription.Backend))
		}
	default:
		result = multierror.Append(result, fmt.Errorf("unknown transcription.backend %q", c.Transcription.Backend))
	}

	if strings.TrimSpace(c.Transcription.Prompt) == "" {
		result = multierror.Append(result, fmt.Errorf("transcription.prompt must not be empty"))
	}
	if c.Transcription.MinLyricsLength < 0 {
		result = multierror.Append(result, fmt.Errorf("transcription.min_lyrics_length must be >= 0"))
	}
	if c.Server.BodyLimitMB <= 0 {
		result = multierror.Append(result, fmt.Errorf("server.body_limit_mb must be positive"))
	}
	if c.RateLimit.TranscribePerMin > 0 && c.Redis.Addr == "" {
		result = multierror.Append(result, fmt.Errorf("ratelimit.transcribe_per_min needs redis.addr"))
	}

	return result.ErrorOrNil()
}
