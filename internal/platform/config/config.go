package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

type Config struct {
	APIPort        string
	RequestTimeout time.Duration // 0 disables the per-request deadline

	JudgeURL         string
	JudgeTimeout     time.Duration // 0 leaves the transport default in place
	JudgeConcurrency int

	RoomDuration time.Duration

	StoreBackend   string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	RedisKeyPrefix string

	LogLevel           string
	CORSAllowedOrigins []string
}

var AppConfig *Config

// writeTimeoutMargin leaves room to render the response after the last executor call.
const writeTimeoutMargin = 5 * time.Second

// ServerWriteTimeout derives the HTTP server write deadline from the request and
// executor timeouts, given the executor calls one request may make in sequence.
// It returns 0 (no deadline) when neither timeout is set, since executor calls are
// then unbounded and a fixed cut-off would drop the connection with no error page.
func (c *Config) ServerWriteTimeout(calls int) time.Duration {
	switch {
	case c.RequestTimeout > 0:
		return c.RequestTimeout + writeTimeoutMargin
	case c.JudgeTimeout > 0:
		return time.Duration(max(calls, 1))*c.JudgeTimeout + writeTimeoutMargin
	default:
		return 0
	}
}

func Load() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	AppConfig = &Config{
		APIPort:            getEnv("API_PORT", "3000"),
		RequestTimeout:     time.Duration(getEnvAsInt("REQUEST_TIMEOUT_SECONDS", 0)) * time.Second,
		JudgeURL:           getEnv("JUDGE_URL", "https://ce.judge0.com/submissions?base64_encoded=false&wait=true"),
		JudgeTimeout:       time.Duration(getEnvAsInt("JUDGE_TIMEOUT_SECONDS", 0)) * time.Second,
		JudgeConcurrency:   getEnvAsInt("JUDGE_CONCURRENCY", 1),
		RoomDuration:       time.Duration(getEnvAsInt("ROOM_DURATION_SECONDS", 120)) * time.Second,
		StoreBackend:       strings.ToLower(getEnv("STORE_BACKEND", StoreMemory)),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisDB:            getEnvAsInt("REDIS_DB", 0),
		RedisKeyPrefix:     getEnv("REDIS_KEY_PREFIX", "contest"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
	}

	if AppConfig.JudgeConcurrency < 1 {
		AppConfig.JudgeConcurrency = 1
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsList(key string, fallback []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	var result []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	if len(result) == 0 {
		return fallback
	}
	return result
}
