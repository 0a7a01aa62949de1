package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	AppEnv        string
	HTTPAddr      string
	RedisAddr     string
	RedisPassword string
	DataDir       string

	ImmichURL string
	ImmichKey string

	DeAPIToken     string
	DeAPIClientID  string
	DeAPIBaseURL   string
	DeAPISocketURL string
	DeAPIModel     string
	DeAPIMaxWait   time.Duration

	IllustrationsDir string
	PromptsFile      string

	DisplayWidth  int
	DisplayHeight int

	SupabaseURL        string
	SupabaseServiceKey string
	SupabaseBucket     string

	TaskMaxRetries int
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getenvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func Load() Config {
	cfg := Config{
		AppEnv:        getenv("APP_ENV", "development"),
		HTTPAddr:      getenv("HTTP_ADDR", ":8082"),
		RedisAddr:     getenv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		DataDir:       getenv("DATA_DIR", "./data"),

		ImmichURL: os.Getenv("IMMICH_URL"),
		ImmichKey: os.Getenv("IMMICH_KEY"),

		DeAPIToken:     os.Getenv("DEAPI_TOKEN"),
		DeAPIClientID:  os.Getenv("DEAPI_CLIENT_ID"),
		DeAPIBaseURL:   getenv("DEAPI_BASE_URL", "https://api.deapi.ai"),
		DeAPISocketURL: getenv("DEAPI_SOCKET_URL", "wss://soketi.deapi.ai/app/depin-api-prod-key?protocol=7&client=inkalbum"),
		DeAPIModel:     getenv("DEAPI_MODEL", "Flux_2_Klein_4B_BF16"),
		DeAPIMaxWait:   getenvDuration("DEAPI_MAX_WAIT", 300*time.Second),

		IllustrationsDir: getenv("ILLUSTRATIONS_DIR", "./Illustrations"),
		PromptsFile:      os.Getenv("PROMPTS_FILE"),

		DisplayWidth:  getenvInt("DISPLAY_WIDTH", 800),
		DisplayHeight: getenvInt("DISPLAY_HEIGHT", 480),

		SupabaseURL:        os.Getenv("NEXT_PUBLIC_SUPABASE_URL"),
		SupabaseServiceKey: os.Getenv("SUPABASE_SERVICE_ROLE_KEY"),
		SupabaseBucket:     getenv("SUPABASE_STORAGE_BUCKET", "illustrations"),

		TaskMaxRetries: getenvInt("TASK_MAX_RETRIES", 3),
	}
	if cfg.RedisAddr == "" {
		panic(fmt.Errorf("REDIS_ADDR is required"))
	}
	return cfg
}
