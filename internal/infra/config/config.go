package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// AppConfig описывает конфигурацию всех процессов бота.
type AppConfig struct {
	AppEnv string `envconfig:"APP_ENV" default:"dev"`

	Twitter struct {
		BaseURL     string        `envconfig:"X_BASE_URL" default:"https://api.x.com"`
		BearerToken string        `envconfig:"X_BEARER_TOKEN"`
		Timeout     time.Duration `envconfig:"X_TIMEOUT" default:"15s"`
		RPS         int           `envconfig:"X_RPS" default:"1"`
	} `envconfig:""`

	Generator struct {
		Provider      string        `envconfig:"GENERATOR_PROVIDER" default:"openai"`
		Model         string        `envconfig:"GENERATOR_MODEL"`
		Timeout       time.Duration `envconfig:"GENERATOR_TIMEOUT" default:"60s"`
		OpenAIKey     string        `envconfig:"OPENAI_API_KEY"`
		OpenRouterKey string        `envconfig:"OPENROUTER_API_KEY"`
		GeminiKey     string        `envconfig:"GEMINI_API_KEY"`
		OllamaBaseURL string        `envconfig:"OLLAMA_BASE_URL" default:"http://localhost:11434/v1"`
		AdjustTone    bool          `envconfig:"ADJUST_TONE" default:"true"`
		UseMarketData bool          `envconfig:"USE_MARKET_DATA" default:"false"`
	} `envconfig:""`

	Storage struct {
		Driver     string `envconfig:"STORAGE_DRIVER" default:"postgres"`
		PGDSN      string `envconfig:"PG_DSN"`
		SQLitePath string `envconfig:"SQLITE_PATH" default:"tweets.db"`
	} `envconfig:""`

	RedisAddr string `envconfig:"REDIS_ADDR"`

	Queue struct {
		Driver  string `envconfig:"QUEUE_DRIVER" default:"redis"`
		Key     string `envconfig:"POST_QUEUE_KEY" default:"post_jobs"`
		AMQPURL string `envconfig:"AMQP_URL"`
	} `envconfig:""`

	Limits struct {
		TimelineMax int `envconfig:"TIMELINE_MAX" default:"40"`
		ThreadMax   int `envconfig:"THREAD_MAX_TWEETS" default:"5"`
	} `envconfig:""`

	FilterSpam bool `envconfig:"FILTER_SPAM" default:"true"`

	Schedule struct {
		PostEvery  time.Duration `envconfig:"POST_EVERY" default:"6h"`
		ReplyEvery time.Duration `envconfig:"REPLY_EVERY" default:"15m"`
	} `envconfig:""`

	SentryDSN   string `envconfig:"SENTRY_DSN"`
	MetricsAddr string `envconfig:"METRICS_ADDR" default:":9090"`
	APIAddr     string `envconfig:"API_ADDR" default:":8080"`
}

// Load загружает конфиг из окружения. Файл .env подхватывается при наличии,
// но реальные переменные окружения имеют приоритет.
func Load() AppConfig {
	if err := godotenv.Load(); err != nil {
		log.Println("файл .env не найден, используем переменные окружения")
	}
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}
