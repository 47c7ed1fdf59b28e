package config

import (
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort  string `mapstructure:"APP_PORT"`
	Env      string `mapstructure:"ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// Redis configuration.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisCacheDB  int    `mapstructure:"REDIS_CACHE_DB"`
	RedisHoldDB   int    `mapstructure:"REDIS_HOLD_DB"`
	RedisQueueDB  int    `mapstructure:"REDIS_QUEUE_DB"`

	// OpenAI configuration.
	OpenAIAPIKey        string `mapstructure:"OPENAI_API_KEY"`
	OpenAIModelDefault  string `mapstructure:"OPENAI_MODEL_DEFAULT"`
	OpenAIModelVision   string `mapstructure:"OPENAI_MODEL_VISION"`
	OpenAIModelClassify string `mapstructure:"OPENAI_MODEL_CLASSIFY"`
	OpenAIModelEmbed    string `mapstructure:"OPENAI_MODEL_EMBED"`

	// Pinecone configuration.
	PineconeAPIKey            string `mapstructure:"PINECONE_API_KEY"`
	PineconeConversationsHost string `mapstructure:"PINECONE_CONVERSATIONS_HOST"`
	PineconePricingHost       string `mapstructure:"PINECONE_PRICING_HOST"`

	// Google Calendar configuration.
	GoogleClientID     string `mapstructure:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `mapstructure:"GOOGLE_CLIENT_SECRET"`
	GoogleTokenFile    string `mapstructure:"GOOGLE_TOKEN_FILE"`
	CalendarID         string `mapstructure:"CALENDAR_ID"`
	StudioTimezone     string `mapstructure:"STUDIO_TIMEZONE"`

	// Instagram configuration.
	InstagramAccessToken string `mapstructure:"IG_USER_ACCESS_TOKEN"`
	WebhookVerifyToken   string `mapstructure:"WEBHOOK_VERIFY_TOKEN"`
	AdminSenderIDs       string `mapstructure:"ADMIN_SENDER_IDS"`
	ReactionBotSenderID  string `mapstructure:"REACTION_BOT_SENDER_ID"`

	// Conversation processing.
	MaxHistoryLength   int `mapstructure:"MAX_HISTORY_LENGTH"`
	GraceWindowSeconds int `mapstructure:"GRACE_WINDOW_SECONDS"`
	HoldTTLMinutes     int `mapstructure:"HOLD_TTL_MINUTES"`

	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`
	PromptsDir        string `mapstructure:"PROMPTS_DIR"`
}

var AppConfig Config

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	// Set default values.
	viper.SetDefault("APP_PORT", "3000")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_CACHE_DB", 0)
	viper.SetDefault("REDIS_HOLD_DB", 1)
	viper.SetDefault("REDIS_QUEUE_DB", 2)
	viper.SetDefault("OPENAI_MODEL_DEFAULT", "gpt-4o")
	viper.SetDefault("OPENAI_MODEL_VISION", "gpt-4o-mini")
	viper.SetDefault("OPENAI_MODEL_CLASSIFY", "gpt-4o-mini")
	viper.SetDefault("OPENAI_MODEL_EMBED", "text-embedding-3-small")
	viper.SetDefault("GOOGLE_TOKEN_FILE", "token.json")
	viper.SetDefault("CALENDAR_ID", "primary")
	viper.SetDefault("STUDIO_TIMEZONE", "Europe/Athens")
	viper.SetDefault("REACTION_BOT_SENDER_ID", "")
	viper.SetDefault("MAX_HISTORY_LENGTH", 20)
	viper.SetDefault("GRACE_WINDOW_SECONDS", 20)
	viper.SetDefault("HOLD_TTL_MINUTES", 30)
	viper.SetDefault("MAX_REQUESTS_PER_MIN", 100)
	viper.SetDefault("PROMPTS_DIR", "./prompts")

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

// AdminSenders returns the configured admin sender IDs as a set.
func (c Config) AdminSenders() map[string]bool {
	out := make(map[string]bool)
	for _, id := range strings.Split(c.AdminSenderIDs, ",") {
		id = strings.TrimSpace(id)
		if id != "" {
			out[id] = true
		}
	}
	return out
}

// GraceWindow returns the base grace window as a duration.
func (c Config) GraceWindow() time.Duration {
	return time.Duration(c.GraceWindowSeconds) * time.Second
}

// HoldTTL returns the slot hold time-to-live as a duration.
func (c Config) HoldTTL() time.Duration {
	return time.Duration(c.HoldTTLMinutes) * time.Minute
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}
