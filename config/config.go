package config

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/spf13/viper"
)

var (
	Environment   string
	Port          string
	SessionSecret string
	JWTSecret     string
	JWTTTL        time.Duration
	AccountsFile  string
	CORSOrigins   []string
	MaxUploadSize int64

	OpenAIAPIKey    string
	OpenAIBaseURL   string
	OpenAIModel     string
	SystemPrompt    string
	Temperature     float64
	MaxTokens       int
	ProviderTimeout time.Duration

	PricePer1KTokens  float64
	FXRate            float64
	RollbackOnOverage bool

	UsageStore       string
	UsageFile        string
	SQLitePath       string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresHost     string
	PostgresPort     string

	MongoURI string
	MongoDB  string

	AWSRegion          string
	AWSBucketName      string
	AWSAccessKeyID     string
	AWSSecretAccessKey string

	// singleton lock
	loadConfigOnce sync.Once
)

var AWSConfig aws.Config

func setDefaults() {
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("ENVIRONMENT", "development")
	viper.SetDefault("JWT_TTL_HOURS", 24)
	viper.SetDefault("ACCOUNTS_FILE", "accounts.yaml")
	viper.SetDefault("CORS_ORIGINS", "http://localhost:8080,http://127.0.0.1:8080")
	viper.SetDefault("MAX_UPLOAD_MB", 10)
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FILE", "logs/app.log")

	viper.SetDefault("OPENAI_BASE_URL", "https://api.openai.com/v1")
	viper.SetDefault("OPENAI_MODEL", "gpt-4o")
	viper.SetDefault("SYSTEM_PROMPT", "You are a helpful assistant.")
	viper.SetDefault("TEMPERATURE", 0.7)
	viper.SetDefault("MAX_TOKENS", 1000)
	viper.SetDefault("PROVIDER_TIMEOUT_SECONDS", 120)

	viper.SetDefault("PRICE_PER_1K_TOKENS", 0.01)
	viper.SetDefault("FX_RATE", 32.0)
	viper.SetDefault("ROLLBACK_ON_OVERAGE", true)

	viper.SetDefault("USAGE_STORE", "json")
	viper.SetDefault("USAGE_FILE", "daily_usage.json")
	viper.SetDefault("SQLITE_PATH", "usage.db")
	viper.SetDefault("POSTGRES_HOST", "localhost")
	viper.SetDefault("POSTGRES_PORT", "5432")
	viper.SetDefault("MONGO_DB", "chat_meter")
}

// LoadConfig loads configuration from .env or config.yaml using Viper.
// Environment variables always win; a missing file only means defaults apply.
func LoadConfig() error {
	var loadError error
	loadConfigOnce.Do(func() {
		setDefaults()
		viper.AutomaticEnv()

		viper.SetConfigFile(".env")
		if err := viper.ReadInConfig(); err != nil {
			viper.SetConfigFile("config.yaml")
			if err := viper.ReadInConfig(); err != nil {
				log.Println("No config file found, using environment and defaults:", err)
			}
		}

		Environment = viper.GetString("ENVIRONMENT")
		Port = viper.GetString("PORT")
		SessionSecret = viper.GetString("SESSION_SECRET")
		JWTSecret = viper.GetString("JWT_SECRET")
		if JWTSecret == "" {
			JWTSecret = SessionSecret
		}
		JWTTTL = time.Duration(viper.GetInt("JWT_TTL_HOURS")) * time.Hour
		AccountsFile = viper.GetString("ACCOUNTS_FILE")
		CORSOrigins = splitList(viper.GetString("CORS_ORIGINS"))
		MaxUploadSize = viper.GetInt64("MAX_UPLOAD_MB") << 20

		OpenAIAPIKey = viper.GetString("OPENAI_API_KEY")
		OpenAIBaseURL = viper.GetString("OPENAI_BASE_URL")
		OpenAIModel = viper.GetString("OPENAI_MODEL")
		SystemPrompt = viper.GetString("SYSTEM_PROMPT")
		Temperature = viper.GetFloat64("TEMPERATURE")
		MaxTokens = viper.GetInt("MAX_TOKENS")
		ProviderTimeout = time.Duration(viper.GetInt("PROVIDER_TIMEOUT_SECONDS")) * time.Second

		PricePer1KTokens = viper.GetFloat64("PRICE_PER_1K_TOKENS")
		FXRate = viper.GetFloat64("FX_RATE")
		RollbackOnOverage = viper.GetBool("ROLLBACK_ON_OVERAGE")

		UsageStore = strings.ToLower(viper.GetString("USAGE_STORE"))
		UsageFile = viper.GetString("USAGE_FILE")
		SQLitePath = viper.GetString("SQLITE_PATH")
		PostgresUser = viper.GetString("POSTGRES_USER")
		PostgresPassword = viper.GetString("POSTGRES_PASSWORD")
		PostgresDB = viper.GetString("POSTGRES_DB")
		PostgresHost = viper.GetString("POSTGRES_HOST")
		PostgresPort = viper.GetString("POSTGRES_PORT")

		MongoURI = viper.GetString("MONGO_URI")
		MongoDB = viper.GetString("MONGO_DB")

		AWSRegion = viper.GetString("AWS_REGION")
		AWSBucketName = viper.GetString("AWS_BUCKET_NAME")
		AWSAccessKeyID = viper.GetString("AWS_ACCESS_KEY_ID")
		AWSSecretAccessKey = viper.GetString("AWS_SECRET_ACCESS_KEY")

		if SessionSecret == "" {
			loadError = errors.New("SESSION_SECRET is not configured")
			return
		}
		if OpenAIAPIKey == "" {
			log.Println("⚠️ OPENAI_API_KEY is not set, every question will be answered with a provider error")
		}

		log.Println("✅ Configuration loaded")
	})

	return loadError
}

// LoadAWSConfig prepares the SDK config used by the document archive.
// Static keys are used when configured, otherwise the default credential chain.
func LoadAWSConfig() error {
	opts := []func(*config.LoadOptions) error{config.WithRegion(AWSRegion)}
	if AWSAccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(
			aws.NewCredentialsCache(
				credentials.NewStaticCredentialsProvider(AWSAccessKeyID, AWSSecretAccessKey, ""),
			),
		))
	}

	cfg, err := config.LoadDefaultConfig(context.TODO(), opts...)
	if err != nil {
		return err
	}
	AWSConfig = cfg
	log.Printf("📦 AWS SDK configured for region %s", cfg.Region)
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
