package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chat-meter/config"
	"chat-meter/controllers"
	"chat-meter/routes"
	"chat-meter/services"

	"github.com/gin-gonic/gin"
)

func main() {
	if err := config.LoadConfig(); err != nil {
		log.Fatal("Failed to load configuration: ", err)
	}

	config.InitLogger()

	accounts, err := config.LoadAccounts(config.AccountsFile)
	if err != nil {
		log.Fatal("Failed to load accounts: ", err)
	}

	ctx := context.Background()

	store, err := newUsageStore(ctx)
	if err != nil {
		log.Fatal("Failed to initialize usage store: ", err)
	}
	ledger := services.NewUsageLedger(ctx, store, config.Log)

	if err := config.InitMongoDB(); err != nil {
		log.Fatal("Failed to initialize MongoDB: ", err)
	}
	var turns services.TurnArchive
	if config.MongoConversations != nil {
		turns = services.NewMongoTurnArchive(config.MongoConversations)
	}

	var documents services.DocumentArchive
	if config.AWSBucketName != "" {
		if err := config.LoadAWSConfig(); err != nil {
			log.Fatal("Failed to initialize AWS: ", err)
		}
		documents = services.NewS3DocumentArchive(config.AWSConfig, config.AWSBucketName)
	}

	if config.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	sessionsReg := services.NewSessionRegistry()
	h := &controllers.Handler{
		Auth:   services.NewAuthService(services.NewStaticVerifier(accounts), sessionsReg),
		Tokens: services.NewTokenIssuer(config.JWTSecret, config.JWTTTL),
		Chat: &services.ChatService{
			Ledger:   ledger,
			Provider: services.NewOpenAIProvider(config.OpenAIBaseURL, config.OpenAIAPIKey, config.OpenAIModel, config.ProviderTimeout),
			Pricing:  services.Pricing{PricePer1K: config.PricePer1KTokens, FXRate: config.FXRate},
			Options: services.ChatOptions{
				SystemPrompt:      config.SystemPrompt,
				Temperature:       config.Temperature,
				MaxTokens:         config.MaxTokens,
				RollbackOnOverage: config.RollbackOnOverage,
			},
			Turns:     turns,
			Documents: documents,
			Log:       config.Log,
		},
		Admin: &services.AdminService{
			Sessions: sessionsReg,
			Ledger:   ledger,
			Turns:    turns,
		},
		MaxUploadSize: config.MaxUploadSize,
	}

	r, err := routes.NewEngine(h, routes.EngineOptions{
		SessionSecret: config.SessionSecret,
		CORSOrigins:   config.CORSOrigins,
		SecureCookie:  config.Environment == "production",
		Log:           config.Log,
	})
	if err != nil {
		log.Fatal("Failed to build router: ", err)
	}

	srv := &http.Server{
		Addr:              ":" + config.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Server starting on %s", srv.Addr)
		config.Log.WithField("addr", srv.Addr).Info("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed to start: ", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	if err := ledger.Flush(shutdownCtx); err != nil {
		log.Printf("Final usage save failed: %v", err)
	}
	if err := config.CloseMongoDB(shutdownCtx); err != nil {
		log.Printf("MongoDB shutdown error: %v", err)
	}
	if err := config.CloseDB(); err != nil {
		log.Printf("Database shutdown error: %v", err)
	}
}

// newUsageStore picks the persistence backend named by USAGE_STORE.
func newUsageStore(ctx context.Context) (services.UsageStore, error) {
	switch config.UsageStore {
	case "", "json":
		return services.NewJSONFileStore(config.UsageFile, config.Log), nil
	default:
		if err := config.InitDB(); err != nil {
			return nil, err
		}
		store := services.NewSQLStore(config.DB, config.DBDriver)
		if err := store.Init(ctx); err != nil {
			return nil, err
		}
		return store, nil
	}
}
