package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"telehealth/api"
	"telehealth/assistant"
	"telehealth/config"
	"telehealth/db"
	"telehealth/mail"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"     // swagger embed files
	ginSwagger "github.com/swaggo/gin-swagger" // gin-swagger middleware
)

// @title           TeleHealth API
// @version         1.0.0

// @description     ## TeleHealth API
// @description
// @description     **Purpose:** Backend for a telehealth demo. Patients and doctors register, verify their email through a mock messaging service,
// @description     manage appointments and conversations, and ask an AI health assistant questions. **No real email is sent**; with `--expose-mailboxes` a signed-in user reads their own mail from `GET /emails/{address}`.
// @description
// @description     **High-Level Overview:**
// @description     *   Register, verify the address with the emailed code and log in to get a bearer token.
// @description     *   Doctors review appointments and accept, cancel or recover them.
// @description     *   Patients book doctor slots and pay for bookings.
// @description     *   Both roles chat in conversations that receive one scripted reply per message.
// @description     *   `POST /api/chat` answers health questions through the configured model, or through keyword templates when it is unavailable.
// @description
// @description     Fixture accounts: doctor `jolieprincesseishimwe@gmail.com` / `Jolie1234`, patient `hopendindabahizi@gmail.com` / `Hope12345`.

// @license.name  MIT

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	// --- Configuration ---
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("CRITICAL: Failed to load configuration: %v", err)
	}

	// --- Store ---
	store, err := openStore(cfg)
	if err != nil {
		log.Fatalf("CRITICAL: Failed to initialize store: %v", err)
	}

	users := db.NewUserRepository(store, cfg.BcryptCost)
	if cfg.SeedFixtures {
		if err := db.SeedFixtures(context.Background(), users); err != nil {
			log.Fatalf("CRITICAL: Failed to seed fixture accounts: %v", err)
		}
	}

	// --- Services ---
	var publisher mail.Publisher = mail.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = mail.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	}

	svc := &api.Services{
		Users: users,
		Mail: mail.NewService(db.NewMessageRepository(store), mail.Options{
			PublicOrigin: cfg.PublicOrigin,
			Lifetime:     cfg.VerificationLifetime,
			Publisher:    publisher,
		}),
		Assistant: assistant.NewService(assistant.NewOpenAIClient(assistant.ClientConfig{
			APIKey:  cfg.LLMAPIKey,
			BaseURL: cfg.LLMBaseURL,
			Model:   cfg.LLMModel,
			Timeout: cfg.LLMTimeout,
		})),
		Workspaces: api.NewWorkspaces(cfg.AutoReplyDelay),
	}

	// --- Gin Router Setup ---
	// gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Logger())
	// Recovery middleware recovers from any panics and writes a 500 if there was one.
	router.Use(gin.Recovery())

	api.RegisterRoutes(router, svc, cfg)

	// --- Swagger Route ---
	// Serve static files (CSS, JS, swagger.json) from the docs directory
	router.StaticFS("/docs", http.Dir("docs"))
	// The UI lives under /swagger/ so it does not clash with StaticFS.
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/docs/swagger.json")))

	// --- Start Server ---
	listenAddr := fmt.Sprintf("%s:%s", cfg.ListenAddress, cfg.ListenPort)
	log.Printf("INFO: Starting server on %s", listenAddr)

	server := &http.Server{
		Addr:              listenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("CRITICAL: Server failed to start: %v", err)
		}
	case sig := <-stop:
		log.Printf("INFO: Received %s, shutting down", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Printf("ERROR: Graceful shutdown failed: %v", err)
		}
	}

	// Pending replies are cancelled before the store is flushed
	svc.Workspaces.Close()
	if err := publisher.Close(); err != nil {
		log.Printf("ERROR: Failed to close email publisher: %v", err)
	}
	if err := store.Close(); err != nil {
		log.Printf("ERROR: Failed to close store: %v", err)
	}
	log.Printf("INFO: Server stopped")
}

// openStore selects the Postgres store when a DSN is configured and the
// in-memory store otherwise.
func openStore(cfg *config.Config) (db.Store, error) {
	if cfg.DatabaseDSN != "" {
		log.Printf("INFO: Using Postgres key-value store")
		store, err := db.NewSQLStore(cfg.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	store, err := db.NewMemoryStore(cfg)
	if err != nil {
		return nil, err
	}
	return store, nil
}
