package config

import (
	"crypto/rand" // Needed for JWT generation
	"encoding/hex"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds all configuration settings for the application.
type Config struct {
	// Server settings
	ListenAddress string
	ListenPort    string

	// Store settings
	StoreFilePath string // Empty keeps the store purely in memory
	SaveInterval  time.Duration
	EnableBackup  bool
	DatabaseDSN   string // Postgres DSN; when set it replaces the in-memory store
	SeedFixtures  bool

	// Authentication settings
	JwtSecret     string // The actual secret key
	JwtSecretFile string // Path to the file containing the secret
	TokenLifetime time.Duration
	BcryptCost    int

	// Messaging settings
	PublicOrigin         string        // Base of verification links
	VerificationLifetime time.Duration // Zero disables expiry checks
	KafkaBrokers         []string
	KafkaTopic           string
	ExposeMailboxes      bool // Serve GET /emails/:address to the mailbox owner

	// Conversation settings
	AutoReplyDelay time.Duration

	// AI consultation settings
	LLMAPIKey  string
	LLMBaseURL string
	LLMModel   string
	LLMTimeout time.Duration
}

const (
	defaultAddress              = "0.0.0.0"
	defaultPort                 = "8080"
	defaultStoreFile            = "" // Memory only
	defaultSaveInterval         = 3 * time.Second
	defaultEnableBackup         = true
	defaultDatabaseDSN          = ""
	defaultSeedFixtures         = true
	defaultJwtSecretFile        = ""
	defaultJwtSecretEnv         = ""
	defaultJwtKeyFile           = "./telehealth.key" // Default file if we generate a key
	defaultTokenLifetime        = 1 * time.Hour
	defaultBcryptCost           = 12
	defaultPublicOrigin         = "http://localhost:3000"
	defaultVerificationLifetime = 24 * time.Hour
	defaultKafkaTopic           = "telehealth.emails"
	defaultExposeMailboxes      = false
	defaultAutoReplyDelay       = 1200 * time.Millisecond
	defaultLLMBaseURL           = "https://api.openai.com/v1"
	defaultLLMModel             = "gpt-4o-mini"
	defaultLLMTimeout           = 30 * time.Second
)

// LoadConfig loads configuration from defaults, environment variables, and command-line flags.
// Command-line flags take precedence over environment variables, which take precedence over defaults.
func LoadConfig() (*Config, error) {
	cfg := &Config{}

	// TELEHEALTH_ prefix for every environment variable
	flag.StringVar(&cfg.ListenAddress, "address", getEnv("TELEHEALTH_LISTEN_ADDRESS", defaultAddress), "Server listen address (Env: TELEHEALTH_LISTEN_ADDRESS)")
	flag.StringVar(&cfg.ListenPort, "port", getEnv("TELEHEALTH_LISTEN_PORT", defaultPort), "Server listen port (Env: TELEHEALTH_LISTEN_PORT)")
	flag.StringVar(&cfg.StoreFilePath, "store-file", getEnv("TELEHEALTH_STORE_FILE_PATH", defaultStoreFile), "Path to the JSON file backing the key-value store, empty for memory only (Env: TELEHEALTH_STORE_FILE_PATH)")
	saveIntervalStr := flag.String("save-interval", getEnv("TELEHEALTH_SAVE_INTERVAL", defaultSaveInterval.String()), "Debounce interval for saving the store (e.g., 5s, 100ms) (Env: TELEHEALTH_SAVE_INTERVAL)")
	flag.BoolVar(&cfg.EnableBackup, "enable-backup", getEnvBool("TELEHEALTH_ENABLE_BACKUP", defaultEnableBackup), "Keep a .bak copy of the store file before saving (Env: TELEHEALTH_ENABLE_BACKUP)")
	flag.StringVar(&cfg.DatabaseDSN, "database-dsn", getEnv("TELEHEALTH_DATABASE_DSN", defaultDatabaseDSN), "Postgres DSN for a durable key-value table (Env: TELEHEALTH_DATABASE_DSN)")
	flag.BoolVar(&cfg.SeedFixtures, "seed-fixtures", getEnvBool("TELEHEALTH_SEED_FIXTURES", defaultSeedFixtures), "Seed the store with the fixture users (Env: TELEHEALTH_SEED_FIXTURES)")
	flag.StringVar(&cfg.JwtSecretFile, "jwt-secret-file", getEnv("TELEHEALTH_JWT_SECRET_FILE", defaultJwtSecretFile), "Path to file containing JWT secret key (overrides TELEHEALTH_JWT_SECRET env var) (Env: TELEHEALTH_JWT_SECRET_FILE)")
	flag.StringVar(&cfg.PublicOrigin, "public-origin", getEnv("TELEHEALTH_PUBLIC_ORIGIN", defaultPublicOrigin), "Origin used to build verification links (Env: TELEHEALTH_PUBLIC_ORIGIN)")
	verificationLifetimeStr := flag.String("verification-lifetime", getEnv("TELEHEALTH_VERIFICATION_LIFETIME", defaultVerificationLifetime.String()), "How long a verification code stays valid, 0 for no expiry (Env: TELEHEALTH_VERIFICATION_LIFETIME)")
	kafkaBrokersStr := flag.String("kafka-brokers", getEnv("TELEHEALTH_KAFKA_BROKERS", ""), "Comma separated Kafka brokers for email events, empty to disable (Env: TELEHEALTH_KAFKA_BROKERS)")
	flag.StringVar(&cfg.KafkaTopic, "kafka-topic", getEnv("TELEHEALTH_KAFKA_TOPIC", defaultKafkaTopic), "Kafka topic for email events (Env: TELEHEALTH_KAFKA_TOPIC)")
	flag.BoolVar(&cfg.ExposeMailboxes, "expose-mailboxes", getEnvBool("TELEHEALTH_EXPOSE_MAILBOXES", defaultExposeMailboxes), "Let signed-in users read their own mock mailbox over HTTP (Env: TELEHEALTH_EXPOSE_MAILBOXES)")
	autoReplyDelayStr := flag.String("auto-reply-delay", getEnv("TELEHEALTH_AUTO_REPLY_DELAY", defaultAutoReplyDelay.String()), "Delay before the scripted chat reply (Env: TELEHEALTH_AUTO_REPLY_DELAY)")
	flag.StringVar(&cfg.LLMBaseURL, "llm-base-url", getEnv("TELEHEALTH_OPENAI_BASE_URL", defaultLLMBaseURL), "Base URL of the chat completion API (Env: TELEHEALTH_OPENAI_BASE_URL)")
	flag.StringVar(&cfg.LLMModel, "llm-model", getEnv("TELEHEALTH_OPENAI_MODEL", defaultLLMModel), "Chat completion model (Env: TELEHEALTH_OPENAI_MODEL)")
	llmTimeoutStr := flag.String("llm-timeout", getEnv("TELEHEALTH_LLM_TIMEOUT", defaultLLMTimeout.String()), "Timeout for one chat completion call (Env: TELEHEALTH_LLM_TIMEOUT)")

	// Non-configurable defaults
	cfg.TokenLifetime = defaultTokenLifetime
	cfg.BcryptCost = defaultBcryptCost

	flag.Parse()

	cfg.SaveInterval = parseDurationOr("save-interval", *saveIntervalStr, defaultSaveInterval)
	cfg.VerificationLifetime = parseDurationOr("verification-lifetime", *verificationLifetimeStr, defaultVerificationLifetime)
	cfg.AutoReplyDelay = parseDurationOr("auto-reply-delay", *autoReplyDelayStr, defaultAutoReplyDelay)
	cfg.LLMTimeout = parseDurationOr("llm-timeout", *llmTimeoutStr, defaultLLMTimeout)
	cfg.KafkaBrokers = splitList(*kafkaBrokersStr)
	cfg.PublicOrigin = strings.TrimRight(cfg.PublicOrigin, "/")

	// The key is secret, so it is only read from the environment.
	cfg.LLMAPIKey = strings.TrimSpace(getEnv("TELEHEALTH_OPENAI_API_KEY", ""))
	if cfg.LLMAPIKey == "" {
		cfg.LLMAPIKey = strings.TrimSpace(getEnv("OPENAI_API_KEY", ""))
	}

	// --- JWT Secret Handling ---
	// Priority: File (CLI/Env) > Env Var > Default Key File > Generate
	secretSource, err := resolveJwtSecret(cfg)
	if err != nil {
		return nil, err
	}

	// --- Store Path Validation ---
	if cfg.StoreFilePath != "" {
		absStorePath, err := filepath.Abs(cfg.StoreFilePath)
		if err != nil {
			return nil, fmt.Errorf("could not determine absolute path for store-file '%s': %w", cfg.StoreFilePath, err)
		}
		cfg.StoreFilePath = absStorePath

		fileInfo, err := os.Stat(cfg.StoreFilePath)
		if err == nil && fileInfo.IsDir() {
			return nil, fmt.Errorf("store path '%s' points to a directory, not a file", cfg.StoreFilePath)
		}
		// A missing file is fine, the store creates it on first save.
	}

	logConfiguration(cfg, secretSource)

	return cfg, nil
}

// resolveJwtSecret fills cfg.JwtSecret and reports where it came from.
func resolveJwtSecret(cfg *Config) (string, error) {
	var secretSource string

	// 1. Explicit file path (from flag or TELEHEALTH_JWT_SECRET_FILE env)
	if cfg.JwtSecretFile != "" {
		secretBytes, err := os.ReadFile(cfg.JwtSecretFile)
		if err == nil {
			cfg.JwtSecret = strings.TrimSpace(string(secretBytes))
			if cfg.JwtSecret != "" {
				log.Printf("INFO: Loaded JWT secret from specified file: %s", cfg.JwtSecretFile)
				secretSource = fmt.Sprintf("File (%s)", cfg.JwtSecretFile)
			} else {
				log.Printf("WARN: Specified JWT secret file '%s' is empty or contains only whitespace. Ignoring.", cfg.JwtSecretFile)
			}
		} else {
			log.Printf("WARN: Failed to read specified JWT secret file '%s': %v. Checking other sources.", cfg.JwtSecretFile, err)
		}
	}

	// 2. Environment variable
	if cfg.JwtSecret == "" {
		cfg.JwtSecret = strings.TrimSpace(getEnv("TELEHEALTH_JWT_SECRET", defaultJwtSecretEnv))
		if cfg.JwtSecret != "" {
			log.Printf("INFO: Loaded JWT secret from TELEHEALTH_JWT_SECRET environment variable.")
			secretSource = "Environment Variable (TELEHEALTH_JWT_SECRET)"
		}
	}

	// 3. Default key file
	if cfg.JwtSecret == "" {
		secretBytes, err := os.ReadFile(defaultJwtKeyFile)
		if err == nil {
			cfg.JwtSecret = strings.TrimSpace(string(secretBytes))
			if cfg.JwtSecret != "" {
				log.Printf("INFO: Loaded JWT secret from default key file: %s", defaultJwtKeyFile)
				secretSource = fmt.Sprintf("Default Key File (%s)", defaultJwtKeyFile)
			} else {
				log.Printf("WARN: Default JWT key file '%s' is empty or contains only whitespace. Will attempt generation.", defaultJwtKeyFile)
			}
		} else if !os.IsNotExist(err) {
			log.Printf("WARN: Failed to read default JWT key file '%s': %v. Will attempt generation.", defaultJwtKeyFile, err)
		}
	}

	// 4. Generate and save to the default file
	if cfg.JwtSecret == "" {
		log.Printf("INFO: JWT secret not found via file, environment variable, or default key file. Generating a new secret...")
		newSecret, err := generateRandomKey(32) // 256-bit key
		if err != nil {
			return "", fmt.Errorf("failed to generate JWT secret: %w", err)
		}
		cfg.JwtSecret = newSecret
		secretSource = "Generated (In Memory)"

		if err := os.WriteFile(defaultJwtKeyFile, []byte(newSecret), 0600); err != nil {
			log.Printf("WARN: Failed to save generated JWT secret to '%s': %v. The server will use the generated key for this session only.", defaultJwtKeyFile, err)
		} else {
			log.Printf("INFO: Successfully generated and saved new JWT secret to: %s", defaultJwtKeyFile)
			secretSource = fmt.Sprintf("Generated & Saved (%s)", defaultJwtKeyFile)
		}
	}

	if cfg.JwtSecret == "" {
		return "", fmt.Errorf("failed to obtain a valid JWT secret after checking all sources and attempting generation")
	}
	return secretSource, nil
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvBool retrieves a boolean environment variable or returns a default value.
// Recognizes "true", "1", "yes" (case-insensitive) as true.
func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		switch strings.ToLower(value) {
		case "true", "1", "yes":
			return true
		case "false", "0", "no":
			return false
		}
		log.Printf("WARN: Invalid boolean value for environment variable %s: '%s'. Using default: %t", key, value, fallback)
	}
	return fallback
}

// parseDurationOr parses value, logging and returning fallback when it is not a valid duration.
func parseDurationOr(field, value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil || d < 0 {
		log.Printf("WARN: Invalid %s duration '%s'. Using default %s. Error: %v", field, value, fallback, err)
		return fallback
	}
	return d
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// logConfiguration prints the loaded configuration settings.
func logConfiguration(cfg *Config, secretSource string) {
	storeFile := cfg.StoreFilePath
	if storeFile == "" {
		storeFile = "(memory only)"
	}
	log.Println("--- Configuration ---")
	log.Printf("Server Address: %s", cfg.ListenAddress)
	log.Printf("Server Port: %s", cfg.ListenPort)
	log.Printf("Store File: %s", storeFile)
	log.Printf("Store Save Interval: %s", cfg.SaveInterval)
	log.Printf("Store Backup Enabled: %t", cfg.EnableBackup)
	log.Printf("SQL Store Enabled: %t", cfg.DatabaseDSN != "")
	log.Printf("Seed Fixtures: %t", cfg.SeedFixtures)
	log.Printf("JWT Secret Source: %s", secretSource)
	log.Printf("JWT Token Lifetime: %s", cfg.TokenLifetime)
	log.Printf("Bcrypt Cost: %d", cfg.BcryptCost)
	log.Printf("Public Origin: %s", cfg.PublicOrigin)
	log.Printf("Verification Lifetime: %s", cfg.VerificationLifetime)
	log.Printf("Kafka Brokers: %v (topic %s)", cfg.KafkaBrokers, cfg.KafkaTopic)
	log.Printf("Mailboxes Exposed: %t", cfg.ExposeMailboxes)
	log.Printf("Auto Reply Delay: %s", cfg.AutoReplyDelay)
	log.Printf("LLM API Key Set: %t", cfg.LLMAPIKey != "")
	log.Printf("LLM Endpoint: %s (model %s, timeout %s)", cfg.LLMBaseURL, cfg.LLMModel, cfg.LLMTimeout)
	log.Println("---------------------")
}

// generateRandomKey generates a cryptographically secure random key of the specified byte length
// and returns it as a hex-encoded string.
func generateRandomKey(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}
