package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper to reset flags and args for isolated tests
func resetFlagsAndArgs(args ...string) func() {
	originalArgs := os.Args
	os.Args = append([]string{"cmd"}, args...)
	flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ExitOnError)

	return func() {
		os.Args = originalArgs
	}
}

var configEnvVars = []string{
	"TELEHEALTH_LISTEN_ADDRESS",
	"TELEHEALTH_LISTEN_PORT",
	"TELEHEALTH_STORE_FILE_PATH",
	"TELEHEALTH_SAVE_INTERVAL",
	"TELEHEALTH_ENABLE_BACKUP",
	"TELEHEALTH_DATABASE_DSN",
	"TELEHEALTH_SEED_FIXTURES",
	"TELEHEALTH_JWT_SECRET_FILE",
	"TELEHEALTH_JWT_SECRET",
	"TELEHEALTH_PUBLIC_ORIGIN",
	"TELEHEALTH_VERIFICATION_LIFETIME",
	"TELEHEALTH_KAFKA_BROKERS",
	"TELEHEALTH_KAFKA_TOPIC",
	"TELEHEALTH_AUTO_REPLY_DELAY",
	"TELEHEALTH_OPENAI_API_KEY",
	"TELEHEALTH_OPENAI_BASE_URL",
	"TELEHEALTH_OPENAI_MODEL",
	"TELEHEALTH_LLM_TIMEOUT",
	"TELEHEALTH_EXPOSE_MAILBOXES",
	"OPENAI_API_KEY",
}

// clearEnv unsets every variable LoadConfig reads, restoring them after the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configEnvVars {
		key := key
		if value, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { os.Setenv(key, value) })
		}
		os.Unsetenv(key)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	cleanup := resetFlagsAndArgs()
	defer cleanup()
	clearEnv(t)

	// Provide a secret so no key file is generated
	t.Setenv("TELEHEALTH_JWT_SECRET", "test-default-secret")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, defaultAddress, cfg.ListenAddress)
	assert.Equal(t, defaultPort, cfg.ListenPort)
	assert.Empty(t, cfg.StoreFilePath, "Store should default to memory only")
	assert.Equal(t, defaultSaveInterval, cfg.SaveInterval)
	assert.Equal(t, defaultEnableBackup, cfg.EnableBackup)
	assert.Empty(t, cfg.DatabaseDSN)
	assert.True(t, cfg.SeedFixtures)
	assert.Equal(t, defaultTokenLifetime, cfg.TokenLifetime)
	assert.Equal(t, defaultBcryptCost, cfg.BcryptCost)
	assert.Equal(t, "http://localhost:3000", cfg.PublicOrigin)
	assert.Equal(t, 24*time.Hour, cfg.VerificationLifetime)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, defaultKafkaTopic, cfg.KafkaTopic)
	assert.Equal(t, 1200*time.Millisecond, cfg.AutoReplyDelay)
	assert.False(t, cfg.ExposeMailboxes, "Mailboxes stay off the HTTP surface by default")
	assert.Empty(t, cfg.LLMAPIKey)
	assert.Equal(t, defaultLLMBaseURL, cfg.LLMBaseURL)
	assert.Equal(t, "gpt-4o-mini", cfg.LLMModel)
	assert.Equal(t, defaultLLMTimeout, cfg.LLMTimeout)
	assert.Equal(t, "test-default-secret", cfg.JwtSecret, "JWT Secret should be loaded from env var")
}

func TestLoadConfig_EnvVars(t *testing.T) {
	cleanup := resetFlagsAndArgs()
	defer cleanup()
	clearEnv(t)

	storeFile := filepath.Join(t.TempDir(), "store.json")
	t.Setenv("TELEHEALTH_LISTEN_ADDRESS", "192.168.1.100")
	t.Setenv("TELEHEALTH_LISTEN_PORT", "9000")
	t.Setenv("TELEHEALTH_STORE_FILE_PATH", storeFile)
	t.Setenv("TELEHEALTH_SAVE_INTERVAL", "15s")
	t.Setenv("TELEHEALTH_ENABLE_BACKUP", "false")
	t.Setenv("TELEHEALTH_SEED_FIXTURES", "no")
	t.Setenv("TELEHEALTH_JWT_SECRET_FILE", "/etc/secrets/jwt_env.key") // Missing, falls back to env secret
	t.Setenv("TELEHEALTH_JWT_SECRET", "env_secret_key_longer_than_32_bytes")
	t.Setenv("TELEHEALTH_PUBLIC_ORIGIN", "https://care.example.com/")
	t.Setenv("TELEHEALTH_VERIFICATION_LIFETIME", "0s")
	t.Setenv("TELEHEALTH_KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("TELEHEALTH_AUTO_REPLY_DELAY", "50ms")
	t.Setenv("TELEHEALTH_EXPOSE_MAILBOXES", "true")
	t.Setenv("OPENAI_API_KEY", "sk-fallback")
	t.Setenv("TELEHEALTH_OPENAI_MODEL", "gpt-test")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "192.168.1.100", cfg.ListenAddress)
	assert.Equal(t, "9000", cfg.ListenPort)
	assert.Equal(t, storeFile, cfg.StoreFilePath)
	assert.Equal(t, 15*time.Second, cfg.SaveInterval)
	assert.False(t, cfg.EnableBackup)
	assert.False(t, cfg.SeedFixtures)
	assert.Equal(t, "env_secret_key_longer_than_32_bytes", cfg.JwtSecret)
	assert.Equal(t, "https://care.example.com", cfg.PublicOrigin, "Trailing slash should be trimmed")
	assert.Equal(t, time.Duration(0), cfg.VerificationLifetime)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 50*time.Millisecond, cfg.AutoReplyDelay)
	assert.True(t, cfg.ExposeMailboxes)
	assert.Equal(t, "sk-fallback", cfg.LLMAPIKey, "OPENAI_API_KEY should be used when the prefixed key is unset")
	assert.Equal(t, "gpt-test", cfg.LLMModel)
}

func TestLoadConfig_Flags(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEHEALTH_LISTEN_PORT", "9000") // Flag must win
	t.Setenv("TELEHEALTH_JWT_SECRET", "flag-test-secret")

	storeFile := filepath.Join(t.TempDir(), "flag_store.json")
	cleanup := resetFlagsAndArgs(
		"--address", "127.0.0.1",
		"--port", "8888",
		"--store-file", storeFile,
		"--save-interval", "2m",
		"--enable-backup=false",
		"--auto-reply-delay", "5ms",
		"--llm-timeout", "3s",
	)
	defer cleanup()

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.ListenAddress)
	assert.Equal(t, "8888", cfg.ListenPort)
	assert.Equal(t, storeFile, cfg.StoreFilePath)
	assert.Equal(t, 2*time.Minute, cfg.SaveInterval)
	assert.False(t, cfg.EnableBackup)
	assert.Equal(t, 5*time.Millisecond, cfg.AutoReplyDelay)
	assert.Equal(t, 3*time.Second, cfg.LLMTimeout)
}

func TestLoadConfig_InvalidDurationsFallBack(t *testing.T) {
	cleanup := resetFlagsAndArgs()
	defer cleanup()
	clearEnv(t)

	t.Setenv("TELEHEALTH_JWT_SECRET", "duration-secret")
	t.Setenv("TELEHEALTH_SAVE_INTERVAL", "soon")
	t.Setenv("TELEHEALTH_VERIFICATION_LIFETIME", "-1h")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, defaultSaveInterval, cfg.SaveInterval)
	assert.Equal(t, defaultVerificationLifetime, cfg.VerificationLifetime)
}

func TestLoadConfig_JWTSecretFromFile(t *testing.T) {
	cleanup := resetFlagsAndArgs()
	defer cleanup()
	clearEnv(t)

	secretFile := filepath.Join(t.TempDir(), "jwt.key")
	require.NoError(t, os.WriteFile(secretFile, []byte("  file-secret-value \n"), 0600))
	t.Setenv("TELEHEALTH_JWT_SECRET_FILE", secretFile)
	t.Setenv("TELEHEALTH_JWT_SECRET", "env-secret-should-lose")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "file-secret-value", cfg.JwtSecret)
}

func TestLoadConfig_JWTSecretGenerated(t *testing.T) {
	cleanup := resetFlagsAndArgs()
	defer cleanup()
	clearEnv(t)

	// Run inside a temp dir so the generated default key file does not leak
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Len(t, cfg.JwtSecret, 64, "Generated secret should be 32 hex-encoded bytes")

	saved, err := os.ReadFile(defaultJwtKeyFile)
	require.NoError(t, err)
	assert.Equal(t, cfg.JwtSecret, string(saved))
}

func TestLoadConfig_StorePathIsDirectory(t *testing.T) {
	cleanup := resetFlagsAndArgs()
	defer cleanup()
	clearEnv(t)

	t.Setenv("TELEHEALTH_JWT_SECRET", "dir-secret")
	t.Setenv("TELEHEALTH_STORE_FILE_PATH", t.TempDir())

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "points to a directory")
}

func TestLoadConfig_RelativeStorePathMadeAbsolute(t *testing.T) {
	cleanup := resetFlagsAndArgs("--store-file", "relative_store.json")
	defer cleanup()
	clearEnv(t)
	t.Setenv("TELEHEALTH_JWT_SECRET", "relative-secret")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	expected, err := filepath.Abs("relative_store.json")
	require.NoError(t, err)
	assert.Equal(t, expected, cfg.StoreFilePath)
}
