// Package config loads the harness configuration from the environment.
// Pre-registration thresholds (gate bounds, equivalence margins, minimum
// cell n, attempt policy, negative ratios) are configuration, never
// hardcoded constants: changing the analysis plan must not require touching
// engine logic.
package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"feastbench/domain/record"
	"feastbench/internal/errors"
)

// Config represents the complete harness configuration
type Config struct {
	Database     DatabaseConfig
	Endpoint     EndpointConfig
	Registration RegistrationConfig
	Orchestrator OrchestratorConfig
}

// DatabaseConfig holds the query-log database settings
type DatabaseConfig struct {
	URL     string
	SSLMode string
}

// EndpointConfig holds the external model endpoint settings
type EndpointConfig struct {
	APIKey  string
	BaseURL string
	// Decoding parameters fixed per pre-registration
	Temperature  float64
	MaxTokens    int
	SamplingSeed int64
	TimeoutMs    int
}

// RegistrationConfig holds the pre-registered analysis plan thresholds
type RegistrationConfig struct {
	// Seed is the corpus-generation seed frozen at pre-registration
	Seed int64
	// MinCellN excludes smaller cells from inference as underpowered
	MinCellN int
	// EquivalenceMargin is the pre-declared TOST margin on marginal means
	EquivalenceMargin float64
	// Confidence level for Wilson intervals (e.g. 0.95)
	Confidence float64
	// AttemptPolicy selects the pre-registered primary attempt
	AttemptPolicy record.AttemptPolicy
	// Negative counts per positive item, balanced across strata
	NearMissPerPositive   int
	RandomPerPositive     int
	ImpossiblePerPositive int
}

// OrchestratorConfig holds worker-pool and retry settings
type OrchestratorConfig struct {
	Workers      int
	MaxRetries   int
	RetryDelayMs int
	BudgetTokens int
}

// Load reads configuration from environment variables and validates it.
// A .env file is honored when present, matching local development setups.
func Load() (*Config, error) {
	_ = godotenv.Load()

	config := &Config{
		Database: DatabaseConfig{
			URL:     os.Getenv("DATABASE_URL"),
			SSLMode: getEnvOrDefault("SSL_MODE", "disable"),
		},
		Endpoint: EndpointConfig{
			APIKey:       os.Getenv("MODEL_API_KEY"),
			BaseURL:      getEnvOrDefault("MODEL_BASE_URL", "https://openrouter.ai/api/v1"),
			Temperature:  getEnvFloatOrDefault("TEMPERATURE", 0.0),
			MaxTokens:    getEnvIntOrDefault("MAX_TOKENS", 500),
			SamplingSeed: int64(getEnvIntOrDefault("SAMPLING_SEED", 0)),
			TimeoutMs:    getEnvIntOrDefault("ENDPOINT_TIMEOUT_MS", 120000),
		},
		Registration: RegistrationConfig{
			Seed:                  int64(getEnvIntOrDefault("CORPUS_SEED", 42)),
			MinCellN:              getEnvIntOrDefault("MIN_CELL_N", 20),
			EquivalenceMargin:     getEnvFloatOrDefault("EQUIVALENCE_MARGIN", 0.05),
			Confidence:            getEnvFloatOrDefault("CONFIDENCE", 0.95),
			AttemptPolicy:         record.AttemptPolicy(getEnvOrDefault("ATTEMPT_POLICY", string(record.AttemptFirst))),
			NearMissPerPositive:   getEnvIntOrDefault("NEGATIVES_NEAR_MISS", 1),
			RandomPerPositive:     getEnvIntOrDefault("NEGATIVES_RANDOM", 1),
			ImpossiblePerPositive: getEnvIntOrDefault("NEGATIVES_IMPOSSIBLE", 1),
		},
		Orchestrator: OrchestratorConfig{
			Workers:      getEnvIntOrDefault("WORKERS", 4),
			MaxRetries:   getEnvIntOrDefault("MAX_RETRIES", 3),
			RetryDelayMs: getEnvIntOrDefault("RETRY_DELAY_MS", 2000),
			BudgetTokens: getEnvIntOrDefault("BUDGET_CAP_TOKENS", 600000),
		},
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

func validateConfig(config *Config) error {
	if config.Endpoint.APIKey == "" {
		return errors.ConfigInvalid("MODEL_API_KEY is required")
	}
	if !config.Registration.AttemptPolicy.Valid() {
		return errors.ConfigInvalid("ATTEMPT_POLICY must be \"first\" or \"final\"")
	}
	if config.Registration.MinCellN < 1 {
		return errors.ConfigInvalid("MIN_CELL_N must be positive")
	}
	if config.Registration.EquivalenceMargin <= 0 {
		return errors.ConfigInvalid("EQUIVALENCE_MARGIN must be positive")
	}
	if config.Registration.Confidence <= 0 || config.Registration.Confidence >= 1 {
		return errors.ConfigInvalid("CONFIDENCE must lie in (0, 1)")
	}
	if config.Orchestrator.Workers < 1 {
		return errors.ConfigInvalid("WORKERS must be positive")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
