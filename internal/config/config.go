// Package config loads the process configuration once at startup.
// No other package reads the environment.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Backend names the store implementation used for expense rows.
type Backend string

const (
	BackendPostgREST Backend = "postgrest"
	BackendBigQuery  Backend = "bigquery"
	BackendDynamoDB  Backend = "dynamodb"
	BackendMemory    Backend = "memory"
)

const (
	DefaultTable         = "daily_expenses"
	DefaultDataset       = "finance"
	DefaultUserDateIndex = "user_id-date-index"
	DefaultStoreTimeout  = 10 * time.Second
	DefaultPort          = "8080"
	DefaultLogLevel      = "info"
)

// Config holds every setting the binaries need.
type Config struct {
	BotToken  string
	AllowList AllowList

	Backend      Backend
	StoreTimeout time.Duration

	// PostgREST (Supabase)
	SupabaseURL         string
	SupabaseTable       string
	SupabaseServiceRole string

	// BigQuery
	GCPProject string
	BQDataset  string
	BQTable    string

	// DynamoDB
	AWSRegion     string
	DynamoTable   string
	UserDateIndex string

	GCSBucket string

	NotionToken string
	NotionDBID  string

	Port     string
	LogLevel string
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("Load: reading .env: %w", err)
	}

	timeout := DefaultStoreTimeout
	if raw := os.Getenv("STORE_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("Load: parsing STORE_TIMEOUT %q: %w", raw, err)
		}
		timeout = d
	}

	cfg := &Config{
		BotToken:            os.Getenv("CASH_SIM_BOT"),
		AllowList:           ParseAllowList(os.Getenv("ALLOWED_CHAT_IDS")),
		Backend:             Backend(strings.ToLower(getenv("STORE_BACKEND", string(BackendPostgREST)))),
		StoreTimeout:        timeout,
		SupabaseURL:         strings.TrimRight(os.Getenv("SUPABASE_URL"), "/"),
		SupabaseTable:       getenv("SUPABASE_TABLE", DefaultTable),
		SupabaseServiceRole: os.Getenv("SUPABASE_SERVICE_ROLE"),
		GCPProject:          os.Getenv("GCP_PROJECT"),
		BQDataset:           getenv("BQ_DATASET", DefaultDataset),
		BQTable:             getenv("BQ_TABLE", DefaultTable),
		AWSRegion:           os.Getenv("AWS_REGION"),
		DynamoTable:         getenv("DYNAMODB_TABLE", DefaultTable),
		UserDateIndex:       getenv("DYNAMODB_USER_DATE_INDEX", DefaultUserDateIndex),
		GCSBucket:           os.Getenv("GCS_BUCKET"),
		NotionToken:         os.Getenv("NOTION_TOKEN"),
		NotionDBID:          os.Getenv("NOTION_DB_ID"),
		Port:                getenv("PORT", DefaultPort),
		LogLevel:            getenv("LOG_LEVEL", DefaultLogLevel),
	}

	return cfg, nil
}

// Validate checks that the selected backend has what it needs.
func (c *Config) Validate() error {
	if c.StoreTimeout <= 0 {
		return fmt.Errorf("store timeout must be positive, got %s", c.StoreTimeout)
	}

	switch c.Backend {
	case BackendPostgREST:
		if c.SupabaseURL == "" || c.SupabaseServiceRole == "" {
			return fmt.Errorf("backend %s requires SUPABASE_URL and SUPABASE_SERVICE_ROLE", c.Backend)
		}
	case BackendBigQuery:
		if c.GCPProject == "" {
			return fmt.Errorf("backend %s requires GCP_PROJECT", c.Backend)
		}
	case BackendDynamoDB:
		if c.AWSRegion == "" {
			return fmt.Errorf("backend %s requires AWS_REGION", c.Backend)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.Backend)
	}

	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
