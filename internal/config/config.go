package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

// Backend identifiers accepted by the table and object store selectors.
const (
	TableBackendPostgres = "postgres"
	TableBackendDynamoDB = "dynamodb"

	ObjectBackendMinIO = "minio"
	ObjectBackendS3    = "s3"
)

// Config aggregates runtime configuration for the imgmeta service.
type Config struct {
	Server    ServerConfig
	Postgres  PostgresConfig
	MinIO     MinIOConfig
	AWS       AWSConfig
	Table     TableConfig
	Retrieval RetrievalConfig
	Trigger   TriggerConfig
	Metrics   MetricsConfig
}

// ServerConfig parameterizes the HTTP server.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Address returns the listen address in host:port form.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// PostgresConfig contains PostgreSQL connection details.
type PostgresConfig struct {
	Host          string
	Port          int
	User          string
	Password      string
	Database      string
	SSLMode       string
	RunMigrations bool
}

// DSN returns the PostgreSQL DSN string.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode)
}

// MinIOConfig carries MinIO connection and bucket information.
type MinIOConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
	Region          string
}

// AWSConfig carries settings shared by the S3 and DynamoDB clients.
// Empty credentials fall back to the SDK default chain.
type AWSConfig struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// TableConfig selects and names the metadata index.
type TableConfig struct {
	Backend      string
	Name         string
	ScanPageSize int
}

// RetrievalConfig drives the download handler.
type RetrievalConfig struct {
	ObjectBackend string
	Bucket        string
	ScratchDir    string
}

// TriggerConfig controls the bucket notification listener.
type TriggerConfig struct {
	Enabled      bool
	Bucket       string
	Prefix       string
	Suffix       string
	EnsureBucket bool
}

// MetricsConfig groups observability settings.
type MetricsConfig struct {
	PrometheusPath string
}

// Load reads configuration values from environment variables, applying defaults.
func Load() (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Host:         getString("IMGMETA_API_HOST", "0.0.0.0"),
			Port:         getInt("IMGMETA_API_PORT", 8080),
			ReadTimeout:  getDuration("IMGMETA_API_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getDuration("IMGMETA_API_WRITE_TIMEOUT", 60*time.Second),
			IdleTimeout:  getDuration("IMGMETA_API_IDLE_TIMEOUT", 60*time.Second),
		},
		Postgres: PostgresConfig{
			Host:          getString("POSTGRES_HOST", "localhost"),
			Port:          getInt("POSTGRES_PORT", 5432),
			User:          getString("POSTGRES_USER", "imgmeta_app"),
			Password:      getString("POSTGRES_PASSWORD", "change-me"),
			Database:      getString("POSTGRES_DB", "imgmeta"),
			SSLMode:       strings.ToLower(getString("POSTGRES_SSL_MODE", "disable")),
			RunMigrations: getBool("POSTGRES_RUN_MIGRATIONS", true),
		},
		MinIO: MinIOConfig{
			Endpoint:        getString("MINIO_ENDPOINT", "localhost:9000"),
			AccessKeyID:     getString("MINIO_ROOT_USER", "imgmeta"),
			SecretAccessKey: getString("MINIO_ROOT_PASSWORD", "change-me-strong-password"),
			UseSSL:          getBool("MINIO_USE_SSL", false),
			Region:          getString("MINIO_REGION", ""),
		},
		AWS: AWSConfig{
			Region:          getString("AWS_REGION", "us-east-1"),
			Endpoint:        getString("IMGMETA_AWS_ENDPOINT", ""),
			AccessKeyID:     getString("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getString("AWS_SECRET_ACCESS_KEY", ""),
		},
		Table: TableConfig{
			Backend:      strings.ToLower(getString("IMGMETA_TABLE_BACKEND", TableBackendPostgres)),
			Name:         getString("IMGMETA_TABLE_NAME", "image_metadata"),
			ScanPageSize: getInt("IMGMETA_SCAN_PAGE_SIZE", 500),
		},
		Retrieval: RetrievalConfig{
			ObjectBackend: strings.ToLower(getString("IMGMETA_OBJECT_BACKEND", ObjectBackendMinIO)),
			Bucket:        getString("IMGMETA_DOWNLOAD_BUCKET", "images"),
			ScratchDir:    getString("IMGMETA_SCRATCH_DIR", os.TempDir()),
		},
		Trigger: TriggerConfig{
			Enabled:      getBool("IMGMETA_LISTEN_ENABLED", false),
			Bucket:       getString("IMGMETA_LISTEN_BUCKET", "images"),
			Prefix:       getString("IMGMETA_LISTEN_PREFIX", "uploads/"),
			Suffix:       getString("IMGMETA_LISTEN_SUFFIX", ""),
			EnsureBucket: getBool("IMGMETA_ENSURE_BUCKET", false),
		},
		Metrics: MetricsConfig{
			PrometheusPath: getString("IMGMETA_METRICS_PATH", "/metrics"),
		},
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Table.Backend {
	case TableBackendPostgres, TableBackendDynamoDB:
	default:
		return fmt.Errorf("unsupported table backend %q", c.Table.Backend)
	}
	switch c.Retrieval.ObjectBackend {
	case ObjectBackendMinIO, ObjectBackendS3:
	default:
		return fmt.Errorf("unsupported object backend %q", c.Retrieval.ObjectBackend)
	}
	if c.Table.Name == "" {
		return fmt.Errorf("table name required")
	}
	if c.Table.ScanPageSize <= 0 || c.Table.ScanPageSize > math.MaxInt32 {
		return fmt.Errorf("scan page size must be between 1 and %d, got %d", math.MaxInt32, c.Table.ScanPageSize)
	}
	if c.Trigger.Enabled && c.Retrieval.ObjectBackend != ObjectBackendMinIO {
		return fmt.Errorf("bucket notification listener requires the minio object backend")
	}
	return nil
}

func getString(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		val = strings.ToLower(strings.TrimSpace(val))
		switch val {
		case "1", "true", "t", "yes", "y":
			return true
		case "0", "false", "f", "no", "n":
			return false
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return fallback
}
