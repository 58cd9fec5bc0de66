package config

import (
	"os"
	"strings"

	"schemaanalyst/internal/runinfo"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Database dialects understood by the verifier.
const (
	DialectNone   = ""
	DialectSQLite = "sqlite"
	DialectMySQL  = "mysql"
)

// Config captures all runtime options for a generation run.
type Config struct {
	SchemaFile   string           `yaml:"schema_file"`
	Seed         int64            `yaml:"seed"`
	SatisfyRows  int              `yaml:"satisfy_rows"`
	NegateRows   int              `yaml:"negate_rows"`
	ConsiderNull bool             `yaml:"consider_null"`
	Search       SearchConfig     `yaml:"search"`
	Randomizer   RandomizerConfig `yaml:"randomizer"`
	Database     DatabaseConfig   `yaml:"database"`
	Report       ReportConfig     `yaml:"report"`
	Storage      StorageConfig    `yaml:"storage"`
	Logging      Logging          `yaml:"logging"`
	Metrics      MetricsConfig    `yaml:"metrics"`
	RunInfo      *runinfo.Info    `yaml:"-"`
}

// SearchConfig selects the search algorithm and its budget.
type SearchConfig struct {
	Algorithm      string `yaml:"algorithm"`
	MaxEvaluations int    `yaml:"max_evaluations"`
	// TimeoutSeconds bounds the whole run; zero means no limit.
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// RandomizerConfig picks the value profile used for random (re)starts.
type RandomizerConfig struct {
	Profile string `yaml:"profile"`
	// NullPercent overrides the profile when non-negative.
	NullPercent int `yaml:"null_percent"`
}

// DatabaseConfig configures live verification of generated rows.
type DatabaseConfig struct {
	Dialect string `yaml:"dialect"`
	DSN     string `yaml:"dsn"`
	// Name is the scratch database created for MySQL-compatible servers.
	Name string `yaml:"name"`
}

// Enabled reports whether verification is configured.
func (d DatabaseConfig) Enabled() bool { return d.Dialect != DialectNone }

// ReportConfig controls the on-disk run report.
type ReportConfig struct {
	Dir     string `yaml:"dir"`
	Archive bool   `yaml:"archive"`
}

// Logging controls log output.
type Logging struct {
	Verbose bool   `yaml:"verbose"`
	LogFile string `yaml:"log_file"`
}

// MetricsConfig controls the Prometheus textfile written after a run.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	File    string `yaml:"file"`
}

// StorageConfig holds external storage settings.
type StorageConfig struct {
	S3  S3Config  `yaml:"s3"`
	GCS GCSConfig `yaml:"gcs"`
}

// CloudEnabled reports whether any cloud storage backend is enabled.
func (s StorageConfig) CloudEnabled() bool {
	return s.GCS.Enabled || s.S3.Enabled
}

// S3Config configures S3 uploads, including S3-compatible endpoints.
type S3Config struct {
	Enabled         bool   `yaml:"enabled"`
	Endpoint        string `yaml:"endpoint"`
	Region          string `yaml:"region"`
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	SessionToken    string `yaml:"session_token"`
	UsePathStyle    bool   `yaml:"use_path_style"`
}

// GCSConfig configures GCS uploads.
type GCSConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	CredentialsFile string `yaml:"credentials_file"`
}

// Load reads configuration from a YAML file. An empty path yields the
// defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, errors.Wrapf(err, "read config %s", path)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, errors.Wrapf(err, "parse config %s", path)
		}
	}
	normalizeConfig(&cfg)
	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	cfg.RunInfo = runinfo.FromEnv()
	return cfg, nil
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		SatisfyRows:  2,
		NegateRows:   1,
		ConsiderNull: true,
		Search: SearchConfig{
			Algorithm:      "avs",
			MaxEvaluations: 100000,
		},
		Randomizer: RandomizerConfig{Profile: "small", NullPercent: -1},
		Database: DatabaseConfig{
			Name: "schemaanalyst",
		},
		Report: ReportConfig{
			Dir:     "reports",
			Archive: true,
		},
		Logging: Logging{LogFile: "logs/schemaanalyst.log"},
		Metrics: MetricsConfig{File: "metrics.prom"},
	}
}

func normalizeConfig(cfg *Config) {
	cfg.Search.Algorithm = strings.ToLower(strings.TrimSpace(cfg.Search.Algorithm))
	cfg.Randomizer.Profile = strings.ToLower(strings.TrimSpace(cfg.Randomizer.Profile))
	cfg.Database.Dialect = strings.ToLower(strings.TrimSpace(cfg.Database.Dialect))
	if cfg.Search.Algorithm == "" {
		cfg.Search.Algorithm = "avs"
	}
	if cfg.Randomizer.Profile == "" {
		cfg.Randomizer.Profile = "small"
	}
	if cfg.Randomizer.NullPercent > 100 {
		cfg.Randomizer.NullPercent = 100
	}
	if cfg.SatisfyRows <= 0 {
		cfg.SatisfyRows = 2
	}
	if cfg.NegateRows <= 0 {
		cfg.NegateRows = 1
	}
	if cfg.Database.Dialect == DialectMySQL {
		cfg.Database.DSN = ensureDatabaseInDSN(cfg.Database.DSN, cfg.Database.Name)
	}
	if cfg.Database.Dialect == DialectSQLite && cfg.Database.DSN == "" {
		cfg.Database.DSN = ":memory:"
	}
}

func validate(cfg Config) error {
	if cfg.Search.MaxEvaluations <= 0 {
		return errors.Errorf("search.max_evaluations must be positive, got %d", cfg.Search.MaxEvaluations)
	}
	switch cfg.Randomizer.Profile {
	case "small", "wide":
	default:
		return errors.Errorf("unknown randomizer.profile %q", cfg.Randomizer.Profile)
	}
	switch cfg.Database.Dialect {
	case DialectNone, DialectSQLite:
	case DialectMySQL:
		if cfg.Database.DSN == "" {
			return errors.New("database.dsn is required for mysql")
		}
	default:
		return errors.Errorf("unknown database.dialect %q", cfg.Database.Dialect)
	}
	if cfg.Storage.S3.Enabled && cfg.Storage.S3.Bucket == "" {
		return errors.New("storage.s3.bucket is required")
	}
	if cfg.Storage.GCS.Enabled && cfg.Storage.GCS.Bucket == "" {
		return errors.New("storage.gcs.bucket is required")
	}
	return nil
}

func ensureDatabaseInDSN(dsn string, dbName string) string {
	if dsn == "" || dbName == "" {
		return dsn
	}
	slash := strings.Index(dsn, "/")
	if slash < 0 {
		return dsn
	}
	rest := dsn[slash+1:]
	query := strings.Index(rest, "?")
	name := rest
	if query >= 0 {
		name = rest[:query]
	}
	if strings.TrimSpace(name) != "" {
		return dsn
	}
	if query >= 0 {
		return dsn[:slash+1] + dbName + rest[query:]
	}
	return dsn + dbName
}

// DatabaseName returns the database named in a MySQL DSN path.
func DatabaseName(dsn string) string {
	slash := strings.Index(dsn, "/")
	if slash < 0 {
		return ""
	}
	name := dsn[slash+1:]
	if query := strings.Index(name, "?"); query >= 0 {
		name = name[:query]
	}
	return name
}

// AdminDSN strips the database name from a DSN while preserving query parameters.
func AdminDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	slash := strings.Index(dsn, "/")
	if slash < 0 {
		return dsn
	}
	query := strings.Index(dsn[slash+1:], "?")
	if query >= 0 {
		query = slash + 1 + query
		return dsn[:slash+1] + dsn[query:]
	}
	return dsn[:slash+1]
}
