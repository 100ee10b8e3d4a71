package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config enthält alle Konfigurationsparameter aus Umgebungsvariablen.
type Config struct {
	HTTPPort string `envconfig:"HTTP_PORT" default:"8080"`

	// Basis-URL des rust_iss Upstreams (ISS-Telemetrie + OSDR-Proxy)
	RustAPIURL string `envconfig:"RUST_API_URL" default:"http://rust_iss:3000"`

	JWSTHost   string `envconfig:"JWST_HOST" default:"https://api.jwstapi.com"`
	JWSTAPIKey string `envconfig:"JWST_API_KEY"`
	JWSTEmail  string `envconfig:"JWST_EMAIL"`

	AstroBaseURL   string `envconfig:"ASTRO_BASE_URL" default:"https://api.astronomyapi.com"`
	AstroAppID     string `envconfig:"ASTRO_APP_ID"`
	AstroAppSecret string `envconfig:"ASTRO_APP_SECRET"`

	// Beobachterstandort für Astro-Events, wenn der Client nichts mitgibt.
	DefaultLatitude  float64 `envconfig:"DEFAULT_LATITUDE" default:"55.7558"`
	DefaultLongitude float64 `envconfig:"DEFAULT_LONGITUDE" default:"37.6176"`

	// Verzeichnis mit telemetry_<YYYYMMDD_HHMMSS>.csv Dateien.
	CSVOutDir string `envconfig:"CSV_OUT_DIR" default:"/data/csv"`

	SnapshotEnabled bool   `envconfig:"SNAPSHOT_ENABLED" default:"true"`
	SnapshotCron    string `envconfig:"SNAPSHOT_CRON" default:"*/5 * * * *"`

	// Optionaler API-Key-Schutz für /api-Routen. Leer = offen.
	APISecretKey string `envconfig:"API_SECRET_KEY"`

	BackupS3Bucket   string `envconfig:"BACKUP_S3_BUCKET"`
	BackupS3Endpoint string `envconfig:"BACKUP_S3_ENDPOINT"`
	BackupS3Key      string `envconfig:"BACKUP_S3_ACCESS_KEY"`
	BackupS3Secret   string `envconfig:"BACKUP_S3_SECRET_KEY"`
	BackupS3Region   string `envconfig:"BACKUP_S3_REGION"`
}

// RustBase gibt die Upstream-Basis ohne trailing Slash zurück.
func (c *Config) RustBase() string {
	return strings.TrimRight(c.RustAPIURL, "/")
}

// Load lädt die Konfiguration aus den Umgebungsvariablen.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	err := envconfig.Process("", &c)
	return &c, err
}
