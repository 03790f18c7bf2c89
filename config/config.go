package config

import (
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config enthält alle Konfigurationsparameter aus Umgebungsvariablen.
type Config struct {
	HTTPPort     string `envconfig:"HTTP_PORT" default:"4250"`
	APISecretKey string `envconfig:"API_SECRET_KEY"`

	// Identität des Bots gegenüber den Plattform-Diensten.
	BotID        string `envconfig:"BOT_ID" default:"markdown-renderer"`
	ServiceToken string `envconfig:"BOT_SERVICE_TOKEN"`

	// Basis-URLs der externen Kollaborateure (Defaults für lokale Entwicklung).
	FileServiceURL       string `envconfig:"FILE_SERVICE_URL" default:"http://localhost:3010"`
	BotConfigServiceURL  string `envconfig:"BOT_CONFIG_SERVICE_URL" default:"http://localhost:3020"`
	ConversionServiceURL string `envconfig:"CONVERSION_SERVICE_URL" default:"http://localhost:3030"`

	// Render-Defaults, falls die Journal-Konfiguration nichts vorgibt.
	DefaultTemplate string `envconfig:"DEFAULT_TEMPLATE" default:"academic-standard"`
	DefaultEngine   string `envconfig:"DEFAULT_ENGINE" default:"latex"`

	// Optionales Archiv für gerenderte Ausgaben (S3-kompatibel).
	// Bleibt deaktiviert, solange keine URL gesetzt ist.
	ArchiveS3Key    string `envconfig:"ARCHIVE_S3_KEY"`
	ArchiveS3Secret string `envconfig:"ARCHIVE_S3_SECRET"`
	ArchiveS3URL    string `envconfig:"ARCHIVE_S3_URL"`
	ArchiveS3Region string `envconfig:"ARCHIVE_S3_REGION" default:"eu-central-1"`
	ArchiveS3Bucket string `envconfig:"ARCHIVE_S3_BUCKET"`
}

// ArchiveEnabled meldet, ob ein S3-Archiv konfiguriert wurde.
func (c *Config) ArchiveEnabled() bool {
	return c.ArchiveS3URL != "" && c.ArchiveS3Bucket != ""
}

// Load lädt die Konfiguration aus den Umgebungsvariablen.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	err := envconfig.Process("", &c)
	return &c, err
}
