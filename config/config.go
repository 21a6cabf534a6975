package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds every runtime parameter, loaded from environment variables.
type Config struct {
	DBHost     string `envconfig:"DB_HOST" required:"true"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" required:"true"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" required:"true"`

	HTTPPort string `envconfig:"HTTP_PORT" default:"4242"`

	// Source files produced by the external downloader.
	GroupsFile       string `envconfig:"GROUPS_FILE" default:"data/grupos.xlsx"`
	ProjectsFile     string `envconfig:"PROJECTS_FILE" default:"data/projetos.xlsx"`
	AdvisorshipsFile string `envconfig:"ADVISORSHIPS_FILE" default:"data/orientacoes.xlsx"`
	CurriculaDir     string `envconfig:"CURRICULA_DIR" default:"data/curricula"`

	// Directory for canonical JSON exports and marts.
	OutputDir string `envconfig:"OUTPUT_DIR" default:"export"`

	// Default organization used when a source row carries none.
	InstitutionName      string `envconfig:"INSTITUTION_NAME" default:"Instituto Federal"`
	InstitutionShortName string `envconfig:"INSTITUTION_SHORT_NAME" default:"IF"`

	// Base URL of the external crawler that mirrors CNPq group pages.
	CnpqCrawlerURL string `envconfig:"CNPQ_CRAWLER_URL" default:"http://localhost:5000"`

	CronSchedule string `envconfig:"CRON_SCHEDULE" default:"0 3 * * *"`

	// Optional S3-compatible target for export artifacts. Upload is skipped
	// when the bucket is empty.
	S3Key    string `envconfig:"S3_KEY"`
	S3Secret string `envconfig:"S3_SECRET"`
	S3URL    string `envconfig:"S3_URL"`
	S3Region string `envconfig:"S3_REGION" default:"us-east-1"`
	S3Bucket string `envconfig:"S3_BUCKET"`
}

// DSN returns the data source name for the PostgreSQL connection.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

// S3Enabled reports whether export artifacts should be pushed to S3.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != ""
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	err := envconfig.Process("", &c)
	return &c, err
}
