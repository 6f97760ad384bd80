package common

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	OCR      OCRConfig
	Engines  EnginesConfig
	Pipeline PipelineConfig
	Queue    QueueConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN              string // postgres DSN; empty -> SQLite at SQLitePath
	SQLitePath       string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr string
}

// OCRConfig holds rasterization and local binary configuration
type OCRConfig struct {
	Pdftoppm    string
	Tesseract   string
	TessdataDir string
	DPI         int
	MaxPages    int
	Denoise     bool
}

// EnginesConfig lists the recognition adapters in the order they are tried
type EnginesConfig struct {
	Enabled        []string
	OCRSpaceAPIKey string
	OCRSpaceURL    string
	Timeout        time.Duration
}

// PipelineConfig holds the thresholds of the extraction pipeline
type PipelineConfig struct {
	MinFields           int
	MinConfidence       float64
	MinTextLength       int
	ManualThreshold     float64
	AutoAcceptThreshold float64
	ClassifierThreshold int
	MaxBatch            int
	PatternTablesPath   string
}

// QueueConfig holds background processing configuration
type QueueConfig struct {
	RedisURL       string
	QueueName      string
	Concurrency    int
	Workers        int
	QueueSize      int
	ProcessTimeout time.Duration
	SpoolDir       string
}

// LoadDotEnv loads variables from the given .env files into the process
// environment. Missing files are skipped; existing variables win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return WrapError(err, "load "+p)
		}
	}
	return nil
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DSN:              getEnv("DB_URL", ""),
			SQLitePath:       getEnv("SQLITE_PATH", "ttn.db"),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 5),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Server: ServerConfig{
			GRPCAddr: getEnv("GRPC_ADDR", ":8080"),
		},
		OCR: OCRConfig{
			Pdftoppm:    getEnv("PDFTOPPM_BIN", "pdftoppm"),
			Tesseract:   getEnv("TESSERACT_BIN", "tesseract"),
			TessdataDir: getEnv("TESSDATA_PREFIX", ""),
			DPI:         getEnvAsInt("PDF_DPI", 200),
			MaxPages:    getEnvAsInt("PDF_MAX_PAGES", 5),
			Denoise:     getEnvAsBool("IMAGE_DENOISE", true),
		},
		Engines: EnginesConfig{
			Enabled:        getEnvAsList("ENGINES", []string{"ocrspace", "tesseract", "gosseract"}),
			OCRSpaceAPIKey: getEnv("OCR_SPACE_API_KEY", ""),
			OCRSpaceURL:    getEnv("OCR_SPACE_URL", "https://api.ocr.space/parse/image"),
			Timeout:        getEnvAsDuration("ENGINE_TIMEOUT", 30*time.Second),
		},
		Pipeline: PipelineConfig{
			MinFields:           getEnvAsInt("QUALITY_MIN_FIELDS", 3),
			MinConfidence:       getEnvAsFloat64("QUALITY_MIN_CONFIDENCE", 60),
			MinTextLength:       getEnvAsInt("QUALITY_MIN_TEXT_LENGTH", 0),
			ManualThreshold:     getEnvAsFloat64("MANUAL_CHECK_THRESHOLD", 50),
			AutoAcceptThreshold: getEnvAsFloat64("AUTO_ACCEPT_THRESHOLD", 70),
			ClassifierThreshold: getEnvAsInt("CLASSIFIER_THRESHOLD", 1),
			MaxBatch:            getEnvAsInt("MAX_BATCH_SIZE", 100),
			PatternTablesPath:   getEnv("PATTERN_TABLES", ""),
		},
		Queue: QueueConfig{
			RedisURL:       getEnv("REDIS_URL", ""),
			QueueName:      getEnv("QUEUE_NAME", "ttn"),
			Concurrency:    getEnvAsInt("QUEUE_CONCURRENCY", 2),
			Workers:        getEnvAsInt("QUEUE_WORKERS", 2),
			QueueSize:      getEnvAsInt("QUEUE_SIZE", 128),
			ProcessTimeout: getEnvAsDuration("QUEUE_PROCESS_TIMEOUT", 3*time.Minute),
			SpoolDir:       getEnv("SPOOL_DIR", "./tmp/spool"),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated value, dropping blanks.
func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.ToLower(strings.TrimSpace(part)); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Database.DSN == "" && c.Database.SQLitePath == "" {
		return NewAppError(CodeConfig, "DB_URL or SQLITE_PATH is required", ErrInvalidInput)
	}
	if c.Server.GRPCAddr == "" {
		return NewAppError(CodeConfig, "GRPC_ADDR is required", ErrInvalidInput)
	}
	if len(c.Engines.Enabled) == 0 {
		return NewAppError(CodeConfig, "ENGINES must list at least one engine", ErrInvalidInput)
	}
	if c.Engines.Timeout <= 0 {
		return NewAppError(CodeConfig, "ENGINE_TIMEOUT must be positive", ErrInvalidInput)
	}
	if c.OCR.DPI <= 0 || c.OCR.MaxPages <= 0 {
		return NewAppError(CodeConfig, "PDF_DPI and PDF_MAX_PAGES must be positive", ErrInvalidInput)
	}
	p := c.Pipeline
	for name, v := range map[string]float64{
		"QUALITY_MIN_CONFIDENCE": p.MinConfidence,
		"MANUAL_CHECK_THRESHOLD": p.ManualThreshold,
		"AUTO_ACCEPT_THRESHOLD":  p.AutoAcceptThreshold,
	} {
		if v < 0 || v > 100 {
			return NewAppError(CodeConfig, name+" must be within [0,100]", ErrInvalidInput)
		}
	}
	if p.MaxBatch <= 0 || p.MaxBatch > 100 {
		return NewAppError(CodeConfig, "MAX_BATCH_SIZE must be within [1,100]", ErrInvalidInput)
	}
	if p.ClassifierThreshold < 1 {
		return NewAppError(CodeConfig, "CLASSIFIER_THRESHOLD must be at least 1", ErrInvalidInput)
	}
	return nil
}
