package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Host               string
	Port               int
	ModelPath          string
	ConfigPath         string
	LabelsPath         string  // Optional YAML label table, empty = built-in COCO
	DetectionThreshold float64 // Strict lower bound for kept detections
	JPEGQuality        int
	MaxUploadMB        int64
	ProcessingWorkers  int // Number of loaded networks serving inference in parallel
	OllamaURL          string
	OllamaModel        string
	OllamaTimeout      time.Duration
	LogDirectory       string
}

// Load reads the configuration from the environment. A .env file in the
// working directory, if present, is applied first without overriding
// variables that are already set.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Host:               getEnv("HOST", "0.0.0.0"),
		Port:               getEnvAsInt("PORT", 8000),
		ModelPath:          getEnv("MODEL_PATH", filepath.Join(".", "models", "frozen_inference_graph.pb")),
		ConfigPath:         getEnv("CONFIG_PATH", filepath.Join(".", "models", "ssd_mobilenet_v1_coco_2017_11_17.pbtxt")),
		LabelsPath:         getEnv("LABELS_PATH", ""),
		DetectionThreshold: getEnvAsFloat("DETECTION_THRESHOLD", 0.5),
		JPEGQuality:        getEnvAsInt("JPEG_QUALITY", 95),
		MaxUploadMB:        getEnvAsInt64("MAX_UPLOAD_MB", 20),
		ProcessingWorkers:  getEnvAsInt("PROCESSING_WORKERS", 2),
		OllamaURL:          getEnv("OLLAMA_URL", "http://localhost:11434"),
		OllamaModel:        getEnv("OLLAMA_MODEL", "mistral"),
		OllamaTimeout:      time.Duration(getEnvAsInt("OLLAMA_TIMEOUT", 120)) * time.Second,
		LogDirectory:       getEnv("LOG_DIR", filepath.Join(".", "logs")),
	}
}

// MaxUploadBytes returns the upload limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
