package config

import (
	"os"
)

type Config struct {
	Environment string
	DatabaseURL string
	// Object store settings. Endpoint is empty for real AWS S3 and set
	// for S3-compatible stores (MinIO, localstack), which also flips
	// the client to path-style addressing.
	S3Endpoint        string
	S3Region          string
	S3AccessKeyID     string
	S3SecretAccessKey string
	// BucketPrefix namespaces per-organization buckets so multiple
	// deployments can share one object store.
	BucketPrefix string
	// Debug flags
	Debug bool
}

func Load() *Config {
	env := getEnv("ENVIRONMENT", "dev")

	return &Config{
		Environment:       env,
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		S3Endpoint:        getEnv("S3_ENDPOINT", ""),
		S3Region:          getEnv("S3_REGION", "us-east-1"),
		S3AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
		S3SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
		BucketPrefix:      getEnv("BUCKET_PREFIX", "docvault"),
		// Debug defaults to true outside production
		Debug: getEnv("DEBUG", getDefaultDebug(env)) == "true",
	}
}

// getDefaultDebug returns the default debug setting based on environment
func getDefaultDebug(env string) string {
	if env == "prod" {
		return "false"
	}
	return "true"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
