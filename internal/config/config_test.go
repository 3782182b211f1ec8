package config

import (
	"flag"
	"os"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	// Сохраняем оригинальные значения для восстановления
	originalArgs := os.Args
	originalEnv := make(map[string]string)
	envVars := []string{
		"RUN_ADDRESS", "DATABASE_URI", "JWT_SECRET", "TOKEN_EXPIRATION",
		"S3_ENDPOINT", "S3_REGION", "S3_BUCKET", "S3_ACCESS_KEY", "S3_SECRET_KEY",
		"LOG_LEVEL",
	}
	for _, key := range envVars {
		originalEnv[key] = os.Getenv(key)
	}

	// Восстанавливаем после всех тестов
	defer func() {
		os.Args = originalArgs
		for key, value := range originalEnv {
			if value == "" {
				os.Unsetenv(key)
			} else {
				os.Setenv(key, value)
			}
		}
		flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	}()

	tests := []struct {
		name         string
		args         []string
		envVars      map[string]string
		wantAddress  string
		wantDBURI    string
		wantBucket   string
		wantRegion   string
		wantSecret   string
		wantTokenExp time.Duration
	}{
		{
			name:         "default values",
			args:         []string{"cmd"},
			envVars:      map[string]string{},
			wantAddress:  "localhost:8080",
			wantDBURI:    "",
			wantBucket:   "epod",
			wantRegion:   "us-east-1",
			wantSecret:   "default-secret-change-in-production",
			wantTokenExp: 24 * time.Hour,
		},
		{
			name:         "flags only",
			args:         []string{"cmd", "-a", "localhost:9090", "-d", "postgresql://db", "-b", "epod-flag", "-t", "36h"},
			envVars:      map[string]string{},
			wantAddress:  "localhost:9090",
			wantDBURI:    "postgresql://db",
			wantBucket:   "epod-flag",
			wantRegion:   "us-east-1",
			wantSecret:   "default-secret-change-in-production",
			wantTokenExp: 36 * time.Hour,
		},
		{
			name: "env overrides flags",
			args: []string{"cmd", "-a", "localhost:9090", "-d", "postgresql://flagdb", "-b", "epod-flag"},
			envVars: map[string]string{
				"RUN_ADDRESS":      "localhost:7070",
				"DATABASE_URI":     "postgresql://envdb",
				"S3_BUCKET":        "epod-env",
				"S3_REGION":        "eu-west-1",
				"JWT_SECRET":       "env-secret",
				"TOKEN_EXPIRATION": "12h",
			},
			wantAddress:  "localhost:7070",
			wantDBURI:    "postgresql://envdb",
			wantBucket:   "epod-env",
			wantRegion:   "eu-west-1",
			wantSecret:   "env-secret",
			wantTokenExp: 12 * time.Hour,
		},
		{
			name: "invalid token expiration env fallback",
			args: []string{"cmd"},
			envVars: map[string]string{
				"TOKEN_EXPIRATION": "invalid",
			},
			wantAddress:  "localhost:8080",
			wantDBURI:    "",
			wantBucket:   "epod",
			wantRegion:   "us-east-1",
			wantSecret:   "default-secret-change-in-production",
			wantTokenExp: 24 * time.Hour,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Очищаем env переменные
			for _, key := range envVars {
				os.Unsetenv(key)
			}

			// Устанавливаем env переменные для теста
			for key, value := range tt.envVars {
				os.Setenv(key, value)
			}

			// Устанавливаем аргументы командной строки
			os.Args = tt.args

			// Сбрасываем флаги
			flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ExitOnError)

			cfg := Load()

			if cfg.RunAddress != tt.wantAddress {
				t.Errorf("RunAddress = %v, want %v", cfg.RunAddress, tt.wantAddress)
			}
			if cfg.DatabaseURI != tt.wantDBURI {
				t.Errorf("DatabaseURI = %v, want %v", cfg.DatabaseURI, tt.wantDBURI)
			}
			if cfg.S3Bucket != tt.wantBucket {
				t.Errorf("S3Bucket = %v, want %v", cfg.S3Bucket, tt.wantBucket)
			}
			if cfg.S3Region != tt.wantRegion {
				t.Errorf("S3Region = %v, want %v", cfg.S3Region, tt.wantRegion)
			}
			if cfg.JWTSecret != tt.wantSecret {
				t.Errorf("JWTSecret = %v, want %v", cfg.JWTSecret, tt.wantSecret)
			}
			if cfg.TokenExpiration != tt.wantTokenExp {
				t.Errorf("TokenExpiration = %v, want %v", cfg.TokenExpiration, tt.wantTokenExp)
			}
		})
	}
}
