// Package config reads process configuration from the environment and an
// optional .env file.
package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Store backends
const (
	BackendFirestore = "firestore"
	BackendMemory    = "memory"
	BackendAuto      = ""
)

type Config struct {
	Port      string
	LogLevel  string
	LogFormat string

	StoreBackend              string
	FirebaseProjectID         string
	FirebaseCredentialsFile   string
	FirebaseCredentialsBase64 string

	DatabaseURL string
	JWTSecret   string

	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads .env (when present) and the process environment
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  Warning: .env file not found, using environment variables from system")
	} else {
		log.Println("✅ .env file loaded successfully")
	}
	return FromViper(NewViper())
}

// NewViper returns a viper bound to the environment with every default set
func NewViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("STORE_BACKEND", BackendAuto)
	v.SetDefault("FIREBASE_PROJECT_ID", "")
	v.SetDefault("FIREBASE_CREDENTIALS_FILE", "")
	v.SetDefault("FIREBASE_CREDENTIALS_BASE64", "")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("APP_JWT_SECRET", "")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_TOPIC", "qgo.job-events")
	return v
}

func FromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		Port:                      v.GetString("PORT"),
		LogLevel:                  v.GetString("LOG_LEVEL"),
		LogFormat:                 strings.ToLower(v.GetString("LOG_FORMAT")),
		StoreBackend:              strings.ToLower(v.GetString("STORE_BACKEND")),
		FirebaseProjectID:         v.GetString("FIREBASE_PROJECT_ID"),
		FirebaseCredentialsFile:   v.GetString("FIREBASE_CREDENTIALS_FILE"),
		FirebaseCredentialsBase64: v.GetString("FIREBASE_CREDENTIALS_BASE64"),
		DatabaseURL:               v.GetString("DATABASE_URL"),
		JWTSecret:                 v.GetString("APP_JWT_SECRET"),
		KafkaBrokers:              splitList(v.GetString("KAFKA_BROKERS")),
		KafkaTopic:                v.GetString("KAFKA_TOPIC"),
	}

	switch cfg.StoreBackend {
	case BackendFirestore, BackendMemory, BackendAuto:
	default:
		return Config{}, fmt.Errorf("unknown STORE_BACKEND %q (want firestore, memory or empty)", cfg.StoreBackend)
	}
	if cfg.StoreBackend == BackendFirestore && !cfg.HasFirebase() {
		return Config{}, fmt.Errorf("STORE_BACKEND=firestore needs FIREBASE_PROJECT_ID or credentials")
	}
	return cfg, nil
}

// HasFirebase reports whether any Firebase identity is configured
func (c Config) HasFirebase() bool {
	return c.FirebaseProjectID != "" || c.HasFirebaseCredentials()
}

func (c Config) HasFirebaseCredentials() bool {
	return c.FirebaseCredentialsFile != "" || c.FirebaseCredentialsBase64 != ""
}

// Backend resolves the store backend. Auto picks Firestore when Firebase is
// configured and no remote store otherwise, which serves the fixtures.
func (c Config) Backend() string {
	if c.StoreBackend != BackendAuto {
		return c.StoreBackend
	}
	if c.HasFirebase() {
		return BackendFirestore
	}
	return BackendAuto
}

// SetupLogging applies the level and format to the standard logrus logger
func SetupLogging(c Config) {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if c.LogFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
