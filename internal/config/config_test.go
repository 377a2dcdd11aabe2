package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := FromViper(NewViper())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "qgo.job-events", cfg.KafkaTopic)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, BackendAuto, cfg.Backend())
	assert.False(t, cfg.HasFirebase())
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("FIREBASE_PROJECT_ID", "qgo-demo")
	t.Setenv("LOG_FORMAT", "JSON")

	cfg, err := FromViper(NewViper())
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, BackendFirestore, cfg.Backend())
	assert.False(t, cfg.HasFirebaseCredentials())
}

func TestMemoryBackend(t *testing.T) {
	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("FIREBASE_PROJECT_ID", "qgo-demo")

	cfg, err := FromViper(NewViper())
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, cfg.Backend())
}

func TestInvalidBackend(t *testing.T) {
	t.Setenv("STORE_BACKEND", "mongo")
	_, err := FromViper(NewViper())
	assert.Error(t, err)

	t.Setenv("STORE_BACKEND", "firestore")
	_, err = FromViper(NewViper())
	assert.Error(t, err)
}
