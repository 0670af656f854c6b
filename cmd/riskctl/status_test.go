package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dhiraj213/Financial-Risk-Fraud-Detection-Assistant/internal/config"
)

func TestRequireSharedStore(t *testing.T) {
	err := requireSharedStore(config.Config{StoreBackend: config.StoreMemory})
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "STORE_BACKEND")
	}
	assert.NoError(t, requireSharedStore(config.Config{StoreBackend: config.StoreRedis}))
	assert.NoError(t, requireSharedStore(config.Config{StoreBackend: config.StorePostgres}))
}

func TestStatusRejectsMemoryBackend(t *testing.T) {
	t.Setenv("STORE_BACKEND", config.StoreMemory)
	t.Setenv("PIPELINE_MODE", config.PipelineSync)
	t.Setenv("LOG_LEVEL", "error")

	rootCmd.SetArgs([]string{"status", "some-job"})
	err := rootCmd.Execute()
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "private to each process")
	}
}
