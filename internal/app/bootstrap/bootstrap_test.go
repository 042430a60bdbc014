package bootstrap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeAddr(t *testing.T) {
	assert.Equal(t, ":8080", normalizeAddr(""))
	assert.Equal(t, ":9090", normalizeAddr("9090"))
	assert.Equal(t, ":7000", normalizeAddr(" :7000 "))
}

func TestBuildAPIRequiresPostgresDSN(t *testing.T) {
	t.Setenv("RANKIT_POSTGRES_DSN", "")
	_, err := BuildAPI(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RANKIT_POSTGRES_DSN")
}

func TestBuildWorkerRejectsInvalidConfig(t *testing.T) {
	t.Setenv("RANKIT_ELO_SCALE", "0")
	_, err := BuildWorker(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "elo_scale")
}
