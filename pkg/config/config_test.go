package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/farmadist-api/pkg/config"
)

func TestLoad_ValoresPorDefecto(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "memory")
	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.App.StorageDriver)
	assert.Equal(t, 60*time.Second, cfg.Redis.PermissionCacheTTL)
	assert.Equal(t, "farmadist.approvals", cfg.NATS.SubjectPrefix)
	assert.Equal(t, 1, cfg.Workflow.QCRequiredLevels)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr())
}

func TestLoad_LeeEntorno(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("WA_REQUIRED_LEVELS", "3")
	t.Setenv("PERMISSION_CACHE_TTL_SECONDS", "5")
	t.Setenv("DB_PORT", "no-numero")
	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Workflow.WARequiredLevels)
	assert.Equal(t, 5*time.Second, cfg.Redis.PermissionCacheTTL)
	assert.Equal(t, 5432, cfg.DB.Port)
}

func TestLoad_RechazaDriverDesconocido(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "mongo")
	_, err := config.Load()
	assert.Error(t, err)
}

func TestDSN_EscapaPassword(t *testing.T) {
	c := config.DBConfig{Host: "db", Port: 5432, User: "app", Password: "p@ss/word", DBName: "farmadist", SSLMode: "disable"}
	assert.Equal(t, "postgres://app:p%40ss%2Fword@db:5432/farmadist?sslmode=disable", c.DSN())

	c.DatabaseURL = "postgres://otro"
	assert.Equal(t, "postgres://otro", c.ConnectionString())
}
