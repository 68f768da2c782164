package bootstrap

import (
	"context"
	"path/filepath"
	"testing"

	"yatube/internal/config"
	"yatube/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitRuntime_SQLite(t *testing.T) {
	cfg := &config.Config{
		Env:               "test",
		DBDriver:          "sqlite",
		SQLitePath:        filepath.Join(t.TempDir(), "yatube.sqlite3"),
		DBSchemaMode:      "auto",
		SeedBuiltinGroups: true,
	}

	db, rdb, err := InitRuntime(context.Background(), cfg, OptionsFromConfig(cfg))
	require.NoError(t, err)
	t.Cleanup(func() { closeDB(db) })
	assert.Nil(t, rdb, "no Redis configured")

	var groups int64
	require.NoError(t, db.Model(&models.Group{}).Count(&groups).Error)
	assert.Positive(t, groups)
}

func TestInitRuntime_BadDriver(t *testing.T) {
	_, _, err := InitRuntime(context.Background(), &config.Config{DBDriver: "oracle"}, Options{})
	assert.Error(t, err)
}
