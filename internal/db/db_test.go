package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"

	"assetdesk-backend/config"
	"assetdesk-backend/internal/model"
)

func TestDialector(t *testing.T) {
	tests := []struct {
		dsn  string
		want string
	}{
		{"file:assetdesk.db", "sqlite"},
		{"/var/lib/assetdesk/state.db", "sqlite"},
		{":memory:", "sqlite"},
		{"host=localhost user=assetdesk dbname=assetdesk sslmode=disable", "postgres"},
		{"postgres://assetdesk@localhost/assetdesk", "postgres"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Dialector(tt.dsn).Name(), tt.dsn)
	}
}

func TestInitMigrates(t *testing.T) {
	gormDB, err := Init(&config.DatabaseConfig{DSN: "file:dbinit?mode=memory&cache=shared", MaxOpenConns: 1}, nil)
	require.NoError(t, err)
	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	defer sqlDB.Close()

	for _, table := range []interface{}{&model.Preference{}, &model.PushSubscription{}, &model.SubscribedCompany{}} {
		assert.True(t, gormDB.Migrator().HasTable(table))
	}
}

func TestInitSkipsRecordNotFound(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	gormDB, err := Init(&config.DatabaseConfig{DSN: "file:dbquiet?mode=memory&cache=shared"}, zap.New(core))
	require.NoError(t, err)
	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	defer sqlDB.Close()

	var pref model.Preference
	err = gormDB.Where(&model.Preference{Scope: "default", Key: "bank_uploads.last_account"}).Take(&pref).Error
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.Zero(t, logs.FilterMessageSnippet("record not found").Len())

	err = gormDB.Table("missing_table").Find(&[]model.Preference{}).Error
	require.Error(t, err)
	assert.NotZero(t, logs.FilterMessageSnippet("missing_table").Len(), "query errors are still logged")
}
