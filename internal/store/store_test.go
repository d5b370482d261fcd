package store

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"assetdesk-backend/internal/model"
)

// A helper function to create a mock database connection.
func newTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

// newSQLiteStore opens a private in-memory database with the service tables.
func newSQLiteStore(t *testing.T) Store {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&model.Preference{}, &model.PushSubscription{}, &model.SubscribedCompany{}))
	return NewGormStore(db)
}

func TestGormStore_SetPreferenceUpserts(t *testing.T) {
	gormDB, mock := newTestDB(t)
	s := NewGormStore(gormDB)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO "preferences" .*ON CONFLICT \("scope","key"\) DO UPDATE SET "value"="excluded"\."value","updated_at"="excluded"\."updated_at"`).
		WithArgs("default", "bank_uploads.last_account", "11", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, s.SetPreference(context.Background(), "default", "bank_uploads.last_account", "11"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_Preferences(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	_, found, err := s.GetPreference(ctx, "default", "bank_uploads.last_account")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.SetPreference(ctx, "default", "bank_uploads.last_account", "11"))
	require.NoError(t, s.SetPreference(ctx, "default", "bank_uploads.last_account", "12"))
	require.NoError(t, s.SetPreference(ctx, "browser-2", "bank_uploads.last_account", "30"))

	value, found, err := s.GetPreference(ctx, "default", "bank_uploads.last_account")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "12", value)

	value, _, err = s.GetPreference(ctx, "browser-2", "bank_uploads.last_account")
	require.NoError(t, err)
	assert.Equal(t, "30", value)

	require.NoError(t, s.DeletePreference(ctx, "default", "bank_uploads.last_account"))
	require.NoError(t, s.DeletePreference(ctx, "default", "bank_uploads.last_account"))
	_, found, err = s.GetPreference(ctx, "default", "bank_uploads.last_account")
	require.NoError(t, err)
	assert.False(t, found)

	_, found, err = s.GetPreference(ctx, "browser-2", "bank_uploads.last_account")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestGormStore_Subscriptions(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	endpoint := "https://push.example.com/abc?x=1"

	_, err := s.GetSubscription(ctx, endpoint)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.PutSubscription(ctx, Subscription{Endpoint: endpoint, P256DH: "k1", Auth: "a1", CompanyIDs: []string{"1", "2", "2", ""}}))
	got, err := s.GetSubscription(ctx, endpoint)
	require.NoError(t, err)
	assert.Equal(t, "k1", got.P256DH)
	assert.ElementsMatch(t, []string{"1", "2"}, got.CompanyIDs)

	require.NoError(t, s.PutSubscription(ctx, Subscription{Endpoint: endpoint, P256DH: "k2", Auth: "a2", CompanyIDs: []string{"3"}}))
	got, err = s.GetSubscription(ctx, endpoint)
	require.NoError(t, err)
	assert.Equal(t, "k2", got.P256DH)
	assert.Equal(t, []string{"3"}, got.CompanyIDs)

	require.NoError(t, s.DeleteSubscription(ctx, endpoint))
	_, err = s.GetSubscription(ctx, endpoint)
	assert.ErrorIs(t, err, ErrNotFound)

	var orphans int64
	require.NoError(t, s.DB().Model(&model.SubscribedCompany{}).Count(&orphans).Error)
	assert.Zero(t, orphans)
}
