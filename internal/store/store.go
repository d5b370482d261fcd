package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"assetdesk-backend/internal/model"
)

// Store defines the interface for all database operations.
type Store interface {
	GetPreference(ctx context.Context, scope, key string) (string, bool, error)
	SetPreference(ctx context.Context, scope, key, value string) error
	DeletePreference(ctx context.Context, scope, key string) error

	PutSubscription(ctx context.Context, sub Subscription) error
	GetSubscription(ctx context.Context, endpoint string) (Subscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error

	DB() *gorm.DB
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// GetPreference returns the stored value and whether it exists.
func (s *gormStore) GetPreference(ctx context.Context, scope, key string) (string, bool, error) {
	var pref model.Preference
	err := s.db.WithContext(ctx).Where(&model.Preference{Scope: scope, Key: key}).Take(&pref).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read preference %s: %w", key, err)
	}
	return pref.Value, true, nil
}

// SetPreference inserts or replaces a value.
func (s *gormStore) SetPreference(ctx context.Context, scope, key, value string) error {
	pref := model.Preference{Scope: scope, Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "scope"}, {Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&pref).Error
	if err != nil {
		return fmt.Errorf("failed to write preference %s: %w", key, err)
	}
	return nil
}

// DeletePreference removes a value. Deleting a missing key is not an error.
func (s *gormStore) DeletePreference(ctx context.Context, scope, key string) error {
	err := s.db.WithContext(ctx).Where(&model.Preference{Scope: scope, Key: key}).Delete(&model.Preference{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete preference %s: %w", key, err)
	}
	return nil
}

// PutSubscription creates or replaces a subscription and its company list.
func (s *gormStore) PutSubscription(ctx context.Context, sub Subscription) error {
	subscription := model.PushSubscription{
		Endpoint: sub.Endpoint,
		P256DH:   sub.P256DH,
		Auth:     sub.Auth,
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "endpoint"}},
			DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth"}),
		}).Omit(clause.Associations).Create(&subscription).Error; err != nil {
			return fmt.Errorf("failed to upsert subscription: %w", err)
		}

		if err := tx.Where("subscription_endpoint = ?", sub.Endpoint).Delete(&model.SubscribedCompany{}).Error; err != nil {
			return fmt.Errorf("failed to clear subscribed companies: %w", err)
		}

		companies := make([]model.SubscribedCompany, 0, len(sub.CompanyIDs))
		seen := make(map[string]bool, len(sub.CompanyIDs))
		for _, id := range sub.CompanyIDs {
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			companies = append(companies, model.SubscribedCompany{SubscriptionEndpoint: sub.Endpoint, CompanyID: id})
		}
		if len(companies) == 0 {
			return nil
		}
		if err := tx.Create(&companies).Error; err != nil {
			return fmt.Errorf("failed to save subscribed companies: %w", err)
		}
		return nil
	})
}

// GetSubscription returns a subscription with its companies, or ErrNotFound.
func (s *gormStore) GetSubscription(ctx context.Context, endpoint string) (Subscription, error) {
	var subscription model.PushSubscription
	err := s.db.WithContext(ctx).Preload("Companies").Where("endpoint = ?", endpoint).Take(&subscription).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Subscription{}, ErrNotFound
	}
	if err != nil {
		return Subscription{}, fmt.Errorf("failed to read subscription: %w", err)
	}

	ids := make([]string, len(subscription.Companies))
	for i, c := range subscription.Companies {
		ids[i] = c.CompanyID
	}
	return Subscription{
		Endpoint:   subscription.Endpoint,
		P256DH:     subscription.P256DH,
		Auth:       subscription.Auth,
		CompanyIDs: ids,
	}, nil
}

// DeleteSubscription removes a subscription and its company list.
func (s *gormStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("subscription_endpoint = ?", endpoint).Delete(&model.SubscribedCompany{}).Error; err != nil {
			return fmt.Errorf("failed to delete subscribed companies: %w", err)
		}
		if err := tx.Where("endpoint = ?", endpoint).Delete(&model.PushSubscription{}).Error; err != nil {
			return fmt.Errorf("failed to delete subscription: %w", err)
		}
		return nil
	})
}
