package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"assetdesk-backend/internal/asset"
	"assetdesk-backend/internal/notification"
	"assetdesk-backend/internal/wizard"
)

var (
	ErrNotFound      = errors.New("wizard session not found")
	ErrAssetNotFound = errors.New("asset not found")
)

// Backend is what a wizard session needs from the upstream.
type Backend interface {
	wizard.AssetAPI
	wizard.Dropdowns
	ListAssets(ctx context.Context) ([]asset.Record, error)
}

// Session is one open wizard and the toasts waiting for its browser.
type Session struct {
	ID     string
	Wizard *wizard.Wizard
	Feed   *notification.Feed
}

// Manager keeps the open sessions. Sessions idle longer than the TTL are evicted and cancelled.
type Manager struct {
	backend   Backend
	publisher wizard.Publisher
	sessions  *cache.Cache
	onSaved   func(wizard.Result)
	log       *zap.Logger
}

// NewManager creates a session registry.
func NewManager(backend Backend, publisher wizard.Publisher, ttl time.Duration, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	m := &Manager{
		backend:   backend,
		publisher: publisher,
		sessions:  cache.New(ttl, time.Minute),
		log:       log,
	}
	m.sessions.OnEvicted(func(id string, v interface{}) {
		if s, ok := v.(*Session); ok {
			s.Wizard.Cancel()
			m.log.Debug("wizard session closed", zap.String("session", id))
		}
	})
	return m
}

// OnSaved registers a hook run after any session saves an asset.
func (m *Manager) OnSaved(fn func(wizard.Result)) {
	m.onSaved = fn
}

// Open starts a session: add mode when assetID is empty, edit mode otherwise.
func (m *Manager) Open(ctx context.Context, assetID string) (*Session, error) {
	records, err := m.backend.ListAssets(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load assets: %w", err)
	}

	var record *asset.Record
	if assetID != "" {
		r, ok := asset.FindRecord(records, asset.Scalar(assetID))
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, assetID)
		}
		record = &r
	}

	id := uuid.NewString()
	log := m.log.With(zap.String("session", id))
	feed := notification.NewFeed()
	s := &Session{ID: id, Feed: feed}
	s.Wizard = wizard.New(ctx, wizard.Config{
		API:       m.backend,
		Dropdowns: m.backend,
		Sink:      notification.Fanout{feed, notification.LogSink{Log: log}},
		Publisher: m.publisher,
		Existing:  records,
		OnSuccess: func(r wizard.Result) { m.saved(id, r) },
		Log:       log,
	}, record)

	m.sessions.Set(id, s, cache.DefaultExpiration)
	log.Info("wizard session opened", zap.String("asset_id", assetID))
	return s, nil
}

// Get returns an open session and extends its idle timeout.
func (m *Manager) Get(id string) (*Session, error) {
	v, found := m.sessions.Get(id)
	if !found {
		return nil, ErrNotFound
	}
	s := v.(*Session)
	m.sessions.Set(id, s, cache.DefaultExpiration)
	return s, nil
}

// Close cancels and forgets a session.
func (m *Manager) Close(id string) error {
	if _, found := m.sessions.Get(id); !found {
		return ErrNotFound
	}
	m.sessions.Delete(id)
	return nil
}

// Len returns the number of open sessions.
func (m *Manager) Len() int {
	return m.sessions.ItemCount()
}

func (m *Manager) saved(id string, r wizard.Result) {
	m.sessions.Delete(id)
	if m.onSaved != nil {
		m.onSaved(r)
	}
}
