package bankuploads

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"assetdesk-backend/internal/upstream"
)

// Preference keys.
const (
	KeyLastAccount = "bank_uploads.last_account"
	KeyLastBatch   = "bank_uploads.last_batch"
)

var ErrAccountRequired = errors.New("bank_account_id is required")

// Preferences is the key-value store the last view is persisted in.
type Preferences interface {
	GetPreference(ctx context.Context, scope, key string) (string, bool, error)
	SetPreference(ctx context.Context, scope, key, value string) error
	DeletePreference(ctx context.Context, scope, key string) error
}

// Upstream lists bank accounts and their upload batches.
type Upstream interface {
	ListBankAccounts(ctx context.Context) ([]upstream.BankAccount, error)
	RecentUploads(ctx context.Context, accountID string) ([]upstream.RecentUpload, error)
}

// LastView is the bank account and upload batch a client looked at last.
type LastView struct {
	AccountID string `json:"bank_account_id"`
	BatchID   string `json:"batch_id"`
}

// Service restores and remembers the last view per client scope.
type Service struct {
	prefs    Preferences
	upstream Upstream
	log      *zap.Logger
}

// NewService creates a last-view service.
func NewService(prefs Preferences, up Upstream, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{prefs: prefs, upstream: up, log: log}
}

// Restore returns the remembered view. A stored account that no longer exists upstream is
// forgotten. Without a stored batch the newest upload of the account is used and remembered.
func (s *Service) Restore(ctx context.Context, scope string) (LastView, error) {
	account, found, err := s.prefs.GetPreference(ctx, scope, KeyLastAccount)
	if err != nil {
		return LastView{}, err
	}
	if !found || account == "" {
		return LastView{}, nil
	}

	accounts, err := s.upstream.ListBankAccounts(ctx)
	if err != nil {
		return LastView{}, fmt.Errorf("failed to fetch bank accounts: %w", err)
	}
	if !hasAccount(accounts, account) {
		s.log.Info("forgetting unknown bank account", zap.String("scope", scope), zap.String("account", account))
		if err := s.prefs.DeletePreference(ctx, scope, KeyLastAccount); err != nil {
			return LastView{}, err
		}
		return LastView{}, nil
	}

	view := LastView{AccountID: account}
	batch, found, err := s.prefs.GetPreference(ctx, scope, KeyLastBatch)
	if err != nil {
		return LastView{}, err
	}
	if found && batch != "" {
		view.BatchID = batch
		return view, nil
	}

	uploads, err := s.upstream.RecentUploads(ctx, account)
	if err != nil {
		s.log.Warn("failed to fetch recent uploads", zap.String("account", account), zap.Error(err))
		return view, nil
	}
	if len(uploads) > 0 {
		view.BatchID = uploads[0].BatchID
		if err := s.prefs.SetPreference(ctx, scope, KeyLastBatch, view.BatchID); err != nil {
			return LastView{}, err
		}
	}
	return view, nil
}

// Remember stores a view. An empty batch clears the stored one.
func (s *Service) Remember(ctx context.Context, scope string, view LastView) error {
	if view.AccountID == "" {
		return ErrAccountRequired
	}
	if err := s.prefs.SetPreference(ctx, scope, KeyLastAccount, view.AccountID); err != nil {
		return err
	}
	if view.BatchID == "" {
		return s.prefs.DeletePreference(ctx, scope, KeyLastBatch)
	}
	return s.prefs.SetPreference(ctx, scope, KeyLastBatch, view.BatchID)
}

func hasAccount(accounts []upstream.BankAccount, id string) bool {
	for _, a := range accounts {
		if a.ID.String() == id {
			return true
		}
	}
	return false
}
