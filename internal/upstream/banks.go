package upstream

import (
	"context"
	"fmt"
	"net/url"

	"assetdesk-backend/internal/asset"
)

// BankAccount is a company bank account as listed by the upstream.
type BankAccount struct {
	ID            asset.Scalar `json:"id"`
	Company       asset.Scalar `json:"company"`
	AccountName   string       `json:"account_name"`
	AccountNumber string       `json:"account_number"`
	BankName      string       `json:"bank_name"`
	IsActive      *bool        `json:"is_active,omitempty"`
}

// RecentUpload is one statement upload batch, newest first in upstream listings.
type RecentUpload struct {
	BatchID              string `json:"batch_id"`
	UploadDate           string `json:"upload_date"`
	FileName             string `json:"file_name"`
	UploadedBy           string `json:"uploaded_by"`
	TransactionsUploaded int    `json:"transactions_uploaded"`
	Status               string `json:"status"`
}

// ListBankAccounts returns every bank account visible to the service.
func (c *Client) ListBankAccounts(ctx context.Context) ([]BankAccount, error) {
	var accounts []BankAccount
	if err := c.getJSON(ctx, "banks/", nil, &accounts); err != nil {
		return nil, fmt.Errorf("list bank accounts: %w", err)
	}
	return accounts, nil
}

// RecentUploads returns the latest upload batches of a bank account, newest first.
func (c *Client) RecentUploads(ctx context.Context, accountID string) ([]RecentUpload, error) {
	var resp struct {
		RecentUploads []RecentUpload `json:"recent_uploads"`
	}
	q := url.Values{"bank_account_id": {accountID}}
	if err := c.getJSON(ctx, "bank-uploads/recent-uploads/", q, &resp); err != nil {
		return nil, fmt.Errorf("recent uploads for account %s: %w", accountID, err)
	}
	return resp.RecentUploads, nil
}
