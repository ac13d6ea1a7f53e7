package store

import (
	"context"

	"github.com/avella/mailgate/internal/model"
)

// Store defines the persistence interface for configured email accounts.
type Store interface {
	// UpsertAccount inserts or replaces an account keyed by name.
	UpsertAccount(ctx context.Context, a model.Account) error

	// GetAccount retrieves one account by name, or nil when absent.
	GetAccount(ctx context.Context, name string) (*model.Account, error)

	// ListAccounts retrieves every account ordered by name.
	ListAccounts(ctx context.Context) ([]model.Account, error)

	// DeleteAccount removes an account by name.
	DeleteAccount(ctx context.Context, name string) error
}
