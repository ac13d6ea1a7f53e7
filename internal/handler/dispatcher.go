package handler

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/avella/mailgate/internal/credential"
	"github.com/avella/mailgate/internal/model"
	"github.com/avella/mailgate/internal/store"
)

// Dispatcher resolves account names to handlers. Handlers are constructed
// per request so account edits take effect immediately.
type Dispatcher struct {
	store store.Store
	log   zerolog.Logger
}

// NewDispatcher creates a dispatcher over the given account store.
func NewDispatcher(st store.Store, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{store: st, log: log}
}

// Dispatch returns the handler for the named account. Passwords left empty
// in the store are resolved from the system keyring. Each dispatch gets its
// own request id in the handler's log context.
func (d *Dispatcher) Dispatch(ctx context.Context, accountName string) (Handler, error) {
	account, err := d.store.GetAccount(ctx, accountName)
	if err != nil {
		return nil, fmt.Errorf("loading account %q: %w", accountName, err)
	}
	if account == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAccount, accountName)
	}

	if account.Incoming.Password == "" {
		if pw, err := credential.Get(credential.IncomingPasswordKey(account.Name)); err == nil {
			account.Incoming.Password = pw
		} else {
			d.log.Debug().Err(err).Str("account", account.Name).Msg("no keyring credential for incoming server")
		}
	}
	if account.Outgoing.Password == "" {
		if pw, err := credential.Get(credential.OutgoingPasswordKey(account.Name)); err == nil {
			account.Outgoing.Password = pw
		} else {
			d.log.Debug().Err(err).Str("account", account.Name).Msg("no keyring credential for outgoing server")
		}
	}

	log := d.log.With().Str("request_id", uuid.New().String()).Logger()
	return NewClassic(*account, log), nil
}

// AddAccount stores a new account configuration.
func (d *Dispatcher) AddAccount(ctx context.Context, account model.Account) error {
	if account.Name == "" {
		return &InvalidArgumentError{Field: "account_name", Reason: "must not be empty"}
	}
	if account.Incoming.Host == "" || account.Outgoing.Host == "" {
		return &InvalidArgumentError{Field: "server settings", Reason: "incoming and outgoing hosts are required"}
	}
	if err := d.store.UpsertAccount(ctx, account); err != nil {
		return err
	}
	d.log.Info().Str("account", account.Name).Msg("account added")
	return nil
}

// RemoveAccount deletes the named account from the store.
func (d *Dispatcher) RemoveAccount(ctx context.Context, accountName string) error {
	if accountName == "" {
		return &InvalidArgumentError{Field: "account_name", Reason: "must not be empty"}
	}
	account, err := d.store.GetAccount(ctx, accountName)
	if err != nil {
		return fmt.Errorf("loading account %q: %w", accountName, err)
	}
	if account == nil {
		return fmt.Errorf("%w: %q", ErrUnknownAccount, accountName)
	}
	if err := d.store.DeleteAccount(ctx, accountName); err != nil {
		return err
	}
	d.log.Info().Str("account", accountName).Msg("account removed")
	return nil
}

// ListAccounts returns every configured account with masked credentials.
func (d *Dispatcher) ListAccounts(ctx context.Context) ([]model.Account, error) {
	accounts, err := d.store.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	masked := make([]model.Account, 0, len(accounts))
	for _, a := range accounts {
		masked = append(masked, a.Masked())
	}
	return masked, nil
}
