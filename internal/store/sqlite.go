package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/avella/mailgate/internal/model"
)

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Enable foreign keys.
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	// Check if schema_version table exists.
	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// UpsertAccount inserts or replaces an account, keyed by its name.
func (s *SQLiteStore) UpsertAccount(ctx context.Context, a model.Account) error {
	now := time.Now().UTC()
	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO accounts (
			name, full_name, email_address,
			incoming_host, incoming_port, incoming_user_name, incoming_password,
			incoming_use_ssl, incoming_start_tls,
			outgoing_host, outgoing_port, outgoing_user_name, outgoing_password,
			outgoing_use_ssl, outgoing_start_tls,
			save_to_sent, sent_folder,
			created_at, updated_at
		) VALUES (
			?, ?, ?,
			?, ?, ?, ?,
			?, ?,
			?, ?, ?, ?,
			?, ?,
			?, ?,
			?, ?
		)`,
		a.Name, a.FullName, a.EmailAddress,
		a.Incoming.Host, a.Incoming.Port, a.Incoming.Username, a.Incoming.Password,
		boolToInt(a.Incoming.UseSSL), boolToInt(a.Incoming.StartTLS),
		a.Outgoing.Host, a.Outgoing.Port, a.Outgoing.Username, a.Outgoing.Password,
		boolToInt(a.Outgoing.UseSSL), boolToInt(a.Outgoing.StartTLS),
		boolToInt(a.SaveToSent), a.SentFolder,
		createdAt, now,
	)
	if err != nil {
		return fmt.Errorf("upserting account %s: %w", a.Name, err)
	}

	return nil
}

// GetAccount retrieves a single account by name. A missing account is
// (nil, nil), not an error.
func (s *SQLiteStore) GetAccount(ctx context.Context, name string) (*model.Account, error) {
	row := s.db.QueryRowxContext(ctx, "SELECT * FROM accounts WHERE name = ?", name)

	a, err := scanAccountRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting account %s: %w", name, err)
	}

	return &a, nil
}

// ListAccounts retrieves all accounts ordered by name.
func (s *SQLiteStore) ListAccounts(ctx context.Context) ([]model.Account, error) {
	rows, err := s.db.QueryxContext(ctx, "SELECT * FROM accounts ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("querying accounts: %w", err)
	}
	defer rows.Close()

	var accounts []model.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}

	return accounts, rows.Err()
}

// DeleteAccount removes an account by name.
func (s *SQLiteStore) DeleteAccount(ctx context.Context, name string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM accounts WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("deleting account %s: %w", name, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("account %s not found", name)
	}
	return nil
}

// accountRow mirrors the accounts table layout for scanning.
type accountRow struct {
	Name         string `db:"name"`
	FullName     string `db:"full_name"`
	EmailAddress string `db:"email_address"`

	IncomingHost     string `db:"incoming_host"`
	IncomingPort     int    `db:"incoming_port"`
	IncomingUserName string `db:"incoming_user_name"`
	IncomingPassword string `db:"incoming_password"`
	IncomingUseSSL   int    `db:"incoming_use_ssl"`
	IncomingStartTLS int    `db:"incoming_start_tls"`

	OutgoingHost     string `db:"outgoing_host"`
	OutgoingPort     int    `db:"outgoing_port"`
	OutgoingUserName string `db:"outgoing_user_name"`
	OutgoingPassword string `db:"outgoing_password"`
	OutgoingUseSSL   int    `db:"outgoing_use_ssl"`
	OutgoingStartTLS int    `db:"outgoing_start_tls"`

	SaveToSent int    `db:"save_to_sent"`
	SentFolder string `db:"sent_folder"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r accountRow) toModel() model.Account {
	return model.Account{
		Name:         r.Name,
		FullName:     r.FullName,
		EmailAddress: r.EmailAddress,
		Incoming: model.ServerSettings{
			Host:     r.IncomingHost,
			Port:     r.IncomingPort,
			Username: r.IncomingUserName,
			Password: r.IncomingPassword,
			UseSSL:   r.IncomingUseSSL != 0,
			StartTLS: r.IncomingStartTLS != 0,
		},
		Outgoing: model.ServerSettings{
			Host:     r.OutgoingHost,
			Port:     r.OutgoingPort,
			Username: r.OutgoingUserName,
			Password: r.OutgoingPassword,
			UseSSL:   r.OutgoingUseSSL != 0,
			StartTLS: r.OutgoingStartTLS != 0,
		},
		SaveToSent: r.SaveToSent != 0,
		SentFolder: r.SentFolder,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

// scanAccount scans an account row from a sqlx.Rows result set.
func scanAccount(rows *sqlx.Rows) (model.Account, error) {
	var r accountRow
	if err := rows.StructScan(&r); err != nil {
		return model.Account{}, fmt.Errorf("scanning account row: %w", err)
	}
	return r.toModel(), nil
}

// scanAccountRow scans a single account row from a sqlx.Row.
func scanAccountRow(row *sqlx.Row) (model.Account, error) {
	var r accountRow
	if err := row.StructScan(&r); err != nil {
		return model.Account{}, err
	}
	return r.toModel(), nil
}

// boolToInt converts a boolean to 0 or 1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
