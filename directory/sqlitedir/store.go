// Package sqlitedir is a reference [authcore.Directory] backed by SQLite.
// Administrative and organizational accounts live in separate tables so the
// two populations can never collide on an identifier.
package sqlitedir

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pressly/goose/v3"
	authcore "github.com/tradegate/authcore"
	_ "modernc.org/sqlite" // SQLite driver
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// ErrDuplicateEmail reports an insert colliding with an existing address
// within the same account class.
var ErrDuplicateEmail = errors.New("sqlitedir: email already registered")

// Store implements authcore.Directory on a SQLite database. Use ":memory:"
// as the path for tests.
type Store struct {
	db *sql.DB
}

// New opens (creating if needed) the database at dbPath and applies
// embedded migrations.
func New(ctx context.Context, dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// WAL allows concurrent readers but still a single writer; keep the
	// pool at one connection so writes serialize cleanly.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA foreign_keys = ON;",
		"PRAGMA busy_timeout = 5000;",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	store := &Store{db: db}

	if err := store.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) runMigrations() error {
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	goose.SetBaseFS(embedMigrations)

	if err := goose.Up(s.db, "migrations"); err != nil {
		return fmt.Errorf("goose up failed: %w", err)
	}

	return nil
}

func table(class authcore.AccountClass) string {
	if class == authcore.ClassAdmin {
		return "admin_accounts"
	}
	return "org_accounts"
}

const accountColumns = `id, email, name, password_hash, status, role, permissions,
	failed_attempts, locked_until, last_login_at, last_login_ip, last_login_ua`

// FindByEmail describes the findbyemail operation and its observable behavior.
//
// FindByEmail may return an error when input validation, dependency calls, or security checks fail.
// FindByEmail does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Store) FindByEmail(ctx context.Context, email string, class authcore.AccountClass) (*authcore.Account, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE email = ?", accountColumns, table(class))
	return s.scanAccount(s.db.QueryRowContext(ctx, query, authcore.CanonicalEmail(email)), class)
}

// GetByID describes the getbyid operation and its observable behavior.
//
// GetByID may return an error when input validation, dependency calls, or security checks fail.
// GetByID does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Store) GetByID(ctx context.Context, id string, class authcore.AccountClass) (*authcore.Account, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", accountColumns, table(class))
	return s.scanAccount(s.db.QueryRowContext(ctx, query, id), class)
}

func (s *Store) scanAccount(row *sql.Row, class authcore.AccountClass) (*authcore.Account, error) {
	var (
		account     authcore.Account
		name        sql.NullString
		permissions sql.NullString
		lockedUntil sql.NullInt64
		lastLoginAt sql.NullInt64
		lastLoginIP sql.NullString
		lastLoginUA sql.NullString
	)

	err := row.Scan(
		&account.ID,
		&account.Email,
		&name,
		&account.PasswordHash,
		&account.Status,
		&account.Role,
		&permissions,
		&account.FailedAttempts,
		&lockedUntil,
		&lastLoginAt,
		&lastLoginIP,
		&lastLoginUA,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, authcore.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan account: %w", err)
	}

	account.Class = class
	account.Name = name.String
	if permissions.String != "" {
		account.Permissions = strings.Split(permissions.String, ",")
	}
	if lockedUntil.Valid {
		account.LockedUntil = time.Unix(lockedUntil.Int64, 0)
	}
	if lastLoginAt.Valid {
		account.LastLoginAt = time.Unix(lastLoginAt.Int64, 0)
	}
	account.LastLoginIP = lastLoginIP.String
	account.LastLoginUA = lastLoginUA.String

	return &account, nil
}

// RecordFailure increments the failure counter and arms the lock expiry in
// a single UPDATE, so two concurrent wrong-password attempts can never both
// observe a pre-threshold counter.
//
// RecordFailure may return an error when input validation, dependency calls, or security checks fail.
// RecordFailure does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Store) RecordFailure(ctx context.Context, id string, class authcore.AccountClass, threshold int, lockFor time.Duration) (int, time.Time, error) {
	query := fmt.Sprintf(`UPDATE %s
		SET failed_attempts = failed_attempts + 1,
		    locked_until = CASE WHEN failed_attempts + 1 >= ?1 THEN ?2 ELSE locked_until END
		WHERE id = ?3
		RETURNING failed_attempts, locked_until`, table(class))

	lockExpiry := time.Now().Add(lockFor).Unix()

	var (
		attempts    int
		lockedUntil sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx, query, threshold, lockExpiry, id).Scan(&attempts, &lockedUntil)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, time.Time{}, authcore.ErrAccountNotFound
	}
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("failed to record failure: %w", err)
	}

	var until time.Time
	if lockedUntil.Valid {
		until = time.Unix(lockedUntil.Int64, 0)
	}

	return attempts, until, nil
}

// ClearFailures describes the clearfailures operation and its observable behavior.
//
// ClearFailures may return an error when input validation, dependency calls, or security checks fail.
// ClearFailures does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Store) ClearFailures(ctx context.Context, id string, class authcore.AccountClass) error {
	query := fmt.Sprintf("UPDATE %s SET failed_attempts = 0, locked_until = NULL WHERE id = ?", table(class))

	res, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to clear failures: %w", err)
	}
	return requireRow(res)
}

// UpdatePasswordHash describes the updatepasswordhash operation and its observable behavior.
//
// UpdatePasswordHash may return an error when input validation, dependency calls, or security checks fail.
// UpdatePasswordHash does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Store) UpdatePasswordHash(ctx context.Context, id string, class authcore.AccountClass, newHash string) error {
	query := fmt.Sprintf("UPDATE %s SET password_hash = ? WHERE id = ?", table(class))

	res, err := s.db.ExecContext(ctx, query, newHash, id)
	if err != nil {
		return fmt.Errorf("failed to update password hash: %w", err)
	}
	return requireRow(res)
}

// TouchLastLogin describes the touchlastlogin operation and its observable behavior.
//
// TouchLastLogin may return an error when input validation, dependency calls, or security checks fail.
// TouchLastLogin does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Store) TouchLastLogin(ctx context.Context, id string, class authcore.AccountClass, login authcore.LoginContext) error {
	query := fmt.Sprintf("UPDATE %s SET last_login_at = ?, last_login_ip = ?, last_login_ua = ? WHERE id = ?", table(class))

	at := login.At
	if at.IsZero() {
		at = time.Now()
	}

	res, err := s.db.ExecContext(ctx, query, at.Unix(), login.IP, login.UserAgent, id)
	if err != nil {
		return fmt.Errorf("failed to record last login: %w", err)
	}
	return requireRow(res)
}

// CreateAccount inserts a new record. Intended for seeding and registration
// flows layered on top of the engine.
//
// CreateAccount may return an error when input validation, dependency calls, or security checks fail.
// CreateAccount does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Store) CreateAccount(ctx context.Context, account *authcore.Account) error {
	query := fmt.Sprintf(`INSERT INTO %s
		(id, email, name, password_hash, status, role, permissions)
		VALUES (?, ?, ?, ?, ?, ?, ?)`, table(account.Class))

	_, err := s.db.ExecContext(ctx, query,
		account.ID,
		authcore.CanonicalEmail(account.Email),
		account.Name,
		account.PasswordHash,
		account.Status,
		account.Role,
		strings.Join(account.Permissions, ","),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("failed to create account: %w", err)
	}

	return nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return authcore.ErrAccountNotFound
	}
	return nil
}
