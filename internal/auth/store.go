// Package auth manages user accounts in SQLite and in-memory browser
// sessions.
package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/fyrsmithlabs/docqa/internal/logging"
)

var (
	// ErrUserNotFound indicates no user matched the lookup.
	ErrUserNotFound = errors.New("user not found")

	// ErrUserExists indicates the username or email is already taken.
	ErrUserExists = errors.New("username or email already exists")

	// ErrInvalidCredentials indicates a failed login attempt.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidInput indicates registration input that fails validation.
	ErrInvalidInput = errors.New("invalid input")
)

// User is an account row. PasswordHash never leaves this package.
type User struct {
	ID        int64
	Username  string
	Email     string
	IsAdmin   bool
	CreatedAt time.Time
	LastLogin *time.Time

	passwordHash string
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	username TEXT UNIQUE NOT NULL,
	email TEXT UNIQUE NOT NULL,
	password_hash TEXT NOT NULL,
	is_admin INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	last_login TIMESTAMP
);`

// Store persists user accounts in SQLite.
type Store struct {
	db     *sql.DB
	logger *logging.Logger
}

// NewStore opens (creating if needed) the user database at path and
// bootstraps an admin account when none exists. adminPassword is the
// bootstrap admin's initial password.
func NewStore(path string, adminPassword string, logger *logging.Logger) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating users table: %w", err)
	}

	s := &Store{db: db, logger: logger.Named("auth")}
	if err := s.bootstrapAdmin(context.Background(), adminPassword); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// bootstrapAdmin creates the default admin account on first run.
func (s *Store) bootstrapAdmin(ctx context.Context, password string) error {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE is_admin = 1`).Scan(&count); err != nil {
		return fmt.Errorf("checking for admin account: %w", err)
	}
	if count > 0 {
		return nil
	}

	if password == "" {
		password = "admin123"
	}
	if _, err := s.create(ctx, "admin", "admin@admin.com", password, true); err != nil {
		return fmt.Errorf("bootstrapping admin account: %w", err)
	}
	s.logger.Info(ctx, "created default admin account")
	return nil
}

// Register creates a regular user account after validating the input.
func (s *Store) Register(ctx context.Context, username, email, password string) (*User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)

	if len(username) < 3 {
		return nil, fmt.Errorf("%w: username must be at least 3 characters", ErrInvalidInput)
	}
	if len(password) < 6 {
		return nil, fmt.Errorf("%w: password must be at least 6 characters", ErrInvalidInput)
	}
	if !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: invalid email address", ErrInvalidInput)
	}

	return s.create(ctx, username, email, password, false)
}

func (s *Store) create(ctx context.Context, username, email, password string, isAdmin bool) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username, email, password_hash, is_admin) VALUES (?, ?, ?, ?)`,
		username, email, string(hash), isAdmin,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("inserting user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading new user id: %w", err)
	}
	return s.GetByID(ctx, id)
}

// Authenticate verifies the credentials and stamps last_login. login may be
// a username or an email address.
func (s *Store) Authenticate(ctx context.Context, login, password string) (*User, error) {
	user, err := s.getByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			// Burn a comparison so lookup misses cost the same as hash
			// mismatches.
			bcrypt.CompareHashAndPassword([]byte("$2a$10$0000000000000000000000000000000000000000000000000000"), []byte(password))
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.passwordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	now := time.Now().UTC()
	if _, err := s.db.ExecContext(ctx, `UPDATE users SET last_login = ? WHERE id = ?`, now, user.ID); err != nil {
		return nil, fmt.Errorf("updating last login: %w", err)
	}
	user.LastLogin = &now
	return user, nil
}

// GetByID returns the user with the given id.
func (s *Store) GetByID(ctx context.Context, id int64) (*User, error) {
	return s.scanOne(s.db.QueryRowContext(ctx,
		`SELECT id, username, email, password_hash, is_admin, created_at, last_login FROM users WHERE id = ?`, id))
}

func (s *Store) getByLogin(ctx context.Context, login string) (*User, error) {
	return s.scanOne(s.db.QueryRowContext(ctx,
		`SELECT id, username, email, password_hash, is_admin, created_at, last_login FROM users WHERE username = ? OR email = ?`,
		login, login))
}

// List returns every account ordered by creation time.
func (s *Store) List(ctx context.Context) ([]*User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, username, email, password_hash, is_admin, created_at, last_login FROM users ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	return users, nil
}

// Delete removes the account with the given id.
func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	if affected == 0 {
		return ErrUserNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanOne(row *sql.Row) (*User, error) {
	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	return user, err
}

func scanUser(row rowScanner) (*User, error) {
	var u User
	var lastLogin sql.NullTime
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.passwordHash, &u.IsAdmin, &u.CreatedAt, &lastLogin); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning user: %w", err)
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLogin = &t
	}
	return &u, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
