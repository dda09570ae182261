package credentials

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/quorum-chat/quorum/pkg/crypto"
)

const tokenKey = "session_token"
const passphraseKey = "vault_passphrase_hash"

// ErrLocked is returned when the vault passphrase has not been verified
var ErrLocked = errors.New("credential store is locked")

// Store is the process-wide persisted token holder. The connection core reads
// a token at connect time; an absent token means "do not connect". An
// optional bcrypt-hashed passphrase locks the store until verified.
type Store struct {
	db       *sql.DB
	unlocked bool
}

// Open creates or opens the credential database at path
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open credential store: %w", err)
	}

	// SQLite only supports one writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	// A store without a passphrase starts unlocked
	hash, err := s.get(passphraseKey)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.unlocked = hash == ""

	return s, nil
}

// initSchema creates the table if it doesn't exist
func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS credentials (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	);`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}

// Token returns the stored session token, or "" when none is saved
func (s *Store) Token() (string, error) {
	if !s.unlocked {
		return "", ErrLocked
	}
	return s.get(tokenKey)
}

// SetToken saves the session token
func (s *Store) SetToken(token string) error {
	if !s.unlocked {
		return ErrLocked
	}
	return s.set(tokenKey, token)
}

// ClearToken removes the stored session token
func (s *Store) ClearToken() error {
	if !s.unlocked {
		return ErrLocked
	}
	_, err := s.db.Exec(`DELETE FROM credentials WHERE key = ?`, tokenKey)
	return err
}

// SetPassphrase locks the store behind a bcrypt-hashed passphrase
func (s *Store) SetPassphrase(passphrase string) error {
	if !s.unlocked {
		return ErrLocked
	}
	hash, err := crypto.HashSecret(passphrase)
	if err != nil {
		return err
	}
	return s.set(passphraseKey, hash)
}

// Unlock verifies the passphrase and unlocks the store on success
func (s *Store) Unlock(passphrase string) bool {
	hash, err := s.get(passphraseKey)
	if err != nil || hash == "" {
		return s.unlocked
	}
	if crypto.CheckSecret(passphrase, hash) {
		s.unlocked = true
	}
	return s.unlocked
}

// Locked reports whether the store still requires a passphrase
func (s *Store) Locked() bool {
	return !s.unlocked
}

func (s *Store) get(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM credentials WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, nil
}

func (s *Store) set(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO credentials (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now())
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}
