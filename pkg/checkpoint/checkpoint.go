// Package checkpoint persists session snapshots so open sessions survive a
// process restart.
//
// Persistence is optional. Drivers:
//
//   - file: one JSON document on local disk
//   - sqlite, postgres: a table via gorm
//   - redis: one JSON value per session under a key prefix
//   - none: discards everything
package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/teslashibe/go-companion/pkg/conversation"
	"github.com/teslashibe/go-companion/pkg/meeting"
)

// Snapshot is the persisted form of one session.
type Snapshot struct {
	SessionID      string              `json:"session_id"`
	UserID         string              `json:"user_id"`
	Language       string              `json:"language"`
	State          string              `json:"state"`
	History        []conversation.Turn `json:"history"`
	Call           meeting.Handle      `json:"call"`
	CreatedAt      time.Time           `json:"created_at"`
	LastActivityAt time.Time           `json:"last_activity_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// Store persists snapshots. Implementations are safe for concurrent use.
type Store interface {
	// Save inserts or replaces the snapshot for snap.SessionID.
	Save(ctx context.Context, snap Snapshot) error

	// Delete removes a snapshot. Deleting a missing snapshot succeeds.
	Delete(ctx context.Context, sessionID string) error

	// LoadAll returns every stored snapshot.
	LoadAll(ctx context.Context) ([]Snapshot, error)

	// Close releases any resources held by the store.
	Close() error
}

// Drivers.
const (
	DriverNone     = "none"
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// ErrUnknownDriver indicates an unsupported driver name.
var ErrUnknownDriver = errors.New("checkpoint: unknown driver")

// Config selects and configures a driver.
type Config struct {
	// Driver is one of the Driver constants. Empty means none.
	Driver string

	// Path is the file path for the file and sqlite drivers.
	Path string

	// DSN is the postgres connection string.
	DSN string

	// RedisURL is a redis:// URL for the redis driver.
	RedisURL string

	// KeyPrefix namespaces redis keys.
	KeyPrefix string

	Logger *slog.Logger
}

// Open creates the store selected by cfg.Driver.
func Open(ctx context.Context, cfg Config) (Store, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	switch cfg.Driver {
	case "", DriverNone:
		return Nop{}, nil
	case DriverFile:
		return NewFileStore(cfg.Path), nil
	case DriverSQLite:
		return wrap(OpenSQLite(cfg.Path, cfg.Logger))
	case DriverPostgres:
		return wrap(OpenPostgres(cfg.DSN, cfg.Logger))
	case DriverRedis:
		return wrap(OpenRedis(ctx, cfg.RedisURL, cfg.KeyPrefix))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}

// wrap keeps a failed open from returning a typed nil inside Store.
func wrap[S Store](s S, err error) (Store, error) {
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Nop discards snapshots.
type Nop struct{}

func (Nop) Save(context.Context, Snapshot) error        { return nil }
func (Nop) Delete(context.Context, string) error        { return nil }
func (Nop) LoadAll(context.Context) ([]Snapshot, error) { return nil, nil }
func (Nop) Close() error                                { return nil }

// Verify Nop implements Store at compile time.
var _ Store = Nop{}
