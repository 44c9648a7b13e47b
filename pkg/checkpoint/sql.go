package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// sessionRow is the table layout for SQL drivers. The snapshot itself is
// stored as JSON; the other columns are for operators.
type sessionRow struct {
	SessionID string `gorm:"primaryKey;size:64"`
	UserID    string `gorm:"index;size:128"`
	State     string `gorm:"size:16"`
	Data      []byte
	UpdatedAt time.Time
}

func (sessionRow) TableName() string { return "companion_sessions" }

// SQLStore persists snapshots through gorm.
type SQLStore struct {
	db *gorm.DB
}

// OpenSQLite opens (and migrates) a sqlite database file.
func OpenSQLite(path string, log *slog.Logger) (*SQLStore, error) {
	if path == "" {
		path = "companion.db"
	}
	return openSQL(sqlite.Open(path), log)
}

// OpenPostgres opens (and migrates) a postgres database.
func OpenPostgres(dsn string, log *slog.Logger) (*SQLStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("checkpoint: postgres DSN required")
	}
	return openSQL(postgres.Open(dsn), log)
}

func openSQL(dialector gorm.Dialector, log *slog.Logger) (*SQLStore, error) {
	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Discard})
	if err != nil {
		return nil, fmt.Errorf("checkpoint: open database: %w", err)
	}
	if err := db.AutoMigrate(&sessionRow{}); err != nil {
		return nil, fmt.Errorf("checkpoint: migrate: %w", err)
	}
	if log != nil {
		log.Debug("checkpoint database ready", "component", "checkpoint.sql", "dialect", dialector.Name())
	}
	return &SQLStore{db: db}, nil
}

// Save implements Store.
func (s *SQLStore) Save(ctx context.Context, snap Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("checkpoint: encode: %w", err)
	}
	row := sessionRow{
		SessionID: snap.SessionID,
		UserID:    snap.UserID,
		State:     snap.State,
		Data:      data,
		UpdatedAt: snap.UpdatedAt,
	}
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("checkpoint: save %s: %w", snap.SessionID, err)
	}
	return nil
}

// Delete implements Store.
func (s *SQLStore) Delete(ctx context.Context, sessionID string) error {
	err := s.db.WithContext(ctx).Delete(&sessionRow{}, "session_id = ?", sessionID).Error
	if err != nil {
		return fmt.Errorf("checkpoint: delete %s: %w", sessionID, err)
	}
	return nil
}

// LoadAll implements Store.
func (s *SQLStore) LoadAll(ctx context.Context) ([]Snapshot, error) {
	var rows []sessionRow
	if err := s.db.WithContext(ctx).Order("session_id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("checkpoint: load: %w", err)
	}
	out := make([]Snapshot, 0, len(rows))
	for _, row := range rows {
		var snap Snapshot
		if err := json.Unmarshal(row.Data, &snap); err != nil {
			return nil, fmt.Errorf("checkpoint: decode %s: %w", row.SessionID, err)
		}
		out = append(out, snap)
	}
	return out, nil
}

// Close closes the underlying connection pool.
func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Verify SQLStore implements Store at compile time.
var _ Store = (*SQLStore)(nil)
