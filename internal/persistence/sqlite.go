package persistence

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/stacklok/coordination-registry/internal/registry"
)

//go:embed schema.sql
var sqliteSchema string

// sqliteGateway keeps the snapshot in tables that are replaced as a whole on
// every save
type sqliteGateway struct {
	db     *sql.DB
	path   string
	logger *zap.Logger
}

func openSQLite(path string, logger *zap.Logger) (*sqliteGateway, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database %s: %w", path, err)
	}
	// A single connection serializes writers
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA busy_timeout = 5000")

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create sqlite schema: %w", err)
	}

	logger.Info("Opened sqlite snapshot store", zap.String("path", path))
	return &sqliteGateway{db: db, path: path, logger: logger}, nil
}

// LoadSnapshot reads every snapshot table
func (s *sqliteGateway) LoadSnapshot(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{}

	var savedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT format_version, saved_at FROM snapshot_meta WHERE id = 1`).Scan(&snap.FormatVersion, &savedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return nil, fmt.Errorf("failed to read snapshot metadata: %w", err)
	default:
		if err := checkFormat(s.path, snap.FormatVersion); err != nil {
			return nil, err
		}
		if snap.SavedAt, err = time.Parse(time.RFC3339Nano, savedAt); err != nil {
			return nil, &FatalConfigError{Source: s.path, Err: fmt.Errorf("saved_at: %w", err)}
		}
	}

	caps, err := s.loadCapabilities(ctx)
	if err != nil {
		return nil, err
	}
	subs, err := s.loadSubscriptions(ctx)
	if err != nil {
		return nil, err
	}
	watches, err := s.loadCapabilityWatches(ctx)
	if err != nil {
		return nil, err
	}
	snap.Capabilities = caps
	snap.Subscriptions = subs
	snap.CapabilityWatches = watches
	return snap, nil
}

func (s *sqliteGateway) loadCapabilityWatches(ctx context.Context) ([]registry.CapabilityWatch, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner, callback_url, created_at FROM capability_watches ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query capability watches: %w", err)
	}
	defer rows.Close()

	var watches []registry.CapabilityWatch
	for rows.Next() {
		var (
			w         registry.CapabilityWatch
			createdAt string
		)
		if err := rows.Scan(&w.ID, &w.Owner, &w.CallbackURL, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan capability watch: %w", err)
		}
		if w.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, &FatalConfigError{Source: s.path, Err: fmt.Errorf("capability watch %q: created_at: %w", w.ID, err)}
		}
		watches = append(watches, w)
	}
	return watches, rows.Err()
}

func (s *sqliteGateway) loadCapabilities(ctx context.Context) ([]registry.Capability, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, schema FROM capabilities ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query capabilities: %w", err)
	}
	defer rows.Close()

	var caps []registry.Capability
	for rows.Next() {
		var (
			id     string
			schema sql.NullString
		)
		if err := rows.Scan(&id, &schema); err != nil {
			return nil, fmt.Errorf("failed to scan capability: %w", err)
		}
		c := registry.Capability{ID: id}
		if schema.Valid && schema.String != "" {
			if !json.Valid([]byte(schema.String)) {
				return nil, &FatalConfigError{Source: s.path, Err: fmt.Errorf("capability %q: schema is not valid JSON", id)}
			}
			c.Schema = json.RawMessage(schema.String)
		}
		caps = append(caps, c)
	}
	return caps, rows.Err()
}

func (s *sqliteGateway) loadSubscriptions(ctx context.Context) ([]registry.Subscription, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, capability_id, owner, callback_url, status_url, params, last_reported, created_at
		FROM subscriptions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []registry.Subscription
	for rows.Next() {
		var (
			sub          registry.Subscription
			params       sql.NullString
			lastReported sql.NullBool
			createdAt    string
		)
		if err := rows.Scan(&sub.ID, &sub.CapabilityID, &sub.Owner, &sub.CallbackURL, &sub.StatusURL,
			&params, &lastReported, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		if params.Valid && params.String != "" {
			if !json.Valid([]byte(params.String)) {
				return nil, &FatalConfigError{Source: s.path, Err: fmt.Errorf("subscription %q: params are not valid JSON", sub.ID)}
			}
			sub.Params = json.RawMessage(params.String)
		}
		if lastReported.Valid {
			v := lastReported.Bool
			sub.LastReportedEnabled = &v
		}
		if sub.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, &FatalConfigError{Source: s.path, Err: fmt.Errorf("subscription %q: created_at: %w", sub.ID, err)}
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// SaveSnapshot replaces the stored rows in one transaction
func (s *sqliteGateway) SaveSnapshot(ctx context.Context, snap *Snapshot) (err error) {
	if snap == nil {
		snap = &Snapshot{}
	}
	savedAt := snap.SavedAt
	if savedAt.IsZero() {
		savedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, stmt := range []string{
		`DELETE FROM capabilities`,
		`DELETE FROM subscriptions`,
		`DELETE FROM capability_watches`,
	} {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to clear snapshot tables: %w", err)
		}
	}

	for _, c := range snap.Capabilities {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO capabilities (id, schema) VALUES (?, ?)`,
			c.ID, nullJSON(c.Schema)); err != nil {
			return fmt.Errorf("failed to insert capability %q: %w", c.ID, err)
		}
	}

	for _, sub := range snap.Subscriptions {
		var lastReported any
		if sub.LastReportedEnabled != nil {
			lastReported = *sub.LastReportedEnabled
		}
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO subscriptions
				(id, capability_id, owner, callback_url, status_url, params, last_reported, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			sub.ID, sub.CapabilityID, sub.Owner, sub.CallbackURL, sub.StatusURL,
			nullJSON(sub.Params), lastReported, sub.CreatedAt.UTC().Format(time.RFC3339Nano)); err != nil {
			return fmt.Errorf("failed to insert subscription %q: %w", sub.ID, err)
		}
	}

	for _, w := range snap.CapabilityWatches {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO capability_watches (id, owner, callback_url, created_at) VALUES (?, ?, ?, ?)`,
			w.ID, w.Owner, w.CallbackURL, w.CreatedAt.UTC().Format(time.RFC3339Nano)); err != nil {
			return fmt.Errorf("failed to insert capability watch %q: %w", w.ID, err)
		}
	}

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO snapshot_meta (id, format_version, saved_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET format_version = excluded.format_version, saved_at = excluded.saved_at`,
		FormatVersion, savedAt.UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("failed to update snapshot metadata: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}

	s.logger.Debug("Saved snapshot",
		zap.String("path", s.path),
		zap.Int("capabilities", len(snap.Capabilities)),
		zap.Int("subscriptions", len(snap.Subscriptions)),
		zap.Int("capability_watches", len(snap.CapabilityWatches)))
	return nil
}

// Close closes the database
func (s *sqliteGateway) Close() error {
	return s.db.Close()
}

func nullJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
