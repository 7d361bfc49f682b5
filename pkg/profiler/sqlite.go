// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package profiler

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS profiles (
	token       TEXT PRIMARY KEY,
	ip          TEXT NOT NULL DEFAULT '',
	method      TEXT NOT NULL,
	url         TEXT NOT NULL,
	status_code INTEGER NOT NULL,
	created_at  INTEGER NOT NULL,
	collectors  TEXT NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS idx_profiles_created_at ON profiles(created_at);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
}

type profileRow struct {
	Token      string `db:"token"`
	IP         string `db:"ip"`
	Method     string `db:"method"`
	URL        string `db:"url"`
	StatusCode int    `db:"status_code"`
	CreatedAt  int64  `db:"created_at"`
	Collectors string `db:"collectors"`
}

func (r profileRow) summary() ProfileSummary {
	return ProfileSummary{
		Token:      r.Token,
		IP:         r.IP,
		Method:     r.Method,
		URL:        r.URL,
		StatusCode: r.StatusCode,
		Time:       time.Unix(0, r.CreatedAt).UTC(),
	}
}

// SQLiteStorage stores profiles in a SQLite database. When maxProfiles is
// positive, the oldest profiles beyond it are deleted after each write.
type SQLiteStorage struct {
	db          *sqlx.DB
	maxProfiles int
}

// NewSQLiteStorage opens (or creates) the database at dsn and applies pending migrations.
// maxProfiles <= 0 keeps every profile.
func NewSQLiteStorage(dsn string, maxProfiles int) (*SQLiteStorage, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	// a single connection keeps ":memory:" databases shared
	db.SetMaxOpenConns(1)

	s := &SQLiteStorage{db: db, maxProfiles: maxProfiles}
	if err := s.runMigrations(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func (s *SQLiteStorage) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'")
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}
	if tableCount > 0 {
		if err := s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version"); err != nil {
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

func (s *SQLiteStorage) Write(ctx context.Context, profile *Profile) error {
	if profile == nil || profile.Token == "" {
		return errors.New("profile without token")
	}
	collectors, err := json.Marshal(profile.Collectors)
	if err != nil {
		return fmt.Errorf("marshaling collectors of %s: %w", profile.Token, err)
	}

	_, err = s.db.NamedExecContext(ctx, `
		INSERT OR REPLACE INTO profiles (token, ip, method, url, status_code, created_at, collectors)
		VALUES (:token, :ip, :method, :url, :status_code, :created_at, :collectors)`,
		profileRow{
			Token:      profile.Token,
			IP:         profile.IP,
			Method:     profile.Method,
			URL:        profile.URL,
			StatusCode: profile.StatusCode,
			CreatedAt:  profile.Time.UnixNano(),
			Collectors: string(collectors),
		})
	if err != nil {
		return fmt.Errorf("writing profile %s: %w", profile.Token, err)
	}
	return s.trim(ctx)
}

// trim deletes the oldest profiles beyond maxProfiles, in the order Find lists them.
func (s *SQLiteStorage) trim(ctx context.Context) error {
	if s.maxProfiles <= 0 {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM profiles WHERE rowid NOT IN (
			SELECT rowid FROM profiles ORDER BY created_at DESC, rowid DESC LIMIT ?
		)`, s.maxProfiles)
	if err != nil {
		return fmt.Errorf("trimming profiles to %d: %w", s.maxProfiles, err)
	}
	return nil
}

func (s *SQLiteStorage) Read(ctx context.Context, token string) (*Profile, error) {
	var row profileRow
	err := s.db.GetContext(ctx, &row, "SELECT * FROM profiles WHERE token = ?", token)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, token)
	}
	if err != nil {
		return nil, fmt.Errorf("reading profile %s: %w", token, err)
	}

	summary := row.summary()
	profile := &Profile{
		Token:      summary.Token,
		IP:         summary.IP,
		Method:     summary.Method,
		URL:        summary.URL,
		StatusCode: summary.StatusCode,
		Time:       summary.Time,
	}
	if err := json.Unmarshal([]byte(row.Collectors), &profile.Collectors); err != nil {
		return nil, fmt.Errorf("unmarshaling collectors of %s: %w", token, err)
	}
	return profile, nil
}

func (s *SQLiteStorage) Find(ctx context.Context, limit int) ([]ProfileSummary, error) {
	query := "SELECT * FROM profiles ORDER BY created_at DESC, rowid DESC"
	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	var rows []profileRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("querying profiles: %w", err)
	}
	out := make([]ProfileSummary, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.summary())
	}
	return out, nil
}

func (s *SQLiteStorage) Purge(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM profiles"); err != nil {
		return fmt.Errorf("purging profiles: %w", err)
	}
	return nil
}
