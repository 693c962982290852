// Package store persists session models to SQL databases, ClickHouse,
// YAML files and MQTT.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	_ "modernc.org/sqlite"             // SQLite driver

	"github.com/jacksonchui/Social-Media-Intervention/internal/session"
)

// Backend selects the SQL database behind a SQLStore.
type Backend string

const (
	SQLiteBackend     Backend = "sqlite"
	MySQLBackend      Backend = "mysql"
	PostgreSQLBackend Backend = "postgresql"
	NoneBackend       Backend = "none"
)

// ParseBackend accepts the STORE_BACKEND values, case-insensitively.
func ParseBackend(s string) (Backend, error) {
	switch b := Backend(strings.ToLower(strings.TrimSpace(s))); b {
	case SQLiteBackend, MySQLBackend, PostgreSQLBackend, NoneBackend:
		return b, nil
	case "":
		return NoneBackend, nil
	default:
		return "", fmt.Errorf("unsupported store backend: %q", s)
	}
}

// ErrNotFound is returned by Get for an unknown session id.
var ErrNotFound = errors.New("session not found")

const (
	sessionsTable = "intervention_sessions"
	periodsTable  = "intervention_periods"
)

// SQLStore keeps one row per session and one row per period.
type SQLStore struct {
	db      *sql.DB
	backend Backend
}

var _ session.Sink = (*SQLStore)(nil)

// NewSQLStore opens and migrates the database. For MySQL the DSN must
// include parseTime=true. NoneBackend returns a store that drops writes.
func NewSQLStore(ctx context.Context, backend Backend, dsn string) (*SQLStore, error) {
	var driverName string
	switch backend {
	case SQLiteBackend:
		driverName = "sqlite"
	case MySQLBackend:
		driverName = "mysql"
	case PostgreSQLBackend:
		driverName = "pgx"
	case NoneBackend:
		return &SQLStore{backend: backend}, nil
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", backend)
	}
	if dsn == "" {
		return nil, fmt.Errorf("%s store: empty DSN", backend)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", backend, err)
	}
	if backend == SQLiteBackend {
		// A single connection avoids "database is locked" errors.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect to %s database: %w", backend, err)
	}

	s := &SQLStore{db: db, backend: backend}
	if err := s.createTables(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) createTables(ctx context.Context) error {
	for _, q := range createTableQueries(s.backend) {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create tables: %w", err)
		}
	}
	return nil
}

func createTableQueries(backend Backend) []string {
	switch backend {
	case MySQLBackend:
		return []string{
			`CREATE TABLE IF NOT EXISTS ` + sessionsTable + ` (
				session_id VARCHAR(64) PRIMARY KEY,
				session_date DATETIME(6) NOT NULL,
				duration_seconds DOUBLE NOT NULL,
				social_media TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS ` + periodsTable + ` (
				session_id VARCHAR(64) NOT NULL,
				period_index INT NOT NULL,
				progress_per_interval TEXT NOT NULL,
				duration_seconds DOUBLE NOT NULL,
				PRIMARY KEY (session_id, period_index)
			)`,
		}
	case PostgreSQLBackend:
		return []string{
			`CREATE TABLE IF NOT EXISTS ` + sessionsTable + ` (
				session_id TEXT PRIMARY KEY,
				session_date TIMESTAMPTZ NOT NULL,
				duration_seconds DOUBLE PRECISION NOT NULL,
				social_media TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS ` + periodsTable + ` (
				session_id TEXT NOT NULL,
				period_index INT NOT NULL,
				progress_per_interval TEXT NOT NULL,
				duration_seconds DOUBLE PRECISION NOT NULL,
				PRIMARY KEY (session_id, period_index)
			)`,
		}
	default: // SQLite
		return []string{
			`CREATE TABLE IF NOT EXISTS ` + sessionsTable + ` (
				session_id TEXT PRIMARY KEY,
				session_date TEXT NOT NULL,
				duration_seconds REAL NOT NULL,
				social_media TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS ` + periodsTable + ` (
				session_id TEXT NOT NULL,
				period_index INTEGER NOT NULL,
				progress_per_interval TEXT NOT NULL,
				duration_seconds REAL NOT NULL,
				PRIMARY KEY (session_id, period_index)
			)`,
		}
	}
}

// bind rewrites ? placeholders to $n for PostgreSQL.
func bind(backend Backend, query string) string {
	if backend != PostgreSQLBackend {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func formatTime(t time.Time, backend Backend) any {
	if backend == SQLiteBackend {
		return t.UTC().Format(time.RFC3339Nano)
	}
	return t.UTC()
}

// Save replaces any earlier record of the same session, so a resumed
// session can be saved again.
func (s *SQLStore) Save(ctx context.Context, m session.Model) error {
	if s.db == nil {
		return nil
	}

	media, err := json.Marshal(m.SocialMediaVisited)
	if err != nil {
		return fmt.Errorf("marshal social media: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{periodsTable, sessionsTable} {
		q := bind(s.backend, `DELETE FROM `+table+` WHERE session_id = ?`)
		if _, err := tx.ExecContext(ctx, q, m.ID); err != nil {
			return fmt.Errorf("clear previous session %s: %w", m.ID, err)
		}
	}

	q := bind(s.backend, `INSERT INTO `+sessionsTable+` (session_id, session_date, duration_seconds, social_media) VALUES (?, ?, ?, ?)`)
	if _, err := tx.ExecContext(ctx, q, m.ID, formatTime(m.Date, s.backend), m.DurationSeconds, string(media)); err != nil {
		return fmt.Errorf("insert session %s: %w", m.ID, err)
	}

	q = bind(s.backend, `INSERT INTO `+periodsTable+` (session_id, period_index, progress_per_interval, duration_seconds) VALUES (?, ?, ?, ?)`)
	for i, p := range m.Periods {
		progress, err := json.Marshal(p.ProgressPerInterval)
		if err != nil {
			return fmt.Errorf("marshal period %d: %w", i, err)
		}
		if _, err := tx.ExecContext(ctx, q, m.ID, i, string(progress), p.DurationSeconds); err != nil {
			return fmt.Errorf("insert period %d of session %s: %w", i, m.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit session %s: %w", m.ID, err)
	}
	return nil
}

// List returns up to limit sessions, newest first. A limit of 0 means all.
func (s *SQLStore) List(ctx context.Context, limit int) ([]session.Model, error) {
	if s.db == nil {
		return nil, nil
	}

	q := `SELECT session_id, session_date, duration_seconds, social_media FROM ` + sessionsTable + ` ORDER BY session_date DESC`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, bind(s.backend, q), args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var models []session.Model
	for rows.Next() {
		m, err := s.scanSession(rows)
		if err != nil {
			return nil, err
		}
		models = append(models, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	for i := range models {
		periods, err := s.periods(ctx, models[i].ID)
		if err != nil {
			return nil, err
		}
		models[i].Periods = periods
	}
	return models, nil
}

// Get loads one session by id.
func (s *SQLStore) Get(ctx context.Context, id string) (session.Model, error) {
	if s.db == nil {
		return session.Model{}, ErrNotFound
	}

	q := bind(s.backend, `SELECT session_id, session_date, duration_seconds, social_media FROM `+sessionsTable+` WHERE session_id = ?`)
	row := s.db.QueryRowContext(ctx, q, id)
	m, err := s.scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return session.Model{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return session.Model{}, err
	}

	m.Periods, err = s.periods(ctx, id)
	if err != nil {
		return session.Model{}, err
	}
	return m, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func (s *SQLStore) scanSession(row scanner) (session.Model, error) {
	var (
		m     session.Model
		media string
	)

	// SQLite stores times as RFC 3339 text; the others scan natively.
	if s.backend == SQLiteBackend {
		var date string
		if err := row.Scan(&m.ID, &date, &m.DurationSeconds, &media); err != nil {
			return m, fmt.Errorf("scan session: %w", err)
		}
		t, err := time.Parse(time.RFC3339Nano, date)
		if err != nil {
			return m, fmt.Errorf("parse session date %q: %w", date, err)
		}
		m.Date = t
	} else {
		if err := row.Scan(&m.ID, &m.Date, &m.DurationSeconds, &media); err != nil {
			return m, fmt.Errorf("scan session: %w", err)
		}
		m.Date = m.Date.UTC()
	}

	if err := json.Unmarshal([]byte(media), &m.SocialMediaVisited); err != nil {
		return m, fmt.Errorf("decode social media of %s: %w", m.ID, err)
	}
	return m, nil
}

func (s *SQLStore) periods(ctx context.Context, id string) ([]session.PeriodRecord, error) {
	q := bind(s.backend, `SELECT progress_per_interval, duration_seconds FROM `+periodsTable+` WHERE session_id = ? ORDER BY period_index`)
	rows, err := s.db.QueryContext(ctx, q, id)
	if err != nil {
		return nil, fmt.Errorf("load periods of %s: %w", id, err)
	}
	defer rows.Close()

	periods := []session.PeriodRecord{}
	for rows.Next() {
		var (
			p        session.PeriodRecord
			progress string
		)
		if err := rows.Scan(&progress, &p.DurationSeconds); err != nil {
			return nil, fmt.Errorf("scan period of %s: %w", id, err)
		}
		if err := json.Unmarshal([]byte(progress), &p.ProgressPerInterval); err != nil {
			return nil, fmt.Errorf("decode period of %s: %w", id, err)
		}
		periods = append(periods, p)
	}
	return periods, rows.Err()
}

// Close closes the underlying connection.
func (s *SQLStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
