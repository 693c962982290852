package store

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/jacksonchui/Social-Media-Intervention/internal/session"
)

const clickhousePeriodsTable = `
	CREATE TABLE IF NOT EXISTS intervention_periods (
		session_date DateTime64(3),
		session_id String,
		period_index UInt32,
		progress_per_interval Array(Float64),
		period_seconds Float64,
		session_seconds Float64,
		social_media Array(String)
	) ENGINE = MergeTree()
	ORDER BY (session_date, session_id, period_index)
`

// ClickHouseSink writes one analytics row per period.
type ClickHouseSink struct {
	conn driver.Conn
}

var _ session.Sink = (*ClickHouseSink)(nil)

// NewClickHouseSink connects, pings and creates the periods table.
func NewClickHouseSink(ctx context.Context, addr, database, username, password string) (*ClickHouseSink, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: database,
			Username: username,
			Password: password,
		},
		DialTimeout: 5 * time.Second,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping ClickHouse: %w", err)
	}
	log.Printf("store: connected to ClickHouse at %s", addr)

	if err := conn.Exec(ctx, clickhousePeriodsTable); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("create ClickHouse table: %w", err)
	}

	return &ClickHouseSink{conn: conn}, nil
}

const clickhouseInsert = `
	INSERT INTO intervention_periods
		(session_date, session_id, period_index, progress_per_interval, period_seconds, session_seconds, social_media)
	VALUES (?, ?, ?, ?, ?, ?, ?)
`

func (s *ClickHouseSink) Save(ctx context.Context, m session.Model) error {
	for _, args := range periodRows(m) {
		if err := s.conn.Exec(ctx, clickhouseInsert, args...); err != nil {
			return fmt.Errorf("insert ClickHouse period of %s: %w", m.ID, err)
		}
	}
	return nil
}

// periodRows flattens a model into insert arguments, one row per period.
func periodRows(m session.Model) [][]any {
	rows := make([][]any, 0, len(m.Periods))
	for i, p := range m.Periods {
		rows = append(rows, []any{
			m.Date,
			m.ID,
			uint32(i),
			p.ProgressPerInterval,
			p.DurationSeconds,
			m.DurationSeconds,
			m.SocialMediaVisited,
		})
	}
	return rows
}

func (s *ClickHouseSink) Close() error {
	return s.conn.Close()
}
