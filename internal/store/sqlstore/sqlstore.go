// Package sqlstore implements RealtimeStore and HistoricalStore (spec §6)
// on top of a MySQL-compatible database/sql connection. Grounded on the
// teacher's internal/storage/dolt/store.go, which opens a database/sql
// handle against a MySQL-wire-compatible server via the same driver;
// generalized here from the teacher's whole-graph storage to just the two
// narrow read/write contracts this spec needs.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/thomassorensen2650/unsinfra/internal/model"
)

// Open connects to a MySQL-compatible server at dsn and verifies the
// connection with a ping.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlstore: ping: %w", err)
	}
	return db, nil
}

// Realtime is a RealtimeStore backed by a single-row-per-topic table.
//
//	CREATE TABLE uns_realtime (
//	    topic      VARCHAR(512) PRIMARY KEY,
//	    value      TEXT,
//	    ts         DATETIME(3) NOT NULL,
//	    source     VARCHAR(256),
//	    quality    VARCHAR(64)
//	)
type Realtime struct {
	db *sql.DB
}

// NewRealtime wraps db. The caller owns db's lifecycle.
func NewRealtime(db *sql.DB) *Realtime { return &Realtime{db: db} }

func (s *Realtime) Put(ctx context.Context, dp model.DataPoint) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO uns_realtime (topic, value, ts, source, quality)
		VALUES (?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE value = VALUES(value), ts = VALUES(ts), source = VALUES(source), quality = VALUES(quality)
	`, dp.Topic, fmt.Sprint(dp.Value), dp.Timestamp, dp.Source, dp.Quality)
	if err != nil {
		return fmt.Errorf("sqlstore: realtime put %s: %w", dp.Topic, err)
	}
	return nil
}

func (s *Realtime) GetLatest(ctx context.Context, topic string) (model.DataPoint, bool, error) {
	var dp model.DataPoint
	row := s.db.QueryRowContext(ctx, `SELECT topic, value, ts, source, quality FROM uns_realtime WHERE topic = ?`, topic)
	if err := row.Scan(&dp.Topic, &dp.Value, &dp.Timestamp, &dp.Source, &dp.Quality); err != nil {
		if err == sql.ErrNoRows {
			return model.DataPoint{}, false, nil
		}
		return model.DataPoint{}, false, fmt.Errorf("sqlstore: realtime get %s: %w", topic, err)
	}
	return dp, true, nil
}

// Historical is a HistoricalStore backed by an append-only table.
//
//	CREATE TABLE uns_historical (
//	    id         BIGINT AUTO_INCREMENT PRIMARY KEY,
//	    topic      VARCHAR(512) NOT NULL,
//	    value      TEXT,
//	    ts         DATETIME(3) NOT NULL,
//	    source     VARCHAR(256),
//	    quality    VARCHAR(64),
//	    INDEX idx_topic_ts (topic, ts)
//	)
type Historical struct {
	db *sql.DB
}

// NewHistorical wraps db. The caller owns db's lifecycle.
func NewHistorical(db *sql.DB) *Historical { return &Historical{db: db} }

func (s *Historical) Put(ctx context.Context, dp model.DataPoint) error {
	return s.PutBulk(ctx, []model.DataPoint{dp})
}

// PutBulk writes every point inside a single transaction. An empty slice is
// a no-op success (spec §6: "if history is disabled, PutBulk must still
// return success").
func (s *Historical) PutBulk(ctx context.Context, dps []model.DataPoint) error {
	if len(dps) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlstore: historical putbulk begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }() // no-op once committed

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO uns_historical (topic, value, ts, source, quality) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("sqlstore: historical putbulk prepare: %w", err)
	}
	defer stmt.Close()

	for _, dp := range dps {
		if _, err := stmt.ExecContext(ctx, dp.Topic, fmt.Sprint(dp.Value), dp.Timestamp, dp.Source, dp.Quality); err != nil {
			return fmt.Errorf("sqlstore: historical putbulk exec %s: %w", dp.Topic, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlstore: historical putbulk commit: %w", err)
	}
	return nil
}

// Query streams every point for topic in [from, to], ordered by timestamp.
func (s *Historical) Query(ctx context.Context, topic string, from, to time.Time) (<-chan model.DataPoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT topic, value, ts, source, quality FROM uns_historical
		WHERE topic = ? AND ts BETWEEN ? AND ?
		ORDER BY ts ASC
	`, topic, from, to)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: historical query %s: %w", topic, err)
	}

	out := make(chan model.DataPoint)
	go func() {
		defer close(out)
		defer rows.Close()
		for rows.Next() {
			var dp model.DataPoint
			if err := rows.Scan(&dp.Topic, &dp.Value, &dp.Timestamp, &dp.Source, &dp.Quality); err != nil {
				return
			}
			select {
			case out <- dp:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
