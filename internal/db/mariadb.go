// Package db is the optional MariaDB journal of curation decisions.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
)

const schema = `
CREATE TABLE IF NOT EXISTS curation_decisions (
	id           BIGINT AUTO_INCREMENT PRIMARY KEY,
	run_id       CHAR(36)     NOT NULL,
	dataset      VARCHAR(255) NOT NULL,
	sample_path  VARCHAR(1024) NOT NULL,
	dest_path    VARCHAR(1024) NULL,
	pass         VARCHAR(16)  NOT NULL,
	action       VARCHAR(16)  NOT NULL,
	reason       VARCHAR(255) NOT NULL DEFAULT '',
	token        VARCHAR(255) NOT NULL DEFAULT '',
	file_hash    CHAR(32)     NOT NULL DEFAULT '',
	file_size    BIGINT       NOT NULL DEFAULT 0,
	duration_sec DOUBLE       NOT NULL DEFAULT 0,
	created_at   TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP,
	INDEX idx_run (run_id),
	INDEX idx_hash (file_hash)
) CHARACTER SET utf8mb4`

// Decision is one journal row.
type Decision struct {
	ID          int64
	RunID       string
	Dataset     string
	SamplePath  string
	DestPath    string
	Pass        string
	Action      string
	Reason      string
	Token       string
	FileHash    string
	FileSize    int64
	DurationSec float64
	CreatedAt   time.Time
}

type DB struct {
	conn *sql.DB
}

// DSN builds the driver connection string.
func DSN(host string, port int, user, password, dbname string) string {
	cfg := mysql.NewConfig()
	cfg.User = user
	cfg.Passwd = password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(host, strconv.Itoa(port))
	cfg.DBName = dbname
	cfg.ParseTime = true
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	return cfg.FormatDSN()
}

// New connects and makes sure the journal table exists.
func New(ctx context.Context, host string, port int, user, password, dbname string) (*DB, error) {
	conn, err := sql.Open("mysql", DSN(host, port, user, password, dbname))
	if err != nil {
		return nil, err
	}

	conn.SetMaxOpenConns(4)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(5 * time.Minute)

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	if _, err := conn.ExecContext(ctx, schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("db: create schema: %w", err)
	}

	return &DB{conn: conn}, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

// InsertDecision appends d to the journal.
func (db *DB) InsertDecision(ctx context.Context, d *Decision) (int64, error) {
	var dest sql.NullString
	if d.DestPath != "" {
		dest = sql.NullString{String: d.DestPath, Valid: true}
	}
	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO curation_decisions
		(run_id, dataset, sample_path, dest_path, pass, action, reason, token,
		 file_hash, file_size, duration_sec)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.RunID, d.Dataset, d.SamplePath, dest, d.Pass, d.Action, d.Reason, d.Token,
		d.FileHash, d.FileSize, d.DurationSec)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// CountByAction summarizes one run.
func (db *DB) CountByAction(ctx context.Context, runID string) (map[string]int64, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT action, COUNT(*) FROM curation_decisions
		WHERE run_id = ? GROUP BY action`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var action string
		var n int64
		if err := rows.Scan(&action, &n); err != nil {
			return nil, err
		}
		counts[action] = n
	}
	return counts, rows.Err()
}

// SeenRejected reports whether a file with this hash was discarded by a run
// other than runID.
func (db *DB) SeenRejected(ctx context.Context, hash, runID string) (bool, error) {
	var count int
	err := db.conn.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM curation_decisions
		WHERE file_hash = ? AND action = 'discard' AND run_id <> ?`, hash, runID).Scan(&count)
	return count > 0, err
}
