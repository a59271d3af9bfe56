// Package db stores track finding runs in a SQLite database.
//
// A run is one pass of the finder over an input stream. Every processed
// event is written with its clusters, segments, segment trains and Hough
// candidates in a single transaction. The schema is managed by
// golang-migrate from the migrations embedded in the binary.
package db

import (
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/cdc-trackfinder/internal/tracking/pipeline"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MigrationsFS returns the embedded migrations.
func MigrationsFS() fs.FS {
	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// ErrRunNotFound is returned for an unknown run id.
var ErrRunNotFound = errors.New("run not found")

type DB struct {
	*sql.DB
}

// OpenDB opens the database at path without touching the schema.
func OpenDB(path string) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// Workers share one writer; SQLite serialises writes anyway.
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return &DB{sqlDB}, nil
}

// NewDB opens the database at path and applies all pending migrations.
func NewDB(path string) (*DB, error) {
	db, err := OpenDB(path)
	if err != nil {
		return nil, err
	}
	if err := db.MigrateUp(MigrationsFS()); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Run describes one stored run.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt *time.Time
	HoughInput string
	ConfigJSON string
	Events     int
}

// StartRun creates a run recording the finder configuration and returns
// its id.
func (db *DB) StartRun(cfg pipeline.Config) (string, error) {
	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("failed to marshal config: %w", err)
	}
	id := uuid.NewString()
	_, err = db.Exec(`INSERT INTO runs (run_id, started_at, hough_input, config_json) VALUES (?, ?, ?, ?)`,
		id, time.Now().UTC(), string(cfg.Input), string(cfgJSON))
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}
	log.Printf("started run %s (hough input %s)", id, cfg.Input)
	return id, nil
}

// FinishRun stamps the run as finished and stores its event count.
func (db *DB) FinishRun(runID string) error {
	res, err := db.Exec(`
		UPDATE runs
		SET finished_at = ?, events = (SELECT COUNT(*) FROM events WHERE run_id = ?)
		WHERE run_id = ?`, time.Now().UTC(), runID, runID)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish %s: %w", runID, ErrRunNotFound)
	}
	return nil
}

// GetRun loads a run.
func (db *DB) GetRun(runID string) (*Run, error) {
	var r Run
	var finished sql.NullTime
	err := db.QueryRow(`SELECT run_id, started_at, finished_at, hough_input, config_json, events FROM runs WHERE run_id = ?`, runID).
		Scan(&r.ID, &r.StartedAt, &finished, &r.HoughInput, &r.ConfigJSON, &r.Events)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get %s: %w", runID, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}
	if finished.Valid {
		r.FinishedAt = &finished.Time
	}
	return &r, nil
}
