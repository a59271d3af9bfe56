package db

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/banshee-data/cdc-trackfinder/internal/tracking/hough"
	"github.com/banshee-data/cdc-trackfinder/internal/tracking/pipeline"
)

// EventSummary is the stored row of one event.
type EventSummary struct {
	EventNo       int
	Source        string
	Hits          int
	Clusters      int
	Segments      int
	Trains        int
	Candidates    int
	DurationNanos int64
}

// CandidateRow is a stored Hough candidate.
type CandidateRow struct {
	EventNo     int
	CandidateNo int
	Phi0        float64
	Curvature   float64
	Weight      float64
	Phi0Lo      float64
	Phi0Hi      float64
	CurvLo      float64
	CurvHi      float64
	RawHits     []int
	Segments    []int
}

// RecordEvent writes the result of one event under eventNo. source names
// where the event came from, normally the input file.
func (db *DB) RecordEvent(runID string, eventNo int, source string, res *pipeline.Result) (err error) {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	_, err = tx.Exec(`
		INSERT INTO events (run_id, event_no, source, n_hits, n_clusters, n_segments, n_trains, n_candidates, duration_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, eventNo, source, res.Hits, len(res.Clusters), len(res.Segments), len(res.Trains),
		len(res.Candidates), res.Duration.Nanoseconds())
	if err != nil {
		return fmt.Errorf("failed to insert event %d: %w", eventNo, err)
	}

	if err = insertClusters(tx, runID, eventNo, res); err != nil {
		return err
	}
	if err = insertSegments(tx, runID, eventNo, res); err != nil {
		return err
	}
	if err = insertTrains(tx, runID, eventNo, res); err != nil {
		return err
	}
	if err = insertCandidates(tx, runID, eventNo, res); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit event %d: %w", eventNo, err)
	}
	return nil
}

func insertClusters(tx *sql.Tx, runID string, eventNo int, res *pipeline.Result) error {
	stmt, err := tx.Prepare(`
		INSERT INTO clusters (run_id, event_no, cluster_id, supercluster_id, superlayer, n_hits, min_x, min_y, max_x, max_y)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare cluster insert: %w", err)
	}
	defer stmt.Close()
	for _, cl := range res.Clusters {
		b := cl.Bound
		if _, err := stmt.Exec(runID, eventNo, cl.ID, cl.SuperCluster, cl.SuperLayer, cl.Len(),
			b.Min.X(), b.Min.Y(), b.Max.X(), b.Max.Y()); err != nil {
			return fmt.Errorf("failed to insert cluster %d: %w", cl.ID, err)
		}
	}
	return nil
}

func insertSegments(tx *sql.Tx, runID string, eventNo int, res *pipeline.Result) error {
	stmt, err := tx.Prepare(`
		INSERT INTO segments (run_id, event_no, segment_no, superlayer, cluster_id, n_hits, fitted, curvature, phi0, impact, chi2)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare segment insert: %w", err)
	}
	defer stmt.Close()
	for k := range res.Segments {
		s := &res.Segments[k]
		var curv, phi0, impact, chi2 sql.NullFloat64
		if s.Fitted {
			curv = sql.NullFloat64{Float64: s.Trajectory.Curvature(), Valid: true}
			phi0 = sql.NullFloat64{Float64: s.Trajectory.Phi0(), Valid: true}
			impact = sql.NullFloat64{Float64: s.Trajectory.Impact(), Valid: true}
			chi2 = sql.NullFloat64{Float64: s.Chi2, Valid: true}
		}
		if _, err := stmt.Exec(runID, eventNo, k, s.SuperLayer, s.Cluster, len(s.Hits), s.Fitted,
			curv, phi0, impact, chi2); err != nil {
			return fmt.Errorf("failed to insert segment %d: %w", k, err)
		}
	}
	return nil
}

func insertTrains(tx *sql.Tx, runID string, eventNo int, res *pipeline.Result) error {
	for k, tr := range res.Trains {
		segs, err := json.Marshal(tr.Segments)
		if err != nil {
			return fmt.Errorf("failed to marshal train %d: %w", k, err)
		}
		if _, err := tx.Exec(`INSERT INTO trains (run_id, event_no, train_no, weight, segments) VALUES (?, ?, ?, ?, ?)`,
			runID, eventNo, k, tr.Weight, string(segs)); err != nil {
			return fmt.Errorf("failed to insert train %d: %w", k, err)
		}
	}
	return nil
}

func insertCandidates(tx *sql.Tx, runID string, eventNo int, res *pipeline.Result) error {
	for k, c := range res.Candidates {
		rawHits, err := json.Marshal(nonNil(c.RawHits))
		if err != nil {
			return fmt.Errorf("failed to marshal candidate %d hits: %w", k, err)
		}
		segs, err := json.Marshal(nonNil(c.Segments))
		if err != nil {
			return fmt.Errorf("failed to marshal candidate %d segments: %w", k, err)
		}
		phi, curv := c.Box[hough.PhiAxis], c.Box[hough.CurvatureAxis]
		if _, err := tx.Exec(`
			INSERT INTO candidates (run_id, event_no, candidate_no, phi0, curvature, weight,
				phi0_lo, phi0_hi, curvature_lo, curvature_hi, raw_hits, segments)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, eventNo, k, c.Phi0, c.Curvature, c.Weight,
			phi.Lo, phi.Hi, curv.Lo, curv.Hi, string(rawHits), string(segs)); err != nil {
			return fmt.Errorf("failed to insert candidate %d: %w", k, err)
		}
	}
	return nil
}

func nonNil(v []int) []int {
	if v == nil {
		return []int{}
	}
	return v
}

// ListEvents returns the events of a run ordered by event number.
func (db *DB) ListEvents(runID string) ([]EventSummary, error) {
	rows, err := db.Query(`
		SELECT event_no, source, n_hits, n_clusters, n_segments, n_trains, n_candidates, duration_ns
		FROM events WHERE run_id = ? ORDER BY event_no`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var out []EventSummary
	for rows.Next() {
		var e EventSummary
		if err := rows.Scan(&e.EventNo, &e.Source, &e.Hits, &e.Clusters, &e.Segments, &e.Trains,
			&e.Candidates, &e.DurationNanos); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ListCandidates returns the candidates of a run, heaviest first within
// each event.
func (db *DB) ListCandidates(runID string) ([]CandidateRow, error) {
	rows, err := db.Query(`
		SELECT event_no, candidate_no, phi0, curvature, weight, phi0_lo, phi0_hi,
			curvature_lo, curvature_hi, raw_hits, segments
		FROM candidates WHERE run_id = ?
		ORDER BY event_no, weight DESC, candidate_no`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query candidates: %w", err)
	}
	defer rows.Close()

	var out []CandidateRow
	for rows.Next() {
		var c CandidateRow
		var rawHits, segs string
		if err := rows.Scan(&c.EventNo, &c.CandidateNo, &c.Phi0, &c.Curvature, &c.Weight,
			&c.Phi0Lo, &c.Phi0Hi, &c.CurvLo, &c.CurvHi, &rawHits, &segs); err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		if err := json.Unmarshal([]byte(rawHits), &c.RawHits); err != nil {
			return nil, fmt.Errorf("failed to decode candidate hits: %w", err)
		}
		if err := json.Unmarshal([]byte(segs), &c.Segments); err != nil {
			return nil, fmt.Errorf("failed to decode candidate segments: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
