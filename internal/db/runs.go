package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/primarygen/internal/event"
	"github.com/banshee-data/primarygen/internal/run"
)

// ErrRunNotFound is returned when a run id has no row.
var ErrRunNotFound = errors.New("run not found")

// Run is the persisted description of one generation run.
type Run struct {
	RunID           string  `json:"run_id"`
	CreatedAt       int64   `json:"created_at"`
	FinishedAt      *int64  `json:"finished_at,omitempty"`
	Version         string  `json:"version"`
	Model           int     `json:"model"`
	Signal          bool    `json:"signal"`
	Data            string  `json:"data"`
	Generator       string  `json:"generator"`
	Seed            uint64  `json:"seed"`
	Workers         int     `json:"workers"`
	EventsRequested int     `json:"events_requested"`
	Events          int64   `json:"events"`
	WorldSizeZMM    float64 `json:"world_size_z_mm"`
	DurationMS      int64   `json:"duration_ms"`
}

// GenParticleRow is a stored generated-particle record with its event id.
type GenParticleRow struct {
	EventID int `json:"event_id"`
	event.GenParticle
}

// VertexStats summarises the stored vertex positions of a run.
type VertexStats struct {
	Count int64   `json:"count"`
	MinX  float64 `json:"min_x_mm"`
	MaxX  float64 `json:"max_x_mm"`
	MeanX float64 `json:"mean_x_mm"`
	MinY  float64 `json:"min_y_mm"`
	MaxY  float64 `json:"max_y_mm"`
	MeanY float64 `json:"mean_y_mm"`
	MinZ  float64 `json:"min_z_mm"`
	MaxZ  float64 `json:"max_z_mm"`
}

// CreateRun persists a new run. If RunID is empty, a UUID is generated.
func (db *DB) CreateRun(r *Run) error {
	if r.RunID == "" {
		r.RunID = uuid.New().String()
	}
	if r.CreatedAt == 0 {
		r.CreatedAt = db.clock.Now().UnixNano()
	}

	return retryOnBusy(func() error {
		_, err := db.Exec(`
			INSERT INTO runs (
				run_id, created_at, version, model, signal, data, generator,
				seed, workers, events_requested, world_size_z_mm
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.RunID, r.CreatedAt, r.Version, r.Model, r.Signal, r.Data, r.Generator,
			strconv.FormatUint(r.Seed, 10), r.Workers, r.EventsRequested, r.WorldSizeZMM,
		)
		return err
	})
}

// FinishRun records the number of processed events and the wall time.
func (db *DB) FinishRun(runID string, events int64, d time.Duration) error {
	return retryOnBusy(func() error {
		res, err := db.Exec(`
			UPDATE runs SET finished_at = ?, events = ?, duration_ms = ?
			WHERE run_id = ?`,
			db.clock.Now().UnixNano(), events, d.Milliseconds(), runID,
		)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil
	})
}

const runColumns = `run_id, created_at, finished_at, version, model, signal, data, generator,
	seed, workers, events_requested, events, world_size_z_mm, duration_ms`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(s scanner) (*Run, error) {
	var r Run
	var finished sql.NullInt64
	var seed string
	if err := s.Scan(
		&r.RunID, &r.CreatedAt, &finished, &r.Version, &r.Model, &r.Signal, &r.Data, &r.Generator,
		&seed, &r.Workers, &r.EventsRequested, &r.Events, &r.WorldSizeZMM, &r.DurationMS,
	); err != nil {
		return nil, err
	}
	if finished.Valid {
		r.FinishedAt = &finished.Int64
	}
	v, err := strconv.ParseUint(seed, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid stored seed %q: %w", seed, err)
	}
	r.Seed = v
	return &r, nil
}

// GetRun returns a single run by ID.
func (db *DB) GetRun(runID string) (*Run, error) {
	row := db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE run_id = ?`, runID)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return r, nil
}

// ListRuns returns the most recent runs, newest first.
func (db *DB) ListRuns(limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.Query(`SELECT `+runColumns+` FROM runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// WriteEvent stores one finished event and its generated-particle records in
// a single transaction. It satisfies run.RecordWriter.
func (db *DB) WriteEvent(runID string, rec run.EventRecord) error {
	return retryOnBusy(func() error {
		tx, err := db.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback()

		if _, err := tx.Exec(`
			INSERT INTO events (run_id, event_id, worker, num_vertices, num_primaries)
			VALUES (?, ?, ?, ?, ?)`,
			runID, rec.EventID, rec.Worker, rec.NumVertices, rec.NumPrimaries,
		); err != nil {
			return err
		}

		for i, p := range rec.GenParticles {
			if _, err := tx.Exec(`
				INSERT INTO gen_particles (run_id, event_id, idx, vertex_ke_gev, x_mm, y_mm, z_mm, pdgid)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				runID, rec.EventID, i, p.VertexKE, p.VertexPos.X, p.VertexPos.Y, p.VertexPos.Z, p.PDGID,
			); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
}

// GenParticles returns the stored records of a run ordered by event id.
// A non-positive limit returns every record.
func (db *DB) GenParticles(runID string, limit int) ([]GenParticleRow, error) {
	query := `
		SELECT event_id, vertex_ke_gev, x_mm, y_mm, z_mm, pdgid
		FROM gen_particles
		WHERE run_id = ?
		ORDER BY event_id, idx`
	args := []interface{}{runID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query gen particles: %w", err)
	}
	defer rows.Close()

	var out []GenParticleRow
	for rows.Next() {
		var row GenParticleRow
		var pos r3.Vec
		if err := rows.Scan(&row.EventID, &row.VertexKE, &pos.X, &pos.Y, &pos.Z, &row.PDGID); err != nil {
			return nil, err
		}
		row.VertexPos = pos
		out = append(out, row)
	}
	return out, rows.Err()
}

// VertexStats computes vertex position statistics for a run.
func (db *DB) VertexStats(runID string) (*VertexStats, error) {
	var s VertexStats
	var minX, maxX, meanX, minY, maxY, meanY, minZ, maxZ sql.NullFloat64
	err := db.QueryRow(`
		SELECT COUNT(*),
		       MIN(x_mm), MAX(x_mm), AVG(x_mm),
		       MIN(y_mm), MAX(y_mm), AVG(y_mm),
		       MIN(z_mm), MAX(z_mm)
		FROM gen_particles
		WHERE run_id = ?`, runID,
	).Scan(&s.Count, &minX, &maxX, &meanX, &minY, &maxY, &meanY, &minZ, &maxZ)
	if err != nil {
		return nil, fmt.Errorf("vertex stats: %w", err)
	}
	s.MinX, s.MaxX, s.MeanX = minX.Float64, maxX.Float64, meanX.Float64
	s.MinY, s.MaxY, s.MeanY = minY.Float64, maxY.Float64, meanY.Float64
	s.MinZ, s.MaxZ = minZ.Float64, maxZ.Float64
	return &s, nil
}
