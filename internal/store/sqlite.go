// Package store keeps the history of training runs in SQLite: one row per
// run, one per evaluated generation and one per champion saved.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/baldhumanity/neat-flappy/internal/telemetry"
)

// Run statuses.
const (
	StatusRunning     = "running"
	StatusSolved      = "solved"
	StatusFinished    = "finished"
	StatusInterrupted = "interrupted"
	StatusFailed      = "failed"
)

// Run is one invocation of the trainer.
type Run struct {
	ID          string
	StartedAt   time.Time
	FinishedAt  time.Time // zero while running
	Status      string
	Seed        int64
	PopSize     int
	Generations int     // generations evaluated
	BestFitness float64 // best fitness seen
	Settings    string  // YAML snapshot
}

// Champion is the best genome of a run at some generation.
type Champion struct {
	RunID      string
	Generation int
	GenomeKey  int
	Fitness    float64
	Nodes      int
	Conns      int
	Genome     string // human readable genome dump
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// SQLiteStore persists runs in a SQLite database file.
type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

// NewSQLiteStore creates a store for the database at path. Call Init before use.
func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

// Init opens the database and creates missing tables.
func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return fmt.Errorf("open %s: %w", s.path, err)
	}
	// One writer; SQLite serialises them anyway.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("ping %s: %w", s.path, err)
	}
	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return fmt.Errorf("create tables: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("store is not initialized")
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			seed INTEGER NOT NULL,
			pop_size INTEGER NOT NULL,
			generations INTEGER NOT NULL DEFAULT 0,
			best_fitness REAL NOT NULL DEFAULT 0,
			settings TEXT NOT NULL DEFAULT ''
		);
		CREATE TABLE IF NOT EXISTS generations (
			run_id TEXT NOT NULL,
			generation INTEGER NOT NULL,
			pop_size INTEGER NOT NULL,
			species INTEGER NOT NULL,
			fitness_best REAL NOT NULL,
			fitness_mean REAL NOT NULL,
			fitness_stdev REAL NOT NULL,
			fitness_median REAL NOT NULL,
			fitness_p90 REAL NOT NULL,
			best_genome INTEGER NOT NULL,
			best_nodes INTEGER NOT NULL,
			best_conns INTEGER NOT NULL,
			best_species INTEGER NOT NULL,
			score INTEGER NOT NULL,
			ticks INTEGER NOT NULL,
			survivors INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL,
			PRIMARY KEY (run_id, generation)
		);
		CREATE TABLE IF NOT EXISTS champions (
			run_id TEXT NOT NULL,
			generation INTEGER NOT NULL,
			genome_key INTEGER NOT NULL,
			fitness REAL NOT NULL,
			nodes INTEGER NOT NULL,
			conns INTEGER NOT NULL,
			genome TEXT NOT NULL,
			PRIMARY KEY (run_id, generation)
		);
	`)
	return err
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

// StartRun inserts a run in the running state.
func (s *SQLiteStore) StartRun(ctx context.Context, run Run) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	if run.Status == "" {
		run.Status = StatusRunning
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, status, seed, pop_size, settings)
		VALUES (?, ?, ?, ?, ?, ?)
	`, run.ID, formatTime(run.StartedAt), run.Status, run.Seed, run.PopSize, run.Settings)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}
	return nil
}

// FinishRun records how a run ended.
func (s *SQLiteStore) FinishRun(ctx context.Context, id, status string, generations int, bestFitness float64) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	res, err := db.ExecContext(ctx, `
		UPDATE runs SET finished_at = ?, status = ?, generations = ?, best_fitness = ?
		WHERE id = ?
	`, formatTime(time.Now()), status, generations, bestFitness, id)
	if err != nil {
		return fmt.Errorf("update run %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("run %s not found", id)
	}
	return nil
}

// GetRun loads a run by id.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (Run, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return Run{}, false, err
	}

	var (
		run               Run
		started, finished string
	)
	err = db.QueryRowContext(ctx, `
		SELECT id, started_at, finished_at, status, seed, pop_size, generations, best_fitness, settings
		FROM runs WHERE id = ?
	`, id).Scan(&run.ID, &started, &finished, &run.Status, &run.Seed, &run.PopSize,
		&run.Generations, &run.BestFitness, &run.Settings)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, false, nil
		}
		return Run{}, false, err
	}
	if run.StartedAt, err = parseTime(started); err != nil {
		return Run{}, false, fmt.Errorf("run %s started_at: %w", id, err)
	}
	if run.FinishedAt, err = parseTime(finished); err != nil {
		return Run{}, false, fmt.Errorf("run %s finished_at: %w", id, err)
	}
	return run, true, nil
}

// RecordGeneration implements telemetry.Sink.
func (s *SQLiteStore) RecordGeneration(stats telemetry.GenerationStats) error {
	return s.SaveGeneration(context.Background(), stats)
}

// SaveGeneration upserts one generation row.
func (s *SQLiteStore) SaveGeneration(ctx context.Context, g telemetry.GenerationStats) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO generations (
			run_id, generation, pop_size, species,
			fitness_best, fitness_mean, fitness_stdev, fitness_median, fitness_p90,
			best_genome, best_nodes, best_conns, best_species,
			score, ticks, survivors, duration_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, generation) DO UPDATE SET
			pop_size = excluded.pop_size,
			species = excluded.species,
			fitness_best = excluded.fitness_best,
			fitness_mean = excluded.fitness_mean,
			fitness_stdev = excluded.fitness_stdev,
			fitness_median = excluded.fitness_median,
			fitness_p90 = excluded.fitness_p90,
			best_genome = excluded.best_genome,
			best_nodes = excluded.best_nodes,
			best_conns = excluded.best_conns,
			best_species = excluded.best_species,
			score = excluded.score,
			ticks = excluded.ticks,
			survivors = excluded.survivors,
			duration_ms = excluded.duration_ms
	`, g.RunID, g.Generation, g.PopSize, g.Species,
		g.FitnessBest, g.FitnessMean, g.FitnessStdev, g.FitnessMedian, g.FitnessP90,
		g.BestGenome, g.BestNodes, g.BestConns, g.BestSpecies,
		g.Score, g.Ticks, g.Survivors, g.DurationMS)
	if err != nil {
		return fmt.Errorf("save generation %d of run %s: %w", g.Generation, g.RunID, err)
	}
	return nil
}

// Generations returns the generation rows of a run in order.
func (s *SQLiteStore) Generations(ctx context.Context, runID string) ([]telemetry.GenerationStats, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `
		SELECT run_id, generation, pop_size, species,
			fitness_best, fitness_mean, fitness_stdev, fitness_median, fitness_p90,
			best_genome, best_nodes, best_conns, best_species,
			score, ticks, survivors, duration_ms
		FROM generations WHERE run_id = ? ORDER BY generation
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []telemetry.GenerationStats
	for rows.Next() {
		var g telemetry.GenerationStats
		if err := rows.Scan(&g.RunID, &g.Generation, &g.PopSize, &g.Species,
			&g.FitnessBest, &g.FitnessMean, &g.FitnessStdev, &g.FitnessMedian, &g.FitnessP90,
			&g.BestGenome, &g.BestNodes, &g.BestConns, &g.BestSpecies,
			&g.Score, &g.Ticks, &g.Survivors, &g.DurationMS); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// SaveChampion upserts the champion of a generation.
func (s *SQLiteStore) SaveChampion(ctx context.Context, c Champion) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO champions (run_id, generation, genome_key, fitness, nodes, conns, genome)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, generation) DO UPDATE SET
			genome_key = excluded.genome_key,
			fitness = excluded.fitness,
			nodes = excluded.nodes,
			conns = excluded.conns,
			genome = excluded.genome
	`, c.RunID, c.Generation, c.GenomeKey, c.Fitness, c.Nodes, c.Conns, c.Genome)
	if err != nil {
		return fmt.Errorf("save champion of run %s: %w", c.RunID, err)
	}
	return nil
}

// BestChampion returns the fittest champion recorded for a run.
func (s *SQLiteStore) BestChampion(ctx context.Context, runID string) (Champion, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return Champion{}, false, err
	}
	var c Champion
	err = db.QueryRowContext(ctx, `
		SELECT run_id, generation, genome_key, fitness, nodes, conns, genome
		FROM champions WHERE run_id = ?
		ORDER BY fitness DESC, generation ASC LIMIT 1
	`, runID).Scan(&c.RunID, &c.Generation, &c.GenomeKey, &c.Fitness, &c.Nodes, &c.Conns, &c.Genome)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Champion{}, false, nil
		}
		return Champion{}, false, err
	}
	return c, true, nil
}

var _ telemetry.Sink = (*SQLiteStore)(nil)
