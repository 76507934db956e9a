// Command flappy evolves flappy bird players with NEAT and shows each
// generation flying in the terminal.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/baldhumanity/neat-flappy/internal/config"
	"github.com/baldhumanity/neat-flappy/internal/render"
	"github.com/baldhumanity/neat-flappy/internal/sim"
	"github.com/baldhumanity/neat-flappy/internal/store"
	"github.com/baldhumanity/neat-flappy/internal/telemetry"
	"github.com/baldhumanity/neat-flappy/internal/trainer"
	"github.com/baldhumanity/neat-flappy/neat"
)

const (
	exitOK          = 0
	exitFailure     = 1
	exitInterrupted = 130
)

func main() {
	os.Exit(run())
}

func run() int {
	settingsPath := flag.String("settings", "", "Path to run settings YAML (empty = built-in defaults)")
	neatPath := flag.String("neat-config", "", "Path to the NEAT ini file (overrides neat_config)")
	generations := flag.Int("generations", 0, "Maximum generations (0 = use settings)")
	headless := flag.Bool("headless", false, "Train without drawing and without tick throttling")
	seed := flag.Int64("seed", 0, "Pipe generator seed (0 = use settings)")
	maxTicks := flag.Int("max-ticks", -1, "Stop each episode after N ticks (0 = unlimited, -1 = use settings)")
	outputDir := flag.String("output-dir", "", "Directory for per-run CSV and settings output")
	dbPath := flag.String("db", "", "SQLite file for run history")
	resume := flag.String("resume", "", "Checkpoint file to resume from")
	drawLines := flag.Bool("draw-lines", false, "Draw guide lines from each bird to the gap it is aiming for")
	flag.Parse()

	settings, err := config.Load(*settingsPath)
	if err != nil {
		slog.Error("failed to load settings", "error", err)
		return exitFailure
	}
	if *neatPath != "" {
		settings.NEATConfig = *neatPath
	}
	if *generations > 0 {
		settings.Generations = *generations
	}
	if *headless {
		settings.Render.Mode = config.RenderNone
		settings.TickRate = 0
	}
	if *seed != 0 {
		settings.Seed = *seed
	}
	if *maxTicks >= 0 {
		settings.MaxTicks = *maxTicks
	}
	if *outputDir != "" {
		settings.Output.Dir = *outputDir
	}
	if *dbPath != "" {
		settings.Output.Database = *dbPath
	}
	if *resume != "" {
		settings.Checkpoint.Resume = *resume
	}
	if *drawLines {
		settings.Render.DrawLines = true
	}
	if err := settings.Validate(); err != nil {
		slog.Error("invalid settings", "error", err)
		return exitFailure
	}

	// The terminal renderer owns the screen, so logs and the NEAT report go to a file.
	var logOut, reportOut io.Writer = os.Stderr, os.Stdout
	if !settings.Headless() && settings.Log.File != "" {
		f, err := os.OpenFile(settings.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			slog.Error("failed to open log file", "path", settings.Log.File, "error", err)
			return exitFailure
		}
		defer f.Close()
		logOut, reportOut = f, f
	}
	logger, err := newLogger(settings.Log, logOut)
	if err != nil {
		slog.Error("failed to configure logging", "error", err)
		return exitFailure
	}
	slog.SetDefault(logger)

	neatConfig, err := neat.LoadConfig(settings.NEATConfig)
	if err != nil {
		logger.Error("failed to load NEAT config", "error", err)
		return exitFailure
	}
	if err := trainer.ValidateNEAT(neatConfig); err != nil {
		logger.Error("NEAT config cannot drive a bird", "path", settings.NEATConfig, "error", err)
		return exitFailure
	}

	runID := store.NewRunID()
	var sinks []telemetry.Sink

	outDir := ""
	if settings.Output.Dir != "" {
		outDir = filepath.Join(settings.Output.Dir, runID)
	}
	om, err := telemetry.NewOutputManager(outDir)
	if err != nil {
		logger.Error("failed to create output directory", "error", err)
		return exitFailure
	}
	defer om.Close()
	if om != nil {
		if err := om.WriteSettings(settings); err != nil {
			logger.Warn("settings snapshot not written", "error", err)
		}
		sinks = append(sinks, om)
	}

	var db *store.SQLiteStore
	if settings.Output.Database != "" {
		if dir := filepath.Dir(settings.Output.Database); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				logger.Error("failed to create database directory", "error", err)
				return exitFailure
			}
		}
		db = store.NewSQLiteStore(settings.Output.Database)
		if err := db.Init(context.Background()); err != nil {
			logger.Error("failed to open run database", "error", err)
			return exitFailure
		}
		defer db.Close()

		snapshot, err := settings.YAML()
		if err != nil {
			logger.Warn("settings snapshot not recorded", "error", err)
		}
		if err := db.StartRun(context.Background(), store.Run{
			ID:       runID,
			Seed:     settings.Seed,
			PopSize:  neatConfig.Neat.PopSize,
			Settings: snapshot,
		}); err != nil {
			logger.Warn("run not recorded", "error", err)
		}
		sinks = append(sinks, db)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var renderer sim.Renderer = render.Discard{}
	if !settings.Headless() {
		term, err := render.NewTerminal()
		if err != nil {
			logger.Error("failed to open terminal", "error", err)
			return exitFailure
		}
		go func() {
			select {
			case <-term.Quit():
				cancel()
			case <-ctx.Done():
			}
		}()
		renderer = term
	}
	simCtx := sim.NewContext(sim.Options{
		Renderer:  renderer,
		TickRate:  settings.TickRate,
		Seed:      settings.Seed,
		DrawLines: settings.Render.DrawLines,
		MaxTicks:  settings.MaxTicks,
	})

	recorder := telemetry.NewRecorder(runID, logger, sinks...)
	tr, err := trainer.New(settings, neatConfig, simCtx,
		trainer.WithLogger(logger),
		trainer.WithOutput(reportOut),
		trainer.WithRecorder(recorder),
	)
	if err != nil {
		_ = simCtx.Close()
		logger.Error("failed to set up training", "error", err)
		return exitFailure
	}

	logger.Info("training started",
		"run_id", runID,
		"generations", settings.Generations,
		"pop_size", neatConfig.Neat.PopSize,
		"seed", settings.Seed,
		"render", settings.Render.Mode,
	)
	outcome, runErr := tr.Run(ctx)
	if err := simCtx.Close(); err != nil {
		logger.Warn("renderer did not close cleanly", "error", err)
	}

	status, code := store.StatusFinished, exitOK
	switch {
	case runErr != nil && errors.Is(runErr, context.Canceled):
		status, code = store.StatusInterrupted, exitInterrupted
	case runErr != nil:
		status, code = store.StatusFailed, exitFailure
		logger.Error("training failed", "error", runErr)
	case outcome.Solved:
		status = store.StatusSolved
	}

	bestFitness := 0.0
	if best := outcome.Best; best != nil {
		bestFitness = best.Fitness
		fmt.Fprintf(reportOut, "\nBest genome:\n%s\n", best)
		if err := om.WriteChampion(best.String()); err != nil {
			logger.Warn("champion not written", "error", err)
		}
		if db != nil {
			nodes, conns := best.Size()
			if err := db.SaveChampion(context.Background(), store.Champion{
				RunID:      runID,
				Generation: tr.Population.Generation,
				GenomeKey:  best.Key,
				Fitness:    best.Fitness,
				Nodes:      nodes,
				Conns:      conns,
				Genome:     best.String(),
			}); err != nil {
				logger.Warn("champion not recorded", "error", err)
			}
		}
	}
	if db != nil {
		if err := db.FinishRun(context.Background(), runID, status, outcome.Generations, bestFitness); err != nil {
			logger.Warn("run status not recorded", "error", err)
		}
	}
	logger.Info("run complete", "run_id", runID, "status", status)
	return code
}

func newLogger(s config.LogSettings, w io.Writer) (*slog.Logger, error) {
	level, err := s.SlogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if s.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}
