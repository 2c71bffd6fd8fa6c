// Command gochi-sim runs the raising-simulation session server.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/dustin/go-humanize"

	"github.com/mip30/gochi-simulator/internal/api"
	"github.com/mip30/gochi-simulator/internal/config"
	"github.com/mip30/gochi-simulator/internal/engine"
	"github.com/mip30/gochi-simulator/internal/entropy"
	"github.com/mip30/gochi-simulator/internal/narrative"
	"github.com/mip30/gochi-simulator/internal/persistence"
	"github.com/mip30/gochi-simulator/internal/sim"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// ── Database ──────────────────────────────────────────────────────
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		slog.Error("failed to create database directory", "error", err)
		os.Exit(1)
	}
	db, err := persistence.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", cfg.DBPath)

	// ── Load or create game state ─────────────────────────────────────
	var state *sim.GameState
	if db.HasGameState() {
		state, err = db.LoadGameState()
		if err != nil {
			slog.Error("failed to load game state", "error", err)
			os.Exit(1)
		}
		ym := sim.MonthToYearMonth(state.MonthIndex)
		slog.Info("game restored",
			"characters", len(state.Characters),
			"year", ym.Year,
			"month", ym.Month,
			"money", humanize.Comma(int64(state.Money)),
			"log_entries", len(state.Log),
		)
	} else {
		state = sim.NewGameState()
		state.Settings.UseNarrative = cfg.UseNarrative
		state.Settings.ServiceURL = cfg.NarrativeURL
		if err := db.SaveGameState(state); err != nil {
			slog.Error("initial save failed", "error", err)
		}
		slog.Info("new game created", "money", humanize.Comma(int64(state.Money)))
	}

	// ── Engine ────────────────────────────────────────────────────────
	var rng entropy.Source
	if cfg.Seed != 0 {
		rng = entropy.NewSeeded(cfg.Seed)
		slog.Info("seeded random source", "seed", cfg.Seed)
	} else {
		rng = entropy.NewCrypto()
	}
	eng := engine.New(rng)

	// ── Narrative service ─────────────────────────────────────────────
	serviceURL := state.Settings.ServiceURL
	if serviceURL == "" {
		serviceURL = cfg.NarrativeURL
	}
	narrativeClient := narrative.NewClient(serviceURL)
	if narrativeClient.Enabled() {
		slog.Info("narrative service enabled", "url", serviceURL)
	} else {
		slog.Info("narrative service disabled")
	}

	// ── HTTP API ──────────────────────────────────────────────────────
	server := api.NewServer(state, eng)
	server.Narrative = narrativeClient
	server.DB = db
	server.Port = cfg.Port
	server.AdminKey = cfg.AdminKey
	if cfg.AdminKey == "" {
		slog.Warn("GOCHI_ADMIN_KEY not set; mutating endpoints are unauthenticated")
	}
	server.Start()

	ym := sim.MonthToYearMonth(state.MonthIndex)
	fmt.Printf("\nGochi simulator ready: %d character(s), year %d month %d.\n",
		len(state.Characters), ym.Year, ym.Month)
	fmt.Printf("API: http://localhost:%d/api/v1/state\n", cfg.Port)
	fmt.Println("Serving... (Ctrl+C to stop)")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("received signal, shutting down", "signal", sig)

	// Final save on shutdown.
	if err := db.SaveGameState(server.State()); err != nil {
		slog.Error("final save failed", "error", err)
	}
}
