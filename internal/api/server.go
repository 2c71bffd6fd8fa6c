// Package api serves the game over HTTP. GET endpoints are read-only; POST
// endpoints mutate the game state and optionally require a bearer token.
// Relationship and character records are mutated in place across many small
// steps inside one month run, so every mutating call is serialized behind a
// single mutex; the state has exactly one logical writer.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mip30/gochi-simulator/internal/engine"
	"github.com/mip30/gochi-simulator/internal/narrative"
	"github.com/mip30/gochi-simulator/internal/persistence"
	"github.com/mip30/gochi-simulator/internal/sim"
)

// Server serves one game session over HTTP.
type Server struct {
	Engine    *engine.Engine
	Narrative *narrative.Client
	DB        *persistence.DB
	Port      int
	AdminKey  string // Bearer token for POST endpoints. Empty = no auth.

	mu    sync.Mutex
	state *sim.GameState
}

// NewServer wires a server around an existing game state.
func NewServer(state *sim.GameState, eng *engine.Engine) *Server {
	return &Server{Engine: eng, state: state}
}

// State returns the current game state. Callers must not mutate it.
func (s *Server) State() *sim.GameState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Read-only.
	mux.HandleFunc("/api/v1/state", s.handleState)
	mux.HandleFunc("/api/v1/log", s.handleLog)

	// Mutating.
	mux.HandleFunc("/api/v1/advance", s.adminOnly(s.handleAdvance))
	mux.HandleFunc("/api/v1/choice", s.adminOnly(s.handleChoice))
	mux.HandleFunc("/api/v1/characters", s.adminOnly(s.handleCharacters))
	mux.HandleFunc("/api/v1/characters/remove", s.adminOnly(s.handleRemoveCharacter))
	mux.HandleFunc("/api/v1/preset", s.adminOnly(s.handlePreset))
	mux.HandleFunc("/api/v1/save", s.adminOnly(s.handleSave))
	mux.HandleFunc("/api/v1/new", s.adminOnly(s.handleNewGame))
	mux.HandleFunc("/api/v1/log/clear", s.adminOnly(s.handleClearLog))

	return corsMiddleware(mux)
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	addr := fmt.Sprintf(":%d", s.Port)
	slog.Info("HTTP API starting", "addr", addr, "auth", s.AdminKey != "")
	go func() {
		if err := http.ListenAndServe(addr, s.Handler()); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// ── Read endpoints ───────────────────────────────────────────────────

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	// The log is served separately; strip it from the snapshot.
	snapshot := *s.state
	snapshot.Log = nil
	writeJSON(w, map[string]any{
		"state": &snapshot,
		"time":  sim.MonthToYearMonth(s.state.MonthIndex),
	})
}

func (s *Server) handleLog(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	log := s.state.Log
	if len(log) > limit {
		log = log[len(log)-limit:]
	}
	writeJSON(w, log)
}

// ── Mutating endpoints ───────────────────────────────────────────────

type advanceRequest struct {
	Schedules map[sim.CharID]sim.Activity `json:"schedules"`
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	var req advanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	result := s.Engine.RunOneMonth(s.state, req.Schedules)
	game := s.state
	var snap *narrative.Snapshot
	if s.state.Settings.UseNarrative && s.Narrative.Enabled() {
		// The snapshot is taken here, while the lock is held; the fetch
		// goroutine must never read the live state.
		snap = narrative.NewSnapshot(s.state, req.Schedules)
	}
	rosterSize := len(s.state.Characters)
	s.persistLocked()
	s.mu.Unlock()

	// Narrative enrichment runs after the month is already committed; its
	// failure or slowness can never revert or delay the advance.
	if snap != nil {
		go s.enrich(game, snap, narrative.BatchSize(rosterSize))
	}

	writeJSON(w, map[string]any{
		"new_entries":      result.NewLogEntries,
		"next_month_index": result.NextMonthIndex,
		"next_money":       result.NextMoney,
	})
}

// enrich fetches narrative cards against a snapshot and appends whatever
// came back. game is the state the snapshot was taken from; if a new game
// has replaced it by the time the cards arrive, they are dropped.
func (s *Server) enrich(game *sim.GameState, snap *narrative.Snapshot, n int) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	cards := s.Narrative.FetchCards(ctx, snap, n)
	if len(cards) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != game {
		slog.Info("narrative cards dropped for a replaced game", "count", len(cards))
		return
	}
	engine.AppendEntries(s.state, cards)
	s.persistLocked()
	slog.Info("narrative cards appended", "count", len(cards))
}

type choiceRequest struct {
	EntryID string `json:"entry_id"`
	Tag     string `json:"tag"`
}

func (s *Server) handleChoice(w http.ResponseWriter, r *http.Request) {
	var req choiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.state.Entry(req.EntryID)
	if entry == nil {
		http.Error(w, "log entry not found", http.StatusNotFound)
		return
	}
	if err := s.Engine.ApplyChoice(s.state, entry, req.Tag); err != nil {
		switch err {
		case engine.ErrChoiceAlreadyMade:
			http.Error(w, err.Error(), http.StatusConflict)
		case engine.ErrNoChoices, engine.ErrUnknownChoiceTag:
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}
	s.persistLocked()
	writeJSON(w, map[string]any{"applied": req.Tag, "entry_id": req.EntryID})
}

type characterRequest struct {
	ID         sim.CharID `json:"id,omitempty"`
	Name       string     `json:"name"`
	BirthMonth int        `json:"birth_month"`
	BirthDay   int        `json:"birth_day"`
	MBTI       string     `json:"mbti"`
}

// handleCharacters adds a character when no id is given, otherwise updates
// the named character's setup fields.
func (s *Server) handleCharacters(w http.ResponseWriter, r *http.Request) {
	var req characterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if req.ID == "" {
		name := req.Name
		if name == "" {
			name = fmt.Sprintf("Character %d", len(s.state.Characters)+1)
		}
		c := sim.NewCharacter(name, req.BirthMonth, req.BirthDay, req.MBTI)
		if err := s.state.AddCharacter(c); err != nil {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		s.persistLocked()
		writeJSON(w, c)
		return
	}

	if !s.state.SetupUnlocked {
		http.Error(w, sim.ErrSetupLocked.Error(), http.StatusConflict)
		return
	}
	c := s.state.Character(req.ID)
	if c == nil {
		http.Error(w, "character not found", http.StatusNotFound)
		return
	}
	if req.Name != "" {
		if len(req.Name) > 20 {
			req.Name = req.Name[:20]
		}
		c.Name = req.Name
	}
	if sim.ValidMBTI(req.MBTI) {
		c.MBTI = strings.ToUpper(req.MBTI)
	}
	if req.BirthMonth != 0 || req.BirthDay != 0 {
		month, day := c.Birthday.Month, c.Birthday.Day
		if req.BirthMonth != 0 {
			month = req.BirthMonth
		}
		if req.BirthDay != 0 {
			day = req.BirthDay
		}
		c.SetBirthday(month, day)
	}
	s.persistLocked()
	writeJSON(w, c)
}

func (s *Server) handleRemoveCharacter(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID sim.CharID `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.state.RemoveCharacter(req.ID); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	s.persistLocked()
	writeJSON(w, map[string]any{"removed": req.ID})
}

type presetRequest struct {
	From   sim.CharID `json:"from"`
	To     sim.CharID `json:"to"`
	Preset sim.Preset `json:"preset"`
}

func (s *Server) handlePreset(w http.ResponseWriter, r *http.Request) {
	var req presetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if !sim.ValidPreset(req.Preset) {
		http.Error(w, "unknown preset", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.state.SetupUnlocked {
		http.Error(w, sim.ErrSetupLocked.Error(), http.StatusConflict)
		return
	}
	s.state.EnsureRelations()
	rel, ok := s.state.Relations[sim.RelationKey{From: req.From, To: req.To}]
	if !ok {
		http.Error(w, "relation not found", http.StatusNotFound)
		return
	}
	rel.SetPreset(req.Preset)
	s.persistLocked()
	writeJSON(w, rel)
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.persistLocked(); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"saved": true})
}

func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	settings := s.state.Settings
	s.state = sim.NewGameState()
	s.state.Settings = settings
	s.persistLocked()
	writeJSON(w, map[string]any{"new_game": true})
}

func (s *Server) handleClearLog(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.ClearLog()
	s.persistLocked()
	writeJSON(w, map[string]any{"cleared": true})
}

// persistLocked saves the state if a database is wired. Caller holds mu.
func (s *Server) persistLocked() error {
	if s.DB == nil {
		return nil
	}
	if err := s.DB.SaveGameState(s.state); err != nil {
		slog.Error("save failed", "error", err)
		return err
	}
	return nil
}

// ── Middleware and helpers ───────────────────────────────────────────

// adminOnly wraps a handler to require bearer token auth on POST requests
// when an admin key is configured. Non-POST requests are rejected outright.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if s.AdminKey != "" && !s.checkBearerToken(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
