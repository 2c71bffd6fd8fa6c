package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mip30/gochi-simulator/internal/engine"
	"github.com/mip30/gochi-simulator/internal/entropy"
	"github.com/mip30/gochi-simulator/internal/narrative"
	"github.com/mip30/gochi-simulator/internal/sim"
)

func newTestServer() *Server {
	state := sim.NewGameState()
	state.Characters[0].Name = "Aria"
	// Keep the birthday away from the early months the tests advance through.
	state.Characters[0].SetBirthday(9, 10)
	return NewServer(state, engine.New(entropy.NewSequence(0.99)))
}

func postJSON(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestStateEndpoint(t *testing.T) {
	s := newTestServer()
	h := s.Handler()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/state", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp struct {
		State *sim.GameState `json:"state"`
		Time  sim.YearMonth  `json:"time"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.State.Characters) != 1 || resp.State.Characters[0].Name != "Aria" {
		t.Fatalf("state snapshot mangled: %+v", resp.State)
	}
	if resp.Time != (sim.YearMonth{Year: 1, Month: 1}) {
		t.Fatalf("time = %+v, want year 1 month 1", resp.Time)
	}
	if resp.State.Log != nil {
		t.Fatal("state snapshot should not carry the log")
	}
}

func TestStateEndpointRejectsPost(t *testing.T) {
	s := newTestServer()
	rec := postJSON(t, s.Handler(), "/api/v1/state", map[string]any{})
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}

func TestAdvanceEndpoint(t *testing.T) {
	s := newTestServer()
	h := s.Handler()
	id := s.State().Characters[0].ID

	rec := postJSON(t, h, "/api/v1/advance", map[string]any{
		"schedules": map[sim.CharID]sim.Activity{id: sim.ActivityStudy},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		NewEntries     []*sim.LogEntry `json:"new_entries"`
		NextMonthIndex int             `json:"next_month_index"`
		NextMoney      int             `json:"next_money"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.NextMonthIndex != 1 {
		t.Fatalf("next month = %d, want 1", resp.NextMonthIndex)
	}
	if len(resp.NewEntries) == 0 {
		t.Fatal("advance produced no entries")
	}
	if s.State().MonthIndex != 1 {
		t.Fatalf("server state month = %d, want 1", s.State().MonthIndex)
	}
	if s.State().SetupUnlocked {
		t.Fatal("advance should lock setup")
	}
}

func TestChoiceEndpointConflictOnDoubleSubmit(t *testing.T) {
	s := newTestServer()
	h := s.Handler()
	id := s.State().Characters[0].ID

	// Advance once so the log holds a personal event with choices.
	if rec := postJSON(t, h, "/api/v1/advance", map[string]any{}); rec.Code != http.StatusOK {
		t.Fatalf("advance: %d", rec.Code)
	}
	var entryID string
	for _, e := range s.State().Log {
		if e.Meta.Kind == sim.KindPersonal && e.HasChoices() {
			entryID = e.ID
		}
	}
	if entryID == "" {
		t.Fatal("no personal entry with choices after advance")
	}

	rec := postJSON(t, h, "/api/v1/choice", choiceRequest{EntryID: entryID, Tag: "B"})
	if rec.Code != http.StatusOK {
		t.Fatalf("first choice: %d, body: %s", rec.Code, rec.Body.String())
	}
	if got := s.State().Character(id).Stats.Stress; got != 3 {
		t.Fatalf("stress = %d, want 3 (rest then choice B)", got)
	}

	rec = postJSON(t, h, "/api/v1/choice", choiceRequest{EntryID: entryID, Tag: "B"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("double submit: status = %d, want 409", rec.Code)
	}
	if got := s.State().Character(id).Stats.Stress; got != 3 {
		t.Fatalf("double submit mutated stress: %d", got)
	}
}

func TestChoiceEndpointErrors(t *testing.T) {
	s := newTestServer()
	h := s.Handler()

	rec := postJSON(t, h, "/api/v1/choice", choiceRequest{EntryID: "missing", Tag: "A"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing entry: status = %d, want 404", rec.Code)
	}

	if rec := postJSON(t, h, "/api/v1/advance", map[string]any{}); rec.Code != http.StatusOK {
		t.Fatalf("advance: %d", rec.Code)
	}
	var entryID string
	for _, e := range s.State().Log {
		if e.HasChoices() {
			entryID = e.ID
		}
	}
	rec = postJSON(t, h, "/api/v1/choice", choiceRequest{EntryID: entryID, Tag: "Q"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown tag: status = %d, want 400", rec.Code)
	}
}

func TestCharactersAddAndUpdate(t *testing.T) {
	s := newTestServer()
	h := s.Handler()

	rec := postJSON(t, h, "/api/v1/characters", characterRequest{
		Name: "Bo", BirthMonth: 6, BirthDay: 15, MBTI: "ENFP",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("add: status = %d, body: %s", rec.Code, rec.Body.String())
	}
	var added sim.Character
	if err := json.Unmarshal(rec.Body.Bytes(), &added); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if added.ID == "" || added.Zodiac != sim.ZodiacGemini {
		t.Fatalf("added character mangled: %+v", added)
	}
	if len(s.State().Relations) != 2 {
		t.Fatalf("relations = %d, want 2 after second character", len(s.State().Relations))
	}

	rec = postJSON(t, h, "/api/v1/characters", characterRequest{
		ID: added.ID, Name: "Bodhi", BirthMonth: 12, BirthDay: 25,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update: status = %d", rec.Code)
	}
	updated := s.State().Character(added.ID)
	if updated.Name != "Bodhi" || updated.Zodiac != sim.ZodiacCapricorn {
		t.Fatalf("update mangled: %+v", updated)
	}
}

func TestCharactersRosterFull(t *testing.T) {
	s := newTestServer()
	h := s.Handler()

	for i := 0; i < sim.MaxCharacters-1; i++ {
		if rec := postJSON(t, h, "/api/v1/characters", characterRequest{}); rec.Code != http.StatusOK {
			t.Fatalf("add %d: status = %d", i, rec.Code)
		}
	}
	rec := postJSON(t, h, "/api/v1/characters", characterRequest{})
	if rec.Code != http.StatusConflict {
		t.Fatalf("full roster: status = %d, want 409", rec.Code)
	}
}

func TestSetupLocksAfterAdvance(t *testing.T) {
	s := newTestServer()
	h := s.Handler()

	if rec := postJSON(t, h, "/api/v1/advance", map[string]any{}); rec.Code != http.StatusOK {
		t.Fatalf("advance: %d", rec.Code)
	}

	rec := postJSON(t, h, "/api/v1/characters", characterRequest{Name: "Late"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("add after lock: status = %d, want 409", rec.Code)
	}
	rec = postJSON(t, h, "/api/v1/characters/remove", map[string]any{
		"id": s.State().Characters[0].ID,
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("remove after lock: status = %d, want 409", rec.Code)
	}
}

func TestPresetEndpoint(t *testing.T) {
	s := newTestServer()
	h := s.Handler()

	if rec := postJSON(t, h, "/api/v1/characters", characterRequest{Name: "Bo"}); rec.Code != http.StatusOK {
		t.Fatalf("add: %d", rec.Code)
	}
	a, b := s.State().Characters[0], s.State().Characters[1]

	rec := postJSON(t, h, "/api/v1/preset", presetRequest{
		From: a.ID, To: b.ID, Preset: sim.PresetFamily,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("preset: status = %d, body: %s", rec.Code, rec.Body.String())
	}
	rel := s.State().Relations[sim.RelationKey{From: a.ID, To: b.ID}]
	if rel.Preset != sim.PresetFamily || rel.Stage != sim.StageFamily {
		t.Fatalf("preset not applied: %+v", rel)
	}

	rec = postJSON(t, h, "/api/v1/preset", presetRequest{
		From: a.ID, To: b.ID, Preset: "nemesis",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown preset: status = %d, want 400", rec.Code)
	}
}

func TestNewGamePreservesSettings(t *testing.T) {
	s := newTestServer()
	h := s.Handler()
	s.State().Settings = sim.Settings{UseNarrative: true, ServiceURL: "https://narrative.example"}
	oldID := s.State().Characters[0].ID

	if rec := postJSON(t, h, "/api/v1/new", map[string]any{}); rec.Code != http.StatusOK {
		t.Fatalf("new game: %d", rec.Code)
	}

	state := s.State()
	if state.Characters[0].ID == oldID {
		t.Fatal("new game kept the old roster")
	}
	if !state.Settings.UseNarrative || state.Settings.ServiceURL != "https://narrative.example" {
		t.Fatalf("settings lost: %+v", state.Settings)
	}
}

func TestClearLogEndpoint(t *testing.T) {
	s := newTestServer()
	h := s.Handler()

	if rec := postJSON(t, h, "/api/v1/advance", map[string]any{}); rec.Code != http.StatusOK {
		t.Fatalf("advance: %d", rec.Code)
	}
	if len(s.State().Log) == 0 {
		t.Fatal("no log to clear")
	}
	if rec := postJSON(t, h, "/api/v1/log/clear", map[string]any{}); rec.Code != http.StatusOK {
		t.Fatalf("clear: %d", rec.Code)
	}
	if len(s.State().Log) != 0 {
		t.Fatalf("log not cleared: %d entries", len(s.State().Log))
	}
}

func TestAdminKeyGuardsMutations(t *testing.T) {
	s := newTestServer()
	s.AdminKey = "sekrit"
	h := s.Handler()

	rec := postJSON(t, h, "/api/v1/advance", map[string]any{})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: status = %d, want 401", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/advance", bytes.NewReader([]byte("{}")))
	req.Header.Set("Authorization", "Bearer sekrit")
	rec2 := httptest.NewRecorder()
	h.ServeHTTP(rec2, req)
	if rec2.Code != http.StatusOK {
		t.Fatalf("with token: status = %d, want 200", rec2.Code)
	}

	// Reads stay open.
	getReq := httptest.NewRequest(http.MethodGet, "/api/v1/log", nil)
	rec3 := httptest.NewRecorder()
	h.ServeHTTP(rec3, getReq)
	if rec3.Code != http.StatusOK {
		t.Fatalf("read with auth enabled: status = %d, want 200", rec3.Code)
	}
}

// cardServer serves a minimal narrative card, optionally with a delay to
// keep fetches in flight while the test mutates the game state.
func cardServer(delay time.Duration) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(delay)
		json.NewEncoder(w).Encode(map[string]any{"title": "Window Light"})
	}))
}

func TestEnrichRunsOffTheLiveState(t *testing.T) {
	srv := cardServer(5 * time.Millisecond)
	defer srv.Close()

	s := newTestServer()
	s.Narrative = narrative.NewClient(srv.URL)

	s.mu.Lock()
	game := s.state
	snap := narrative.NewSnapshot(s.state, nil)
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.enrich(game, snap, 3)
	}()

	// Months keep advancing under the lock while the fetches are in
	// flight. The enrichment must only touch its snapshot until the final
	// append, so the race detector stays quiet here.
	for i := 0; i < 25; i++ {
		s.mu.Lock()
		s.Engine.RunOneMonth(s.state, nil)
		s.mu.Unlock()
	}
	<-done

	count := 0
	for _, e := range s.State().Log {
		if e.Meta.Source == "ai" {
			count++
		}
	}
	if count != 3 {
		t.Fatalf("got %d narrative entries, want 3", count)
	}
}

func TestEnrichDroppedAfterNewGame(t *testing.T) {
	srv := cardServer(0)
	defer srv.Close()

	s := newTestServer()
	s.Narrative = narrative.NewClient(srv.URL)
	h := s.Handler()

	s.mu.Lock()
	game := s.state
	snap := narrative.NewSnapshot(s.state, nil)
	s.mu.Unlock()

	if rec := postJSON(t, h, "/api/v1/new", map[string]any{}); rec.Code != http.StatusOK {
		t.Fatalf("new game: %d", rec.Code)
	}

	// The enrichment was started for the previous game; its cards must not
	// land in the fresh log.
	s.enrich(game, snap, 2)

	for _, e := range s.State().Log {
		if e.Meta.Source == "ai" {
			t.Fatal("stale narrative card appended to the new game")
		}
	}
}

func TestLogEndpointLimit(t *testing.T) {
	s := newTestServer()
	h := s.Handler()

	for i := 0; i < 3; i++ {
		if rec := postJSON(t, h, "/api/v1/advance", map[string]any{}); rec.Code != http.StatusOK {
			t.Fatalf("advance %d: %d", i, rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/log?limit=2", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var entries []*sim.LogEntry
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	total := s.State().Log
	if entries[1].ID != total[len(total)-1].ID {
		t.Fatal("limit did not keep the newest entries")
	}
}
