package narrative

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mip30/gochi-simulator/internal/sim"
)

func TestNewClientDisabled(t *testing.T) {
	c := NewClient("")
	if c != nil {
		t.Fatal("empty url should yield a nil client")
	}
	if c.Enabled() {
		t.Fatal("nil client reports enabled")
	}
	if got := c.FetchCards(context.Background(), NewSnapshot(sim.NewGameState(), nil), 3); got != nil {
		t.Fatalf("disabled client returned %d cards", len(got))
	}
}

func TestNewSnapshotDetachedFromState(t *testing.T) {
	state := sim.NewGameState()
	b := sim.NewCharacter("Bo", 6, 15, "ENFP")
	if err := state.AddCharacter(b); err != nil {
		t.Fatalf("add character: %v", err)
	}
	a := state.Characters[0]
	key := sim.RelationKey{From: a.ID, To: b.ID}
	state.Relations[key].Trust = 30

	snap := NewSnapshot(state, map[sim.CharID]sim.Activity{a.ID: sim.ActivityStudy})

	// Later writes to the state must not show through the snapshot.
	state.Money = 999
	a.Stats.Stress = 77
	state.Relations[key].Trust = 5

	if snap.Money != 100 {
		t.Fatalf("snapshot money = %d, want 100", snap.Money)
	}
	for _, cs := range snap.Characters {
		if cs.ID == a.ID {
			if cs.Stats.Stress != 10 {
				t.Fatalf("snapshot stress = %d, want 10", cs.Stats.Stress)
			}
			if cs.Schedule != sim.ActivityStudy {
				t.Fatalf("snapshot schedule = %s, want study", cs.Schedule)
			}
		}
		if cs.ID == b.ID && cs.Schedule != sim.ActivityRest {
			t.Fatalf("missing schedule should fall back to rest, got %s", cs.Schedule)
		}
	}
	for _, rs := range snap.Relations {
		if rs.From == a.ID && rs.To == b.ID && rs.Trust != 30 {
			t.Fatalf("snapshot trust = %d, want 30", rs.Trust)
		}
	}
}

func TestBatchSize(t *testing.T) {
	tests := []struct {
		roster int
		want   int
	}{
		{1, 4},
		{2, 5},
		{3, 6},
		{4, 6},
	}
	for _, tt := range tests {
		if got := BatchSize(tt.roster); got != tt.want {
			t.Fatalf("BatchSize(%d) = %d, want %d", tt.roster, got, tt.want)
		}
	}
}

func TestFetchCardsSuccess(t *testing.T) {
	var gotReq request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(card{
			ID:        "gen_1",
			Title:     "The Long Way Home",
			Narration: "They take the detour on purpose.",
			Dialogues: []sim.Dialogue{{Speaker: "Aria", Line: "Five more minutes."}},
			Choices: []sim.Choice{
				{Tag: "A", Label: "a"},
				{Tag: "B", Label: "b"},
				{Tag: "C", Label: "c"},
			},
		})
	}))
	defer srv.Close()

	state := sim.NewGameState()
	state.Characters[0].Name = "Aria"
	state.MonthIndex = 13

	c := NewClient(srv.URL)
	snap := NewSnapshot(state, map[sim.CharID]sim.Activity{
		state.Characters[0].ID: sim.ActivityArt,
	})
	entries := c.FetchCards(context.Background(), snap, 2)

	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	e := entries[0]
	if e.ID != "gen_1" || e.Category != sim.CategoryHighlight {
		t.Fatalf("entry mangled: %+v", e)
	}
	if e.Stamp != (sim.YearMonth{Year: 2, Month: 2}) {
		t.Fatalf("stamp = %+v, want year 2 month 2", e.Stamp)
	}
	if e.Meta.Source != "ai" {
		t.Fatalf("source = %q, want ai", e.Meta.Source)
	}
	if len(e.Choices) != 3 {
		t.Fatalf("choices = %d, want 3", len(e.Choices))
	}

	if gotReq.Kind != "event" || gotReq.Year != 2 || gotReq.Month != 2 {
		t.Fatalf("request payload mangled: %+v", gotReq)
	}
	if len(gotReq.Characters) != 1 || gotReq.Characters[0].Schedule != sim.ActivityArt {
		t.Fatalf("character snapshot mangled: %+v", gotReq.Characters)
	}
}

func TestFetchCardsServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	entries := c.FetchCards(context.Background(), NewSnapshot(sim.NewGameState(), nil), 3)
	if len(entries) != 0 {
		t.Fatalf("failing service produced %d entries, want 0", len(entries))
	}
}

func TestFetchCardsMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json at all"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	entries := c.FetchCards(context.Background(), NewSnapshot(sim.NewGameState(), nil), 2)
	if len(entries) != 0 {
		t.Fatalf("malformed body produced %d entries, want 0", len(entries))
	}
}

func TestFetchCardsPartialFailure(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			http.Error(w, "hiccup", http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(card{Title: "Recovered"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	entries := c.FetchCards(context.Background(), NewSnapshot(sim.NewGameState(), nil), 3)
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2 (first call fails)", len(entries))
	}
}

func TestToEntryNormalization(t *testing.T) {
	ym := sim.YearMonth{Year: 1, Month: 3}

	t.Run("missing id and title", func(t *testing.T) {
		e := toEntry(card{}, ym)
		if e.ID == "" {
			t.Fatal("blank id not replaced")
		}
		if e.Title == "" {
			t.Fatal("blank title not replaced")
		}
	})

	t.Run("wrong choice count dropped", func(t *testing.T) {
		e := toEntry(card{Choices: []sim.Choice{{Tag: "A"}, {Tag: "B"}}}, ym)
		if e.Choices != nil {
			t.Fatalf("two-choice card kept its choices: %+v", e.Choices)
		}
		if e.HasChoices() {
			t.Fatal("normalized card still reports choices")
		}
	})
}
