// Package narrative provides the client for the optional remote
// generative-card service. The service is a pure enrichment: every failure
// (network, status, malformed body) degrades to zero cards and never blocks
// or reverts an already-computed month.
package narrative

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/mip30/gochi-simulator/internal/sim"
)

// relationSummaryCap bounds how many relationship records ride along in the
// request payload.
const relationSummaryCap = 12

// Client calls the remote narrative service.
type Client struct {
	url        string
	httpClient *http.Client
}

// NewClient creates a narrative client. Returns nil if url is empty
// (narrative features disabled).
func NewClient(url string) *Client {
	if url == "" {
		return nil
	}
	return &Client{
		url: url,
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
	}
}

// Enabled returns true if the client has an endpoint configured.
func (c *Client) Enabled() bool {
	return c != nil && c.url != ""
}

// CharacterSnapshot is the per-character slice of the request payload.
type CharacterSnapshot struct {
	ID       sim.CharID   `json:"id"`
	Name     string       `json:"name"`
	MBTI     string       `json:"mbti"`
	Zodiac   sim.Zodiac   `json:"zodiac"`
	Stats    sim.Stats    `json:"stats"`
	Schedule sim.Activity `json:"schedule"`
}

// RelationSummary flattens one directed record for the payload.
type RelationSummary struct {
	From     sim.CharID `json:"from"`
	To       sim.CharID `json:"to"`
	Stage    sim.Stage  `json:"stage"`
	Affinity int        `json:"affinity"`
	Trust    int        `json:"trust"`
	Tension  int        `json:"tension"`
	Romance  int        `json:"romance"`
}

// Snapshot carries a detached copy of everything the service payload needs.
// The game state has a single logical writer, so the copy must be taken
// while the caller holds the lock that guards the state; fetches then run
// against the snapshot and never touch live records.
type Snapshot struct {
	Year       int
	Month      int
	Money      int
	Characters []CharacterSnapshot
	Relations  []RelationSummary
}

// NewSnapshot copies the payload fields out of the state. The caller must
// hold the state's lock for the duration of this call.
func NewSnapshot(state *sim.GameState, schedules map[sim.CharID]sim.Activity) *Snapshot {
	ym := sim.MonthToYearMonth(state.MonthIndex)
	snap := &Snapshot{
		Year:  ym.Year,
		Month: ym.Month,
		Money: state.Money,
	}
	for _, ch := range state.Characters {
		schedule := schedules[ch.ID]
		if !sim.ValidActivity(schedule) {
			schedule = sim.ActivityRest
		}
		snap.Characters = append(snap.Characters, CharacterSnapshot{
			ID:       ch.ID,
			Name:     ch.Name,
			MBTI:     ch.MBTI,
			Zodiac:   ch.Zodiac,
			Stats:    ch.Stats,
			Schedule: schedule,
		})
	}
	for key, rel := range state.Relations {
		if len(snap.Relations) >= relationSummaryCap {
			break
		}
		snap.Relations = append(snap.Relations, RelationSummary{
			From:     key.From,
			To:       key.To,
			Stage:    rel.Stage,
			Affinity: rel.Affinity,
			Trust:    rel.Trust,
			Tension:  rel.Tension,
			Romance:  rel.Romance,
		})
	}
	return snap
}

// request is the service request body.
type request struct {
	Kind       string              `json:"kind"`
	Year       int                 `json:"year"`
	Month      int                 `json:"month"`
	Money      int                 `json:"money"`
	Characters []CharacterSnapshot `json:"characters"`
	Relations  []RelationSummary   `json:"relations"`
}

// card is the expected response shape.
type card struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Narration string         `json:"narration"`
	Dialogues []sim.Dialogue `json:"dialogues"`
	Choices   []sim.Choice   `json:"choices"`
	Meta      map[string]any `json:"meta"`
}

// BatchSize returns how many cards to request for a roster of the given size.
func BatchSize(rosterSize int) int {
	extra := rosterSize
	if extra > 3 {
		extra = 3
	}
	return 3 + extra
}

// FetchCards requests up to n cards and converts the successes into log
// entries. Failed requests are skipped; the returned slice may be empty but
// is never an error.
func (c *Client) FetchCards(ctx context.Context, snap *Snapshot, n int) []*sim.LogEntry {
	if !c.Enabled() || snap == nil {
		return nil
	}
	var out []*sim.LogEntry
	for i := 0; i < n; i++ {
		entry, err := c.fetchOne(ctx, snap)
		if err != nil {
			slog.Debug("narrative fetch failed", "error", err)
			continue
		}
		if entry != nil {
			out = append(out, entry)
		}
	}
	return out
}

func (c *Client) fetchOne(ctx context.Context, snap *Snapshot) (*sim.LogEntry, error) {
	payload := request{
		Kind:       "event",
		Year:       snap.Year,
		Month:      snap.Month,
		Money:      snap.Money,
		Characters: snap.Characters,
		Relations:  snap.Relations,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("service call: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("service error %d: %s", resp.StatusCode, string(respBody))
	}

	var cd card
	if err := json.Unmarshal(respBody, &cd); err != nil {
		return nil, fmt.Errorf("unmarshal card: %w", err)
	}
	return toEntry(cd, sim.YearMonth{Year: snap.Year, Month: snap.Month}), nil
}

// toEntry converts a service card into a log entry. Cards are appended to the
// log unmodified apart from id/shape normalization; the choice contract (zero
// or exactly three) is enforced here.
func toEntry(cd card, ym sim.YearMonth) *sim.LogEntry {
	id := cd.ID
	if id == "" {
		id = "ai_" + uuid.NewString()
	}
	title := cd.Title
	if title == "" {
		title = "A Moment Worth Keeping"
	}
	choices := cd.Choices
	if len(choices) != 3 {
		choices = nil
	}
	return &sim.LogEntry{
		ID:        id,
		Category:  sim.CategoryHighlight,
		Stamp:     ym,
		Title:     title,
		Narration: cd.Narration,
		Dialogues: cd.Dialogues,
		Choices:   choices,
		Meta:      sim.Meta{Kind: sim.KindPersonal, Source: "ai"},
	}
}
