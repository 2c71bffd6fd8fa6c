// Package persistence provides SQLite-based game state storage. A save is a
// full transactional replace; loading re-derives zodiac tags from stored
// birthdays rather than trusting a possibly-stale stored value.
package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/mip30/gochi-simulator/internal/sim"
)

// DB wraps a SQLite connection for game state persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS characters (
		id TEXT PRIMARY KEY,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		birth_month INTEGER NOT NULL,
		birth_day INTEGER NOT NULL,
		mbti TEXT NOT NULL,
		zodiac TEXT NOT NULL,
		stats_json TEXT NOT NULL,
		skills_json TEXT NOT NULL,
		flags_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS relations (
		from_id TEXT NOT NULL,
		to_id TEXT NOT NULL,
		preset TEXT NOT NULL,
		stage TEXT NOT NULL,
		affinity INTEGER NOT NULL,
		trust INTEGER NOT NULL,
		tension INTEGER NOT NULL,
		romance INTEGER NOT NULL,
		PRIMARY KEY (from_id, to_id)
	);

	CREATE TABLE IF NOT EXISTS log_entries (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		category TEXT NOT NULL,
		year INTEGER NOT NULL,
		month INTEGER NOT NULL,
		title TEXT NOT NULL,
		narration TEXT NOT NULL,
		dialogues_json TEXT NOT NULL,
		choices_json TEXT NOT NULL,
		choice_made TEXT NOT NULL DEFAULT '',
		meta_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS game_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// HasGameState reports whether a save exists in the database.
func (db *DB) HasGameState() bool {
	var count int
	if err := db.conn.Get(&count, "SELECT COUNT(*) FROM characters"); err != nil {
		return false
	}
	return count > 0
}

// SaveGameState performs a full replace of the stored game.
func (db *DB) SaveGameState(state *sim.GameState) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"characters", "relations", "log_entries"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return err
		}
	}

	for i, c := range state.Characters {
		statsJSON, _ := json.Marshal(c.Stats)
		skillsJSON, _ := json.Marshal(c.Skills)
		flagsJSON, _ := json.Marshal(c.Flags)

		_, err := tx.Exec(`INSERT INTO characters
			(id, position, name, birth_month, birth_day, mbti, zodiac,
			 stats_json, skills_json, flags_json)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, i, c.Name, c.Birthday.Month, c.Birthday.Day, c.MBTI, c.Zodiac,
			string(statsJSON), string(skillsJSON), string(flagsJSON),
		)
		if err != nil {
			return fmt.Errorf("insert character %s: %w", c.ID, err)
		}
	}

	for key, rel := range state.Relations {
		_, err := tx.Exec(`INSERT INTO relations
			(from_id, to_id, preset, stage, affinity, trust, tension, romance)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			key.From, key.To, rel.Preset, rel.Stage,
			rel.Affinity, rel.Trust, rel.Tension, rel.Romance,
		)
		if err != nil {
			return fmt.Errorf("insert relation %s->%s: %w", key.From, key.To, err)
		}
	}

	for _, e := range state.Log {
		dialoguesJSON, _ := json.Marshal(e.Dialogues)
		choicesJSON, _ := json.Marshal(e.Choices)
		metaJSON, _ := json.Marshal(e.Meta)

		_, err := tx.Exec(`INSERT INTO log_entries
			(id, category, year, month, title, narration,
			 dialogues_json, choices_json, choice_made, meta_json)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID, e.Category, e.Stamp.Year, e.Stamp.Month, e.Title, e.Narration,
			string(dialoguesJSON), string(choicesJSON), e.ChoiceMade, string(metaJSON),
		)
		if err != nil {
			return fmt.Errorf("insert log entry %s: %w", e.ID, err)
		}
	}

	settingsJSON, _ := json.Marshal(state.Settings)
	meta := map[string]string{
		"version":        strconv.Itoa(state.Version),
		"setup_unlocked": strconv.FormatBool(state.SetupUnlocked),
		"month_index":    strconv.Itoa(state.MonthIndex),
		"money":          strconv.Itoa(state.Money),
		"settings":       string(settingsJSON),
	}
	for k, v := range meta {
		if _, err := tx.Exec(
			"INSERT OR REPLACE INTO game_meta (key, value) VALUES (?, ?)", k, v,
		); err != nil {
			return fmt.Errorf("save meta %s: %w", k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	slog.Debug("game state saved",
		"characters", len(state.Characters),
		"relations", len(state.Relations),
		"log_entries", len(state.Log),
	)
	return nil
}

type characterRow struct {
	ID         string `db:"id"`
	Position   int    `db:"position"`
	Name       string `db:"name"`
	BirthMonth int    `db:"birth_month"`
	BirthDay   int    `db:"birth_day"`
	MBTI       string `db:"mbti"`
	Zodiac     string `db:"zodiac"`
	StatsJSON  string `db:"stats_json"`
	SkillsJSON string `db:"skills_json"`
	FlagsJSON  string `db:"flags_json"`
}

type relationRow struct {
	FromID   string `db:"from_id"`
	ToID     string `db:"to_id"`
	Preset   string `db:"preset"`
	Stage    string `db:"stage"`
	Affinity int    `db:"affinity"`
	Trust    int    `db:"trust"`
	Tension  int    `db:"tension"`
	Romance  int    `db:"romance"`
}

type logRow struct {
	ID            string `db:"id"`
	Category      string `db:"category"`
	Year          int    `db:"year"`
	Month         int    `db:"month"`
	Title         string `db:"title"`
	Narration     string `db:"narration"`
	DialoguesJSON string `db:"dialogues_json"`
	ChoicesJSON   string `db:"choices_json"`
	ChoiceMade    string `db:"choice_made"`
	MetaJSON      string `db:"meta_json"`
}

// LoadGameState reads the stored game back. The returned state has been
// normalized: zodiac re-derived, skill records completed, relations ensured.
func (db *DB) LoadGameState() (*sim.GameState, error) {
	state := &sim.GameState{Relations: make(sim.RelationMap)}

	var charRows []characterRow
	if err := db.conn.Select(&charRows,
		"SELECT * FROM characters ORDER BY position"); err != nil {
		return nil, fmt.Errorf("load characters: %w", err)
	}
	for _, row := range charRows {
		c := &sim.Character{
			ID:       sim.CharID(row.ID),
			Name:     row.Name,
			Birthday: sim.Birthday{Month: row.BirthMonth, Day: row.BirthDay},
			MBTI:     row.MBTI,
		}
		if err := json.Unmarshal([]byte(row.StatsJSON), &c.Stats); err != nil {
			return nil, fmt.Errorf("decode stats for %s: %w", row.ID, err)
		}
		if err := json.Unmarshal([]byte(row.SkillsJSON), &c.Skills); err != nil {
			return nil, fmt.Errorf("decode skills for %s: %w", row.ID, err)
		}
		if err := json.Unmarshal([]byte(row.FlagsJSON), &c.Flags); err != nil {
			return nil, fmt.Errorf("decode flags for %s: %w", row.ID, err)
		}
		state.Characters = append(state.Characters, c)
	}

	var relRows []relationRow
	if err := db.conn.Select(&relRows, "SELECT * FROM relations"); err != nil {
		return nil, fmt.Errorf("load relations: %w", err)
	}
	for _, row := range relRows {
		key := sim.RelationKey{From: sim.CharID(row.FromID), To: sim.CharID(row.ToID)}
		state.Relations[key] = &sim.Relation{
			Preset:   sim.Preset(row.Preset),
			Stage:    sim.Stage(row.Stage),
			Affinity: row.Affinity,
			Trust:    row.Trust,
			Tension:  row.Tension,
			Romance:  row.Romance,
		}
	}

	var logRows []logRow
	if err := db.conn.Select(&logRows,
		"SELECT id, category, year, month, title, narration, dialogues_json, choices_json, choice_made, meta_json FROM log_entries ORDER BY seq"); err != nil {
		return nil, fmt.Errorf("load log: %w", err)
	}
	for _, row := range logRows {
		e := &sim.LogEntry{
			ID:         row.ID,
			Category:   sim.Category(row.Category),
			Stamp:      sim.YearMonth{Year: row.Year, Month: row.Month},
			Title:      row.Title,
			Narration:  row.Narration,
			ChoiceMade: row.ChoiceMade,
		}
		if err := json.Unmarshal([]byte(row.DialoguesJSON), &e.Dialogues); err != nil {
			return nil, fmt.Errorf("decode dialogues for %s: %w", row.ID, err)
		}
		if err := json.Unmarshal([]byte(row.ChoicesJSON), &e.Choices); err != nil {
			return nil, fmt.Errorf("decode choices for %s: %w", row.ID, err)
		}
		if err := json.Unmarshal([]byte(row.MetaJSON), &e.Meta); err != nil {
			return nil, fmt.Errorf("decode meta for %s: %w", row.ID, err)
		}
		state.Log = append(state.Log, e)
	}

	state.Version = db.metaInt("version", sim.SaveVersion)
	state.MonthIndex = db.metaInt("month_index", 0)
	state.Money = db.metaInt("money", 0)
	state.SetupUnlocked = db.metaString("setup_unlocked", "false") == "true"
	if raw := db.metaString("settings", ""); raw != "" {
		if err := json.Unmarshal([]byte(raw), &state.Settings); err != nil {
			return nil, fmt.Errorf("decode settings: %w", err)
		}
	}

	state.Normalize()
	return state, nil
}

func (db *DB) metaString(key, fallback string) string {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM game_meta WHERE key = ?", key)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			slog.Debug("meta read failed", "key", key, "error", err)
		}
		return fallback
	}
	return value
}

func (db *DB) metaInt(key string, fallback int) int {
	raw := db.metaString(key, "")
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
