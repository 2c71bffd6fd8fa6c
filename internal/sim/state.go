package sim

import "errors"

// Roster and setup errors surfaced at the state boundary.
var (
	ErrRosterFull   = errors.New("roster is full")
	ErrLastChar     = errors.New("cannot remove the last character")
	ErrSetupLocked  = errors.New("setup is locked after the first month")
	ErrCharNotFound = errors.New("character not found")
)

// Settings is the configuration block carried inside the game state.
type Settings struct {
	// UseNarrative enables the optional remote narrative-card service.
	UseNarrative bool `json:"use_narrative"`
	// ServiceURL is the narrative service endpoint.
	ServiceURL string `json:"service_url,omitempty"`
}

// GameState is the single root owning the roster, the relationship map, the
// log and the month/money counters. All mutation goes through one logical
// writer; the state itself does no locking.
type GameState struct {
	Version       int          `json:"version"`
	SetupUnlocked bool         `json:"setup_unlocked"`
	MonthIndex    int          `json:"month_index"`
	Money         int          `json:"money"`
	Characters    []*Character `json:"characters"`
	Relations     RelationMap  `json:"relations"`
	Settings      Settings     `json:"settings"`
	Log           []*LogEntry  `json:"log"`
}

// SaveVersion is the current save-format version tag.
const SaveVersion = 3

// NewGameState creates a fresh game with one default character.
func NewGameState() *GameState {
	s := &GameState{
		Version:       SaveVersion,
		SetupUnlocked: true,
		MonthIndex:    0,
		Money:         100,
		Relations:     make(RelationMap),
	}
	s.Characters = append(s.Characters, NewCharacter("Hero", 1, 1, "INTJ"))
	s.EnsureRelations()
	return s
}

// Character returns the roster member with the given id, or nil.
func (s *GameState) Character(id CharID) *Character {
	for _, c := range s.Characters {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// Entry returns the log entry with the given id, or nil.
func (s *GameState) Entry(id string) *LogEntry {
	for _, e := range s.Log {
		if e.ID == id {
			return e
		}
	}
	return nil
}

// EnsureRelations guarantees both directed records exist for every unordered
// character pair. Absence of a record is a bug, not "no relationship", so
// this runs after every roster change and after load.
func (s *GameState) EnsureRelations() {
	if s.Relations == nil {
		s.Relations = make(RelationMap)
	}
	for _, a := range s.Characters {
		for _, b := range s.Characters {
			if a.ID == b.ID {
				continue
			}
			key := RelationKey{From: a.ID, To: b.ID}
			if _, ok := s.Relations[key]; !ok {
				s.Relations[key] = NewRelation()
			}
		}
	}
}

// AddCharacter appends a roster member during setup.
func (s *GameState) AddCharacter(c *Character) error {
	if !s.SetupUnlocked {
		return ErrSetupLocked
	}
	if len(s.Characters) >= MaxCharacters {
		return ErrRosterFull
	}
	s.Characters = append(s.Characters, c)
	s.EnsureRelations()
	return nil
}

// RemoveCharacter drops a roster member and prunes both directions of every
// relation that references them.
func (s *GameState) RemoveCharacter(id CharID) error {
	if !s.SetupUnlocked {
		return ErrSetupLocked
	}
	if len(s.Characters) <= 1 {
		return ErrLastChar
	}
	idx := -1
	for i, c := range s.Characters {
		if c.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrCharNotFound
	}
	s.Characters = append(s.Characters[:idx], s.Characters[idx+1:]...)
	for k := range s.Relations {
		if k.From == id || k.To == id {
			delete(s.Relations, k)
		}
	}
	s.EnsureRelations()
	return nil
}

// LockSetup seals the roster and presets once the first month runs.
func (s *GameState) LockSetup() {
	s.SetupUnlocked = false
}

// ClearLog empties the narrative log.
func (s *GameState) ClearLog() {
	s.Log = nil
}

// Normalize repairs a freshly deserialized state: zodiac tags are re-derived
// from the stored birthday rather than trusted, missing skill records are
// recreated, and the ensure-relations contract is re-established.
func (s *GameState) Normalize() {
	for _, c := range s.Characters {
		c.Zodiac = ZodiacFromBirthday(c.Birthday.Month, c.Birthday.Day)
		for _, a := range Activities {
			c.Skill(a)
		}
	}
	s.MonthIndex = Clamp(s.MonthIndex, 0, MaxMonths)
	s.Money = ClampMoney(s.Money)
	s.EnsureRelations()
}
