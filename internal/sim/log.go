package sim

// Category classifies a log entry for display grouping.
type Category string

const (
	CategoryAction       Category = "action"
	CategoryEvent        Category = "event"
	CategoryRelationship Category = "relationship"
	CategoryBirthday     Category = "birthday"
	CategoryTournament   Category = "tournament"
	CategoryHighlight    Category = "highlight"
)

// EntryKind is the closed discriminator the choice resolver dispatches on.
type EntryKind string

const (
	KindAction       EntryKind = "action"
	KindPersonal     EntryKind = "personal"
	KindRelationship EntryKind = "relationship"
	KindTournament   EntryKind = "tournament"
	KindBlessing     EntryKind = "blessing"
	KindBirthday     EntryKind = "birthday"
)

// Dialogue is one spoken line in a card.
type Dialogue struct {
	Speaker string `json:"speaker"`
	Line    string `json:"line"`
}

// Choice is one selectable option on a card. Tag is the short stable
// identifier ("A"/"B"/"C"); Label is the display text.
type Choice struct {
	Tag   string `json:"tag"`
	Label string `json:"label"`
}

// Meta carries everything the choice resolver needs to apply an effect after
// the fact. Entries reference characters by id only, never by pointer, so a
// removed character leaves a stale id rather than a dangling reference.
type Meta struct {
	Kind    EntryKind `json:"kind"`
	CharIDs []CharID  `json:"char_ids,omitempty"`
	// Rel names the directed relationship the entry is about, if any.
	Rel *RelationKey `json:"rel,omitempty"`
	// Flavor is the event-specific payload: the relationship event kind
	// ("bonding"/"argument"/"coop"), the rolled blessing name, etc.
	Flavor string `json:"flavor,omitempty"`
	// Won records the tournament outcome on result entries.
	Won bool `json:"won,omitempty"`
	// Source marks externally produced cards ("ai").
	Source string `json:"source,omitempty"`
}

// LogEntry is one narrative card in the append-only log. Immutable once
// appended except for the one-time write of ChoiceMade.
type LogEntry struct {
	ID         string     `json:"id"`
	Category   Category   `json:"category"`
	Stamp      YearMonth  `json:"stamp"`
	Title      string     `json:"title"`
	Narration  string     `json:"narration"`
	Dialogues  []Dialogue `json:"dialogues"`
	Choices    []Choice   `json:"choices"`
	ChoiceMade string     `json:"choice_made,omitempty"`
	Meta       Meta       `json:"meta"`
}

// HasChoices reports whether the entry is awaiting a player decision.
func (e *LogEntry) HasChoices() bool {
	return len(e.Choices) > 0 && e.ChoiceMade == ""
}
