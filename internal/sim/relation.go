package sim

import (
	"encoding/json"
	"sort"
)

// Preset is the player-assigned relationship category. It biases monthly
// drift but is not itself a stage.
type Preset string

const (
	PresetAcquaintance Preset = "acquaintance"
	PresetRival        Preset = "rival"
	PresetFamily       Preset = "family"
	PresetCrush        Preset = "one-sided-crush"
)

// ValidPreset reports whether p names a known preset.
func ValidPreset(p Preset) bool {
	switch p {
	case PresetAcquaintance, PresetRival, PresetFamily, PresetCrush:
		return true
	}
	return false
}

// Stage is the relationship state-machine value.
type Stage string

const (
	StageStrangers Stage = "strangers"
	StageFriends   Stage = "friends"
	StageClose     Stage = "close"
	StageRivals    Stage = "rivals"
	StageBroken    Stage = "broken"
	StageCrush     Stage = "crush"
	StageDating    Stage = "dating"
	StagePartners  Stage = "partners"
	StageFamily    Stage = "family"
)

// RelationKey identifies a directed relationship record. A→B and B→A are
// independent records.
type RelationKey struct {
	From CharID `json:"from"`
	To   CharID `json:"to"`
}

// Reverse returns the key for the opposite direction.
func (k RelationKey) Reverse() RelationKey {
	return RelationKey{From: k.To, To: k.From}
}

// Relation is one directed relationship record. Affinity is bounded to
// [-100, 100]; trust, tension and romance to [0, 100].
type Relation struct {
	Preset   Preset `json:"preset"`
	Stage    Stage  `json:"stage"`
	Affinity int    `json:"affinity"`
	Trust    int    `json:"trust"`
	Tension  int    `json:"tension"`
	Romance  int    `json:"romance"`
}

// NewRelation returns a fresh record for two characters who have just met.
// Trust starts above the broken floor so an idle pair does not collapse on
// the first evolution pass.
func NewRelation() *Relation {
	return &Relation{
		Preset:  PresetAcquaintance,
		Stage:   StageStrangers,
		Trust:   20,
		Tension: 10,
	}
}

// ClampScores re-bounds all four scores. Call after any score mutation.
func (r *Relation) ClampScores() {
	r.Affinity = Clamp(r.Affinity, -100, 100)
	r.Trust = Clamp(r.Trust, 0, 100)
	r.Tension = Clamp(r.Tension, 0, 100)
	r.Romance = Clamp(r.Romance, 0, 100)
}

// SetPreset assigns a category. The family preset pins the family stage.
func (r *Relation) SetPreset(p Preset) {
	r.Preset = p
	switch p {
	case PresetFamily:
		r.Stage = StageFamily
	case PresetRival:
		if r.Stage == StageStrangers {
			r.Stage = StageRivals
		}
	case PresetCrush:
		if r.Stage == StageStrangers {
			r.Stage = StageCrush
		}
	}
}

// RelationMap holds every directed record, keyed by ordered pair.
type RelationMap map[RelationKey]*Relation

// relationRecord is the serialized form: the composite key is flattened into
// explicit from/to fields rather than joined into a delimited string.
type relationRecord struct {
	From CharID `json:"from"`
	To   CharID `json:"to"`
	Relation
}

// MarshalJSON encodes the map as a stable array of directed records.
func (m RelationMap) MarshalJSON() ([]byte, error) {
	records := make([]relationRecord, 0, len(m))
	for k, r := range m {
		records = append(records, relationRecord{From: k.From, To: k.To, Relation: *r})
	}
	// Stable order for reproducible output.
	sort.Slice(records, func(i, j int) bool {
		if records[i].From != records[j].From {
			return records[i].From < records[j].From
		}
		return records[i].To < records[j].To
	})
	return json.Marshal(records)
}

// UnmarshalJSON decodes the array form back into the keyed map.
func (m *RelationMap) UnmarshalJSON(data []byte) error {
	var records []relationRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return err
	}
	out := make(RelationMap, len(records))
	for _, rec := range records {
		rel := rec.Relation
		out[RelationKey{From: rec.From, To: rec.To}] = &rel
	}
	*m = out
	return nil
}
