// Choice resolution: applies a player's selected option back onto the state
// exactly once per log entry.
package engine

import (
	"errors"

	"github.com/mip30/gochi-simulator/internal/sim"
)

// Choice boundary errors.
var (
	ErrEntryNotFound     = errors.New("log entry not found")
	ErrChoiceAlreadyMade = errors.New("choice already made for this entry")
	ErrNoChoices         = errors.New("entry offers no choices")
	ErrUnknownChoiceTag  = errors.New("unknown choice tag")
)

// ApplyChoice records the chosen tag on the entry and applies the matching
// effect, dispatching on the entry's kind discriminator. A second call on the
// same entry is rejected before any mutation. Unknown kinds and stale
// character or relationship references are silent no-ops.
func (e *Engine) ApplyChoice(state *sim.GameState, entry *sim.LogEntry, tag string) error {
	if entry == nil {
		return ErrEntryNotFound
	}
	if entry.ChoiceMade != "" {
		return ErrChoiceAlreadyMade
	}
	if len(entry.Choices) == 0 {
		return ErrNoChoices
	}
	valid := false
	for _, c := range entry.Choices {
		if c.Tag == tag {
			valid = true
			break
		}
	}
	if !valid {
		return ErrUnknownChoiceTag
	}

	entry.ChoiceMade = tag

	switch entry.Meta.Kind {
	case sim.KindPersonal:
		e.applyPersonalChoice(state, entry, tag)
	case sim.KindRelationship:
		e.applyRelationshipChoice(state, entry, tag)
	case sim.KindTournament:
		e.applyTournamentChoice(state, tag)
	case sim.KindBlessing:
		e.applyBlessingChoice(state, entry, tag)
	case sim.KindBirthday:
		e.applyBirthdayChoice(state, entry, tag)
	default:
		// Unknown or choice-free kind: the tag is recorded, nothing moves.
	}
	return nil
}

func (e *Engine) applyPersonalChoice(state *sim.GameState, entry *sim.LogEntry, tag string) {
	c := metaCharacter(state, entry, 0)
	if c == nil {
		return
	}
	switch tag {
	case "A":
		c.Stats.Morality = sim.ClampStat(c.Stats.Morality + 2)
		c.Stats.Stress = sim.ClampStat(c.Stats.Stress + 1)
	case "B":
		c.Stats.Stress = sim.ClampStat(c.Stats.Stress - 3)
	case "C":
		state.Money = sim.ClampMoney(state.Money + 30)
		c.Stats.Stress = sim.ClampStat(c.Stats.Stress + 2)
	}
}

func (e *Engine) applyRelationshipChoice(state *sim.GameState, entry *sim.LogEntry, tag string) {
	if entry.Meta.Rel == nil {
		return
	}
	rel, ok := state.Relations[*entry.Meta.Rel]
	if !ok {
		return
	}
	switch tag {
	case "A":
		rel.Trust += 4
		rel.Affinity += 3
		rel.Tension -= 1
	case "B":
		rel.Trust += 2
		rel.Affinity += 1
	case "C":
		rel.Tension += 3
		rel.Trust -= 2
	}
	rel.ClampScores()

	// Event resolution is the only place the romance gates roll.
	advanceRomance(rel, e.rng)
	EvolveRelation(rel)
}

// Tournament celebration payouts: decreasing, never negative.
const (
	tournamentChoiceHigh = 40
	tournamentChoiceMid  = 20
)

func (e *Engine) applyTournamentChoice(state *sim.GameState, tag string) {
	switch tag {
	case "A":
		state.Money = sim.ClampMoney(state.Money + tournamentChoiceHigh)
	case "B":
		state.Money = sim.ClampMoney(state.Money + tournamentChoiceMid)
	case "C":
		// Saving every coin grants nothing extra.
	}
}

func (e *Engine) applyBlessingChoice(state *sim.GameState, entry *sim.LogEntry, tag string) {
	c := metaCharacter(state, entry, 0)
	if c == nil {
		return
	}
	switch tag {
	case "A":
		c.Flags.ZodiacBlessing = entry.Meta.Flavor
	case "B":
		c.Stats.Stress = sim.ClampStat(c.Stats.Stress - 4)
	case "C":
		state.Money = sim.ClampMoney(state.Money + 25)
	}
}

// applyBirthdayChoice fans the celebrant's reaction out over both directions
// of every relation they hold.
func (e *Engine) applyBirthdayChoice(state *sim.GameState, entry *sim.LogEntry, tag string) {
	c := metaCharacter(state, entry, 0)
	if c == nil {
		return
	}
	for _, other := range state.Characters {
		if other.ID == c.ID {
			continue
		}
		for _, key := range []sim.RelationKey{
			{From: c.ID, To: other.ID},
			{From: other.ID, To: c.ID},
		} {
			rel, ok := state.Relations[key]
			if !ok {
				continue
			}
			switch tag {
			case "A":
				rel.Affinity += 3
				rel.Trust += 2
				rel.Tension -= 1
			case "B":
				rel.Affinity += 1
				rel.Trust += 1
			case "C":
				rel.Tension += 4
				rel.Trust -= 1
			}
			rel.ClampScores()
			EvolveRelation(rel)
		}
	}
}

// metaCharacter resolves the i-th referenced character, tolerating stale ids
// from removed roster members.
func metaCharacter(state *sim.GameState, entry *sim.LogEntry, i int) *sim.Character {
	if i >= len(entry.Meta.CharIDs) {
		return nil
	}
	return state.Character(entry.Meta.CharIDs[i])
}
