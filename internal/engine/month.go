// Package engine implements the monthly simulation step: schedule effects,
// relationship evolution, narrative card emission, and choice resolution.
// All mutation happens in place on the game state, which is the system of
// record; the engine itself is stateless apart from its random source.
package engine

import (
	"log/slog"

	"github.com/mip30/gochi-simulator/internal/entropy"
	"github.com/mip30/gochi-simulator/internal/sim"
)

// Monthly event probabilities. Fixed design parameters.
const (
	blessingBaseProb   = 0.20
	blessingStressProb = 0.12
	secondEventProb    = 0.55
	presetNudgeProb    = 0.35
	relationEventProb  = 0.35
	highStressLevel    = 80
	blessingStressAt   = 70
	growthGapAt        = 4
	tournamentReward   = 120
)

// Engine advances a game state one month at a time.
type Engine struct {
	rng entropy.Source
}

// New creates an engine. A nil source falls back to crypto/rand.
func New(rng entropy.Source) *Engine {
	if rng == nil {
		rng = entropy.NewCrypto()
	}
	return &Engine{rng: rng}
}

// StepResult is the outcome of one month step. The entries have already been
// appended to the state's log.
type StepResult struct {
	NewLogEntries  []*sim.LogEntry
	NextMonthIndex int
	NextMoney      int
}

// RunOneMonth runs the deterministic phase order over the state: schedules,
// birthdays, blessing rolls, personal events, pairwise relationship drift and
// evolution, the December tournament, and finally the month advance. Each
// phase is independent; one bad record never aborts the rest of the month.
func (e *Engine) RunOneMonth(state *sim.GameState, schedules map[sim.CharID]sim.Activity) StepResult {
	state.EnsureRelations()
	state.LockSetup()

	var entries []*sim.LogEntry
	month := state.MonthIndex

	// Net stat change this month feeds the growth-gap signal.
	before := make(map[sim.CharID]int, len(state.Characters))
	for _, c := range state.Characters {
		before[c.ID] = c.Stats.Sum()
	}

	// Phase 1: schedules. Unspecified or unknown selections default to rest.
	resolved := make(map[sim.CharID]sim.Activity, len(state.Characters))
	for _, c := range state.Characters {
		activity := schedules[c.ID]
		if !sim.ValidActivity(activity) {
			activity = sim.ActivityRest
		}
		resolved[c.ID] = activity
		ApplySchedule(state, c, activity)
		entries = append(entries, actionCard(month, c, activity))
	}

	// Phase 2: birthdays.
	for _, c := range state.Characters {
		if sim.IsBirthdayMonth(month, c) {
			applyBirthday(state, c)
			entries = append(entries, birthdayCard(month, state, c))
		}
	}

	// Phase 3: zodiac blessing rolls, independent per character.
	for _, c := range state.Characters {
		p := blessingBaseProb
		if c.Stats.Stress >= blessingStressAt {
			p += blessingStressProb
		}
		if e.rng.Float() < p {
			entries = append(entries, blessingCard(month, c, e.rng))
		}
	}

	// Phase 4: one personal event per character, a second at 55%.
	for _, c := range state.Characters {
		entries = append(entries, personalCard(month, c, 0, e.rng))
		if e.rng.Float() < secondEventProb {
			entries = append(entries, personalCard(month, c, 1, e.rng))
		}
	}

	// Phase 5: every ordered pair, both directions.
	for _, a := range state.Characters {
		for _, b := range state.Characters {
			if a.ID == b.ID {
				continue
			}
			key := sim.RelationKey{From: a.ID, To: b.ID}
			rel, ok := state.Relations[key]
			if !ok {
				rel = sim.NewRelation()
				state.Relations[key] = rel
			}

			// Preset nudges.
			if rel.Preset == sim.PresetCrush && e.rng.Float() < presetNudgeProb {
				rel.Romance += 2
			}
			if rel.Preset == sim.PresetRival && e.rng.Float() < presetNudgeProb {
				rel.Tension += 2
			}

			actA, actB := resolved[a.ID], resolved[b.ID]
			deltaA := a.Stats.Sum() - before[a.ID]
			deltaB := b.Stats.Sum() - before[b.ID]
			ctx := DriftContext{
				SameGroup:  actA == actB && actA != sim.ActivityRest,
				GrowthGap:  abs(deltaA-deltaB) >= growthGapAt,
				HighStress: a.Stats.Stress >= highStressLevel || b.Stats.Stress >= highStressLevel,
				Rivals:     rel.Stage == sim.StageRivals,
			}
			MonthlyRelationDrift(rel, ctx)

			res := EvolveRelation(rel)
			if res.Changed {
				// Every stage transition produces a visible entry.
				entries = append(entries, stageChangeCard(month, a, b, rel, res))
				slog.Debug("relationship stage changed",
					"from", a.Name, "to", b.Name,
					"previous", res.Previous, "next", res.Next)
			}

			if e.rng.Float() < relationEventProb {
				flavor := e.pickRelationFlavor(rel, ctx)
				entries = append(entries, relationEventCard(month, a, b, rel, flavor))
			}
		}
	}

	// Phase 6: December tournament.
	if sim.MonthToYearMonth(month).Month == 12 && len(state.Characters) > 0 {
		entries = append(entries, e.runTournament(state, month)...)
	}

	// Phase 7: advance the month, clamped to the game length.
	state.MonthIndex = sim.Clamp(state.MonthIndex+1, 0, sim.MaxMonths)

	state.Log = append(state.Log, entries...)

	slog.Info("month advanced",
		"month_index", state.MonthIndex,
		"entries", len(entries),
		"money", state.Money,
	)

	return StepResult{
		NewLogEntries:  entries,
		NextMonthIndex: state.MonthIndex,
		NextMoney:      state.Money,
	}
}

// pickRelationFlavor chooses the flavor for a random relationship event,
// biased by the month's context.
func (e *Engine) pickRelationFlavor(rel *sim.Relation, ctx DriftContext) string {
	switch {
	case ctx.HighStress || rel.Tension >= 60:
		return "argument"
	case ctx.SameGroup && rel.Trust >= 40:
		return "coop"
	case rel.Affinity >= 20:
		return "bonding"
	default:
		return relationFlavors[e.rng.Intn(len(relationFlavors))]
	}
}

// runTournament emits the roster entry, rolls the outcome from the roster's
// best score, pays the reward on a win, and emits the result entry.
func (e *Engine) runTournament(state *sim.GameState, month int) []*sim.LogEntry {
	entries := []*sim.LogEntry{tournamentRosterCard(month, state)}

	best := state.Characters[0]
	bestScore := best.Stats.Score()
	for _, c := range state.Characters[1:] {
		if score := c.Stats.Score(); score > bestScore {
			best, bestScore = c, score
		}
	}

	winProb := 0.30 + float64(bestScore-200)/300
	if winProb < 0.15 {
		winProb = 0.15
	}
	if winProb > 0.75 {
		winProb = 0.75
	}

	won := e.rng.Float() < winProb
	if won {
		state.Money = sim.ClampMoney(state.Money + tournamentReward)
	}
	entries = append(entries, tournamentResultCard(month, best, won))
	return entries
}

// AppendEntries attaches externally produced cards (the remote narrative
// service) to the log. Nil entries are skipped.
func AppendEntries(state *sim.GameState, cards []*sim.LogEntry) {
	for _, card := range cards {
		if card != nil {
			state.Log = append(state.Log, card)
		}
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
