// Relationship evolution: stage transitions and monthly drift.
package engine

import (
	"github.com/mip30/gochi-simulator/internal/entropy"
	"github.com/mip30/gochi-simulator/internal/sim"
)

// Romance gate probabilities, evaluated only at choice resolution.
const (
	crushDatingProb    = 0.20
	datingPartnersProb = 0.15
)

// EvolveResult reports the outcome of a stage-machine pass.
type EvolveResult struct {
	Changed  bool
	Previous sim.Stage
	Next     sim.Stage
}

// EvolveRelation runs the stage machine over one record in fixed priority
// order. Family and broken are sticky: neither is exited here, and family
// never enters broken through ordinary evolution. The broken check runs last
// and overrides any transition made earlier in the same pass.
func EvolveRelation(r *sim.Relation) EvolveResult {
	prev := r.Stage

	if r.Stage == sim.StageFamily || r.Stage == sim.StageBroken {
		return EvolveResult{Previous: prev, Next: prev}
	}

	if r.Stage == sim.StageStrangers && r.Affinity >= 15 && r.Trust >= 25 {
		r.Stage = sim.StageFriends
	}
	if r.Stage == sim.StageFriends && r.Affinity >= 35 && r.Trust >= 45 && r.Tension <= 50 {
		r.Stage = sim.StageClose
	}
	if r.Stage == sim.StageRivals && r.Tension <= 25 && r.Affinity >= 10 {
		r.Stage = sim.StageFriends
	}
	if r.Tension >= 85 || r.Trust <= 10 {
		r.Stage = sim.StageBroken
	}

	return EvolveResult{
		Changed:  r.Stage != prev,
		Previous: prev,
		Next:     r.Stage,
	}
}

// DriftContext carries the boolean signals the orchestrator derives for one
// directed record each month.
type DriftContext struct {
	// SameGroup: both characters chose the same non-rest activity.
	SameGroup bool
	// GrowthGap: the two characters' net stat change diverged this month.
	GrowthGap bool
	// HighStress: either side of the record is under high stress.
	HighStress bool
	// Rivals: the record is currently in the rivals stage.
	Rivals bool
}

// MonthlyRelationDrift applies the small deterministic monthly adjustments
// and re-clamps every score.
func MonthlyRelationDrift(r *sim.Relation, ctx DriftContext) {
	if ctx.SameGroup {
		r.Trust += 2
		r.Affinity += 1
	}
	if ctx.GrowthGap {
		r.Tension += 2
	}
	if ctx.HighStress {
		r.Tension += 2
		r.Trust -= 1
	}
	if ctx.Rivals {
		r.Tension += 1
		r.Affinity -= 1
	}
	r.ClampScores()
}

// advanceRomance nudges romance and rolls the probabilistic crush→dating and
// dating→partners gates. Runs only at event-resolution points, never during
// the plain monthly evolution pass.
func advanceRomance(r *sim.Relation, rng entropy.Source) {
	if r.Stage == sim.StageFamily || r.Stage == sim.StageBroken {
		return
	}
	if r.Affinity >= 40 && r.Trust >= 50 && r.Tension <= 40 {
		r.Romance = sim.Clamp(r.Romance+2, 0, 100)
	}
	if r.Stage == sim.StageCrush &&
		r.Romance >= 60 && r.Trust >= 55 && r.Affinity >= 45 && r.Tension <= 35 &&
		rng.Float() < crushDatingProb {
		r.Stage = sim.StageDating
	}
	if r.Stage == sim.StageDating &&
		r.Romance >= 80 && r.Trust >= 70 &&
		rng.Float() < datingPartnersProb {
		r.Stage = sim.StagePartners
	}
}
