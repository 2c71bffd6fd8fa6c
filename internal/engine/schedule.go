// Schedule rules: monthly activity effects and skill leveling.
package engine

import (
	"github.com/mip30/gochi-simulator/internal/sim"
)

// activityEffect is the fixed base effect of one schedule activity.
type activityEffect struct {
	Intellect int
	Charm     int
	Strength  int
	Art       int
	Morality  int
	Stress    int
	Money     int
}

// effectFor returns the base effect table entry for an activity.
func effectFor(a sim.Activity) (activityEffect, bool) {
	switch a {
	case sim.ActivityStudy:
		return activityEffect{Intellect: 3, Stress: 2}, true
	case sim.ActivityWork:
		return activityEffect{Stress: 3, Money: 50}, true
	case sim.ActivityRest:
		return activityEffect{Stress: -4}, true
	case sim.ActivityArt:
		return activityEffect{Art: 3, Charm: 1, Stress: 1}, true
	case sim.ActivityTrain:
		return activityEffect{Strength: 3, Stress: 2}, true
	}
	return activityEffect{}, false
}

// ExpNeed is the experience threshold to advance past the given level.
func ExpNeed(level int) int {
	return 6 + 2*level
}

// SkillBonus grows slowly with level: +1 at lv2, lv4, lv6...
func SkillBonus(level int) int {
	return level / 2
}

// ApplySchedule applies one activity's stat and money effects to a character,
// then advances its skill progress. The skill bonus boosts every base stat
// delta except stress and morality; the work activity additionally earns
// bonus×10 money. At most one level-up occurs per call, even if accumulated
// exp would clear two thresholds.
func ApplySchedule(state *sim.GameState, c *sim.Character, activity sim.Activity) bool {
	eff, ok := effectFor(activity)
	if !ok {
		return false
	}

	skill := c.Skill(activity)
	bonus := SkillBonus(skill.Level)

	st := &c.Stats
	if eff.Intellect != 0 {
		st.Intellect = sim.ClampStat(st.Intellect + eff.Intellect + bonus)
	}
	if eff.Charm != 0 {
		st.Charm = sim.ClampStat(st.Charm + eff.Charm + bonus)
	}
	if eff.Strength != 0 {
		st.Strength = sim.ClampStat(st.Strength + eff.Strength + bonus)
	}
	if eff.Art != 0 {
		st.Art = sim.ClampStat(st.Art + eff.Art + bonus)
	}
	if eff.Morality != 0 {
		st.Morality = sim.ClampStat(st.Morality + eff.Morality)
	}
	if eff.Stress != 0 {
		st.Stress = sim.ClampStat(st.Stress + eff.Stress)
	}

	money := eff.Money
	if activity == sim.ActivityWork {
		money += bonus * 10
	}
	state.Money = sim.ClampMoney(state.Money + money)

	skill.Exp++
	if need := ExpNeed(skill.Level); skill.Exp >= need {
		skill.Exp -= need
		skill.Level++
	}
	return true
}

// applyBirthday applies the fixed birthday effect: a stress break, a touch of
// charm, and the cost of a cake.
func applyBirthday(state *sim.GameState, c *sim.Character) {
	c.Stats.Stress = sim.ClampStat(c.Stats.Stress - 6)
	c.Stats.Charm = sim.ClampStat(c.Stats.Charm + 1)
	state.Money = sim.ClampMoney(state.Money - 20)
}
