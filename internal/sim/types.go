// Package sim provides the raising-simulation data model: characters, their
// stats and skill progress, directed relationship records, the narrative log,
// and the game-state root that owns all of them.
package sim

import (
	"strings"

	"github.com/google/uuid"
)

// CharID is a unique opaque identifier for a character.
type CharID string

// NewCharID generates a fresh character id.
func NewCharID() CharID {
	return CharID("c_" + uuid.NewString())
}

// Activity is a monthly schedule choice.
type Activity string

const (
	ActivityStudy Activity = "study"
	ActivityWork  Activity = "work"
	ActivityRest  Activity = "rest"
	ActivityArt   Activity = "art"
	ActivityTrain Activity = "train"
)

// Activities lists every schedule activity in display order.
var Activities = []Activity{
	ActivityStudy, ActivityWork, ActivityRest, ActivityArt, ActivityTrain,
}

// ValidActivity reports whether id names a known activity.
func ValidActivity(id Activity) bool {
	switch id {
	case ActivityStudy, ActivityWork, ActivityRest, ActivityArt, ActivityTrain:
		return true
	}
	return false
}

// MBTIList enumerates the 16 personality tags. The tag only flavors narrative
// tone; it has no mechanical effect.
var MBTIList = []string{
	"INTJ", "INTP", "ENTJ", "ENTP",
	"INFJ", "INFP", "ENFJ", "ENFP",
	"ISTJ", "ISFJ", "ESTJ", "ESFJ",
	"ISTP", "ISFP", "ESTP", "ESFP",
}

// ValidMBTI reports whether tag (case-insensitive) is one of the 16 types.
func ValidMBTI(tag string) bool {
	up := strings.ToUpper(tag)
	for _, m := range MBTIList {
		if m == up {
			return true
		}
	}
	return false
}

// Stats is the core attribute bundle. Every field stays within [0, 100].
type Stats struct {
	Intellect int `json:"intellect"`
	Charm     int `json:"charm"`
	Strength  int `json:"strength"`
	Art       int `json:"art"`
	Morality  int `json:"morality"`
	Stress    int `json:"stress"`
}

// Sum adds every stat including stress. Used for net-growth comparisons.
func (s Stats) Sum() int {
	return s.Intellect + s.Charm + s.Strength + s.Art + s.Morality + s.Stress
}

// Score is the tournament performance score: all positive stats minus stress.
func (s Stats) Score() int {
	return s.Intellect + s.Charm + s.Strength + s.Art + s.Morality - s.Stress
}

// SkillProgress tracks leveling for one activity. Level only ever increases;
// exp resets minus the threshold on level-up.
type SkillProgress struct {
	Level int `json:"level"`
	Exp   int `json:"exp"`
}

// Birthday is a month/day pair. Day is not validated against real month
// lengths.
type Birthday struct {
	Month int `json:"month"`
	Day   int `json:"day"`
}

// Flags holds persistent character markers.
type Flags struct {
	// ZodiacBlessing is the name of the blessing the character accepted, or
	// empty. Once set it persists for the rest of the game.
	ZodiacBlessing string `json:"zodiac_blessing,omitempty"`
}

// Character is one member of the roster.
type Character struct {
	ID       CharID                      `json:"id"`
	Name     string                      `json:"name"`
	Birthday Birthday                    `json:"birthday"`
	MBTI     string                      `json:"mbti"`
	Zodiac   Zodiac                      `json:"zodiac"`
	Stats    Stats                       `json:"stats"`
	Skills   map[Activity]*SkillProgress `json:"skills"`
	Flags    Flags                       `json:"flags"`
}

// NewCharacter creates a character with default starting stats and empty
// skill progress for every activity. Out-of-range birthdays are clamped.
func NewCharacter(name string, birthMonth, birthDay int, mbti string) *Character {
	bm := Clamp(birthMonth, 1, 12)
	bd := Clamp(birthDay, 1, 31)
	if !ValidMBTI(mbti) {
		mbti = "INTJ"
	}

	skills := make(map[Activity]*SkillProgress, len(Activities))
	for _, a := range Activities {
		skills[a] = &SkillProgress{}
	}

	return &Character{
		ID:       NewCharID(),
		Name:     name,
		Birthday: Birthday{Month: bm, Day: bd},
		MBTI:     strings.ToUpper(mbti),
		Zodiac:   ZodiacFromBirthday(bm, bd),
		Stats: Stats{
			Intellect: 10,
			Charm:     10,
			Strength:  10,
			Art:       10,
			Morality:  10,
			Stress:    10,
		},
		Skills: skills,
	}
}

// SetBirthday updates the birthday and re-derives the zodiac sign.
func (c *Character) SetBirthday(month, day int) {
	c.Birthday.Month = Clamp(month, 1, 12)
	c.Birthday.Day = Clamp(day, 1, 31)
	c.Zodiac = ZodiacFromBirthday(c.Birthday.Month, c.Birthday.Day)
}

// Skill returns the progress record for an activity, creating it if a loaded
// save predates the activity.
func (c *Character) Skill(a Activity) *SkillProgress {
	if c.Skills == nil {
		c.Skills = make(map[Activity]*SkillProgress)
	}
	sp, ok := c.Skills[a]
	if !ok {
		sp = &SkillProgress{}
		c.Skills[a] = sp
	}
	return sp
}
