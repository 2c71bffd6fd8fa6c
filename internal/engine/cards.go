// Narrative card builders: templated log entries for each phase.
package engine

import (
	"fmt"
	"strings"

	"github.com/mip30/gochi-simulator/internal/entropy"
	"github.com/mip30/gochi-simulator/internal/sim"
)

// mbtiTone maps a personality tag to a pair of tone phrases that color the
// action narration. Purely cosmetic.
var mbtiTone = map[string][2]string{
	"INTJ": {"quiet resolve", "ordered thought"},
	"INTP": {"detached curiosity", "a thread of theory"},
	"ENTJ": {"blunt ambition", "a plan already in motion"},
	"ENTP": {"restless wit", "an argument for its own sake"},
	"INFJ": {"careful warmth", "a private conviction"},
	"INFP": {"soft stubbornness", "faith in an ideal"},
	"ENFJ": {"open-handed care", "a pull toward others"},
	"ENFP": {"bright momentum", "warm impulse"},
	"ISTJ": {"steadiness", "diligent repetition"},
	"ISFJ": {"patient attention", "quiet duty"},
	"ESTJ": {"firm routine", "a checklist kept"},
	"ESFJ": {"easy company", "care made visible"},
	"ISTP": {"spare focus", "hands that already know"},
	"ISFP": {"gentle instinct", "a feeling given shape"},
	"ESTP": {"quick nerve", "appetite for the moment"},
	"ESFP": {"loud cheer", "the day taken whole"},
}

func toneFor(mbti string) (string, string) {
	if t, ok := mbtiTone[mbti]; ok {
		return t[0], t[1]
	}
	return "calm", "the basics"
}

type actionPack struct {
	title string
	narr  string
	line  string
}

func actionPackFor(c *sim.Character, ym sim.YearMonth, activity sim.Activity) actionPack {
	t1, t2 := toneFor(c.MBTI)
	prefix := fmt.Sprintf("Year %d, month %d.\n", ym.Year, ym.Month)

	switch activity {
	case sim.ActivityStudy:
		return actionPack{
			title: "A Page Turned Quietly",
			narr:  prefix + fmt.Sprintf("The desk lamp hums low. %s carries %s, stacking the day with %s.", c.Name, t1, t2),
			line:  "If I focus now, future me cries a little less.",
		}
	case sim.ActivityWork:
		return actionPack{
			title: "Work the Hands Remember",
			narr:  prefix + fmt.Sprintf("The day trades effort for small reward. %s swallows complaints and keeps moving, %s intact.", c.Name, t1),
			line:  "Just a little more. Let's make it through this month.",
		}
	case sim.ActivityArt:
		return actionPack{
			title: "When Feeling Takes a Shape",
			narr:  prefix + fmt.Sprintf("A single line becomes a mood, a mood becomes a story. %s sorts the heart out by hand, guided by %s.", c.Name, t2),
			line:  "If words won't do it... at least leave a picture.",
		}
	case sim.ActivityTrain:
		return actionPack{
			title: "The Body Keeps Its Promise",
			narr:  prefix + fmt.Sprintf("Breath, heartbeat, repetition. %s grows a little stronger, %s holding through the burn.", c.Name, t1),
			line:  "One more. Just one more.",
		}
	default: // rest
		return actionPack{
			title: "A Month of Proper Rest",
			narr:  prefix + fmt.Sprintf("The world is not ending. %s breathes out and lets the shoulders drop, finding %s again.", c.Name, t2),
			line:  "It's fine. Resting counts as progress too.",
		}
	}
}

func actionCard(monthIndex int, c *sim.Character, activity sim.Activity) *sim.LogEntry {
	ym := sim.MonthToYearMonth(monthIndex)
	pack := actionPackFor(c, ym, activity)
	return &sim.LogEntry{
		ID:        fmt.Sprintf("task_%s_%d", c.ID, monthIndex),
		Category:  sim.CategoryAction,
		Stamp:     ym,
		Title:     fmt.Sprintf("%s (%s — %s)", pack.title, c.Name, activity),
		Narration: pack.narr,
		Dialogues: []sim.Dialogue{{Speaker: c.Name, Line: pack.line}},
		Meta:      sim.Meta{Kind: sim.KindAction, CharIDs: []sim.CharID{c.ID}, Flavor: string(activity)},
	}
}

func birthdayCard(monthIndex int, state *sim.GameState, c *sim.Character) *sim.LogEntry {
	ym := sim.MonthToYearMonth(monthIndex)
	// Everyone else on the roster shows up to celebrate.
	var celebrants []string
	for _, other := range state.Characters {
		if other.ID != c.ID {
			celebrants = append(celebrants, other.Name)
		}
	}
	who := "Someone"
	if len(celebrants) > 0 {
		who = strings.Join(celebrants, ", ")
	}
	return &sim.LogEntry{
		ID:       fmt.Sprintf("bday_%s_%d", c.ID, monthIndex),
		Category: sim.CategoryBirthday,
		Stamp:    ym,
		Title:    fmt.Sprintf("Birthday Month (%s)", c.Name),
		Narration: fmt.Sprintf("Year %d, month %d.\nA small mark on the calendar catches the eye. %s's birthday has come around.",
			ym.Year, ym.Month, c.Name),
		Dialogues: []sim.Dialogue{
			{Speaker: who, Line: "Happy birthday. Today, you come first."},
			{Speaker: c.Name, Line: "...Thanks. That actually helps."},
		},
		Choices: []sim.Choice{
			{Tag: "A", Label: "Accept the celebration (bonds +)"},
			{Tag: "B", Label: "Let it pass quietly (steady)"},
			{Tag: "C", Label: "Push everyone away (tension +)"},
		},
		Meta: sim.Meta{Kind: sim.KindBirthday, CharIDs: []sim.CharID{c.ID}},
	}
}

// blessingNames is the fixed pool a zodiac blessing is rolled from.
var blessingNames = []string{
	"Starlit Patience",
	"Second Wind",
	"Calm Waters",
	"Iron Constitution",
	"Silver Tongue",
	"Lucky Coin",
	"Clear Sight",
	"Warm Hearth",
}

func blessingCard(monthIndex int, c *sim.Character, rng entropy.Source) *sim.LogEntry {
	ym := sim.MonthToYearMonth(monthIndex)
	name := blessingNames[rng.Intn(len(blessingNames))]
	return &sim.LogEntry{
		ID:       fmt.Sprintf("bless_%s_%d", c.ID, monthIndex),
		Category: sim.CategoryEvent,
		Stamp:    ym,
		Title:    fmt.Sprintf("A Sign Under %s (%s)", c.Zodiac, c.Name),
		Narration: fmt.Sprintf("Year %d, month %d.\nOn a night walk the sky seems unusually close. %s feels the shape of the %s constellation lean in, offering something.",
			ym.Year, ym.Month, c.Name, c.Zodiac),
		Dialogues: []sim.Dialogue{
			{Speaker: c.Name, Line: "...Is this meant for me?"},
		},
		Choices: []sim.Choice{
			{Tag: "A", Label: fmt.Sprintf("Accept the blessing \"%s\"", name)},
			{Tag: "B", Label: "Just breathe it in (stress -)"},
			{Tag: "C", Label: "Wish for pocket money instead"},
		},
		Meta: sim.Meta{Kind: sim.KindBlessing, CharIDs: []sim.CharID{c.ID}, Flavor: name},
	}
}

type personalPack struct {
	title string
	narr  string
	line  string
}

// personalPool is the fixed flavor pool for personal events.
var personalPool = []personalPack{
	{
		title: "A Letter With No Sender",
		narr:  "%s finds an envelope tucked under the door. No name, no stamp — only a short line of encouragement in careful handwriting.",
		line:  "Who would even...? Well. It's not unwelcome.",
	},
	{
		title: "Rain at the Bus Stop",
		narr:  "Caught without an umbrella, %s shares the narrow shelter with a stranger and an old dog. Nobody talks. It's oddly restful.",
		line:  "Some afternoons just ask you to stand still.",
	},
	{
		title: "The Broken Vending Machine",
		narr:  "The machine eats the coin, hums, and then dispenses two drinks. %s looks around. Nobody saw.",
		line:  "...Is this a test?",
	},
	{
		title: "An Old Song on the Radio",
		narr:  "A tune from years ago drifts out of a shop doorway, and %s stands there until it ends, holding something that has no name.",
		line:  "I'd forgotten I ever knew this one.",
	},
	{
		title: "A Stray Cat's Verdict",
		narr:  "The alley cat that trusts nobody walks a slow circle around %s and sits down within arm's reach. An honor, probably.",
		line:  "Okay. I'll take it.",
	},
	{
		title: "Market Day Crowd",
		narr:  "The market swallows %s whole — haggling voices, fried smells, a dropped crate of apples rolling everywhere. Strangers laugh together picking them up.",
		line:  "Loud. But the good kind of loud.",
	},
}

func personalCard(monthIndex int, c *sim.Character, seq int, rng entropy.Source) *sim.LogEntry {
	ym := sim.MonthToYearMonth(monthIndex)
	pack := personalPool[rng.Intn(len(personalPool))]
	return &sim.LogEntry{
		ID:       fmt.Sprintf("ev_%s_%d_%d", c.ID, monthIndex, seq),
		Category: sim.CategoryEvent,
		Stamp:    ym,
		Title:    fmt.Sprintf("%s (%s)", pack.title, c.Name),
		Narration: fmt.Sprintf("Year %d, month %d.\n", ym.Year, ym.Month) +
			fmt.Sprintf(pack.narr, c.Name),
		Dialogues: []sim.Dialogue{{Speaker: c.Name, Line: pack.line}},
		Choices: []sim.Choice{
			{Tag: "A", Label: "Do the right thing (morality +)"},
			{Tag: "B", Label: "Take it easy (stress -)"},
			{Tag: "C", Label: "Turn it into money (risky)"},
		},
		Meta: sim.Meta{Kind: sim.KindPersonal, CharIDs: []sim.CharID{c.ID}},
	}
}

type relationPack struct {
	title string
	narr  string
	dlgA  string
	dlgB  string
}

// relationPool holds the flavor variants for relationship events, keyed by
// the flavor tag stored in the entry meta.
var relationPool = map[string]relationPack{
	"bonding": {
		title: "A Small Gap, the Same Direction",
		narr:  "In an ordinary moment, %s and %s come to understand each other a little better.",
		dlgA:  "I didn't know you thought about it that way.",
		dlgB:  "...Well, I never said it out loud.",
	},
	"argument": {
		title: "Words With Edges",
		narr:  "Fatigue raises voices. Between %s and %s, a small remark grows bigger than it should.",
		dlgA:  "You always... you always do this.",
		dlgB:  "And you? You're exactly the same.",
	},
	"coop": {
		title: "Faster With Two",
		narr:  "%s and %s agree to try it together. If it works, it becomes a habit; if not, a scar.",
		dlgA:  "Together we'd be more efficient, probably.",
		dlgB:  "...Fine. Just this once, let's sync up.",
	},
}

var relationFlavors = []string{"bonding", "argument", "coop"}

func relationEventCard(monthIndex int, a, b *sim.Character, rel *sim.Relation, flavor string) *sim.LogEntry {
	ym := sim.MonthToYearMonth(monthIndex)
	pack, ok := relationPool[flavor]
	if !ok {
		pack = relationPool["bonding"]
	}
	return &sim.LogEntry{
		ID:       fmt.Sprintf("rel_%s_%s_%d_%s", a.ID, b.ID, monthIndex, flavor),
		Category: sim.CategoryRelationship,
		Stamp:    ym,
		Title:    fmt.Sprintf("%s (%s & %s)", pack.title, a.Name, b.Name),
		Narration: fmt.Sprintf("Year %d, month %d.\n", ym.Year, ym.Month) +
			fmt.Sprintf(pack.narr, a.Name, b.Name) +
			fmt.Sprintf("\n[stage: %s]", rel.Stage),
		Dialogues: []sim.Dialogue{
			{Speaker: a.Name, Line: pack.dlgA},
			{Speaker: b.Name, Line: pack.dlgB},
		},
		Choices: []sim.Choice{
			{Tag: "A", Label: "Be honest about it (trust +)"},
			{Tag: "B", Label: "Keep it light (safe)"},
			{Tag: "C", Label: "Draw a line (tension +)"},
		},
		Meta: sim.Meta{
			Kind:    sim.KindRelationship,
			CharIDs: []sim.CharID{a.ID, b.ID},
			Rel:     &sim.RelationKey{From: a.ID, To: b.ID},
			Flavor:  flavor,
		},
	}
}

// stageChangeCard is the mandatory entry for every stage transition. It still
// carries relationship choices so the player can react to the shift.
func stageChangeCard(monthIndex int, a, b *sim.Character, rel *sim.Relation, res EvolveResult) *sim.LogEntry {
	ym := sim.MonthToYearMonth(monthIndex)
	return &sim.LogEntry{
		ID:       fmt.Sprintf("stage_%s_%s_%d", a.ID, b.ID, monthIndex),
		Category: sim.CategoryRelationship,
		Stamp:    ym,
		Title:    fmt.Sprintf("Something Shifts (%s → %s)", a.Name, b.Name),
		Narration: fmt.Sprintf("Year %d, month %d.\nBetween %s and %s, the ground has moved: %s has become %s.",
			ym.Year, ym.Month, a.Name, b.Name, res.Previous, res.Next),
		Dialogues: []sim.Dialogue{
			{Speaker: a.Name, Line: "Things feel... different lately. Don't they?"},
		},
		Choices: []sim.Choice{
			{Tag: "A", Label: "Lean into it (trust +)"},
			{Tag: "B", Label: "Let it settle (steady)"},
			{Tag: "C", Label: "Step back (tension +)"},
		},
		Meta: sim.Meta{
			Kind:    sim.KindRelationship,
			CharIDs: []sim.CharID{a.ID, b.ID},
			Rel:     &sim.RelationKey{From: a.ID, To: b.ID},
			Flavor:  "stage-change",
		},
	}
}

// tournamentFillers pads the December roster up to six entrants.
var tournamentFillers = []string{
	"Dahlia of the North Hall",
	"Marcus Vey",
	"The Twins' Champion",
	"Old Renato",
	"A Masked Entrant",
	"Last Year's Runner-up",
}

func tournamentRosterCard(monthIndex int, state *sim.GameState) *sim.LogEntry {
	ym := sim.MonthToYearMonth(monthIndex)
	names := make([]string, 0, 6)
	ids := make([]sim.CharID, 0, len(state.Characters))
	for _, c := range state.Characters {
		names = append(names, c.Name)
		ids = append(ids, c.ID)
	}
	for i := 0; len(names) < 6 && i < len(tournamentFillers); i++ {
		names = append(names, tournamentFillers[i])
	}

	roster := ""
	for i, n := range names {
		roster += fmt.Sprintf("%d. %s\n", i+1, n)
	}

	return &sim.LogEntry{
		ID:       fmt.Sprintf("tour_roster_%d", monthIndex),
		Category: sim.CategoryTournament,
		Stamp:    ym,
		Title:    fmt.Sprintf("Year-End Tournament, Year %d", ym.Year),
		Narration: fmt.Sprintf("Year %d, month %d.\nThe year-end tournament posts its bracket. Six names on the board:\n%s",
			ym.Year, ym.Month, roster),
		Dialogues: []sim.Dialogue{
			{Speaker: "Announcer", Line: "Entrants, to the floor! The season ends here."},
		},
		Meta: sim.Meta{Kind: sim.KindAction, CharIDs: ids, Flavor: "tournament-roster"},
	}
}

func tournamentResultCard(monthIndex int, best *sim.Character, won bool) *sim.LogEntry {
	ym := sim.MonthToYearMonth(monthIndex)

	var title, narr, line string
	if won {
		title = fmt.Sprintf("Champion: %s", best.Name)
		narr = fmt.Sprintf("Year %d, month %d.\nThe final whistle, the held breath, the burst of noise — %s takes the year-end title and the prize purse.",
			ym.Year, ym.Month, best.Name)
		line = "We... actually did it."
	} else {
		title = fmt.Sprintf("So Close (%s)", best.Name)
		narr = fmt.Sprintf("Year %d, month %d.\nIt comes down to inches. %s bows out before the final — a year's work measured against someone else's.",
			ym.Year, ym.Month, best.Name)
		line = "Next year. Write it down: next year."
	}

	return &sim.LogEntry{
		ID:        fmt.Sprintf("tour_result_%d", monthIndex),
		Category:  sim.CategoryTournament,
		Stamp:     ym,
		Title:     title,
		Narration: narr,
		Dialogues: []sim.Dialogue{{Speaker: best.Name, Line: line}},
		Choices: []sim.Choice{
			{Tag: "A", Label: "Celebrate big (money +)"},
			{Tag: "B", Label: "A modest dinner (money +)"},
			{Tag: "C", Label: "Save every coin"},
		},
		Meta: sim.Meta{Kind: sim.KindTournament, CharIDs: []sim.CharID{best.ID}, Won: won},
	}
}
