package sim

// Zodiac is a western zodiac sign derived from a birthday. It is never set
// directly; it is recomputed whenever the birthday changes.
type Zodiac string

const (
	ZodiacAquarius    Zodiac = "aquarius"
	ZodiacPisces      Zodiac = "pisces"
	ZodiacAries       Zodiac = "aries"
	ZodiacTaurus      Zodiac = "taurus"
	ZodiacGemini      Zodiac = "gemini"
	ZodiacCancer      Zodiac = "cancer"
	ZodiacLeo         Zodiac = "leo"
	ZodiacVirgo       Zodiac = "virgo"
	ZodiacLibra       Zodiac = "libra"
	ZodiacScorpio     Zodiac = "scorpio"
	ZodiacSagittarius Zodiac = "sagittarius"
	ZodiacCapricorn   Zodiac = "capricorn"
)

// ZodiacFromBirthday maps a month/day pair to its sign using the common
// western boundary dates. Out-of-range inputs are clamped, not rejected.
func ZodiacFromBirthday(month, day int) Zodiac {
	m := Clamp(month, 1, 12)
	d := Clamp(day, 1, 31)

	switch {
	case (m == 1 && d >= 20) || (m == 2 && d <= 18):
		return ZodiacAquarius
	case (m == 2 && d >= 19) || (m == 3 && d <= 20):
		return ZodiacPisces
	case (m == 3 && d >= 21) || (m == 4 && d <= 19):
		return ZodiacAries
	case (m == 4 && d >= 20) || (m == 5 && d <= 20):
		return ZodiacTaurus
	case (m == 5 && d >= 21) || (m == 6 && d <= 21):
		return ZodiacGemini
	case (m == 6 && d >= 22) || (m == 7 && d <= 22):
		return ZodiacCancer
	case (m == 7 && d >= 23) || (m == 8 && d <= 22):
		return ZodiacLeo
	case (m == 8 && d >= 23) || (m == 9 && d <= 22):
		return ZodiacVirgo
	case (m == 9 && d >= 23) || (m == 10 && d <= 22):
		return ZodiacLibra
	case (m == 10 && d >= 23) || (m == 11 && d <= 22):
		return ZodiacScorpio
	case (m == 11 && d >= 23) || (m == 12 && d <= 21):
		return ZodiacSagittarius
	default: // 12/22 – 1/19
		return ZodiacCapricorn
	}
}
