package sim

// Game length and balance bounds.
const (
	MaxMonths     = 120 // 10 years × 12 months
	MaxCharacters = 4
	MaxMoney      = 999999
	StatMin       = 0
	StatMax       = 100
)

// Clamp bounds n to [lo, hi].
func Clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

// ClampStat bounds a stat value to [0, 100].
func ClampStat(n int) int {
	return Clamp(n, StatMin, StatMax)
}

// ClampMoney bounds a money balance to [0, MaxMoney].
func ClampMoney(n int) int {
	return Clamp(n, 0, MaxMoney)
}

// YearMonth is a 1-based calendar position derived from a month index.
type YearMonth struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// MonthToYearMonth converts a zero-based month index to year 1+, month 1–12.
func MonthToYearMonth(monthIndex int) YearMonth {
	if monthIndex < 0 {
		monthIndex = 0
	}
	return YearMonth{
		Year:  monthIndex/12 + 1,
		Month: monthIndex%12 + 1,
	}
}

// IsBirthdayMonth reports whether the character's birthday falls in the
// month named by monthIndex.
func IsBirthdayMonth(monthIndex int, c *Character) bool {
	return MonthToYearMonth(monthIndex).Month == c.Birthday.Month
}
