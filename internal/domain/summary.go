package domain

import "time"

// Summary holds statistics of a cell's coalesced values over one half-month bin.
type Summary struct {
	X         int     `json:"x"`
	Y         int     `json:"y"`
	MonthHalf int     `json:"month_half"`
	Count     int     `json:"count"`
	Mean      float64 `json:"mean"`
	StdDev    float64 `json:"std"`
}

// MonthHalf returns the half-month bin of t, 1 through 24: the first half of
// January is 1, the second half 2, and so on. A day belongs to the first half
// when day/daysInMonth <= 0.5.
func MonthHalf(t time.Time) int {
	t = t.UTC()
	month := int(t.Month())
	days := time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if 2*t.Day() <= days {
		return 2*month - 1
	}
	return 2 * month
}
