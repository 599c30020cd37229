package availability

import "time"

// GridCells is the fixed calendar surface: six weeks of seven days, so every
// month renders the same shape regardless of where its first day falls.
const GridCells = 6 * 7

// DayCell is one square of the month grid.
type DayCell struct {
	Day          int    `json:"day"`
	Date         string `json:"date"`
	CurrentMonth bool   `json:"current_month"`
	Disabled     bool   `json:"disabled"`
	Unavailable  bool   `json:"unavailable"`
}

// BuildMonth renders the grid for a month. Pure and deterministic: the same
// inputs always produce the same 42 cells. Cells strictly before today are
// disabled; cells whose date sits inside a whole-day block are unavailable.
// Overflow cells from the adjacent months are included so the grid stays
// rectangular.
func BuildMonth(year int, month time.Month, today time.Time, blocks []Block) []DayCell {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	lead := int(first.Weekday()) // grid weeks start on Sunday
	start := first.AddDate(0, 0, -lead)

	todayStr := today.Format(DateLayout)

	cells := make([]DayCell, 0, GridCells)
	for i := 0; i < GridCells; i++ {
		d := start.AddDate(0, 0, i)
		dateStr := d.Format(DateLayout)
		cells = append(cells, DayCell{
			Day:          d.Day(),
			Date:         dateStr,
			CurrentMonth: d.Month() == month && d.Year() == year,
			Disabled:     dateStr < todayStr,
			Unavailable:  DayBlocked(blocks, dateStr),
		})
	}
	return cells
}

// Range bounds calendar navigation to a window of whole months. Navigation
// outside the window is a no-op, not an error: Clamp returns the nearest
// in-range month.
type Range struct {
	StartYear  int
	StartMonth time.Month
	EndYear    int
	EndMonth   time.Month
}

// WindowFrom builds a Range covering the month of `from` through `years`
// years ahead.
func WindowFrom(from time.Time, years int) Range {
	end := from.AddDate(years, 0, 0)
	return Range{
		StartYear:  from.Year(),
		StartMonth: from.Month(),
		EndYear:    end.Year(),
		EndMonth:   end.Month(),
	}
}

func monthIndex(year int, month time.Month) int {
	return year*12 + int(month) - 1
}

// Contains reports whether the month falls inside the navigable window.
func (r Range) Contains(year int, month time.Month) bool {
	idx := monthIndex(year, month)
	return idx >= monthIndex(r.StartYear, r.StartMonth) && idx <= monthIndex(r.EndYear, r.EndMonth)
}

// Clamp returns the requested month when in range, otherwise the nearest
// window edge.
func (r Range) Clamp(year int, month time.Month) (int, time.Month) {
	idx := monthIndex(year, month)
	if lo := monthIndex(r.StartYear, r.StartMonth); idx < lo {
		return r.StartYear, r.StartMonth
	}
	if hi := monthIndex(r.EndYear, r.EndMonth); idx > hi {
		return r.EndYear, r.EndMonth
	}
	return year, month
}
