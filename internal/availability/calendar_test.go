package availability

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestBuildMonthShape(t *testing.T) {
	cells := BuildMonth(2025, time.March, date(2025, 3, 1), nil)

	if len(cells) != GridCells {
		t.Fatalf("expected %d cells, got %d", GridCells, len(cells))
	}

	// March 2025 starts on a Saturday: six leading overflow cells from February.
	for i := 0; i < 6; i++ {
		if cells[i].CurrentMonth {
			t.Errorf("cell %d should be a February overflow cell", i)
		}
	}
	if !cells[6].CurrentMonth || cells[6].Day != 1 {
		t.Errorf("cell 6 should be March 1, got day=%d current=%v", cells[6].Day, cells[6].CurrentMonth)
	}

	current := 0
	for _, c := range cells {
		if c.CurrentMonth {
			current++
		}
	}
	if current != 31 {
		t.Errorf("expected 31 current-month cells for March, got %d", current)
	}
}

func TestBuildMonthDeterministic(t *testing.T) {
	blocks := []Block{{Date: "2025-03-12", StartTime: "00:00", EndTime: "23:59"}}

	a := BuildMonth(2025, time.March, date(2025, 3, 5), blocks)
	b := BuildMonth(2025, time.March, date(2025, 3, 5), blocks)

	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("cell %d differs between identical builds", i)
		}
	}
}

func TestBuildMonthDisablesPastDays(t *testing.T) {
	today := date(2025, 3, 10)
	cells := BuildMonth(2025, time.March, today, nil)

	for _, c := range cells {
		wantDisabled := c.Date < "2025-03-10"
		if c.Disabled != wantDisabled {
			t.Errorf("cell %s: disabled=%v, want %v", c.Date, c.Disabled, wantDisabled)
		}
	}
}

func TestBuildMonthMarksBlockedDays(t *testing.T) {
	blocks := []Block{
		{Date: "2025-03-12", StartTime: "00:00", EndTime: "23:59"}, // whole day
		{Date: "2025-03-14", StartTime: "09:00", EndTime: "11:00"}, // partial: day stays selectable
	}
	cells := BuildMonth(2025, time.March, date(2025, 3, 1), blocks)

	for _, c := range cells {
		switch c.Date {
		case "2025-03-12":
			if !c.Unavailable {
				t.Error("2025-03-12 should be unavailable")
			}
		case "2025-03-14":
			if c.Unavailable {
				t.Error("2025-03-14 has only a partial block and should stay selectable")
			}
		default:
			if c.Unavailable {
				t.Errorf("%s should not be unavailable", c.Date)
			}
		}
	}
}

func TestCoversWholeDay(t *testing.T) {
	cases := []struct {
		start, end string
		want       bool
	}{
		{"00:00", "23:59", true},
		{"", "", true},
		{"09:00", "17:00", false},
		{"00:00", "12:00", false},
	}
	for _, tc := range cases {
		b := Block{ID: uuid.New(), Date: "2025-01-01", StartTime: tc.start, EndTime: tc.end}
		if got := b.CoversWholeDay(); got != tc.want {
			t.Errorf("CoversWholeDay(%q, %q) = %v, want %v", tc.start, tc.end, got, tc.want)
		}
	}
}

func TestRangeClamp(t *testing.T) {
	window := WindowFrom(date(2025, 3, 10), 3)

	// In range: untouched.
	y, m := window.Clamp(2026, time.July)
	if y != 2026 || m != time.July {
		t.Errorf("expected 2026-07 untouched, got %d-%02d", y, m)
	}

	// Before the window: clamped to the start month.
	y, m = window.Clamp(2024, time.December)
	if y != 2025 || m != time.March {
		t.Errorf("expected clamp to 2025-03, got %d-%02d", y, m)
	}

	// Past the window: clamped to the end month.
	y, m = window.Clamp(2030, time.January)
	if y != 2028 || m != time.March {
		t.Errorf("expected clamp to 2028-03, got %d-%02d", y, m)
	}

	if window.Contains(2024, time.December) {
		t.Error("2024-12 should be outside the window")
	}
	if !window.Contains(2028, time.March) {
		t.Error("2028-03 should be the last month of the window")
	}
}
