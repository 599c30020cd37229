package availability

import (
	"time"

	"github.com/google/uuid"
)

// Date and clock formats used across the booking surface. Records are stored
// the way they travel on the wire: "2006-01-02" dates, "15:04" clock times.
const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

// Block is one doctor-owned unavailability range. A block that spans the
// whole day makes the date unselectable on the calendar.
type Block struct {
	ID        uuid.UUID `json:"id"`
	DoctorID  uuid.UUID `json:"doctor_id"`
	Date      string    `json:"date"`
	StartTime string    `json:"start_time"`
	EndTime   string    `json:"end_time"`
	CreatedAt time.Time `json:"created_at"`
}

// CoversWholeDay reports whether the block blanks out its entire date.
func (b Block) CoversWholeDay() bool {
	if b.StartTime == "" && b.EndTime == "" {
		return true
	}
	return b.StartTime <= "00:00" && b.EndTime >= "23:59"
}

// DayBlocked reports whether any block blanks out the given date.
func DayBlocked(blocks []Block, date string) bool {
	for _, b := range blocks {
		if b.Date == date && b.CoversWholeDay() {
			return true
		}
	}
	return false
}
