package availability

import (
	"errors"
	"fmt"
	"time"
)

const (
	ModeInstant = "instant"
	ModeAdvance = "advance"
)

var ErrUnknownOffer = errors.New("unknown instant offer")

// AdvanceSlots is the fixed catalog of half-hour clock slots offered for
// advance bookings, split across a morning and an afternoon window.
var AdvanceSlots = []string{
	"09:00", "09:30", "10:00", "10:30", "11:00", "11:30",
	"14:00", "14:30", "15:00", "15:30", "16:00", "16:30", "17:00", "17:30",
}

// InstantOffer is a relative slot offered for instant bookings. Offers are
// resolved to an absolute date and clock time at booking time, never stored
// as labels.
type InstantOffer struct {
	Label  string        `json:"label"`
	Offset time.Duration `json:"-"`
}

var InstantOffers = []InstantOffer{
	{Label: "now", Offset: 0},
	{Label: "+30min", Offset: 30 * time.Minute},
	{Label: "+1h", Offset: time.Hour},
	{Label: "+2h", Offset: 2 * time.Hour},
}

// IsAdvanceSlot reports whether the clock time is one of the offerable
// advance slots.
func IsAdvanceSlot(clock string) bool {
	for _, s := range AdvanceSlots {
		if s == clock {
			return true
		}
	}
	return false
}

// ResolveInstantOffer turns an offer label into the wall-clock date and time
// it stands for at the given moment.
func ResolveInstantOffer(label string, now time.Time) (date, clock string, err error) {
	for _, offer := range InstantOffers {
		if offer.Label == label {
			at := now.Add(offer.Offset)
			return at.Format(DateLayout), at.Format(ClockLayout), nil
		}
	}
	return "", "", fmt.Errorf("%w: %q", ErrUnknownOffer, label)
}

// ValidMode reports whether the string names a booking mode.
func ValidMode(mode string) bool {
	return mode == ModeInstant || mode == ModeAdvance
}
