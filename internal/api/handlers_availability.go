package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/medibook/booking-core/internal/account"
	"github.com/medibook/booking-core/internal/availability"
	"github.com/medibook/booking-core/internal/booking"
)

func listUnavailabilityHandler(svc *availability.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, err := uuid.Parse(chi.URLParam(r, "doctorID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctorID must be a valid UUID")
			return
		}

		blocks, err := svc.ListBlocks(r.Context(), doctorID)
		if err != nil {
			handleAvailabilityError(w, err)
			return
		}
		if blocks == nil {
			blocks = []availability.Block{}
		}

		writeJSON(w, http.StatusOK, blocks)
	}
}

func addUnavailabilityHandler(svc *availability.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorID(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "missing_actor", "X-Account-ID header must be a valid UUID")
			return
		}

		doctorID, err := uuid.Parse(chi.URLParam(r, "doctorID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctorID must be a valid UUID")
			return
		}
		if actor != doctorID {
			writeError(w, http.StatusForbidden, "not_owner", "only the doctor may edit their unavailability")
			return
		}

		var req AddBlockRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		block, err := svc.AddBlock(r.Context(), doctorID, req.Date, req.StartTime, req.EndTime)
		if err != nil {
			handleAvailabilityError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, block)
	}
}

func deleteUnavailabilityHandler(svc *availability.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorID(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "missing_actor", "X-Account-ID header must be a valid UUID")
			return
		}

		blockID, err := uuid.Parse(chi.URLParam(r, "blockID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_block_id", "blockID must be a valid UUID")
			return
		}

		if err := svc.DeleteBlock(r.Context(), actor, blockID); err != nil {
			handleAvailabilityError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func calendarHandler(svc *availability.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, err := uuid.Parse(chi.URLParam(r, "doctorID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctorID must be a valid UUID")
			return
		}

		now := time.Now()
		year := now.Year()
		month := now.Month()
		if v := r.URL.Query().Get("year"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				year = n
			}
		}
		if v := r.URL.Query().Get("month"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n >= 1 && n <= 12 {
				month = time.Month(n)
			}
		}

		cells, gotYear, gotMonth, err := svc.Calendar(r.Context(), doctorID, year, month, now)
		if err != nil {
			handleAvailabilityError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, CalendarResponse{
			Year:  gotYear,
			Month: int(gotMonth),
			Cells: cells,
		})
	}
}

// slotsHandler renders the offerable slots for a doctor: the instant offer
// labels, or the advance clock grid minus already-claimed times.
func slotsHandler(accounts *account.Service, avail *availability.Service, bookings *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctorID, err := uuid.Parse(chi.URLParam(r, "doctorID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctorID must be a valid UUID")
			return
		}

		mode := r.URL.Query().Get("mode")
		if !availability.ValidMode(mode) {
			writeError(w, http.StatusBadRequest, "invalid_mode", "mode must be instant or advance")
			return
		}

		doctor, err := accounts.Get(r.Context(), doctorID)
		if err != nil {
			handleAccountError(w, err)
			return
		}
		if !doctor.IsBookableDoctor() || !doctor.Profile.AppointmentType.Supports(mode) {
			writeError(w, http.StatusConflict, "mode_not_offered", "doctor is not offered under this mode")
			return
		}

		if mode == availability.ModeInstant {
			writeJSON(w, http.StatusOK, SlotsResponse{Mode: mode, Offers: availability.InstantOffers})
			return
		}

		date := r.URL.Query().Get("date")
		open, err := avail.OpenSlots(r.Context(), doctorID, date, time.Now())
		if err != nil {
			handleAvailabilityError(w, err)
			return
		}

		taken, err := bookings.ActiveTimes(r.Context(), doctorID, date)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		free := make([]string, 0, len(open))
		for _, slot := range open {
			claimed := false
			for _, t := range taken {
				if t == slot {
					claimed = true
					break
				}
			}
			if !claimed {
				free = append(free, slot)
			}
		}

		writeJSON(w, http.StatusOK, SlotsResponse{Mode: mode, Date: date, Slots: free})
	}
}

func handleAvailabilityError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, availability.ErrNotOwner):
		writeError(w, http.StatusForbidden, "not_owner", err.Error())
	case errors.Is(err, availability.ErrBlockNotFound):
		writeError(w, http.StatusNotFound, "block_not_found", err.Error())
	case errors.Is(err, availability.ErrValidation):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
