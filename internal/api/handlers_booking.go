package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/medibook/booking-core/internal/booking"
	redisclient "github.com/medibook/booking-core/internal/redis"
)

func reserveSlotHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ReserveSlotRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		doctorID, err := uuid.Parse(req.DoctorID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
			return
		}

		patientID, err := uuid.Parse(req.PatientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
			return
		}

		result, err := svc.Reserve(r.Context(), booking.ReserveRequest{
			DoctorID:  doctorID,
			PatientID: patientID,
			Date:      req.Date,
			Time:      req.Time,
			Mode:      req.Mode,
		})
		if err != nil {
			handleReserveError(w, err)
			return
		}

		// An idempotent resubmit returns the existing appointment with 200.
		status := http.StatusCreated
		if !result.Created {
			status = http.StatusOK
		}
		writeJSON(w, status, result.Appointment)
	}
}

func completeAppointmentHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorID(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "missing_actor", "X-Account-ID header must be a valid UUID")
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		appt, err := svc.Complete(r.Context(), id, actor)
		if err != nil {
			handleCompleteError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, appt)
	}
}

func getAppointmentHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		appt, err := svc.Get(r.Context(), id)
		if err != nil {
			handleCompleteError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, appt)
	}
}

func listAppointmentsHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		if v := q.Get("patient_id"); v != "" {
			patientID, err := uuid.Parse(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
				return
			}
			appts, err := svc.ListByPatient(r.Context(), patientID)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
				return
			}
			writeAppointments(w, appts)
			return
		}

		if v := q.Get("doctor_id"); v != "" {
			doctorID, err := uuid.Parse(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
				return
			}
			appts, err := svc.ListByDoctor(r.Context(), doctorID, q.Get("date"))
			if err != nil {
				writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
				return
			}
			writeAppointments(w, appts)
			return
		}

		writeError(w, http.StatusBadRequest, "missing_filter", "patient_id or doctor_id is required")
	}
}

func writeAppointments(w http.ResponseWriter, appts []booking.Appointment) {
	if appts == nil {
		appts = []booking.Appointment{}
	}
	writeJSON(w, http.StatusOK, appts)
}

func listNotificationsHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorID(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "missing_actor", "X-Account-ID header must be a valid UUID")
			return
		}

		recipientID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_account_id", "id must be a valid UUID")
			return
		}
		if actor != recipientID {
			writeError(w, http.StatusForbidden, "not_recipient", "notifications are only visible to their recipient")
			return
		}

		notifs, err := svc.Notifications(r.Context(), recipientID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}
		if notifs == nil {
			notifs = []booking.Notification{}
		}

		writeJSON(w, http.StatusOK, notifs)
	}
}

func markNotificationReadHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorID(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "missing_actor", "X-Account-ID header must be a valid UUID")
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_notification_id", "id must be a valid UUID")
			return
		}

		notif, err := svc.MarkNotificationRead(r.Context(), id, actor)
		if err != nil {
			if errors.Is(err, booking.ErrNotificationNotFound) {
				writeError(w, http.StatusNotFound, "notification_not_found", err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		writeJSON(w, http.StatusOK, notif)
	}
}

func listMessagesHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		patientID, err := uuid.Parse(r.URL.Query().Get("patient_id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
			return
		}
		doctorID, err := uuid.Parse(r.URL.Query().Get("doctor_id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
			return
		}

		msgs, err := svc.Messages(r.Context(), patientID, doctorID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}
		if msgs == nil {
			msgs = []booking.Message{}
		}

		writeJSON(w, http.StatusOK, msgs)
	}
}

func handleReserveError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, booking.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, booking.ErrDoctorNotFound):
		writeError(w, http.StatusNotFound, "doctor_not_found", err.Error())
	case errors.Is(err, booking.ErrDoctorNotBookable):
		writeError(w, http.StatusConflict, "doctor_not_bookable", err.Error())
	case errors.Is(err, booking.ErrModeNotOffered):
		writeError(w, http.StatusConflict, "mode_not_offered", err.Error())
	case errors.Is(err, booking.ErrDateUnavailable):
		writeError(w, http.StatusConflict, "date_unavailable", err.Error())
	case errors.Is(err, booking.ErrSlotTaken):
		writeError(w, http.StatusConflict, "slot_taken", err.Error())
	case errors.Is(err, booking.ErrSlotBusy),
		errors.Is(err, redisclient.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, "slot_being_booked", "slot is currently being booked, please retry shortly")
	case errors.Is(err, booking.ErrValidation):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func handleCompleteError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, booking.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, booking.ErrNotAppointmentDoctor):
		writeError(w, http.StatusForbidden, "not_appointment_doctor", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
