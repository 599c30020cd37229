package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/medibook/booking-core/internal/account"
)

// actorID reads the acting account from the X-Account-ID header. Token
// verification lives in the outer surface; the core only needs the identity.
func actorID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(r.Header.Get("X-Account-ID"))
}

func signUpHandler(svc *account.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SignUpRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		created, err := svc.SignUp(r.Context(), account.SignUpParams{
			Email:         req.Email,
			DisplayName:   req.DisplayName,
			RequestedRole: account.Role(req.RequestedRole),
			Profile:       req.Profile,
		})
		if err != nil {
			handleAccountError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAccountResponse(created))
	}
}

func getAccountHandler(svc *account.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_account_id", "id must be a valid UUID")
			return
		}

		a, err := svc.Get(r.Context(), id)
		if err != nil {
			handleAccountError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAccountResponse(a))
	}
}

func approveRoleHandler(svc *account.Service) http.HandlerFunc {
	return roleDecisionHandler(svc.Approve)
}

func rejectRoleHandler(svc *account.Service) http.HandlerFunc {
	return roleDecisionHandler(svc.Reject)
}

func roleDecisionHandler(decide func(ctx context.Context, actorID, accountID uuid.UUID) (*account.Account, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorID(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "missing_actor", "X-Account-ID header must be a valid UUID")
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_account_id", "id must be a valid UUID")
			return
		}

		updated, err := decide(r.Context(), actor, id)
		if err != nil {
			handleAccountError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAccountResponse(updated))
	}
}

func listPendingHandler(svc *account.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorID(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "missing_actor", "X-Account-ID header must be a valid UUID")
			return
		}

		pending, err := svc.ListPending(r.Context(), actor)
		if err != nil {
			handleAccountError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAccountResponses(pending))
	}
}

func removeAccountHandler(svc *account.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorID(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "missing_actor", "X-Account-ID header must be a valid UUID")
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_account_id", "id must be a valid UUID")
			return
		}

		if err := svc.Remove(r.Context(), actor, id); err != nil {
			handleAccountError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func listDoctorsHandler(svc *account.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctors, err := svc.ListDoctors(r.Context(), r.URL.Query().Get("appointment_type"))
		if err != nil {
			handleAccountError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAccountResponses(doctors))
	}
}

func handleAccountError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, account.ErrNotAdmin):
		writeError(w, http.StatusForbidden, "not_admin", err.Error())
	case errors.Is(err, account.ErrAccountNotFound):
		writeError(w, http.StatusNotFound, "account_not_found", err.Error())
	case errors.Is(err, account.ErrNoPendingRequest):
		writeError(w, http.StatusConflict, "no_pending_request", err.Error())
	case errors.Is(err, account.ErrEmailTaken):
		writeError(w, http.StatusConflict, "email_taken", err.Error())
	case errors.Is(err, account.ErrValidation):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
