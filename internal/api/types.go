package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/medibook/booking-core/internal/account"
	"github.com/medibook/booking-core/internal/availability"
)

type SignUpRequest struct {
	Email         string                 `json:"email"`
	DisplayName   string                 `json:"display_name"`
	RequestedRole string                 `json:"requested_role"`
	Profile       *account.DoctorProfile `json:"profile,omitempty"`
}

type AccountResponse struct {
	ID            uuid.UUID              `json:"id"`
	Email         string                 `json:"email"`
	DisplayName   string                 `json:"display_name"`
	Role          string                 `json:"role"`
	Status        string                 `json:"account_status"`
	RequestedRole *string                `json:"requested_role,omitempty"`
	Profile       *account.DoctorProfile `json:"profile,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
	LastLogin     *time.Time             `json:"last_login,omitempty"`
	ApprovedAt    *time.Time             `json:"approved_at,omitempty"`
	RejectedAt    *time.Time             `json:"rejected_at,omitempty"`
}

func toAccountResponse(a *account.Account) AccountResponse {
	resp := AccountResponse{
		ID:          a.ID,
		Email:       a.Email,
		DisplayName: a.DisplayName,
		Role:        string(a.Role),
		Status:      string(a.Status),
		Profile:     a.Profile,
		CreatedAt:   a.CreatedAt,
		LastLogin:   a.LastLogin,
		ApprovedAt:  a.ApprovedAt,
		RejectedAt:  a.RejectedAt,
	}
	if a.RequestedRole != nil {
		s := string(*a.RequestedRole)
		resp.RequestedRole = &s
	}
	return resp
}

func toAccountResponses(accounts []account.Account) []AccountResponse {
	out := make([]AccountResponse, 0, len(accounts))
	for i := range accounts {
		out = append(out, toAccountResponse(&accounts[i]))
	}
	return out
}

type ReserveSlotRequest struct {
	DoctorID  string `json:"doctor_id"`
	PatientID string `json:"patient_id"`
	Date      string `json:"date,omitempty"`
	Time      string `json:"time"`
	Mode      string `json:"mode"`
}

type AddBlockRequest struct {
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type CalendarResponse struct {
	Year  int                    `json:"year"`
	Month int                    `json:"month"`
	Cells []availability.DayCell `json:"cells"`
}

type SlotsResponse struct {
	Mode   string                      `json:"mode"`
	Date   string                      `json:"date,omitempty"`
	Slots  []string                    `json:"slots,omitempty"`
	Offers []availability.InstantOffer `json:"offers,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
