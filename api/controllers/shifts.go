package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shiftwiseapp/shiftwise-backend/api/middleware"
	"github.com/shiftwiseapp/shiftwise-backend/api/responses"
	"github.com/shiftwiseapp/shiftwise-backend/api/validators"
	"github.com/shiftwiseapp/shiftwise-backend/internal/shifts"
	"github.com/shiftwiseapp/shiftwise-backend/pkg/enums"
	pkgerrors "github.com/shiftwiseapp/shiftwise-backend/pkg/errors"
	"github.com/shiftwiseapp/shiftwise-backend/pkg/logger"
	"github.com/shiftwiseapp/shiftwise-backend/pkg/pagination"
)

type createShiftBody struct {
	Name         string          `json:"name" validate:"required,max=200"`
	ShiftDate    time.Time       `json:"shift_date" validate:"required"`
	StartTime    time.Time       `json:"start_time" validate:"required"`
	EndTime      time.Time       `json:"end_time" validate:"required"`
	EndDate      *time.Time      `json:"end_date,omitempty"`
	IsOvernight  bool            `json:"is_overnight,omitempty"`
	ShiftType    string          `json:"shift_type,omitempty"`
	RequiredRole string          `json:"required_role,omitempty"`
	Capacity     int             `json:"capacity" validate:"required,min=1"`
	HourlyRate   decimal.Decimal `json:"hourly_rate"`
	Address      *string         `json:"address,omitempty"`
	City         *string         `json:"city,omitempty"`
	Postcode     *string         `json:"postcode,omitempty"`
	Latitude     *float64        `json:"latitude,omitempty" validate:"omitempty,latitude"`
	Longitude    *float64        `json:"longitude,omitempty" validate:"omitempty,longitude"`
	Notes        *string         `json:"notes,omitempty"`
	AgencyID     *string         `json:"agency_id,omitempty"`
}

type updateShiftBody struct {
	Name         *string          `json:"name,omitempty" validate:"omitempty,max=200"`
	ShiftDate    *time.Time       `json:"shift_date,omitempty"`
	StartTime    *time.Time       `json:"start_time,omitempty"`
	EndTime      *time.Time       `json:"end_time,omitempty"`
	EndDate      *time.Time       `json:"end_date,omitempty"`
	IsOvernight  *bool            `json:"is_overnight,omitempty"`
	ShiftType    *string          `json:"shift_type,omitempty"`
	RequiredRole *string          `json:"required_role,omitempty"`
	Capacity     *int             `json:"capacity,omitempty" validate:"omitempty,min=1"`
	HourlyRate   *decimal.Decimal `json:"hourly_rate,omitempty"`
	Address      *string          `json:"address,omitempty"`
	City         *string          `json:"city,omitempty"`
	Postcode     *string          `json:"postcode,omitempty"`
	Latitude     *float64         `json:"latitude,omitempty" validate:"omitempty,latitude"`
	Longitude    *float64         `json:"longitude,omitempty" validate:"omitempty,longitude"`
	Notes        *string          `json:"notes,omitempty"`
}

// ShiftCreate publishes a new shift for the actor's agency.
func ShiftCreate(svc shifts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		var body createShiftBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		agencyID, err := resolveAgencyScope(actor, body.AgencyID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		shift, err := svc.Create(r.Context(), actor, shifts.CreateShiftInput{
			AgencyID:     agencyID,
			Name:         validators.SanitizeString(body.Name, 200),
			ShiftDate:    body.ShiftDate,
			StartTime:    body.StartTime,
			EndTime:      body.EndTime,
			EndDate:      body.EndDate,
			IsOvernight:  body.IsOvernight,
			ShiftType:    enums.ShiftType(body.ShiftType),
			RequiredRole: body.RequiredRole,
			Capacity:     body.Capacity,
			HourlyRate:   body.HourlyRate,
			Address:      body.Address,
			City:         body.City,
			Postcode:     body.Postcode,
			Latitude:     body.Latitude,
			Longitude:    body.Longitude,
			Notes:        body.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, shift)
	}
}

// ShiftUpdate applies partial edits to a shift.
func ShiftUpdate(svc shifts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		shiftID, err := uuid.Parse(chi.URLParam(r, "shiftId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid shift id"))
			return
		}

		var body updateShiftBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := shifts.UpdateShiftInput{
			Name:         body.Name,
			ShiftDate:    body.ShiftDate,
			StartTime:    body.StartTime,
			EndTime:      body.EndTime,
			EndDate:      body.EndDate,
			IsOvernight:  body.IsOvernight,
			RequiredRole: body.RequiredRole,
			Capacity:     body.Capacity,
			HourlyRate:   body.HourlyRate,
			Address:      body.Address,
			City:         body.City,
			Postcode:     body.Postcode,
			Latitude:     body.Latitude,
			Longitude:    body.Longitude,
			Notes:        body.Notes,
		}
		if body.ShiftType != nil {
			shiftType := enums.ShiftType(*body.ShiftType)
			input.ShiftType = &shiftType
		}

		shift, err := svc.Update(r.Context(), actor, shiftID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, shift)
	}
}

// ShiftDeactivate cancels a shift and releases its assignments.
func ShiftDeactivate(svc shifts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		shiftID, err := uuid.Parse(chi.URLParam(r, "shiftId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid shift id"))
			return
		}

		if err := svc.Deactivate(r.Context(), actor, shiftID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "cancelled"})
	}
}

// ShiftGet returns one shift with its live capacity numbers.
func ShiftGet(svc shifts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		shiftID, err := uuid.Parse(chi.URLParam(r, "shiftId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid shift id"))
			return
		}

		detail, err := svc.Get(r.Context(), actor, shiftID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

// ShiftList returns a filtered page of the agency's shifts.
func ShiftList(svc shifts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filters, err := parseShiftFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}

		result, err := svc.List(r.Context(), actor, params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func parseShiftFilters(r *http.Request) (shifts.ShiftFilters, error) {
	var filters shifts.ShiftFilters

	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status := enums.ShiftStatus(raw)
		if !status.IsValid() {
			return filters, pkgerrors.New(pkgerrors.CodeValidation, "unknown shift status").WithDetails(map[string]any{"status": raw})
		}
		filters.Status = &status
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("type")); raw != "" {
		shiftType := enums.ShiftType(raw)
		if !shiftType.IsValid() {
			return filters, pkgerrors.New(pkgerrors.CodeValidation, "unknown shift type").WithDetails(map[string]any{"type": raw})
		}
		filters.ShiftType = &shiftType
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("from")); raw != "" {
		from, err := parseDateParam(raw)
		if err != nil {
			return filters, err
		}
		filters.FromDate = &from
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("to")); raw != "" {
		to, err := parseDateParam(raw)
		if err != nil {
			return filters, err
		}
		filters.ToDate = &to
	}

	activeOnly, err := validators.ParseQueryBool(r, "activeOnly", false)
	if err != nil {
		return filters, err
	}
	filters.ActiveOnly = activeOnly

	return filters, nil
}

func parseDateParam(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid date parameter")
	}
	return t, nil
}
