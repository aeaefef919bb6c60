package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/shiftwiseapp/shiftwise-backend/api/middleware"
	"github.com/shiftwiseapp/shiftwise-backend/api/responses"
	"github.com/shiftwiseapp/shiftwise-backend/api/validators"
	"github.com/shiftwiseapp/shiftwise-backend/internal/assignments"
	"github.com/shiftwiseapp/shiftwise-backend/pkg/authz"
	"github.com/shiftwiseapp/shiftwise-backend/pkg/enums"
	pkgerrors "github.com/shiftwiseapp/shiftwise-backend/pkg/errors"
	"github.com/shiftwiseapp/shiftwise-backend/pkg/logger"
	"github.com/shiftwiseapp/shiftwise-backend/pkg/pagination"
)

type assignWorkerBody struct {
	ShiftID  string `json:"shift_id" validate:"required"`
	WorkerID string `json:"worker_id" validate:"required"`
	Role     string `json:"role,omitempty" validate:"omitempty,max=100"`
}

// AssignmentCreate offers a shift to a worker.
func AssignmentCreate(svc assignments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		var body assignWorkerBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		shiftID, err := uuid.Parse(body.ShiftID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid shift id"))
			return
		}
		workerID, err := uuid.Parse(body.WorkerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid worker id"))
			return
		}

		assignment, err := svc.Assign(r.Context(), actor, assignments.AssignInput{
			ShiftID:  shiftID,
			WorkerID: workerID,
			Role:     validators.SanitizeString(body.Role, 100),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, assignment)
	}
}

// AssignmentAccept lets the assigned worker confirm the shift.
func AssignmentAccept(svc assignments.Service, logg *logger.Logger) http.HandlerFunc {
	return assignmentTransition(svc.Accept, logg)
}

// AssignmentDecline lets the assigned worker turn the shift down.
func AssignmentDecline(svc assignments.Service, logg *logger.Logger) http.HandlerFunc {
	return assignmentTransition(svc.Decline, logg)
}

// AssignmentCancel withdraws an offer or confirmed assignment.
func AssignmentCancel(svc assignments.Service, logg *logger.Logger) http.HandlerFunc {
	return assignmentTransition(svc.Cancel, logg)
}

// AssignmentMarkNoShow records that the worker did not attend.
func AssignmentMarkNoShow(svc assignments.Service, logg *logger.Logger) http.HandlerFunc {
	return assignmentTransition(svc.MarkNoShow, logg)
}

func assignmentTransition(fn func(context.Context, authz.Actor, uuid.UUID) error, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := middleware.ActorFromContext(r.Context())
		if !ok {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
			return
		}

		assignmentID, err := uuid.Parse(chi.URLParam(r, "assignmentId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid assignment id"))
			return
		}

		if err := fn(r.Context(), actor, assignmentID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "ok"})
	}
}

// AssignmentList returns assignments visible to the actor: the whole agency
// for admins, the worker's own rows otherwise.
func AssignmentList(svc assignments.Service, logg *logger.Logger) http.HandlerFunc {
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

		var filters assignments.AssignmentFilters
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status := enums.AssignmentStatus(raw)
			if !status.IsValid() {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown assignment status").WithDetails(map[string]any{"status": raw}))
				return
			}
			filters.Status = &status
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("shiftId")); raw != "" {
			shiftID, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid shift id"))
				return
			}
			filters.ShiftID = &shiftID
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
