package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/shiftwiseapp/shiftwise-backend/api/middleware"
	"github.com/shiftwiseapp/shiftwise-backend/api/responses"
	"github.com/shiftwiseapp/shiftwise-backend/api/validators"
	"github.com/shiftwiseapp/shiftwise-backend/internal/completions"
	pkgerrors "github.com/shiftwiseapp/shiftwise-backend/pkg/errors"
	"github.com/shiftwiseapp/shiftwise-backend/pkg/logger"
)

// Coordinates are pointers: required on a plain float64 would reject the zero
// value, and latitude 0 / longitude 0 are valid positions.
type completeAssignmentBody struct {
	SignatureDataURL string   `json:"signature" validate:"required"`
	Latitude         *float64 `json:"latitude" validate:"required,latitude"`
	Longitude        *float64 `json:"longitude" validate:"required,longitude"`
	ConfirmedAddress string   `json:"confirmed_address" validate:"required,max=500"`
}

// AssignmentComplete records completion evidence for an accepted assignment:
// the client signature image plus the worker's reported location.
func AssignmentComplete(svc completions.Service, logg *logger.Logger) http.HandlerFunc {
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

		var body completeAssignmentBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		err = svc.Complete(r.Context(), actor, completions.CompleteInput{
			AssignmentID:     assignmentID,
			SignatureDataURL: body.SignatureDataURL,
			Latitude:         *body.Latitude,
			Longitude:        *body.Longitude,
			ConfirmedAddress: validators.SanitizeString(body.ConfirmedAddress, 500),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "completed"})
	}
}
