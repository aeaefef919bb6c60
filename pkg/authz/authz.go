package authz

import (
	"github.com/google/uuid"

	"github.com/shiftwiseapp/shiftwise-backend/pkg/enums"
)

// Action names a capability an actor may exercise against a resource.
type Action string

const (
	ActionCreateShift Action = "shift:create"
	ActionEditShift   Action = "shift:edit"
	ActionCancelShift Action = "shift:cancel"
	ActionViewShift   Action = "shift:view"

	ActionAssignWorker      Action = "assignment:assign"
	ActionCancelAssignment  Action = "assignment:cancel"
	ActionMarkNoShow        Action = "assignment:mark_no_show"
	ActionAcceptAssignment  Action = "assignment:accept"
	ActionDeclineAssignment Action = "assignment:decline"
	ActionCompleteShift     Action = "assignment:complete"

	ActionManageSubscription Action = "subscription:manage"
	ActionViewNotifications  Action = "notification:view"
	ActionManageAgency       Action = "agency:manage"
)

// Actor is the authenticated principal performing an action.
type Actor struct {
	UserID   uuid.UUID
	Role     enums.UserRole
	AgencyID *uuid.UUID
}

// Resource describes the target of an action. AgencyID is the owning agency;
// WorkerID is set for assignment-scoped actions.
type Resource struct {
	AgencyID uuid.UUID
	WorkerID *uuid.UUID
}

// adminActions may only be exercised by agency admins of the owning agency.
var adminActions = map[Action]bool{
	ActionCreateShift:        true,
	ActionEditShift:          true,
	ActionCancelShift:        true,
	ActionAssignWorker:       true,
	ActionCancelAssignment:   true,
	ActionMarkNoShow:         true,
	ActionManageSubscription: true,
	ActionManageAgency:       true,
}

// workerActions may only be exercised by the worker the resource references.
var workerActions = map[Action]bool{
	ActionAcceptAssignment:  true,
	ActionDeclineAssignment: true,
	ActionCompleteShift:     true,
}

// Can reports whether the actor may perform action against the resource.
// Superusers pass every check; everyone else is scoped to their own agency,
// and worker transitions are additionally scoped to the assigned worker.
func Can(actor Actor, action Action, res Resource) bool {
	if actor.Role == enums.UserRoleSuperuser {
		return true
	}

	if !sameAgency(actor, res) {
		return false
	}

	if adminActions[action] {
		return actor.Role.IsAgencyAdmin()
	}

	if workerActions[action] {
		return res.WorkerID != nil && *res.WorkerID == actor.UserID
	}

	switch action {
	case ActionViewShift, ActionViewNotifications:
		return true
	}
	return false
}

func sameAgency(actor Actor, res Resource) bool {
	return actor.AgencyID != nil && *actor.AgencyID == res.AgencyID
}
