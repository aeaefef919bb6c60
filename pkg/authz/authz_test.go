package authz

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/shiftwiseapp/shiftwise-backend/pkg/enums"
)

func TestCan(t *testing.T) {
	agencyA := uuid.New()
	agencyB := uuid.New()
	worker := uuid.New()
	otherWorker := uuid.New()

	admin := Actor{UserID: uuid.New(), Role: enums.UserRoleAgencyManager, AgencyID: &agencyA}
	owner := Actor{UserID: uuid.New(), Role: enums.UserRoleAgencyOwner, AgencyID: &agencyA}
	staff := Actor{UserID: worker, Role: enums.UserRoleStaff, AgencyID: &agencyA}
	super := Actor{UserID: uuid.New(), Role: enums.UserRoleSuperuser}
	orphan := Actor{UserID: uuid.New(), Role: enums.UserRoleStaff}

	shiftInA := Resource{AgencyID: agencyA}
	shiftInB := Resource{AgencyID: agencyB}
	assignmentForWorker := Resource{AgencyID: agencyA, WorkerID: &worker}
	assignmentForOther := Resource{AgencyID: agencyA, WorkerID: &otherWorker}

	cases := []struct {
		name   string
		actor  Actor
		action Action
		res    Resource
		want   bool
	}{
		{"manager creates shift in own agency", admin, ActionCreateShift, shiftInA, true},
		{"owner cancels shift in own agency", owner, ActionCancelShift, shiftInA, true},
		{"manager cannot touch other agency", admin, ActionCreateShift, shiftInB, false},
		{"staff cannot create shifts", staff, ActionCreateShift, shiftInA, false},
		{"staff cannot assign workers", staff, ActionAssignWorker, shiftInA, false},
		{"manager assigns worker", admin, ActionAssignWorker, shiftInA, true},
		{"manager marks no-show", admin, ActionMarkNoShow, assignmentForWorker, true},
		{"assigned worker accepts", staff, ActionAcceptAssignment, assignmentForWorker, true},
		{"assigned worker completes", staff, ActionCompleteShift, assignmentForWorker, true},
		{"worker cannot accept someone else's assignment", staff, ActionAcceptAssignment, assignmentForOther, false},
		{"admin cannot accept on worker's behalf", admin, ActionAcceptAssignment, assignmentForWorker, false},
		{"staff views shifts in own agency", staff, ActionViewShift, shiftInA, true},
		{"staff cannot view shifts elsewhere", staff, ActionViewShift, shiftInB, false},
		{"superuser passes everything", super, ActionAssignWorker, shiftInB, true},
		{"actor without agency is denied", orphan, ActionViewShift, shiftInA, false},
		{"manager manages subscription", admin, ActionManageSubscription, shiftInA, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Can(tc.actor, tc.action, tc.res))
		})
	}
}
