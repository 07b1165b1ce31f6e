// Package authz is the authorization engine: a pure decision function from
// (actor, action, ownership facts) to allow/deny. It never touches the store
// or the cache; callers resolve ownership facts first and pass them in.
package authz

import (
	"github.com/google/uuid"

	"taskboard/internal/model"
)

// Action identifies an operation subject to the policy table.
type Action string

const (
	ActionCreateTask        Action = "task:create"
	ActionListTasks         Action = "task:list"
	ActionReadTask          Action = "task:read"
	ActionListAssignedTasks Action = "task:list_assigned"
	ActionUpdateTaskStatus  Action = "task:update_status"
	ActionUpdateTask        Action = "task:update"
	ActionDeleteTask        Action = "task:delete"
	ActionListUsers         Action = "user:list"
	ActionDeleteUser        Action = "user:delete"
	ActionEditProfile       Action = "user:edit_profile"
	ActionUpdateRole        Action = "user:update_role"
)

// Reason is a distinguishable denial reason, surfaced verbatim to callers.
type Reason string

const (
	ReasonNotAuthenticated    Reason = "NOT_AUTHENTICATED"
	ReasonInsufficientRole    Reason = "INSUFFICIENT_ROLE"
	ReasonNotOwner            Reason = "NOT_OWNER"
	ReasonSelfActionForbidden Reason = "SELF_ACTION_FORBIDDEN"
)

// Actor is the authenticated identity attempting an operation. It is built
// from verified token claims, never from the cache or an unverified payload.
type Actor struct {
	ID   uuid.UUID
	Role model.Role
}

// Facts carries the ownership facts relevant to an action, resolved from the
// authoritative store by the caller.
type Facts struct {
	// TargetUserID is the user the action is aimed at (profile edits, role
	// changes, assigned-task listings).
	TargetUserID uuid.UUID
	// AssigneeID is the task's current assignee, nil when unassigned.
	AssigneeID *uuid.UUID
}

// Decision is the outcome of a policy check.
type Decision struct {
	Allowed bool
	Reason  Reason
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(reason Reason) Decision {
	return Decision{Reason: reason}
}

// Decide applies the policy table. Admin-only actions deny non-admins with
// InsufficientRole; ownership predicates deny with NotOwner; role self-change
// denies with SelfActionForbidden.
func Decide(actor Actor, action Action, facts Facts) Decision {
	if actor.ID == uuid.Nil || !actor.Role.Valid() {
		return deny(ReasonNotAuthenticated)
	}

	switch action {
	case ActionCreateTask, ActionListTasks, ActionReadTask,
		ActionUpdateTask, ActionDeleteTask,
		ActionListUsers, ActionDeleteUser:
		if actor.Role != model.RoleAdmin {
			return deny(ReasonInsufficientRole)
		}
		return allow()

	case ActionListAssignedTasks:
		if actor.Role == model.RoleAdmin {
			return allow()
		}
		if actor.ID != facts.TargetUserID {
			return deny(ReasonNotOwner)
		}
		return allow()

	case ActionUpdateTaskStatus:
		if actor.Role == model.RoleAdmin {
			return allow()
		}
		// Creatorship never grants status-update rights: only the current
		// assignee may move a task.
		if facts.AssigneeID == nil || *facts.AssigneeID != actor.ID {
			return deny(ReasonNotOwner)
		}
		return allow()

	case ActionEditProfile:
		if actor.ID != facts.TargetUserID {
			return deny(ReasonNotOwner)
		}
		return allow()

	case ActionUpdateRole:
		if actor.Role != model.RoleAdmin {
			return deny(ReasonInsufficientRole)
		}
		if actor.ID == facts.TargetUserID {
			return deny(ReasonSelfActionForbidden)
		}
		return allow()
	}

	return deny(ReasonInsufficientRole)
}
