package cache

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Key families. Entity keys hold a single projection with a long TTL;
// collection keys hold one page of a filtered listing with a short TTL and
// live under a shared prefix so a mutation can drop them all in one sweep.
const (
	// EntityTTL is the lifetime of a single-entity projection.
	EntityTTL = time.Hour
	// CollectionTTL is the lifetime of a cached listing page. Listings are
	// higher-churn, so they expire in seconds rather than hours.
	CollectionTTL = time.Minute
	// TokenTTL mirrors the JWT lifetime so stale sessions age out on their own.
	TokenTTL = time.Hour
)

const (
	UserListPrefix     = "users:list:"
	TaskListPrefix     = "tasks:list:"
	AssignedTaskPrefix = "tasks:assigned:"
)

// UserKey is the entity key for a user projection.
func UserKey(id uuid.UUID) string {
	return fmt.Sprintf("user:%s", id)
}

// UserEmailKey is the advisory duplicate-registration fast-path key.
func UserEmailKey(email string) string {
	return fmt.Sprintf("user:email:%s", email)
}

// TokenKey holds the cached session token for a user. Evicting it forces
// re-authentication.
func TokenKey(id uuid.UUID) string {
	return fmt.Sprintf("token:%s", id)
}

// TaskKey is the entity key for a task.
func TaskKey(id uuid.UUID) string {
	return fmt.Sprintf("task:%s", id)
}

// UserListKey is the collection key for one page of the user listing.
func UserListKey(search string, page, limit int) string {
	if search == "" {
		search = "none"
	}
	return fmt.Sprintf("%ssearch=%s:page=%d:limit=%d", UserListPrefix, search, page, limit)
}

// TaskListKey is the collection key for one page of the task listing.
func TaskListKey(search string, page, limit int) string {
	if search == "" {
		search = "none"
	}
	return fmt.Sprintf("%ssearch=%s:page=%d:limit=%d", TaskListPrefix, search, page, limit)
}

// AssignedTaskListKey is the collection key for one page of a user's
// assigned-task listing.
func AssignedTaskListKey(userID uuid.UUID, page, limit int, status string) string {
	if status == "" {
		status = "any"
	}
	return fmt.Sprintf("%s%s:page=%d:limit=%d:status=%s", AssignedTaskPrefix, userID, page, limit, status)
}

// AssignedTaskUserPrefix scopes the bulk delete to a single user's
// assigned-task pages.
func AssignedTaskUserPrefix(userID uuid.UUID) string {
	return fmt.Sprintf("%s%s:", AssignedTaskPrefix, userID)
}
