// Package service holds the domain services. Every operation follows the same
// order: validate input shape, resolve ownership facts from the store, ask the
// authorization engine, mutate the store, then run the cache write path. A
// denial means zero store and cache effect; a cache failure never fails the
// operation.
package service

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"taskboard/internal/authz"
	apperrors "taskboard/internal/errors"
	"taskboard/internal/metrics"
)

const defaultPageLimit = 10

// PageMeta describes one page of a listing.
type PageMeta struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"totalPages"`
}

func newPageMeta(total int64, page, limit int) PageMeta {
	pages := int(total) / limit
	if int(total)%limit != 0 {
		pages++
	}
	return PageMeta{Total: total, Page: page, Limit: limit, TotalPages: pages}
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageLimit
	}
	return page, limit
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// denied translates an engine denial into the externally-visible error,
// keeping the reason distinguishable.
func denied(d authz.Decision) error {
	metrics.AuthzDenialsTotal.WithLabelValues(string(d.Reason)).Inc()
	switch d.Reason {
	case authz.ReasonNotAuthenticated:
		return apperrors.Unauthenticated(string(d.Reason), "authentication required")
	case authz.ReasonNotOwner:
		return apperrors.Denied(string(d.Reason), "you do not own this resource")
	case authz.ReasonSelfActionForbidden:
		return apperrors.Denied(string(d.Reason), "you cannot perform this action on yourself")
	default:
		return apperrors.Denied(string(d.Reason), "you do not have permission to perform this action")
	}
}

// storeErr maps a repository error: record-not-found becomes the given
// NOT_FOUND error, anything else is a store dependency failure.
func storeErr(err error, notFound *apperrors.Error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	return apperrors.Unavailable("store unavailable", err)
}
