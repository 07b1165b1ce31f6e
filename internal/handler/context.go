package handler

import (
	"net/http"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"taskboard/internal/auth"
	"taskboard/internal/authz"
	apperrors "taskboard/internal/errors"
)

// actorFromContext extracts the verified actor from the JWT middleware. The
// actor's id and role come from the signed claims only.
func actorFromContext(c echo.Context) (authz.Actor, error) {
	token, ok := c.Get("user").(*jwt.Token)
	if !ok {
		return authz.Actor{}, apperrors.Unauthenticated("NOT_AUTHENTICATED", "authentication required")
	}
	claims, ok := token.Claims.(*auth.Claims)
	if !ok {
		return authz.Actor{}, apperrors.Unauthenticated("NOT_AUTHENTICATED", "invalid token claims")
	}
	actor, err := claims.Actor()
	if err != nil {
		return authz.Actor{}, apperrors.Unauthenticated("NOT_AUTHENTICATED", "invalid token claims")
	}
	return actor, nil
}

// respondError maps a domain error to the standardized JSON error body.
func respondError(c echo.Context, err error) error {
	httpErr := apperrors.MapErrorToHTTP(err)
	return c.JSON(httpErr.StatusCode, httpErr.ToErrorResponse())
}

func uuidParam(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, apperrors.Validation("INVALID_ID", "invalid id")
	}
	return id, nil
}

func intQuery(c echo.Context, name string, def int) int {
	if v := c.QueryParam(name); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return apperrors.Validation("INVALID_BODY", "invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return apperrors.Validation("INVALID_BODY", err.Error())
	}
	return nil
}

// ok is a small success envelope used by delete-style endpoints.
func ok(c echo.Context, message string) error {
	return c.JSON(http.StatusOK, map[string]string{"message": message})
}
