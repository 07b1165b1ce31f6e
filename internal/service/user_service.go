package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"taskboard/internal/auth"
	"taskboard/internal/authz"
	"taskboard/internal/cache"
	apperrors "taskboard/internal/errors"
	"taskboard/internal/metrics"
	"taskboard/internal/model"
	"taskboard/internal/repository"
)

const bcryptCost = 10

// UserPage is one page of the user listing.
type UserPage struct {
	Data []model.UserProjection `json:"data"`
	Meta PageMeta               `json:"meta"`
}

// UserPatch is the explicit partial-update structure for a user's own
// profile. Role and id are deliberately absent: the allow-list for self-edits
// is name, email and password only.
type UserPatch struct {
	Name     *string
	Email    *string
	Password *string
}

// UserService exposes user domain operations.
type UserService interface {
	Register(ctx context.Context, name, email, password string) (*model.User, string, error)
	Login(ctx context.Context, email, password string) (*model.User, string, error)
	List(ctx context.Context, actor authz.Actor, search string, page, limit int) (*UserPage, error)
	Delete(ctx context.Context, actor authz.Actor, id uuid.UUID) error
	Profile(ctx context.Context, actor authz.Actor) (*model.UserProjection, error)
	EditProfile(ctx context.Context, actor authz.Actor, id uuid.UUID, patch UserPatch) (*model.UserProjection, error)
	UpdateRole(ctx context.Context, actor authz.Actor, id uuid.UUID, role model.Role) (*model.User, error)
}

type userService struct {
	users    repository.UserRepository
	coord    *cache.Coordinator
	jwt      *auth.JWTService
	sessions auth.SessionStoreInterface
	log      zerolog.Logger
}

// NewUserService builds a UserService.
func NewUserService(users repository.UserRepository, coord *cache.Coordinator, jwt *auth.JWTService, sessions auth.SessionStoreInterface, log zerolog.Logger) UserService {
	return &userService{users: users, coord: coord, jwt: jwt, sessions: sessions, log: log}
}

// Register creates a user with a hashed password and issues a session token.
// The cache lookup for the email is only a fast path: the store's unique
// constraint is the final authority on duplicates, so a constraint violation
// maps to the same conflict error as a cache hit.
func (s *userService) Register(ctx context.Context, name, email, password string) (*model.User, string, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" || email == "" || password == "" {
		return nil, "", apperrors.Validation("MISSING_FIELDS", "name, email and password are required")
	}

	var cached model.UserProjection
	if s.coord.Lookup(ctx, cache.UserEmailKey(email), &cached) {
		return nil, "", apperrors.Conflict("EMAIL_TAKEN", "email already registered")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return nil, "", apperrors.Internal("hash password", err)
	}

	user := &model.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hashed),
		Role:         model.RoleUser,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, "", apperrors.Conflict("EMAIL_TAKEN", "email already registered")
		}
		return nil, "", apperrors.Unavailable("store unavailable", err)
	}

	projection := user.Projection()
	s.coord.Put(ctx, cache.UserEmailKey(email), projection, cache.EntityTTL)
	s.coord.WriteThrough(ctx, cache.UserKey(user.ID), projection, cache.EntityTTL, cache.UserListPrefix)

	token, err := s.jwt.GenerateToken(user)
	if err != nil {
		return nil, "", apperrors.Internal("sign token", err)
	}
	_ = s.sessions.Store(ctx, user.ID, token, cache.TokenTTL)

	s.log.Info().Str("user_id", user.ID.String()).Msg("user registered")
	return user, token, nil
}

// Login verifies credentials against the store and issues a session token.
// Claims are built from the fresh store row, never from the cache.
func (s *userService) Login(ctx context.Context, email, password string) (*model.User, string, error) {
	email = normalizeEmail(email)

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("failed").Inc()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", apperrors.Unauthenticated("INVALID_CREDENTIALS", "invalid email or password")
		}
		return nil, "", apperrors.Unavailable("store unavailable", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		metrics.LoginsTotal.WithLabelValues("failed").Inc()
		return nil, "", apperrors.Unauthenticated("INVALID_CREDENTIALS", "invalid email or password")
	}

	projection := user.Projection()
	s.coord.Put(ctx, cache.UserEmailKey(email), projection, cache.EntityTTL)
	s.coord.Put(ctx, cache.UserKey(user.ID), projection, cache.EntityTTL)

	token, err := s.jwt.GenerateToken(user)
	if err != nil {
		return nil, "", apperrors.Internal("sign token", err)
	}
	_ = s.sessions.Store(ctx, user.ID, token, cache.TokenTTL)

	metrics.LoginsTotal.WithLabelValues("ok").Inc()
	return user, token, nil
}

// List returns one page of users. Admin only. Pages are cached briefly under
// a collection key derived from the full filter tuple.
func (s *userService) List(ctx context.Context, actor authz.Actor, search string, page, limit int) (*UserPage, error) {
	if d := authz.Decide(actor, authz.ActionListUsers, authz.Facts{}); !d.Allowed {
		return nil, denied(d)
	}
	page, limit = normalizePage(page, limit)

	var result UserPage
	err := s.coord.ReadThrough(ctx, cache.UserListKey(search, page, limit), cache.CollectionTTL, &result, func() (interface{}, error) {
		users, total, err := s.users.Search(ctx, search, page, limit)
		if err != nil {
			return nil, apperrors.Unavailable("store unavailable", err)
		}
		projections := make([]model.UserProjection, 0, len(users))
		for i := range users {
			projections = append(projections, users[i].Projection())
		}
		return &UserPage{Data: projections, Meta: newPageMeta(total, page, limit)}, nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Delete removes a user. Admin only. Every cache entry keyed by the user's
// id, email or token is evicted before the deletion is acknowledged.
func (s *userService) Delete(ctx context.Context, actor authz.Actor, id uuid.UUID) error {
	if d := authz.Decide(actor, authz.ActionDeleteUser, authz.Facts{}); !d.Allowed {
		return denied(d)
	}

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return storeErr(err, apperrors.NotFound("USER_NOT_FOUND", "user not found"))
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return apperrors.Unavailable("store unavailable", err)
	}

	s.coord.Evict(ctx, cache.UserKey(id), cache.UserEmailKey(user.Email))
	_ = s.sessions.Invalidate(ctx, id)
	s.coord.EvictCollections(ctx, cache.UserListPrefix, cache.TaskListPrefix, cache.AssignedTaskUserPrefix(id))

	s.log.Info().Str("user_id", id.String()).Msg("user deleted")
	return nil
}

// Profile returns the actor's own cache-safe projection.
func (s *userService) Profile(ctx context.Context, actor authz.Actor) (*model.UserProjection, error) {
	if actor.ID == uuid.Nil {
		return nil, apperrors.Unauthenticated(string(authz.ReasonNotAuthenticated), "authentication required")
	}

	var projection model.UserProjection
	err := s.coord.ReadThrough(ctx, cache.UserKey(actor.ID), cache.EntityTTL, &projection, func() (interface{}, error) {
		user, err := s.users.FindByID(ctx, actor.ID)
		if err != nil {
			return nil, storeErr(err, apperrors.NotFound("USER_NOT_FOUND", "user not found"))
		}
		return user.Projection(), nil
	})
	if err != nil {
		return nil, err
	}
	return &projection, nil
}

// EditProfile applies a self-edit patch (name, email, password). Changing the
// email invalidates the cached session token so the user re-authenticates;
// name-only changes do not.
func (s *userService) EditProfile(ctx context.Context, actor authz.Actor, id uuid.UUID, patch UserPatch) (*model.UserProjection, error) {
	if d := authz.Decide(actor, authz.ActionEditProfile, authz.Facts{TargetUserID: id}); !d.Allowed {
		return nil, denied(d)
	}

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, apperrors.NotFound("USER_NOT_FOUND", "user not found"))
	}

	oldEmail := user.Email
	emailChanged := false

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, apperrors.Validation("EMPTY_NAME", "name cannot be empty")
		}
		user.Name = name
	}
	if patch.Email != nil {
		email := normalizeEmail(*patch.Email)
		if email == "" {
			return nil, apperrors.Validation("EMPTY_EMAIL", "email cannot be empty")
		}
		if email != oldEmail {
			user.Email = email
			emailChanged = true
		}
	}
	if patch.Password != nil {
		if len(*patch.Password) < 6 {
			return nil, apperrors.Validation("WEAK_PASSWORD", "password must be at least 6 characters")
		}
		hashed, err := bcrypt.GenerateFromPassword([]byte(*patch.Password), bcryptCost)
		if err != nil {
			return nil, apperrors.Internal("hash password", err)
		}
		user.PasswordHash = string(hashed)
	}

	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.Conflict("EMAIL_TAKEN", "email already in use")
		}
		return nil, apperrors.Unavailable("store unavailable", err)
	}

	projection := user.Projection()
	if emailChanged {
		s.coord.Evict(ctx, cache.UserEmailKey(oldEmail))
		_ = s.sessions.Invalidate(ctx, user.ID)
	}
	s.coord.Put(ctx, cache.UserEmailKey(user.Email), projection, cache.EntityTTL)
	s.coord.WriteThrough(ctx, cache.UserKey(user.ID), projection, cache.EntityTTL, cache.UserListPrefix)

	return &projection, nil
}

// UpdateRole changes a user's role. Admin only, and never on the admin's own
// account. An unchanged role is a no-op success. The cached session token is
// evicted so the subject re-authenticates with fresh claims.
func (s *userService) UpdateRole(ctx context.Context, actor authz.Actor, id uuid.UUID, role model.Role) (*model.User, error) {
	if !role.Valid() {
		return nil, apperrors.Validation("INVALID_ROLE", "role must be admin or user")
	}
	if d := authz.Decide(actor, authz.ActionUpdateRole, authz.Facts{TargetUserID: id}); !d.Allowed {
		return nil, denied(d)
	}

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, apperrors.NotFound("USER_NOT_FOUND", "user not found"))
	}
	if user.Role == role {
		return user, nil
	}

	user.Role = role
	if err := s.users.Update(ctx, user); err != nil {
		return nil, apperrors.Unavailable("store unavailable", err)
	}

	_ = s.sessions.Invalidate(ctx, user.ID)
	s.coord.WriteThrough(ctx, cache.UserKey(user.ID), user.Projection(), cache.EntityTTL, cache.UserListPrefix)

	s.log.Info().Str("user_id", id.String()).Str("role", string(role)).Msg("user role updated")
	return user, nil
}
