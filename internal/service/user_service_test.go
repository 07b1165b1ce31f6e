package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"taskboard/internal/auth"
	"taskboard/internal/authz"
	"taskboard/internal/cache"
	apperrors "taskboard/internal/errors"
	"taskboard/internal/model"
)

// MockUserRepository is a mock implementation of UserRepository.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) Search(ctx context.Context, search string, page, limit int) ([]model.User, int64, error) {
	args := m.Called(ctx, search, page, limit)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]model.User), args.Get(1).(int64), args.Error(2)
}

func (m *MockUserRepository) Update(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockSessionStore is a mock implementation of SessionStoreInterface.
type MockSessionStore struct {
	mock.Mock
}

func (m *MockSessionStore) Store(ctx context.Context, userID uuid.UUID, token string, ttl time.Duration) error {
	args := m.Called(ctx, userID, token, ttl)
	return args.Error(0)
}

func (m *MockSessionStore) Invalidate(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func newUserServiceForTest(repo *MockUserRepository, sessions *MockSessionStore) (UserService, *cache.Memory) {
	mem := cache.NewMemory()
	coord := cache.NewCoordinator(mem, zerolog.Nop())
	jwtService := auth.NewJWTService("test-secret")
	return NewUserService(repo, coord, jwtService, sessions, zerolog.Nop()), mem
}

func TestUserService_Register(t *testing.T) {
	tests := []struct {
		name         string
		inputName    string
		email        string
		password     string
		setupMock    func(*MockUserRepository, *MockSessionStore)
		expectedKind apperrors.Kind
		expectedCode string
	}{
		{
			name:      "successful registration",
			inputName: "Alice",
			email:     "Alice@Example.com",
			password:  "password123",
			setupMock: func(repo *MockUserRepository, sessions *MockSessionStore) {
				repo.On("Create", mock.Anything, mock.AnythingOfType("*model.User")).
					Run(func(args mock.Arguments) {
						args.Get(1).(*model.User).ID = uuid.New()
					}).Return(nil)
				sessions.On("Store", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
			},
		},
		{
			name:         "missing fields",
			inputName:    "   ",
			email:        "alice@example.com",
			password:     "password123",
			setupMock:    func(repo *MockUserRepository, sessions *MockSessionStore) {},
			expectedKind: apperrors.KindValidation,
			expectedCode: "MISSING_FIELDS",
		},
		{
			name:      "duplicate email caught by the store constraint",
			inputName: "Alice",
			email:     "alice@example.com",
			password:  "password123",
			setupMock: func(repo *MockUserRepository, sessions *MockSessionStore) {
				repo.On("Create", mock.Anything, mock.AnythingOfType("*model.User")).Return(gorm.ErrDuplicatedKey)
			},
			expectedKind: apperrors.KindConflict,
			expectedCode: "EMAIL_TAKEN",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockUserRepository)
			sessions := new(MockSessionStore)
			tt.setupMock(repo, sessions)
			svc, mem := newUserServiceForTest(repo, sessions)

			user, token, err := svc.Register(context.Background(), tt.inputName, tt.email, tt.password)

			if tt.expectedCode != "" {
				assert.Error(t, err)
				assert.Equal(t, tt.expectedKind, apperrors.KindOf(err))
				assert.Equal(t, tt.expectedCode, apperrors.CodeOf(err))
				assert.Nil(t, user)
				assert.Empty(t, token)
			} else {
				assert.NoError(t, err)
				assert.NotEmpty(t, token)
				assert.Equal(t, "alice@example.com", user.Email)
				assert.Equal(t, model.RoleUser, user.Role)
				assert.NotEqual(t, "password123", user.PasswordHash)

				// The projection landed under the id and email keys.
				data, _ := mem.Get(context.Background(), cache.UserKey(user.ID))
				assert.NotNil(t, data)
				data, _ = mem.Get(context.Background(), cache.UserEmailKey(user.Email))
				assert.NotNil(t, data)
			}
			repo.AssertExpectations(t)
			sessions.AssertExpectations(t)
		})
	}
}

func TestUserService_Register_CacheFastPathConflict(t *testing.T) {
	repo := new(MockUserRepository)
	sessions := new(MockSessionStore)
	svc, mem := newUserServiceForTest(repo, sessions)

	coord := cache.NewCoordinator(mem, zerolog.Nop())
	coord.Put(context.Background(), cache.UserEmailKey("taken@example.com"),
		model.UserProjection{ID: uuid.New(), Email: "taken@example.com"}, cache.EntityTTL)

	_, _, err := svc.Register(context.Background(), "Bob", "taken@example.com", "password123")
	assert.Error(t, err)
	assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))
	assert.Equal(t, "EMAIL_TAKEN", apperrors.CodeOf(err))

	// The fast path short-circuits before the store is touched.
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestUserService_Login(t *testing.T) {
	hashed, _ := bcrypt.GenerateFromPassword([]byte("password123"), 10)
	stored := &model.User{
		ID:           uuid.New(),
		Name:         "Alice",
		Email:        "alice@example.com",
		PasswordHash: string(hashed),
		Role:         model.RoleUser,
	}

	tests := []struct {
		name         string
		email        string
		password     string
		setupMock    func(*MockUserRepository, *MockSessionStore)
		expectedCode string
	}{
		{
			name:     "successful login with mixed-case email",
			email:    "Alice@Example.COM",
			password: "password123",
			setupMock: func(repo *MockUserRepository, sessions *MockSessionStore) {
				repo.On("FindByEmail", mock.Anything, "alice@example.com").Return(stored, nil)
				sessions.On("Store", mock.Anything, stored.ID, mock.Anything, mock.Anything).Return(nil)
			},
		},
		{
			name:     "unknown email",
			email:    "nobody@example.com",
			password: "password123",
			setupMock: func(repo *MockUserRepository, sessions *MockSessionStore) {
				repo.On("FindByEmail", mock.Anything, "nobody@example.com").Return(nil, gorm.ErrRecordNotFound)
			},
			expectedCode: "INVALID_CREDENTIALS",
		},
		{
			name:     "wrong password",
			email:    "alice@example.com",
			password: "wrong",
			setupMock: func(repo *MockUserRepository, sessions *MockSessionStore) {
				repo.On("FindByEmail", mock.Anything, "alice@example.com").Return(stored, nil)
			},
			expectedCode: "INVALID_CREDENTIALS",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockUserRepository)
			sessions := new(MockSessionStore)
			tt.setupMock(repo, sessions)
			svc, _ := newUserServiceForTest(repo, sessions)

			user, token, err := svc.Login(context.Background(), tt.email, tt.password)

			if tt.expectedCode != "" {
				assert.Error(t, err)
				assert.Equal(t, apperrors.KindAuthenticationRequired, apperrors.KindOf(err))
				assert.Equal(t, tt.expectedCode, apperrors.CodeOf(err))
				assert.Nil(t, user)
				assert.Empty(t, token)
			} else {
				assert.NoError(t, err)
				assert.NotEmpty(t, token)
				assert.Equal(t, stored.ID, user.ID)
			}
			repo.AssertExpectations(t)
			sessions.AssertExpectations(t)
		})
	}
}

func TestUserService_List(t *testing.T) {
	admin := authz.Actor{ID: uuid.New(), Role: model.RoleAdmin}
	user := authz.Actor{ID: uuid.New(), Role: model.RoleUser}

	t.Run("non-admin is denied before the store is touched", func(t *testing.T) {
		repo := new(MockUserRepository)
		svc, _ := newUserServiceForTest(repo, new(MockSessionStore))

		_, err := svc.List(context.Background(), user, "", 1, 10)
		assert.Error(t, err)
		assert.Equal(t, apperrors.KindAuthorizationDenied, apperrors.KindOf(err))
		repo.AssertNotCalled(t, "Search", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("admin gets a page with meta", func(t *testing.T) {
		repo := new(MockUserRepository)
		repo.On("Search", mock.Anything, "", 1, 10).Return([]model.User{
			{ID: uuid.New(), Name: "Alice", Email: "alice@example.com"},
			{ID: uuid.New(), Name: "Bob", Email: "bob@example.com"},
		}, int64(12), nil)
		svc, _ := newUserServiceForTest(repo, new(MockSessionStore))

		page, err := svc.List(context.Background(), admin, "", 1, 10)
		assert.NoError(t, err)
		assert.Len(t, page.Data, 2)
		assert.Equal(t, int64(12), page.Meta.Total)
		assert.Equal(t, 2, page.Meta.TotalPages)
		repo.AssertExpectations(t)
	})

	t.Run("second identical request is served from the cache", func(t *testing.T) {
		repo := new(MockUserRepository)
		repo.On("Search", mock.Anything, "ali", 1, 10).Return([]model.User{
			{ID: uuid.New(), Name: "Alice", Email: "alice@example.com"},
		}, int64(1), nil).Once()
		svc, _ := newUserServiceForTest(repo, new(MockSessionStore))

		_, err := svc.List(context.Background(), admin, "ali", 1, 10)
		assert.NoError(t, err)
		page, err := svc.List(context.Background(), admin, "ali", 1, 10)
		assert.NoError(t, err)
		assert.Len(t, page.Data, 1)
		repo.AssertExpectations(t)
	})
}

func TestUserService_Delete(t *testing.T) {
	admin := authz.Actor{ID: uuid.New(), Role: model.RoleAdmin}
	targetID := uuid.New()
	target := &model.User{ID: targetID, Name: "Bob", Email: "bob@example.com", Role: model.RoleUser}

	t.Run("deletes and evicts every key for the user", func(t *testing.T) {
		repo := new(MockUserRepository)
		repo.On("FindByID", mock.Anything, targetID).Return(target, nil)
		repo.On("Delete", mock.Anything, targetID).Return(nil)
		sessions := new(MockSessionStore)
		sessions.On("Invalidate", mock.Anything, targetID).Return(nil)
		svc, mem := newUserServiceForTest(repo, sessions)

		// Warm the entries the delete must drop.
		ctx := context.Background()
		coord := cache.NewCoordinator(mem, zerolog.Nop())
		coord.Put(ctx, cache.UserKey(targetID), target.Projection(), cache.EntityTTL)
		coord.Put(ctx, cache.UserEmailKey(target.Email), target.Projection(), cache.EntityTTL)
		assert.NoError(t, mem.Set(ctx, cache.AssignedTaskListKey(targetID, 1, 10, ""), []byte("[]"), 0))

		assert.NoError(t, svc.Delete(ctx, admin, targetID))

		data, _ := mem.Get(ctx, cache.UserKey(targetID))
		assert.Nil(t, data)
		data, _ = mem.Get(ctx, cache.UserEmailKey(target.Email))
		assert.Nil(t, data)
		data, _ = mem.Get(ctx, cache.AssignedTaskListKey(targetID, 1, 10, ""))
		assert.Nil(t, data)
		repo.AssertExpectations(t)
		sessions.AssertExpectations(t)
	})

	t.Run("missing user reports not found", func(t *testing.T) {
		repo := new(MockUserRepository)
		repo.On("FindByID", mock.Anything, targetID).Return(nil, gorm.ErrRecordNotFound)
		svc, _ := newUserServiceForTest(repo, new(MockSessionStore))

		err := svc.Delete(context.Background(), admin, targetID)
		assert.Error(t, err)
		assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
		repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("non-admin is denied", func(t *testing.T) {
		repo := new(MockUserRepository)
		svc, _ := newUserServiceForTest(repo, new(MockSessionStore))

		err := svc.Delete(context.Background(), authz.Actor{ID: uuid.New(), Role: model.RoleUser}, targetID)
		assert.Error(t, err)
		assert.Equal(t, apperrors.KindAuthorizationDenied, apperrors.KindOf(err))
		repo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	})
}

func TestUserService_EditProfile(t *testing.T) {
	userID := uuid.New()
	actor := authz.Actor{ID: userID, Role: model.RoleUser}

	t.Run("editing someone else's profile is denied", func(t *testing.T) {
		repo := new(MockUserRepository)
		svc, _ := newUserServiceForTest(repo, new(MockSessionStore))

		newName := "Mallory"
		_, err := svc.EditProfile(context.Background(), actor, uuid.New(), UserPatch{Name: &newName})
		assert.Error(t, err)
		assert.Equal(t, apperrors.KindAuthorizationDenied, apperrors.KindOf(err))
		assert.Equal(t, string(authz.ReasonNotOwner), apperrors.CodeOf(err))
		repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("name-only change keeps the session", func(t *testing.T) {
		repo := new(MockUserRepository)
		repo.On("FindByID", mock.Anything, userID).Return(&model.User{ID: userID, Name: "Alice", Email: "alice@example.com"}, nil)
		repo.On("Update", mock.Anything, mock.AnythingOfType("*model.User")).Return(nil)
		sessions := new(MockSessionStore)
		svc, _ := newUserServiceForTest(repo, sessions)

		newName := "Alicia"
		projection, err := svc.EditProfile(context.Background(), actor, userID, UserPatch{Name: &newName})
		assert.NoError(t, err)
		assert.Equal(t, "Alicia", projection.Name)
		sessions.AssertNotCalled(t, "Invalidate", mock.Anything, mock.Anything)
	})

	t.Run("email change drops the old key and the session", func(t *testing.T) {
		repo := new(MockUserRepository)
		repo.On("FindByID", mock.Anything, userID).Return(&model.User{ID: userID, Name: "Alice", Email: "alice@example.com"}, nil)
		repo.On("Update", mock.Anything, mock.AnythingOfType("*model.User")).Return(nil)
		sessions := new(MockSessionStore)
		sessions.On("Invalidate", mock.Anything, userID).Return(nil)
		svc, mem := newUserServiceForTest(repo, sessions)

		ctx := context.Background()
		coord := cache.NewCoordinator(mem, zerolog.Nop())
		coord.Put(ctx, cache.UserEmailKey("alice@example.com"), model.UserProjection{ID: userID}, cache.EntityTTL)

		newEmail := "Alice@New.Example"
		projection, err := svc.EditProfile(ctx, actor, userID, UserPatch{Email: &newEmail})
		assert.NoError(t, err)
		assert.Equal(t, "alice@new.example", projection.Email)

		old, _ := mem.Get(ctx, cache.UserEmailKey("alice@example.com"))
		assert.Nil(t, old)
		fresh, _ := mem.Get(ctx, cache.UserEmailKey("alice@new.example"))
		assert.NotNil(t, fresh)
		sessions.AssertExpectations(t)
	})

	t.Run("short password is rejected", func(t *testing.T) {
		repo := new(MockUserRepository)
		repo.On("FindByID", mock.Anything, userID).Return(&model.User{ID: userID, Name: "Alice", Email: "alice@example.com"}, nil)
		svc, _ := newUserServiceForTest(repo, new(MockSessionStore))

		weak := "12345"
		_, err := svc.EditProfile(context.Background(), actor, userID, UserPatch{Password: &weak})
		assert.Error(t, err)
		assert.Equal(t, "WEAK_PASSWORD", apperrors.CodeOf(err))
		repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})
}

func TestUserService_UpdateRole(t *testing.T) {
	adminID := uuid.New()
	admin := authz.Actor{ID: adminID, Role: model.RoleAdmin}
	targetID := uuid.New()

	t.Run("invalid role is rejected", func(t *testing.T) {
		repo := new(MockUserRepository)
		svc, _ := newUserServiceForTest(repo, new(MockSessionStore))

		_, err := svc.UpdateRole(context.Background(), admin, targetID, model.Role("owner"))
		assert.Error(t, err)
		assert.Equal(t, "INVALID_ROLE", apperrors.CodeOf(err))
	})

	t.Run("admin cannot change their own role", func(t *testing.T) {
		repo := new(MockUserRepository)
		svc, _ := newUserServiceForTest(repo, new(MockSessionStore))

		_, err := svc.UpdateRole(context.Background(), admin, adminID, model.RoleUser)
		assert.Error(t, err)
		assert.Equal(t, string(authz.ReasonSelfActionForbidden), apperrors.CodeOf(err))
		repo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	})

	t.Run("unchanged role is a no-op", func(t *testing.T) {
		repo := new(MockUserRepository)
		repo.On("FindByID", mock.Anything, targetID).Return(&model.User{ID: targetID, Role: model.RoleUser}, nil)
		sessions := new(MockSessionStore)
		svc, _ := newUserServiceForTest(repo, sessions)

		user, err := svc.UpdateRole(context.Background(), admin, targetID, model.RoleUser)
		assert.NoError(t, err)
		assert.Equal(t, model.RoleUser, user.Role)
		repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
		sessions.AssertNotCalled(t, "Invalidate", mock.Anything, mock.Anything)
	})

	t.Run("promotion invalidates the session so claims refresh", func(t *testing.T) {
		repo := new(MockUserRepository)
		repo.On("FindByID", mock.Anything, targetID).Return(&model.User{ID: targetID, Role: model.RoleUser}, nil)
		repo.On("Update", mock.Anything, mock.AnythingOfType("*model.User")).Return(nil)
		sessions := new(MockSessionStore)
		sessions.On("Invalidate", mock.Anything, targetID).Return(nil)
		svc, _ := newUserServiceForTest(repo, sessions)

		user, err := svc.UpdateRole(context.Background(), admin, targetID, model.RoleAdmin)
		assert.NoError(t, err)
		assert.Equal(t, model.RoleAdmin, user.Role)
		repo.AssertExpectations(t)
		sessions.AssertExpectations(t)
	})
}
