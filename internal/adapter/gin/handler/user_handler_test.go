package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"user-crud-service/internal/adapter/gin/middleware"
	"user-crud-service/internal/adapter/lock"
	domain "user-crud-service/internal/domain/user"
	usecase "user-crud-service/internal/usecase/user"
)

const (
	validID   = "507f1f77bcf86cd799439011"
	invalidID = "123"
)

// MockUserUsecase is a mock implementation of user.Usecase
type MockUserUsecase struct {
	mock.Mock
}

func (m *MockUserUsecase) CreateUser(ctx context.Context, u *domain.User) (*domain.User, error) {
	args := m.Called(ctx, u)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserUsecase) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserUsecase) GetUsersByEmail(ctx context.Context, email string) ([]domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.User), args.Error(1)
}

func (m *MockUserUsecase) UpdateUser(ctx context.Context, id string, patch domain.Patch) (*domain.User, error) {
	args := m.Called(ctx, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserUsecase) DeleteUser(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

// MockEmailLocker is a mock implementation of lock.EmailLocker
type MockEmailLocker struct {
	mock.Mock
	released int
}

func (m *MockEmailLocker) Acquire(ctx context.Context, email string) (lock.ReleaseFunc, error) {
	args := m.Called(ctx, email)
	if err := args.Error(0); err != nil {
		return nil, err
	}
	return func(context.Context) { m.released++ }, nil
}

func setupTest(t *testing.T, locker lock.EmailLocker) (*gin.Engine, *MockUserUsecase) {
	gin.SetMode(gin.TestMode)
	mockUsecase := new(MockUserUsecase)
	logger := zaptest.NewLogger(t)
	handler := NewUserHandler(mockUsecase, locker, logger)

	r := gin.New()
	r.Use(middleware.ErrorHandler(logger))
	r.POST("/users", handler.CreateUser)
	r.GET("/users/:id", handler.GetUser)
	r.PATCH("/users/:id", handler.UpdateUser)
	r.DELETE("/users/:id", handler.DeleteUser)
	return r, mockUsecase
}

func storedUser() *domain.User {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	return &domain.User{
		ID:        validID,
		Name:      "n2",
		Email:     "n@2.com",
		Role:      domain.DefaultRole,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
}

func doJSON(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type envelopeBody struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data"`
	Status  int            `json:"status"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelopeBody {
	var body envelopeBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestCreateUser(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		r, mockUsecase := setupTest(t, nil)

		mockUsecase.On("GetUsersByEmail", mock.Anything, "n@2.com").Return([]domain.User{}, nil)
		mockUsecase.On("CreateUser", mock.Anything, mock.MatchedBy(func(u *domain.User) bool {
			return u.Name == "n2" && u.Email == "n@2.com" && u.Role == ""
		})).Return(storedUser(), nil)

		w := doJSON(r, http.MethodPost, "/users", `{"name":"n2","email":"n@2.com","role":""}`)

		assert.Equal(t, http.StatusCreated, w.Code)
		body := decode(t, w)
		assert.True(t, body.Success)
		assert.Equal(t, "User created successfully", body.Message)
		assert.Equal(t, validID, body.Data["_id"])
		assert.Equal(t, "User", body.Data["role"])
		assert.Contains(t, body.Data, "createdAt")
		assert.Contains(t, body.Data, "updatedAt")
		mockUsecase.AssertExpectations(t)
	})

	t.Run("Missing name or email", func(t *testing.T) {
		payloads := []string{
			`{"name":"","email":"","role":""}`,
			`{"name":"n2"}`,
			`{"email":"n@2.com"}`,
			`{}`,
			"",
		}
		for _, payload := range payloads {
			r, mockUsecase := setupTest(t, nil)

			w := doJSON(r, http.MethodPost, "/users", payload)

			assert.Equal(t, http.StatusBadRequest, w.Code, payload)
			assert.Equal(t, "name & email is required", decode(t, w).Message, payload)
			mockUsecase.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
		}
	})

	t.Run("Invalid Request Body", func(t *testing.T) {
		r, _ := setupTest(t, nil)

		w := doJSON(r, http.MethodPost, "/users", "invalid json")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "invalid request body", decode(t, w).Message)
	})

	t.Run("Duplicate email", func(t *testing.T) {
		r, mockUsecase := setupTest(t, nil)

		mockUsecase.On("GetUsersByEmail", mock.Anything, "n@1.com").Return([]domain.User{*storedUser()}, nil)

		w := doJSON(r, http.MethodPost, "/users", `{"name":"n1","email":"n@1.com","role":""}`)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "email already exists", decode(t, w).Message)
		mockUsecase.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
	})

	t.Run("Duplicate rejected by backend", func(t *testing.T) {
		r, mockUsecase := setupTest(t, nil)

		mockUsecase.On("GetUsersByEmail", mock.Anything, "n@1.com").Return([]domain.User{}, nil)
		mockUsecase.On("CreateUser", mock.Anything, mock.Anything).
			Return(nil, errors.Join(errors.New("error creating user"), usecase.ErrDuplicateEmail))

		w := doJSON(r, http.MethodPost, "/users", `{"name":"n1","email":"n@1.com"}`)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "email already exists", decode(t, w).Message)
	})

	t.Run("Usecase Error", func(t *testing.T) {
		r, mockUsecase := setupTest(t, nil)

		mockUsecase.On("GetUsersByEmail", mock.Anything, mock.Anything).Return([]domain.User{}, nil)
		mockUsecase.On("CreateUser", mock.Anything, mock.Anything).Return(nil, errors.New("error creating user: boom"))

		w := doJSON(r, http.MethodPost, "/users", `{"name":"n2","email":"n@2.com"}`)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "error creating user: boom", decode(t, w).Message)
	})

	t.Run("Email lock held", func(t *testing.T) {
		locker := new(MockEmailLocker)
		r, mockUsecase := setupTest(t, locker)

		locker.On("Acquire", mock.Anything, "n@2.com").Return(lock.ErrLocked)

		w := doJSON(r, http.MethodPost, "/users", `{"name":"n2","email":"n@2.com"}`)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "email already exists", decode(t, w).Message)
		mockUsecase.AssertNotCalled(t, "GetUsersByEmail", mock.Anything, mock.Anything)
	})

	t.Run("Email lock released after create", func(t *testing.T) {
		locker := new(MockEmailLocker)
		r, mockUsecase := setupTest(t, locker)

		locker.On("Acquire", mock.Anything, "n@2.com").Return(nil)
		mockUsecase.On("GetUsersByEmail", mock.Anything, "n@2.com").Return([]domain.User{}, nil)
		mockUsecase.On("CreateUser", mock.Anything, mock.Anything).Return(storedUser(), nil)

		w := doJSON(r, http.MethodPost, "/users", `{"name":"n2","email":"n@2.com"}`)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, 1, locker.released)
	})
}

func TestCreateUser_LockUnavailable(t *testing.T) {
	locker := new(MockEmailLocker)
	r, mockUsecase := setupTest(t, locker)

	locker.On("Acquire", mock.Anything, "n@2.com").Return(errors.New("failed to acquire email lock: connection refused"))

	w := doJSON(r, http.MethodPost, "/users", `{"name":"n2","email":"n@2.com"}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	mockUsecase.AssertNotCalled(t, "GetUsersByEmail", mock.Anything, mock.Anything)
	mockUsecase.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
}

func TestCreateUser_RedisEmailLock(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	locker := lock.NewRedisEmailLocker(client, 10*time.Second, zaptest.NewLogger(t))

	r, mockUsecase := setupTest(t, locker)

	// a create for a differently cased address is in flight
	release, err := locker.Acquire(context.Background(), "Alice@x.com")
	require.NoError(t, err)
	defer release(context.Background())

	created := storedUser()
	created.Email = "alice@x.com"
	mockUsecase.On("GetUsersByEmail", mock.Anything, "alice@x.com").Return([]domain.User{}, nil)
	mockUsecase.On("CreateUser", mock.Anything, mock.Anything).Return(created, nil)

	w := doJSON(r, http.MethodPost, "/users", `{"name":"a","email":"alice@x.com"}`)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.False(t, mr.Exists("user:email-lock:alice@x.com"), "lock must be released after create")

	w = doJSON(r, http.MethodPost, "/users", `{"name":"a","email":"Alice@x.com"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "email already exists", decode(t, w).Message)
	mockUsecase.AssertNotCalled(t, "GetUsersByEmail", mock.Anything, "Alice@x.com")
}

func TestCreateUser_LeavesSuccessLoggingToLowerLayers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.DebugLevel)
	mockUsecase := new(MockUserUsecase)
	h := NewUserHandler(mockUsecase, nil, zap.New(core))

	r := gin.New()
	r.POST("/users", h.CreateUser)

	mockUsecase.On("GetUsersByEmail", mock.Anything, "n@2.com").Return([]domain.User{}, nil)
	mockUsecase.On("CreateUser", mock.Anything, mock.Anything).Return(storedUser(), nil)

	w := doJSON(r, http.MethodPost, "/users", `{"name":"n2","email":"n@2.com"}`)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Zero(t, logs.FilterMessage("user created").Len())
}

func TestGetUser(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		r, mockUsecase := setupTest(t, nil)

		mockUsecase.On("GetUserByID", mock.Anything, validID).Return(storedUser(), nil)

		w := doJSON(r, http.MethodGet, "/users/"+validID, "")

		assert.Equal(t, http.StatusOK, w.Code)
		body := decode(t, w)
		assert.True(t, body.Success)
		assert.Empty(t, body.Message)
		assert.Equal(t, validID, body.Data["_id"])
		assert.Equal(t, "n2", body.Data["name"])
		assert.Equal(t, "n@2.com", body.Data["email"])
	})

	t.Run("Invalid ID", func(t *testing.T) {
		r, mockUsecase := setupTest(t, nil)

		w := doJSON(r, http.MethodGet, "/users/"+invalidID, "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "invalid userId", decode(t, w).Message)
		mockUsecase.AssertNotCalled(t, "GetUserByID", mock.Anything, mock.Anything)
	})

	t.Run("Not Found", func(t *testing.T) {
		r, mockUsecase := setupTest(t, nil)

		mockUsecase.On("GetUserByID", mock.Anything, validID).Return(nil, nil)

		w := doJSON(r, http.MethodGet, "/users/"+validID, "")

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "no user found", decode(t, w).Message)
	})
}

func TestUpdateUser(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		r, mockUsecase := setupTest(t, nil)
		updated := storedUser()
		updated.Name = "updated t1"

		mockUsecase.On("UpdateUser", mock.Anything, validID, mock.MatchedBy(func(p domain.Patch) bool {
			return p.Name != nil && *p.Name == "updated t1" && p.Email == nil && p.Role == nil
		})).Return(updated, nil)

		w := doJSON(r, http.MethodPatch, "/users/"+validID, `{"name":"updated t1"}`)

		assert.Equal(t, http.StatusOK, w.Code)
		body := decode(t, w)
		assert.Equal(t, "User updated successfully", body.Message)
		assert.Equal(t, "updated t1", body.Data["name"])
	})

	t.Run("Empty role falls back to default", func(t *testing.T) {
		r, mockUsecase := setupTest(t, nil)

		mockUsecase.On("UpdateUser", mock.Anything, validID, mock.MatchedBy(func(p domain.Patch) bool {
			return p.Role != nil && *p.Role == domain.DefaultRole
		})).Return(storedUser(), nil)

		w := doJSON(r, http.MethodPatch, "/users/"+validID, `{"role":""}`)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Empty body is an empty patch", func(t *testing.T) {
		r, mockUsecase := setupTest(t, nil)

		mockUsecase.On("UpdateUser", mock.Anything, validID, domain.Patch{}).Return(nil, nil)

		w := doJSON(r, http.MethodPatch, "/users/"+validID, "")

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "no user found", decode(t, w).Message)
	})

	t.Run("Empty name rejected", func(t *testing.T) {
		r, mockUsecase := setupTest(t, nil)

		w := doJSON(r, http.MethodPatch, "/users/"+validID, `{"name":""}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "name & email cannot be empty", decode(t, w).Message)
		mockUsecase.AssertNotCalled(t, "UpdateUser", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Duplicate email", func(t *testing.T) {
		r, mockUsecase := setupTest(t, nil)

		mockUsecase.On("UpdateUser", mock.Anything, validID, mock.Anything).Return(nil, usecase.ErrDuplicateEmail)

		w := doJSON(r, http.MethodPatch, "/users/"+validID, `{"email":"taken@x.com"}`)

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("Invalid ID", func(t *testing.T) {
		r, _ := setupTest(t, nil)

		w := doJSON(r, http.MethodPatch, "/users/"+invalidID, "{}")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "invalid userId", decode(t, w).Message)
	})
}

func TestDeleteUser(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		r, mockUsecase := setupTest(t, nil)

		mockUsecase.On("DeleteUser", mock.Anything, validID).Return(storedUser(), nil)

		w := doJSON(r, http.MethodDelete, "/users/"+validID, "")

		assert.Equal(t, http.StatusOK, w.Code)
		body := decode(t, w)
		assert.Equal(t, "User deleted successfully", body.Message)
		assert.Equal(t, validID, body.Data["_id"])
	})

	t.Run("Not Found", func(t *testing.T) {
		r, mockUsecase := setupTest(t, nil)

		mockUsecase.On("DeleteUser", mock.Anything, validID).Return(nil, nil)

		w := doJSON(r, http.MethodDelete, "/users/"+validID, "")

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Invalid ID", func(t *testing.T) {
		r, _ := setupTest(t, nil)

		w := doJSON(r, http.MethodDelete, "/users/"+invalidID, "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
