package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"user-crud-service/internal/adapter/lock"
	domain "user-crud-service/internal/domain/user"
	"user-crud-service/internal/usecase/user"
	apperrors "user-crud-service/pkg/errors"
	"user-crud-service/pkg/logger"
)

// UserHandler handles HTTP requests for user operations
type UserHandler struct {
	uc       user.Usecase
	locker   lock.EmailLocker
	log      *zap.Logger
	validate *validator.Validate
}

// NewUserHandler creates a new UserHandler instance.
// locker may be nil, in which case uniqueness relies on the backend index alone.
func NewUserHandler(uc user.Usecase, locker lock.EmailLocker, log *zap.Logger) *UserHandler {
	return &UserHandler{
		uc:       uc,
		locker:   locker,
		log:      log,
		validate: validator.New(),
	}
}

// CreateUserRequest represents the HTTP request body for creating a user
type CreateUserRequest struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required"`
	Role  string `json:"role"`
}

// UpdateUserRequest represents the HTTP request body for a partial update.
// Absent fields are left untouched.
type UpdateUserRequest struct {
	Name  *string `json:"name" validate:"omitnil,min=1"`
	Email *string `json:"email" validate:"omitnil,min=1"`
	Role  *string `json:"role"`
}

// UserResponse represents the HTTP response for user data
type UserResponse struct {
	ID        string    `json:"_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Envelope is the uniform success body
type Envelope struct {
	Success bool          `json:"success"`
	Message string        `json:"message,omitempty"`
	Data    *UserResponse `json:"data,omitempty"`
}

var errEmptyNameEmail = apperrors.NewValidationError("name & email cannot be empty")

func toResponse(u *domain.User) *UserResponse {
	return &UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// bindJSON decodes the body into obj. An empty body leaves obj untouched.
func bindJSON(c *gin.Context, obj any) error {
	if err := c.ShouldBindJSON(obj); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return apperrors.ErrInvalidBody.Wrap(err)
	}
	return nil
}

// userID reads and validates the :id path parameter.
func userID(c *gin.Context) (string, error) {
	id := c.Param("id")
	if !domain.IsValidID(id) {
		return "", apperrors.ErrInvalidUserID
	}
	return id, nil
}

// CreateUser handles POST /users
func (h *UserHandler) CreateUser(c *gin.Context) {
	ctx := c.Request.Context()
	log := logger.WithContext(ctx, h.log)

	var req CreateUserRequest
	if err := bindJSON(c, &req); err != nil {
		_ = c.Error(err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		log.Debug("create user rejected", zap.Error(err))
		_ = c.Error(apperrors.ErrNameEmailRequired)
		return
	}

	if h.locker != nil {
		release, err := h.locker.Acquire(ctx, req.Email)
		if err != nil {
			if errors.Is(err, lock.ErrLocked) {
				_ = c.Error(apperrors.ErrEmailExists.Wrap(err))
				return
			}
			_ = c.Error(err)
			return
		}
		defer release(context.WithoutCancel(ctx))
	}

	existing, err := h.uc.GetUsersByEmail(ctx, req.Email)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if len(existing) != 0 {
		log.Info("email already exists", zap.String("email", req.Email))
		_ = c.Error(apperrors.ErrEmailExists)
		return
	}

	created, err := h.uc.CreateUser(ctx, &domain.User{
		Name:  req.Name,
		Email: req.Email,
		Role:  req.Role,
	})
	if err != nil {
		if errors.Is(err, user.ErrDuplicateEmail) {
			_ = c.Error(apperrors.ErrEmailExists.Wrap(err))
			return
		}
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, Envelope{
		Success: true,
		Message: "User created successfully",
		Data:    toResponse(created),
	})
}

// GetUser handles GET /users/:id
func (h *UserHandler) GetUser(c *gin.Context) {
	id, err := userID(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	u, err := h.uc.GetUserByID(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if u == nil {
		_ = c.Error(apperrors.ErrUserNotFound)
		return
	}

	c.JSON(http.StatusOK, Envelope{
		Success: true,
		Data:    toResponse(u),
	})
}

// UpdateUser handles PATCH /users/:id
func (h *UserHandler) UpdateUser(c *gin.Context) {
	id, err := userID(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	var req UpdateUserRequest
	if err := bindJSON(c, &req); err != nil {
		_ = c.Error(err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		_ = c.Error(errEmptyNameEmail)
		return
	}

	patch := domain.Patch{Name: req.Name, Email: req.Email, Role: req.Role}.Normalize()
	u, err := h.uc.UpdateUser(c.Request.Context(), id, patch)
	if err != nil {
		if errors.Is(err, user.ErrDuplicateEmail) {
			_ = c.Error(apperrors.ErrEmailExists.Wrap(err))
			return
		}
		_ = c.Error(err)
		return
	}
	if u == nil {
		_ = c.Error(apperrors.ErrUserNotFound)
		return
	}

	c.JSON(http.StatusOK, Envelope{
		Success: true,
		Message: "User updated successfully",
		Data:    toResponse(u),
	})
}

// DeleteUser handles DELETE /users/:id
func (h *UserHandler) DeleteUser(c *gin.Context) {
	id, err := userID(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	u, err := h.uc.DeleteUser(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if u == nil {
		_ = c.Error(apperrors.ErrUserNotFound)
		return
	}

	c.JSON(http.StatusOK, Envelope{
		Success: true,
		Message: "User deleted successfully",
		Data:    toResponse(u),
	})
}
