package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	domain "user-crud-service/internal/domain/user"
	"user-crud-service/internal/usecase/user"
)

// UserRepoPG implements the Repository interface using GORM.
// It runs against PostgreSQL in production and SQLite locally.
type UserRepoPG struct {
	db  *gorm.DB    // GORM database connection
	log *zap.Logger // Structured logger for database operations
}

// NewUserRepoPG creates a new instance of UserRepoPG.
func NewUserRepoPG(db *gorm.DB, log *zap.Logger) *UserRepoPG {
	return &UserRepoPG{db: db, log: log}
}

var _ user.Repository = (*UserRepoPG)(nil)

// UserSchema represents the database schema for the users table.
type UserSchema struct {
	ID        string    `gorm:"primaryKey;size:24"`
	Name      string    `gorm:"not null"`
	Email     string    `gorm:"not null;uniqueIndex"`
	Role      string    `gorm:"not null;default:User"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName specifies the table name for the UserSchema model.
func (UserSchema) TableName() string {
	return "users"
}

// Migrate creates or updates the users table and its unique index.
func (r *UserRepoPG) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&UserSchema{}); err != nil {
		return fmt.Errorf("failed to migrate users table: %w", err)
	}
	return nil
}

// Create inserts a new user into the database.
func (r *UserRepoPG) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	if u == nil {
		return nil, errors.New("user cannot be nil")
	}

	model := UserSchema{
		ID:    domain.NewID(),
		Name:  u.Name,
		Email: u.Email,
		Role:  u.Role,
	}
	if model.Role == "" {
		model.Role = domain.DefaultRole
	}

	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		if isDuplicateKey(err) {
			r.log.Warn("duplicate email rejected by db", zap.String("email", u.Email))
			return nil, user.ErrDuplicateEmail
		}
		r.log.Error("failed to create user in db", zap.Error(err), zap.String("email", u.Email))
		return nil, err
	}

	r.log.Info("user created in db", zap.String("id", model.ID))
	return model.toDomain(), nil
}

// GetByID retrieves a user from the database by their unique ID.
func (r *UserRepoPG) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var model UserSchema
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			r.log.Debug("user not found", zap.String("id", id))
			return nil, nil
		}
		r.log.Error("failed to get user from db", zap.Error(err), zap.String("id", id))
		return nil, err
	}

	return model.toDomain(), nil
}

// GetByEmail retrieves every user stored with the given email address.
func (r *UserRepoPG) GetByEmail(ctx context.Context, email string) ([]domain.User, error) {
	var models []UserSchema
	if err := r.db.WithContext(ctx).Where("email = ?", email).Find(&models).Error; err != nil {
		r.log.Error("failed to get users by email from db", zap.Error(err), zap.String("email", email))
		return nil, err
	}

	users := make([]domain.User, len(models))
	for i, model := range models {
		users[i] = *model.toDomain()
	}
	return users, nil
}

// Update merges the provided fields into an existing user and returns the updated row.
func (r *UserRepoPG) Update(ctx context.Context, id string, patch domain.Patch) (*domain.User, error) {
	var model UserSchema
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&model).Error; err != nil {
			return err
		}

		updates := map[string]any{"updated_at": time.Now().UTC()}
		if patch.Name != nil {
			updates["name"] = *patch.Name
		}
		if patch.Email != nil {
			updates["email"] = *patch.Email
		}
		if patch.Role != nil {
			updates["role"] = *patch.Role
		}

		if err := tx.Model(&model).Updates(updates).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).First(&model).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			r.log.Debug("user not found for update", zap.String("id", id))
			return nil, nil
		}
		if isDuplicateKey(err) {
			r.log.Warn("duplicate email rejected by db", zap.String("id", id))
			return nil, user.ErrDuplicateEmail
		}
		r.log.Error("failed to update user in db", zap.Error(err), zap.String("id", id))
		return nil, err
	}

	r.log.Info("user updated in db", zap.String("id", id))
	return model.toDomain(), nil
}

// Delete removes a user from the database by ID and returns the removed row.
func (r *UserRepoPG) Delete(ctx context.Context, id string) (*domain.User, error) {
	var model UserSchema
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&model).Error; err != nil {
			return err
		}
		return tx.Delete(&UserSchema{}, "id = ?", id).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			r.log.Debug("user not found for delete", zap.String("id", id))
			return nil, nil
		}
		r.log.Error("failed to delete user in db", zap.Error(err), zap.String("id", id))
		return nil, err
	}

	r.log.Info("user deleted in db", zap.String("id", id))
	return model.toDomain(), nil
}

// Ping checks that the underlying connection is alive.
func (r *UserRepoPG) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (m *UserSchema) toDomain() *domain.User {
	return &domain.User{
		ID:        m.ID,
		Name:      m.Name,
		Email:     m.Email,
		Role:      m.Role,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// isDuplicateKey matches GORM's translated error and the raw driver messages
// for drivers that do not translate.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}
