package user

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultRole is assigned when a user is stored without a role.
const DefaultRole = "User"

// User represents a user entity in the system.
type User struct {
	ID        string    // ID is the backend-generated identifier (24 hex characters)
	Name      string    // Name is the full name of the user
	Email     string    // Email is the unique email address of the user
	Role      string    // Role defaults to DefaultRole
	CreatedAt time.Time // CreatedAt is set once on insert
	UpdatedAt time.Time // UpdatedAt is refreshed on every update
}

// Patch holds the fields of a partial update. Nil fields are left untouched.
type Patch struct {
	Name  *string
	Email *string
	Role  *string
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Name == nil && p.Email == nil && p.Role == nil
}

// Normalize returns a copy of the patch with an empty role replaced by DefaultRole.
func (p Patch) Normalize() Patch {
	if p.Role != nil && *p.Role == "" {
		role := DefaultRole
		p.Role = &role
	}
	return p
}

// ApplyDefaults fills in fields the caller may leave empty.
func (u *User) ApplyDefaults() {
	if u.Role == "" {
		u.Role = DefaultRole
	}
}

// NewID generates a new identifier.
func NewID() string {
	return primitive.NewObjectID().Hex()
}

// IsValidID reports whether id is a well-formed identifier.
func IsValidID(id string) bool {
	_, err := primitive.ObjectIDFromHex(id)
	return err == nil
}
