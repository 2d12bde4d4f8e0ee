package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the local mirror of a Keycloak account. Created lazily on first
// role grant; never hard-deleted. KeycloakID is the external subject and is
// immutable once set.
type User struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	KeycloakID string    `gorm:"uniqueIndex;not null;size:36" json:"keycloak_id"`
	Email      string    `gorm:"uniqueIndex;not null;size:255" json:"email" validate:"required,email"`
	FirstName  string    `gorm:"size:100" json:"first_name,omitempty"`
	LastName   string    `gorm:"size:100" json:"last_name,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}

	return nil
}

// UserAppRole is one (user, application, role) fact. The composite unique
// index is what makes the add-role workflow idempotent: a duplicate insert
// surfaces as gorm.ErrDuplicatedKey and is swallowed by the service.
type UserAppRole struct {
	ID            uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	UserID        uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_user_app_role" json:"user_id"`
	ApplicationID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_user_app_role" json:"application_id"`
	Role          RoleTier   `gorm:"not null;size:32;uniqueIndex:idx_user_app_role" json:"role"`
	GrantedBy     *uuid.UUID `gorm:"type:uuid" json:"granted_by,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`

	User        *User        `gorm:"foreignKey:UserID" json:"-"`
	Application *Application `gorm:"foreignKey:ApplicationID" json:"-"`
}

func (r *UserAppRole) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}

	return nil
}

type CreateUserRequest struct {
	Email        string `json:"email" validate:"required,email"`
	FirstName    string `json:"first_name" validate:"omitempty,max=100"`
	LastName     string `json:"last_name" validate:"omitempty,max=100"`
	Role         string `json:"role" validate:"required"`
	TempPassword string `json:"temp_password" validate:"omitempty,min=8,max=128"`
}

type ChangeRoleRequest struct {
	Role string `json:"role" validate:"required"`
	Op   string `json:"op" validate:"required,oneof=add remove"`
}

// UserWithRoles is the folded view the user list returns: one record per
// user with the tier set aggregated from their role rows.
type UserWithRoles struct {
	ID         uuid.UUID  `json:"id"`
	KeycloakID string     `json:"keycloak_id"`
	Email      string     `json:"email"`
	FirstName  string     `json:"first_name,omitempty"`
	LastName   string     `json:"last_name,omitempty"`
	Roles      []RoleTier `json:"roles"`
	CreatedAt  time.Time  `json:"created_at"`
}

type UserListResponse struct {
	Items []UserWithRoles `json:"items"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

func (u *User) ToResponseWithRoles(roles []RoleTier) *UserWithRoles {
	if roles == nil {
		roles = []RoleTier{}
	}
	return &UserWithRoles{
		ID:         u.ID,
		KeycloakID: u.KeycloakID,
		Email:      u.Email,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		Roles:      roles,
		CreatedAt:  u.CreatedAt,
	}
}
