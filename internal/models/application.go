package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vinumavintel/ums-with-admin-ui/internal/constants"
)

// Application is a registered tenant, backed 1:1 by a Keycloak client. The
// client ID is derived from the name at creation time and never changes
// afterwards, even if derivation rules do.
type Application struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Name        string    `gorm:"uniqueIndex;not null;size:64" json:"name" validate:"required,min=1,max=64"`
	Description string    `gorm:"size:255" json:"description,omitempty" validate:"omitempty,max=255"`
	ClientID    string    `gorm:"uniqueIndex;not null;size:63" json:"client_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (a *Application) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}

	return nil
}

// DeriveClientID turns a display name into the Keycloak client identifier:
// lowercase, non-alphanumeric runs collapsed to a single hyphen, trimmed,
// truncated to 63 characters. Truncation can expose a trailing hyphen, so
// the trim runs again after it.
func DeriveClientID(name string) string {
	lower := strings.ToLower(strings.TrimSpace(name))

	var b strings.Builder
	b.Grow(len(lower))
	lastHyphen := false
	for _, r := range lower {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastHyphen = false
		} else if !lastHyphen {
			b.WriteByte('-')
			lastHyphen = true
		}
	}

	clientID := strings.Trim(b.String(), "-")
	if len(clientID) > constants.MaxClientIDLength {
		clientID = strings.Trim(clientID[:constants.MaxClientIDLength], "-")
	}

	return clientID
}

type CreateApplicationRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=64"`
	Description string `json:"description" validate:"omitempty,max=255"`
}

type ApplicationResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	ClientID    string    `json:"client_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type ApplicationListResponse struct {
	Items []ApplicationResponse `json:"items"`
	Total int64                 `json:"total"`
	Page  int                   `json:"page"`
	Limit int                   `json:"limit"`
}

func (a *Application) ToResponse() *ApplicationResponse {
	return &ApplicationResponse{
		ID:          a.ID,
		Name:        a.Name,
		Description: a.Description,
		ClientID:    a.ClientID,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}
