package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AuditDetails is free-form metadata stored as JSON. It always carries at
// least the application id, which is duplicated into the indexed
// ApplicationID column for filtering.
type AuditDetails = datatypes.JSONMap

// AuditLog is append-only. Rows are never updated or deleted by the API.
type AuditLog struct {
	ID            uuid.UUID    `gorm:"type:uuid;primary_key" json:"id"`
	ActorID       *uuid.UUID   `gorm:"type:uuid;index" json:"actor_id,omitempty"`
	TargetUserID  *uuid.UUID   `gorm:"type:uuid;index" json:"target_user_id,omitempty"`
	ApplicationID *uuid.UUID   `gorm:"type:uuid;index" json:"application_id,omitempty"`
	Action        string       `gorm:"not null;size:64;index" json:"action"`
	Details       AuditDetails `gorm:"type:json" json:"details,omitempty"`
	CreatedAt     time.Time    `gorm:"index" json:"created_at"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}

	return nil
}

var AuditActions = struct {
	UserCreate    string
	RoleAdd       string
	RoleRemove    string
	ResetPassword string
	AppCreate     string
	AppDelete     string
}{
	UserCreate:    "user.create",
	RoleAdd:       "role.add",
	RoleRemove:    "role.remove",
	ResetPassword: "reset.password",
	AppCreate:     "app.create",
	AppDelete:     "app.delete",
}

type AuditLogResponse struct {
	ID            uuid.UUID    `json:"id"`
	ActorID       *uuid.UUID   `json:"actor_id,omitempty"`
	ActorEmail    string       `json:"actor_email,omitempty"`
	TargetUserID  *uuid.UUID   `json:"target_user_id,omitempty"`
	TargetEmail   string       `json:"target_email,omitempty"`
	ApplicationID *uuid.UUID   `json:"application_id,omitempty"`
	Action        string       `json:"action"`
	Details       AuditDetails `json:"details,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
}

type AuditListResponse struct {
	Data  []AuditLogResponse `json:"data"`
	Total int64              `json:"total"`
	Page  int                `json:"page"`
	Limit int                `json:"limit"`
}

func (a *AuditLog) ToResponse() *AuditLogResponse {
	return &AuditLogResponse{
		ID:            a.ID,
		ActorID:       a.ActorID,
		TargetUserID:  a.TargetUserID,
		ApplicationID: a.ApplicationID,
		Action:        a.Action,
		Details:       a.Details,
		CreatedAt:     a.CreatedAt,
	}
}
