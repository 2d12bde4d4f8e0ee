package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/vinumavintel/ums-with-admin-ui/internal/models"
)

// The userId filter must return entries the user initiated as well as
// entries that targeted them.
func TestAuditListUserFilterMatchesActorOrTarget(t *testing.T) {
	db := newTestDB(t)
	audit := NewAuditService(db, zaptest.NewLogger(t))
	ctx := context.Background()

	actor := models.User{KeycloakID: "subj-a", Email: "actor@example.com"}
	target := models.User{KeycloakID: "subj-t", Email: "target@example.com"}
	require.NoError(t, db.Create(&actor).Error)
	require.NoError(t, db.Create(&target).Error)

	audit.Record(ctx, &models.AuditLog{
		ActorID:      &actor.ID,
		TargetUserID: &target.ID,
		Action:       models.AuditActions.RoleAdd,
	})

	for _, id := range []uuid.UUID{actor.ID, target.ID} {
		userID := id
		resp, err := audit.List(ctx, AuditQuery{UserID: &userID, Page: 1, Limit: 20})
		require.NoError(t, err)
		require.Len(t, resp.Data, 1, id)
		assert.Equal(t, "actor@example.com", resp.Data[0].ActorEmail)
		assert.Equal(t, "target@example.com", resp.Data[0].TargetEmail)
	}

	bystander := uuid.New()
	resp, err := audit.List(ctx, AuditQuery{UserID: &bystander, Page: 1, Limit: 20})
	require.NoError(t, err)
	assert.Empty(t, resp.Data)
	assert.EqualValues(t, 0, resp.Total)
}

// The user filter must compose with the application scope, not widen it.
func TestAuditListUserFilterComposesWithScope(t *testing.T) {
	db := newTestDB(t)
	audit := NewAuditService(db, zaptest.NewLogger(t))
	ctx := context.Background()

	actor := models.User{KeycloakID: "subj-a", Email: "actor@example.com"}
	require.NoError(t, db.Create(&actor).Error)

	appA := uuid.New()
	appB := uuid.New()
	audit.Record(ctx, &models.AuditLog{ActorID: &actor.ID, ApplicationID: &appA, Action: models.AuditActions.RoleAdd})
	audit.Record(ctx, &models.AuditLog{ActorID: &actor.ID, ApplicationID: &appB, Action: models.AuditActions.RoleRemove})

	resp, err := audit.List(ctx, AuditQuery{ApplicationID: &appA, UserID: &actor.ID, Page: 1, Limit: 20})
	require.NoError(t, err)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, models.AuditActions.RoleAdd, resp.Data[0].Action)
}
