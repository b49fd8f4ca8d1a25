package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/relief-management-api/internal/models"
)

var (
	allActions = []Action{
		ActionRead, ActionCreate, ActionUpdate, ActionDelete,
		ActionSetStatus, ActionExport, ActionImport,
	}
	allKinds = []ResourceKind{
		ResourcePublicView, ResourceNeed, ResourceArea, ResourceAreaAssignment,
		ResourceCategory, ResourceProduct, ResourceContactMessage, ResourceDatabase,
	}
)

func areaAdmin(areaID uint64) *Identity {
	return &Identity{UserID: 7, Role: models.RoleAreaAdmin, AreaID: &areaID, AssignmentID: 3}
}

func TestPermit_SuperAdminAllowedEverywhere(t *testing.T) {
	id := &Identity{UserID: 1, Role: models.RoleSuperAdmin}

	for _, kind := range allKinds {
		for _, action := range allActions {
			assert.True(t, Permit(id, action, Global(kind)).Allowed, "%s %s", action, kind)
			assert.True(t, Permit(id, action, InArea(kind, 99)).Allowed, "%s %s in area", action, kind)
		}
	}
}

func TestPermit_AreaAdminNeedsOnlyInOwnArea(t *testing.T) {
	id := areaAdmin(2)

	for _, action := range []Action{ActionRead, ActionCreate, ActionUpdate} {
		for area := uint64(1); area <= 5; area++ {
			d := Permit(id, action, InArea(ResourceNeed, area))
			if area == 2 {
				assert.True(t, d.Allowed, "%s need in own area", action)
				continue
			}
			assert.False(t, d.Allowed, "%s need in area %d", action, area)
			assert.Equal(t, ReasonWrongArea, d.Reason)
		}
	}

	d := Permit(id, ActionUpdate, Global(ResourceNeed))
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonWrongArea, d.Reason)
}

func TestPermit_AreaAdminSuperAdminOnlyNeedActions(t *testing.T) {
	id := areaAdmin(2)

	for _, action := range []Action{ActionDelete, ActionSetStatus} {
		d := Permit(id, action, InArea(ResourceNeed, 2))
		assert.False(t, d.Allowed, action)
		assert.Equal(t, ReasonWrongRole, d.Reason)
	}
}

func TestPermit_AreaAdminReferenceDataReadOnly(t *testing.T) {
	id := areaAdmin(2)

	for _, kind := range []ResourceKind{ResourceCategory, ResourceProduct} {
		assert.True(t, Permit(id, ActionRead, Global(kind)).Allowed)
		for _, action := range []Action{ActionCreate, ActionUpdate, ActionDelete} {
			assert.False(t, Permit(id, action, Global(kind)).Allowed, "%s %s", action, kind)
		}
	}

	for _, kind := range []ResourceKind{ResourceArea, ResourceAreaAssignment, ResourceDatabase} {
		for _, action := range allActions {
			assert.False(t, Permit(id, action, Global(kind)).Allowed, "%s %s", action, kind)
		}
	}
	assert.False(t, Permit(id, ActionRead, Global(ResourceContactMessage)).Allowed)
}

func TestPermit_OrphanedAreaAdminDenied(t *testing.T) {
	id := &Identity{UserID: 8, Role: models.RoleAreaAdmin}
	require.True(t, id.Orphaned())

	for _, kind := range allKinds {
		for _, action := range allActions {
			d := Permit(id, action, InArea(kind, 1))
			if publicAction(action, InArea(kind, 1)) {
				assert.True(t, d.Allowed)
				continue
			}
			assert.False(t, d.Allowed, "%s %s", action, kind)
			assert.Equal(t, ReasonOrphaned, d.Reason)
		}
	}
}

func TestPermit_PublicOnlyReadsAndSubmitsContact(t *testing.T) {
	ids := map[string]*Identity{
		"anonymous": nil,
		"public":    {UserID: 5, Role: models.RolePublic},
	}

	for name, id := range ids {
		t.Run(name, func(t *testing.T) {
			assert.True(t, Permit(id, ActionRead, Global(ResourcePublicView)).Allowed)
			assert.True(t, Permit(id, ActionCreate, Global(ResourceContactMessage)).Allowed)

			for _, kind := range allKinds {
				for _, action := range allActions {
					if !action.Mutating() {
						continue
					}
					if kind == ResourceContactMessage && action == ActionCreate {
						continue
					}
					assert.False(t, Permit(id, action, InArea(kind, 1)).Allowed, "%s %s", action, kind)
				}
			}
		})
	}
}

func TestPermit_Reasons(t *testing.T) {
	d := Permit(nil, ActionUpdate, Global(ResourceArea))
	assert.Equal(t, ReasonUnauthenticated, d.Reason)

	d = Permit(&Identity{Role: models.RolePublic}, ActionRead, Global(ResourceNeed))
	assert.Equal(t, ReasonWrongRole, d.Reason)

	d = Permit(&Identity{Role: models.Role("ghost")}, ActionRead, Global(ResourceNeed))
	assert.Equal(t, ReasonUnknownRole, d.Reason)
}
