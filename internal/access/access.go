// Package access decides what an identity may do. Every handler and service
// consults Permit; no other code compares roles.
package access

import (
	"github.com/yukikurage/relief-management-api/internal/models"
)

// Action is an operation on a resource.
type Action string

const (
	ActionRead      Action = "read"
	ActionCreate    Action = "create"
	ActionUpdate    Action = "update"
	ActionDelete    Action = "delete"
	ActionSetStatus Action = "set_status"
	ActionExport    Action = "export"
	ActionImport    Action = "import"
)

// Mutating reports whether a changes persisted state.
func (a Action) Mutating() bool {
	return a != ActionRead && a != ActionExport
}

// ResourceKind names the record type an action targets.
type ResourceKind string

const (
	ResourcePublicView     ResourceKind = "public_view"
	ResourceNeed           ResourceKind = "need"
	ResourceArea           ResourceKind = "area"
	ResourceAreaAssignment ResourceKind = "area_assignment"
	ResourceCategory       ResourceKind = "category"
	ResourceProduct        ResourceKind = "product"
	ResourceContactMessage ResourceKind = "contact_message"
	ResourceDatabase       ResourceKind = "database"
)

// Resource is the target of an action. AreaID is set for area-scoped records.
type Resource struct {
	Kind   ResourceKind
	AreaID *uint64
}

// Global returns an unscoped resource of kind.
func Global(kind ResourceKind) Resource {
	return Resource{Kind: kind}
}

// InArea returns a resource scoped to areaID.
func InArea(kind ResourceKind, areaID uint64) Resource {
	return Resource{Kind: kind, AreaID: &areaID}
}

// Identity is an authenticated principal. A nil *Identity is an anonymous visitor.
type Identity struct {
	UserID   uint64
	Username string
	Role     models.Role
	// AreaID is the area of the active assignment; nil for area admins without one.
	AreaID *uint64
	// AssignmentID is the id of the active assignment, 0 when there is none.
	AssignmentID uint64
}

// IsSuperAdmin reports whether id holds the super admin role.
func (id *Identity) IsSuperAdmin() bool {
	return id != nil && id.Role == models.RoleSuperAdmin
}

// Orphaned reports whether id is an area admin with no active assignment.
func (id *Identity) Orphaned() bool {
	return id != nil && id.Role == models.RoleAreaAdmin && id.AreaID == nil
}

// Reason explains a denial.
type Reason string

const (
	ReasonNone            Reason = ""
	ReasonUnauthenticated Reason = "authentication required"
	ReasonWrongRole       Reason = "role not permitted"
	ReasonWrongArea       Reason = "record belongs to another area"
	ReasonOrphaned        Reason = "area admin has no active area assignment"
	ReasonUnknownRole     Reason = "unknown role"
)

// Decision is the result of Permit.
type Decision struct {
	Allowed bool
	Reason  Reason
}

var allowed = Decision{Allowed: true}

func denied(reason Reason) Decision {
	return Decision{Reason: reason}
}

// Permit decides whether id may perform action on res.
func Permit(id *Identity, action Action, res Resource) Decision {
	if publicAction(action, res) {
		return allowed
	}

	if id == nil {
		return denied(ReasonUnauthenticated)
	}

	switch id.Role {
	case models.RoleSuperAdmin:
		return allowed
	case models.RoleAreaAdmin:
		return permitAreaAdmin(id, action, res)
	case models.RolePublic:
		return denied(ReasonWrongRole)
	default:
		return denied(ReasonUnknownRole)
	}
}

// publicAction covers what anyone may do, signed in or not: read published
// views and submit a contact message.
func publicAction(action Action, res Resource) bool {
	switch res.Kind {
	case ResourcePublicView:
		return action == ActionRead
	case ResourceContactMessage:
		return action == ActionCreate
	}
	return false
}

func permitAreaAdmin(id *Identity, action Action, res Resource) Decision {
	if id.Orphaned() {
		return denied(ReasonOrphaned)
	}

	switch res.Kind {
	case ResourceCategory, ResourceProduct:
		if action == ActionRead {
			return allowed
		}
		return denied(ReasonWrongRole)
	case ResourceNeed:
		switch action {
		case ActionRead, ActionCreate, ActionUpdate:
		default:
			return denied(ReasonWrongRole)
		}
		if res.AreaID == nil || *res.AreaID != *id.AreaID {
			return denied(ReasonWrongArea)
		}
		return allowed
	default:
		return denied(ReasonWrongRole)
	}
}
