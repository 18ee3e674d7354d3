package authz

import "time"

// UserStatus is the standing of a user inside a tenant.
type UserStatus string

const (
	StatusInvited  UserStatus = "invited"
	StatusActive   UserStatus = "active"
	StatusDisabled UserStatus = "disabled"
)

// Valid reports whether s is one of the known statuses.
func (s UserStatus) Valid() bool {
	switch s {
	case StatusInvited, StatusActive, StatusDisabled:
		return true
	}
	return false
}

// System role slugs
const (
	SlugOwner          = "owner"
	SlugAdmin          = "admin"
	SlugManager        = "manager"
	SlugDesigner       = "designer"
	SlugSales          = "sales"
	SlugAccountant     = "accountant"
	SlugSiteSupervisor = "site_supervisor"
	SlugViewer         = "viewer"
)

// Hierarchy levels. Lower means more authority.
const (
	LevelOwner   = 0
	LevelAdmin   = 1
	LevelManager = 2
	// LevelMinPeerAssignable is the lowest level a non-owner may ever hand out.
	LevelMinPeerAssignable = 2
	// LeastPrivilegedLevel is the level of a user holding no roles.
	LeastPrivilegedLevel = 999
)

// Role is a named rank. TenantID is nil for shared system roles.
type Role struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Slug           string  `json:"slug"`
	TenantID       *string `json:"tenantId,omitempty"`
	HierarchyLevel int     `json:"hierarchyLevel"`
	IsSystemRole   bool    `json:"isSystemRole"`
	IsDefault      bool    `json:"isDefault"`
}

// VisibleTo reports whether the role may be used inside tenantID.
func (r *Role) VisibleTo(tenantID string) bool {
	return r.TenantID == nil || *r.TenantID == tenantID
}

// User is the application-level user record.
type User struct {
	ID           string     `json:"id"`
	TenantID     string     `json:"tenantId"`
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	IsSuperAdmin bool       `json:"isSuperAdmin"`
	Status       UserStatus `json:"status"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// Assignment links a user to a role.
type Assignment struct {
	UserID string `json:"userId"`
	RoleID string `json:"roleId"`
}

// AuditEvent records a successful hierarchy mutation.
type AuditEvent struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenantId"`
	ActorID   string    `json:"actorId"`
	TargetID  string    `json:"targetId"`
	Action    string    `json:"action"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Audit actions
const (
	ActionInvite            = "member.invite"
	ActionAcceptInvite      = "member.accept_invite"
	ActionReactivate        = "member.reactivate"
	ActionDeactivate        = "member.deactivate"
	ActionChangeRoles       = "member.change_roles"
	ActionTransferOwnership = "tenant.transfer_ownership"
)
