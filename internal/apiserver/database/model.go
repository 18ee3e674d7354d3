package database

import (
	"time"

	"github.com/amoylab/atelier/internal/authz"
)

// Tenant is one customer organization.
type Tenant struct {
	ID        string `gorm:"primaryKey;type:varchar(36)"`
	Name      string `gorm:"type:varchar(255);not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// User mirrors authz.User. Emails are stored lowercased and are unique
// within a tenant.
type User struct {
	ID           string `gorm:"primaryKey;type:varchar(36)"`
	TenantID     string `gorm:"type:varchar(36);not null;uniqueIndex:idx_users_tenant_email;index"`
	Email        string `gorm:"type:varchar(255);not null;uniqueIndex:idx_users_tenant_email"`
	Name         string `gorm:"type:varchar(255)"`
	IsSuperAdmin bool   `gorm:"not null;default:false"`
	Status       string `gorm:"type:varchar(20);not null;default:'invited'"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Role is a system role (TenantID nil) or a tenant's custom role.
type Role struct {
	ID             string  `gorm:"primaryKey;type:varchar(36)"`
	Name           string  `gorm:"type:varchar(100);not null"`
	Slug           string  `gorm:"type:varchar(50);not null;index"`
	TenantID       *string `gorm:"type:varchar(36);index"`
	HierarchyLevel int     `gorm:"not null"`
	IsSystemRole   bool    `gorm:"not null;default:false"`
	IsDefault      bool    `gorm:"not null;default:false"`
	CreatedAt      time.Time
}

// UserRole assigns a role to a user; the pair is the primary key.
type UserRole struct {
	UserID    string `gorm:"primaryKey;type:varchar(36)"`
	RoleID    string `gorm:"primaryKey;type:varchar(36);index"`
	CreatedAt time.Time
}

// AuditEvent is one successful team mutation.
type AuditEvent struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)"`
	TenantID  string    `gorm:"type:varchar(36);not null;index:idx_audit_tenant_time"`
	ActorID   string    `gorm:"type:varchar(36);not null"`
	TargetID  string    `gorm:"type:varchar(36)"`
	Action    string    `gorm:"type:varchar(64);not null"`
	Detail    string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"index:idx_audit_tenant_time"`
}

func allModels() []any {
	return []any{&Tenant{}, &User{}, &Role{}, &UserRole{}, &AuditEvent{}}
}

func (u *User) toDomain() *authz.User {
	return &authz.User{
		ID:           u.ID,
		TenantID:     u.TenantID,
		Email:        u.Email,
		Name:         u.Name,
		IsSuperAdmin: u.IsSuperAdmin,
		Status:       authz.UserStatus(u.Status),
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func userFromDomain(u *authz.User) *User {
	return &User{
		ID:           u.ID,
		TenantID:     u.TenantID,
		Email:        u.Email,
		Name:         u.Name,
		IsSuperAdmin: u.IsSuperAdmin,
		Status:       string(u.Status),
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func (r *Role) toDomain() *authz.Role {
	return &authz.Role{
		ID:             r.ID,
		Name:           r.Name,
		Slug:           r.Slug,
		TenantID:       r.TenantID,
		HierarchyLevel: r.HierarchyLevel,
		IsSystemRole:   r.IsSystemRole,
		IsDefault:      r.IsDefault,
	}
}

func (e *AuditEvent) toDomain() *authz.AuditEvent {
	return &authz.AuditEvent{
		ID:        e.ID,
		TenantID:  e.TenantID,
		ActorID:   e.ActorID,
		TargetID:  e.TargetID,
		Action:    e.Action,
		Detail:    e.Detail,
		CreatedAt: e.CreatedAt,
	}
}
