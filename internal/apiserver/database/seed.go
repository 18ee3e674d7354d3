package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/amoylab/atelier/internal/authz"
	"github.com/google/uuid"
)

// SystemRoles are the role templates shared by every tenant.
var SystemRoles = []authz.Role{
	{Name: "Owner", Slug: authz.SlugOwner, HierarchyLevel: authz.LevelOwner},
	{Name: "Admin", Slug: authz.SlugAdmin, HierarchyLevel: authz.LevelAdmin},
	{Name: "Manager", Slug: authz.SlugManager, HierarchyLevel: authz.LevelManager},
	{Name: "Designer", Slug: authz.SlugDesigner, HierarchyLevel: 3, IsDefault: true},
	{Name: "Sales", Slug: authz.SlugSales, HierarchyLevel: 3},
	{Name: "Accountant", Slug: authz.SlugAccountant, HierarchyLevel: 3},
	{Name: "Site Supervisor", Slug: authz.SlugSiteSupervisor, HierarchyLevel: 3},
	{Name: "Viewer", Slug: authz.SlugViewer, HierarchyLevel: 4},
}

// SeedSystemRoles inserts missing system roles and resets the name and
// level of existing ones.
func (s *Store) SeedSystemRoles(ctx context.Context) error {
	return s.Transaction(ctx, func(ctx context.Context) error {
		db := getDBFromContext(ctx, s.db)
		for _, tmpl := range SystemRoles {
			var existing Role
			err := db.Where("slug = ? AND tenant_id IS NULL", tmpl.Slug).Limit(1).Find(&existing).Error
			if err != nil {
				return err
			}
			if existing.ID == "" {
				row := &Role{
					ID:             uuid.NewString(),
					Name:           tmpl.Name,
					Slug:           tmpl.Slug,
					HierarchyLevel: tmpl.HierarchyLevel,
					IsSystemRole:   true,
					IsDefault:      tmpl.IsDefault,
				}
				if err := db.Create(row).Error; err != nil {
					return fmt.Errorf("seed role %s: %w", tmpl.Slug, err)
				}
				continue
			}
			err = db.Model(&existing).Updates(map[string]any{
				"name":            tmpl.Name,
				"hierarchy_level": tmpl.HierarchyLevel,
				"is_system_role":  true,
				"is_default":      tmpl.IsDefault,
			}).Error
			if err != nil {
				return fmt.Errorf("update role %s: %w", tmpl.Slug, err)
			}
		}
		return nil
	})
}

// BootstrapInput names the first tenant and its owner.
type BootstrapInput struct {
	TenantName string
	OwnerEmail string
	OwnerName  string
}

// Bootstrap seeds the system roles, then creates a tenant with an active
// owner holding the super-admin flag and the Owner role.
func Bootstrap(ctx context.Context, db Database, in BootstrapInput) (*Tenant, *authz.User, error) {
	if strings.TrimSpace(in.TenantName) == "" || strings.TrimSpace(in.OwnerEmail) == "" {
		return nil, nil, errors.New("tenant name and owner email are required")
	}
	if err := db.SeedSystemRoles(ctx); err != nil {
		return nil, nil, err
	}

	var (
		tenant *Tenant
		owner  *authz.User
	)
	err := db.Transaction(ctx, func(ctx context.Context) error {
		ownerRole, err := db.FindSystemRole(ctx, authz.SlugOwner)
		if err != nil {
			return err
		}
		tenant = &Tenant{Name: strings.TrimSpace(in.TenantName)}
		if err := db.CreateTenant(ctx, tenant); err != nil {
			return err
		}
		owner = &authz.User{
			TenantID:     tenant.ID,
			Email:        strings.ToLower(strings.TrimSpace(in.OwnerEmail)),
			Name:         strings.TrimSpace(in.OwnerName),
			IsSuperAdmin: true,
			Status:       authz.StatusActive,
		}
		if err := db.CreateUser(ctx, owner); err != nil {
			return err
		}
		return db.AssignRole(ctx, owner.ID, ownerRole.ID)
	})
	if err != nil {
		return nil, nil, err
	}
	return tenant, owner, nil
}
