package authz

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// Reader is the read side of the relational store the resolver needs.
type Reader interface {
	// GetUser returns ErrNotFound when the user row does not exist.
	GetUser(ctx context.Context, userID string) (*User, error)
	// ListUserRoles returns every role assigned to the user.
	ListUserRoles(ctx context.Context, userID string) ([]*Role, error)
}

// Principal is the resolved authorization context of one user.
type Principal struct {
	UserID            string          `json:"userId"`
	TenantID          string          `json:"tenantId"`
	Email             string          `json:"email"`
	Status            UserStatus      `json:"status"`
	IsSuperAdmin      bool            `json:"isSuperAdmin"`
	RoleSlugs         []string        `json:"roleSlugs"`
	MinHierarchyLevel int             `json:"minHierarchyLevel"`
	Permissions       map[string]bool `json:"permissions"`
}

// Can reports whether the principal holds permission key.
func (p *Principal) Can(key string) bool {
	return p != nil && p.Permissions[key]
}

// HasRole reports whether slug is among the principal's assigned roles.
func (p *Principal) HasRole(slug string) bool {
	for _, s := range p.RoleSlugs {
		if s == slug {
			return true
		}
	}
	return false
}

// Outranks reports whether p has strictly more authority than other.
func (p *Principal) Outranks(other *Principal) bool {
	return p.MinHierarchyLevel < other.MinHierarchyLevel
}

// IsOwner reports whether the principal carries owner authority.
func (p *Principal) IsOwner() bool {
	return p.MinHierarchyLevel == LevelOwner
}

// Resolver computes principals from store state. It holds no state of its own.
type Resolver struct {
	store Reader
}

// NewResolver creates a resolver over store.
func NewResolver(store Reader) *Resolver {
	return &Resolver{store: store}
}

// Resolve loads the user and their roles and derives the principal.
func (r *Resolver) Resolve(ctx context.Context, userID string) (*Principal, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: empty user id", ErrUnauthenticated)
	}
	user, err := r.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: user %s not found", ErrUnauthenticated, userID)
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	roles, err := r.store.ListUserRoles(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load roles: %w", err)
	}
	return Build(user, roles), nil
}

// Build derives a principal from a user row and its assigned roles.
func Build(user *User, roles []*Role) *Principal {
	lvl := MinHierarchyLevel(roles)
	if user.IsSuperAdmin {
		lvl = LevelOwner
	}

	seen := make(map[string]struct{}, len(roles))
	slugs := make([]string, 0, len(roles))
	for _, role := range roles {
		if _, ok := seen[role.Slug]; ok {
			continue
		}
		seen[role.Slug] = struct{}{}
		slugs = append(slugs, role.Slug)
	}
	sort.Strings(slugs)

	// the owner flag counts as holding the owner role for slug-based rules
	evalSlugs := slugs
	if user.IsSuperAdmin {
		if _, ok := seen[SlugOwner]; !ok {
			evalSlugs = append(append([]string{}, slugs...), SlugOwner)
		}
	}

	perms := Evaluate(evalSlugs, lvl)
	// holding the owner role row without the flag does not allow a transfer
	perms[PermTransferOwnership] = user.IsSuperAdmin

	return &Principal{
		UserID:            user.ID,
		TenantID:          user.TenantID,
		Email:             user.Email,
		Status:            user.Status,
		IsSuperAdmin:      user.IsSuperAdmin,
		RoleSlugs:         slugs,
		MinHierarchyLevel: lvl,
		Permissions:       perms,
	}
}

// MinHierarchyLevel returns the most privileged level among roles, or
// LeastPrivilegedLevel when there are none.
func MinHierarchyLevel(roles []*Role) int {
	lvl := LeastPrivilegedLevel
	for _, role := range roles {
		if role.HierarchyLevel < lvl {
			lvl = role.HierarchyLevel
		}
	}
	return lvl
}
