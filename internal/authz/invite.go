package authz

import (
	"fmt"
	"sort"
)

// MinAssignableLevel is the most privileged level an actor at actorLevel may
// hand out. The owner may grant anything below itself; everyone else is
// capped at their own level and can never grant Admin.
func MinAssignableLevel(actorLevel int) int {
	if actorLevel == LevelOwner {
		return LevelAdmin
	}
	if actorLevel > LevelMinPeerAssignable {
		return actorLevel
	}
	return LevelMinPeerAssignable
}

// CanAssign checks whether actor may give role to a member of its tenant.
func CanAssign(actor *Principal, role *Role) error {
	if !role.VisibleTo(actor.TenantID) {
		return fmt.Errorf("%w: role %s", ErrNotFound, role.ID)
	}
	if role.HierarchyLevel == LevelOwner || role.Slug == SlugOwner {
		return fmt.Errorf("%w: the owner role is only granted by ownership transfer", ErrInsufficientAuthority)
	}
	if role.HierarchyLevel < MinAssignableLevel(actor.MinHierarchyLevel) {
		return fmt.Errorf("%w: cannot assign role %s (level %d)", ErrInsufficientAuthority, role.Slug, role.HierarchyLevel)
	}
	return nil
}

// AssignableRoles filters roles down to what actor may assign, ordered by
// level then name.
func AssignableRoles(actor *Principal, roles []*Role) []*Role {
	out := make([]*Role, 0, len(roles))
	for _, role := range roles {
		if CanAssign(actor, role) == nil {
			out = append(out, role)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].HierarchyLevel != out[j].HierarchyLevel {
			return out[i].HierarchyLevel < out[j].HierarchyLevel
		}
		return out[i].Name < out[j].Name
	})
	return out
}
