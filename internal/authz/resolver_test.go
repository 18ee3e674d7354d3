package authz

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapReader struct {
	users map[string]*User
	roles map[string][]*Role
	err   error
}

func (m *mapReader) GetUser(_ context.Context, id string) (*User, error) {
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return u, nil
}

func (m *mapReader) ListUserRoles(_ context.Context, id string) ([]*Role, error) {
	return m.roles[id], nil
}

func TestResolver_Resolve(t *testing.T) {
	r := NewResolver(&mapReader{
		users: map[string]*User{
			"u1": {ID: "u1", TenantID: "t1", Email: "a@example.com", Status: StatusActive},
		},
		roles: map[string][]*Role{
			"u1": {roleBySlug(SlugAccountant)},
		},
	})

	p, err := r.Resolve(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "t1", p.TenantID)
	assert.Equal(t, 3, p.MinHierarchyLevel)
	assert.True(t, p.Can(PermManageBilling))
	assert.False(t, p.Can(PermManageTeam))

	_, err = r.Resolve(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = r.Resolve(context.Background(), "")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestResolver_StoreFailure(t *testing.T) {
	boom := errors.New("connection reset")
	r := NewResolver(&mapReader{err: boom})

	_, err := r.Resolve(context.Background(), "u1")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrUnauthenticated)
}

func TestPrincipal_Outranks(t *testing.T) {
	owner := &Principal{MinHierarchyLevel: LevelOwner}
	manager := &Principal{MinHierarchyLevel: LevelManager}
	peer := &Principal{MinHierarchyLevel: LevelManager}
	roleless := &Principal{MinHierarchyLevel: LeastPrivilegedLevel}

	assert.True(t, owner.Outranks(manager))
	assert.False(t, manager.Outranks(peer))
	assert.False(t, manager.Outranks(owner))
	assert.True(t, manager.Outranks(roleless))
}
