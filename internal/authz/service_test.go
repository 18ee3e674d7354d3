package authz_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/amoylab/atelier/internal/apiserver/database"
	"github.com/amoylab/atelier/internal/authz"
	"github.com/amoylab/atelier/internal/common/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	t      *testing.T
	store  *database.Store
	tenant *database.Tenant
	owner  *authz.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := &config.DatabaseConfig{Type: "sqlite", DBName: filepath.Join(t.TempDir(), "authz.db")}
	store, err := database.NewSQLite(cfg, &gorm.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	tenant, owner, err := database.Bootstrap(context.Background(), store, database.BootstrapInput{
		TenantName: "Studio",
		OwnerEmail: "owner@example.com",
	})
	require.NoError(t, err)
	return &fixture{t: t, store: store, tenant: tenant, owner: owner}
}

func (f *fixture) member(tenantID, email, slug string, status authz.UserStatus) *authz.User {
	f.t.Helper()
	ctx := context.Background()
	u := &authz.User{TenantID: tenantID, Email: email, Status: status}
	require.NoError(f.t, f.store.CreateUser(ctx, u))
	role, err := f.store.FindSystemRole(ctx, slug)
	require.NoError(f.t, err)
	require.NoError(f.t, f.store.AssignRole(ctx, u.ID, role.ID))
	return u
}

func (f *fixture) principal(u *authz.User) *authz.Principal {
	f.t.Helper()
	p, err := authz.NewResolver(f.store).Resolve(context.Background(), u.ID)
	require.NoError(f.t, err)
	return p
}

func (f *fixture) slugs(u *authz.User) []string {
	return f.principal(u).RoleSlugs
}

type invalidations struct {
	mu  sync.Mutex
	ids []string
}

func (i *invalidations) InvalidateUser(_ context.Context, id string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.ids = append(i.ids, id)
	return nil
}

type recorded struct {
	action string
	failed bool
}

type recorder struct{ got []recorded }

func (r *recorder) Mutation(action string, err error) {
	r.got = append(r.got, recorded{action: action, failed: err != nil})
}

// faultyStore injects failures into selected store calls.
type faultyStore struct {
	*database.Store
	failAssignRole string
	hideSystemRole string
	failOwnerFlag  string
	// disableFirst is disabled right before a transaction opens, as a
	// concurrent Deactivate would.
	disableFirst string
}

func (s *faultyStore) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.disableFirst != "" {
		if err := s.Store.UpdateUserStatus(ctx, s.disableFirst, authz.StatusActive, authz.StatusDisabled); err != nil {
			return err
		}
	}
	return s.Store.Transaction(ctx, fn)
}

func (s *faultyStore) AssignRole(ctx context.Context, userID, roleID string) error {
	if roleID == s.failAssignRole {
		return errors.New("disk full")
	}
	return s.Store.AssignRole(ctx, userID, roleID)
}

func (s *faultyStore) SetSuperAdmin(ctx context.Context, userID string, from, to bool) error {
	if userID == s.failOwnerFlag {
		return errors.New("lock timeout")
	}
	return s.Store.SetSuperAdmin(ctx, userID, from, to)
}

func (s *faultyStore) PromoteOwner(ctx context.Context, userID string) error {
	if userID == s.failOwnerFlag {
		return errors.New("lock timeout")
	}
	return s.Store.PromoteOwner(ctx, userID)
}

func (s *faultyStore) FindSystemRole(ctx context.Context, slug string) (*authz.Role, error) {
	if slug == s.hideSystemRole {
		return nil, authz.ErrNotFound
	}
	return s.Store.FindSystemRole(ctx, slug)
}

func TestReactivate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv := &invalidations{}
	svc := authz.NewService(f.store, authz.WithInvalidator(inv))

	b := f.member(f.tenant.ID, "b@example.com", authz.SlugManager, authz.StatusActive)
	c := f.member(f.tenant.ID, "c@example.com", authz.SlugManager, authz.StatusDisabled)
	d := f.member(f.tenant.ID, "d@example.com", authz.SlugDesigner, authz.StatusDisabled)

	_, err := svc.Reactivate(ctx, f.principal(b), c.ID)
	assert.ErrorIs(t, err, authz.ErrInsufficientAuthority)
	assert.Equal(t, authz.StatusDisabled, f.principal(c).Status)

	p, err := svc.Reactivate(ctx, f.principal(b), d.ID)
	require.NoError(t, err)
	assert.Equal(t, authz.StatusActive, p.Status)
	assert.Equal(t, authz.StatusActive, f.principal(d).Status)
	assert.Equal(t, []string{d.ID}, inv.ids)

	_, err = svc.Reactivate(ctx, f.principal(b), d.ID)
	assert.ErrorIs(t, err, authz.ErrInvalidState)

	p, err = svc.Reactivate(ctx, f.principal(f.owner), c.ID)
	require.NoError(t, err)
	assert.Equal(t, authz.StatusActive, p.Status)

	events, err := f.store.ListAudit(ctx, f.tenant.ID, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, authz.ActionReactivate, events[0].Action)
	assert.Equal(t, c.ID, events[0].TargetID)
}

func TestReactivate_OtherTenant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	other, _, err := database.Bootstrap(ctx, f.store, database.BootstrapInput{
		TenantName: "Elsewhere",
		OwnerEmail: "boss@elsewhere.com",
	})
	require.NoError(t, err)
	stranger := f.member(other.ID, "s@elsewhere.com", authz.SlugViewer, authz.StatusDisabled)

	svc := authz.NewService(f.store)
	_, err = svc.Reactivate(ctx, f.principal(f.owner), stranger.ID)
	assert.ErrorIs(t, err, authz.ErrNotFound)
	assert.Equal(t, authz.StatusDisabled, f.principal(stranger).Status)
}

func TestDeactivate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := authz.NewService(f.store)
	admin := f.member(f.tenant.ID, "a@example.com", authz.SlugAdmin, authz.StatusActive)
	invited := f.member(f.tenant.ID, "i@example.com", authz.SlugSales, authz.StatusInvited)

	_, err := svc.Deactivate(ctx, f.principal(admin), admin.ID)
	assert.ErrorIs(t, err, authz.ErrInvalidState)

	_, err = svc.Deactivate(ctx, f.principal(admin), f.owner.ID)
	assert.ErrorIs(t, err, authz.ErrInsufficientAuthority)

	p, err := svc.Deactivate(ctx, f.principal(admin), invited.ID)
	require.NoError(t, err)
	assert.Equal(t, authz.StatusDisabled, p.Status)

	_, err = svc.Deactivate(ctx, f.principal(admin), invited.ID)
	assert.ErrorIs(t, err, authz.ErrInvalidState)
}

func TestTransferOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv := &invalidations{}
	svc := authz.NewService(f.store, authz.WithInvalidator(inv))
	next := f.member(f.tenant.ID, "n@example.com", authz.SlugSales, authz.StatusActive)

	require.NoError(t, svc.TransferOwnership(ctx, f.principal(f.owner), next.ID))

	former := f.principal(f.owner)
	assert.False(t, former.IsSuperAdmin)
	assert.Equal(t, []string{authz.SlugAdmin}, former.RoleSlugs)
	assert.Equal(t, authz.LevelAdmin, former.MinHierarchyLevel)

	current := f.principal(next)
	assert.True(t, current.IsSuperAdmin)
	assert.Equal(t, []string{authz.SlugOwner}, current.RoleSlugs)
	assert.ElementsMatch(t, []string{f.owner.ID, next.ID}, inv.ids)

	users, err := f.store.ListTenantUsers(ctx, f.tenant.ID)
	require.NoError(t, err)
	owners := 0
	for _, u := range users {
		if u.IsSuperAdmin {
			owners++
		}
	}
	assert.Equal(t, 1, owners)
}

func TestTransferOwnership_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := authz.NewService(f.store)
	admin := f.member(f.tenant.ID, "a@example.com", authz.SlugAdmin, authz.StatusActive)
	invited := f.member(f.tenant.ID, "i@example.com", authz.SlugDesigner, authz.StatusInvited)

	err := svc.TransferOwnership(ctx, f.principal(admin), invited.ID)
	assert.ErrorIs(t, err, authz.ErrInsufficientAuthority)

	err = svc.TransferOwnership(ctx, f.principal(f.owner), invited.ID)
	assert.ErrorIs(t, err, authz.ErrInvalidState)

	err = svc.TransferOwnership(ctx, f.principal(f.owner), f.owner.ID)
	assert.ErrorIs(t, err, authz.ErrInvalidState)

	err = svc.TransferOwnership(ctx, f.principal(f.owner), "nobody")
	assert.ErrorIs(t, err, authz.ErrNotFound)

	assert.True(t, f.principal(f.owner).IsSuperAdmin)
	assert.Equal(t, []string{authz.SlugOwner}, f.slugs(f.owner))
	assert.Equal(t, []string{authz.SlugAdmin}, f.slugs(admin))
}

func TestTransferOwnership_RollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ownerRole, err := f.store.FindSystemRole(ctx, authz.SlugOwner)
	require.NoError(t, err)
	next := f.member(f.tenant.ID, "n@example.com", authz.SlugManager, authz.StatusActive)

	tests := []struct {
		name  string
		store *faultyStore
	}{
		{"last role write fails", &faultyStore{Store: f.store, failAssignRole: ownerRole.ID}},
		{"promotion fails", &faultyStore{Store: f.store, failOwnerFlag: next.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := &invalidations{}
			svc := authz.NewService(tt.store, authz.WithInvalidator(inv))

			err := svc.TransferOwnership(ctx, f.principal(f.owner), next.ID)
			require.Error(t, err)

			assert.True(t, f.principal(f.owner).IsSuperAdmin)
			assert.Equal(t, []string{authz.SlugOwner}, f.slugs(f.owner))
			assert.False(t, f.principal(next).IsSuperAdmin)
			assert.Equal(t, []string{authz.SlugManager}, f.slugs(next))
			assert.Empty(t, inv.ids)

			events, err := f.store.ListAudit(ctx, f.tenant.ID, 10)
			require.NoError(t, err)
			assert.Empty(t, events)
		})
	}
}

func TestTransferOwnership_TargetDisabledConcurrently(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	next := f.member(f.tenant.ID, "n@example.com", authz.SlugManager, authz.StatusActive)
	inv := &invalidations{}
	svc := authz.NewService(&faultyStore{Store: f.store, disableFirst: next.ID}, authz.WithInvalidator(inv))

	err := svc.TransferOwnership(ctx, f.principal(f.owner), next.ID)
	assert.ErrorIs(t, err, authz.ErrConflict)

	assert.True(t, f.principal(f.owner).IsSuperAdmin)
	assert.Equal(t, []string{authz.SlugOwner}, f.slugs(f.owner))
	got := f.principal(next)
	assert.False(t, got.IsSuperAdmin)
	assert.Equal(t, authz.StatusDisabled, got.Status)
	assert.Equal(t, []string{authz.SlugManager}, got.RoleSlugs)
	assert.Empty(t, inv.ids)
}

func TestInvite_ConcurrentDuplicate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	designer, err := f.store.FindSystemRole(ctx, authz.SlugDesigner)
	require.NoError(t, err)
	// both invites miss the email lookup and race to the insert
	svc := authz.NewService(&blindStore{faultyStore{Store: f.store}})

	_, err = svc.Invite(ctx, f.principal(f.owner), authz.InviteInput{Email: "x@example.com", RoleID: designer.ID})
	require.NoError(t, err)
	_, err = svc.Invite(ctx, f.principal(f.owner), authz.InviteInput{Email: "X@example.com", RoleID: designer.ID})
	assert.ErrorIs(t, err, authz.ErrDuplicateMember)
}

// blindStore never finds an existing user by email.
type blindStore struct {
	faultyStore
}

func (s *blindStore) FindUserByEmail(context.Context, string, string) (*authz.User, error) {
	return nil, authz.ErrNotFound
}

func TestTransferOwnership_MissingSystemRole(t *testing.T) {
	f := newFixture(t)
	next := f.member(f.tenant.ID, "n@example.com", authz.SlugManager, authz.StatusActive)
	svc := authz.NewService(&faultyStore{Store: f.store, hideSystemRole: authz.SlugAdmin})

	err := svc.TransferOwnership(context.Background(), f.principal(f.owner), next.ID)
	assert.ErrorIs(t, err, authz.ErrSystemConfiguration)
	assert.True(t, f.principal(f.owner).IsSuperAdmin)
}

func TestInvite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := authz.NewService(f.store)
	manager := f.member(f.tenant.ID, "m@example.com", authz.SlugManager, authz.StatusActive)
	designer, err := f.store.FindSystemRole(ctx, authz.SlugDesigner)
	require.NoError(t, err)
	admin, err := f.store.FindSystemRole(ctx, authz.SlugAdmin)
	require.NoError(t, err)

	_, err = svc.Invite(ctx, f.principal(manager), authz.InviteInput{Email: "x@example.com", RoleID: admin.ID})
	assert.ErrorIs(t, err, authz.ErrInsufficientAuthority)

	u, err := svc.Invite(ctx, f.principal(manager), authz.InviteInput{Email: " X@Example.com ", Name: "Xu", RoleID: designer.ID})
	require.NoError(t, err)
	assert.Equal(t, "x@example.com", u.Email)
	assert.Equal(t, authz.StatusInvited, u.Status)
	assert.Equal(t, []string{authz.SlugDesigner}, f.slugs(u))

	_, err = svc.Invite(ctx, f.principal(manager), authz.InviteInput{Email: "x@example.com", RoleID: designer.ID})
	assert.ErrorIs(t, err, authz.ErrDuplicateMember)

	_, err = svc.Invite(ctx, f.principal(manager), authz.InviteInput{Email: "y@example.com", RoleID: "no-such-role"})
	assert.ErrorIs(t, err, authz.ErrNotFound)

	p, err := svc.AcceptInvite(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, authz.StatusActive, p.Status)

	_, err = svc.AcceptInvite(ctx, u.ID)
	assert.ErrorIs(t, err, authz.ErrInvalidState)
}

func TestChangeRoles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := authz.NewService(f.store)
	admin := f.member(f.tenant.ID, "a@example.com", authz.SlugAdmin, authz.StatusActive)
	manager := f.member(f.tenant.ID, "m@example.com", authz.SlugManager, authz.StatusActive)
	viewer, err := f.store.FindSystemRole(ctx, authz.SlugViewer)
	require.NoError(t, err)
	sales, err := f.store.FindSystemRole(ctx, authz.SlugSales)
	require.NoError(t, err)

	_, err = svc.ChangeRoles(ctx, f.principal(admin), admin.ID, []string{viewer.ID})
	assert.ErrorIs(t, err, authz.ErrInvalidState)

	_, err = svc.ChangeRoles(ctx, f.principal(manager), admin.ID, []string{viewer.ID})
	assert.ErrorIs(t, err, authz.ErrInsufficientAuthority)

	p, err := svc.ChangeRoles(ctx, f.principal(admin), manager.ID, []string{sales.ID, viewer.ID, sales.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{authz.SlugSales, authz.SlugViewer}, p.RoleSlugs)
	assert.Equal(t, 3, p.MinHierarchyLevel)
}

func TestRecorder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec := &recorder{}
	svc := authz.NewService(f.store, authz.WithRecorder(rec))
	d := f.member(f.tenant.ID, "d@example.com", authz.SlugDesigner, authz.StatusDisabled)

	_, err := svc.Reactivate(ctx, f.principal(f.owner), d.ID)
	require.NoError(t, err)
	_, err = svc.Reactivate(ctx, f.principal(f.owner), d.ID)
	require.Error(t, err)

	assert.Equal(t, []recorded{
		{action: authz.ActionReactivate, failed: false},
		{action: authz.ActionReactivate, failed: true},
	}, rec.got)
}

func TestListAudit_RequiresPermission(t *testing.T) {
	f := newFixture(t)
	svc := authz.NewService(f.store)
	m := f.member(f.tenant.ID, "m@example.com", authz.SlugManager, authz.StatusActive)

	_, err := svc.ListAudit(context.Background(), f.principal(m), 10)
	assert.ErrorIs(t, err, authz.ErrInsufficientAuthority)

	events, err := svc.ListAudit(context.Background(), f.principal(f.owner), 0)
	require.NoError(t, err)
	assert.Empty(t, events)
}
