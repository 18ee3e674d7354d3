package authz

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/amoylab/atelier/internal/common/cnst"
	"github.com/amoylab/atelier/pkg/trace"
	"github.com/ifuryst/lol"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Store is the full relational store contract used by hierarchy mutations.
type Store interface {
	Reader

	// Transaction runs fn in one store transaction; fn must use the ctx it is given.
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error

	GetRole(ctx context.Context, roleID string) (*Role, error)
	FindSystemRole(ctx context.Context, slug string) (*Role, error)
	ListRoles(ctx context.Context, tenantID string) ([]*Role, error)

	ListTenantUsers(ctx context.Context, tenantID string) ([]*User, error)
	FindUserByEmail(ctx context.Context, tenantID, email string) (*User, error)
	CreateUser(ctx context.Context, user *User) error

	// UpdateUserStatus and SetSuperAdmin are conditional on the prior value
	// and return ErrConflict when no row matched.
	UpdateUserStatus(ctx context.Context, userID string, from, to UserStatus) error
	SetSuperAdmin(ctx context.Context, userID string, from, to bool) error
	// PromoteOwner sets the owner flag only while the user is active and not
	// yet the owner, returning ErrConflict otherwise.
	PromoteOwner(ctx context.Context, userID string) error

	// AssignRole is idempotent on the (user, role) pair.
	AssignRole(ctx context.Context, userID, roleID string) error
	RemoveRole(ctx context.Context, userID, roleID string) error
	RemoveAllRoles(ctx context.Context, userID string) error

	RecordAudit(ctx context.Context, event *AuditEvent) error
	ListAudit(ctx context.Context, tenantID string, limit int) ([]*AuditEvent, error)
}

// Invalidator drops any cached authorization state of a user.
type Invalidator interface {
	InvalidateUser(ctx context.Context, userID string) error
}

type nopInvalidator struct{}

func (nopInvalidator) InvalidateUser(context.Context, string) error { return nil }

// Recorder observes the outcome of every mutation.
type Recorder interface {
	Mutation(action string, err error)
}

type nopRecorder struct{}

func (nopRecorder) Mutation(string, error) {}

// Service implements the hierarchy-gated team mutations.
type Service struct {
	store       Store
	resolver    *Resolver
	invalidator Invalidator
	recorder    Recorder
	logger      *zap.Logger
	now         func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithInvalidator sets the cache invalidator notified after each mutation.
func WithInvalidator(inv Invalidator) Option {
	return func(s *Service) {
		if inv != nil {
			s.invalidator = inv
		}
	}
}

// WithRecorder sets the mutation outcome recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService creates a mutation service over store.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:       store,
		resolver:    NewResolver(store),
		invalidator: nopInvalidator{},
		recorder:    nopRecorder{},
		logger:      zap.NewNop(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Resolver returns the resolver bound to the service store.
func (s *Service) Resolver() *Resolver {
	return s.resolver
}

// InviteInput describes a new team member.
type InviteInput struct {
	Email  string
	Name   string
	RoleID string
}

// loadTarget resolves a member of the actor's tenant. Members of other
// tenants are reported as missing.
func (s *Service) loadTarget(ctx context.Context, actor *Principal, targetID string) (*Principal, error) {
	target, err := s.resolver.Resolve(ctx, targetID)
	if err != nil {
		if errors.Is(err, ErrUnauthenticated) {
			return nil, fmt.Errorf("%w: member %s", ErrNotFound, targetID)
		}
		return nil, err
	}
	if target.TenantID != actor.TenantID {
		return nil, fmt.Errorf("%w: member %s", ErrNotFound, targetID)
	}
	return target, nil
}

func (s *Service) audit(ctx context.Context, actor, target, tenant, action, detail string) error {
	return s.store.RecordAudit(ctx, &AuditEvent{
		TenantID:  tenant,
		ActorID:   actor,
		TargetID:  target,
		Action:    action,
		Detail:    detail,
		CreatedAt: s.now(),
	})
}

func (s *Service) invalidate(ctx context.Context, userIDs ...string) {
	for _, id := range userIDs {
		if err := s.invalidator.InvalidateUser(ctx, id); err != nil {
			s.logger.Warn("failed to invalidate cached principal",
				zap.String("user_id", id),
				zap.Error(err))
		}
	}
}

// Reactivate moves a disabled member back to active. The actor must have
// strictly more authority than the target.
func (s *Service) Reactivate(ctx context.Context, actor *Principal, targetID string) (_ *Principal, err error) {
	defer func() { s.recorder.Mutation(ActionReactivate, err) }()

	scope := trace.Tracer(cnst.TraceAuthz).Start(ctx, cnst.SpanReactivate).
		WithAttrs(attribute.String(cnst.AttrActorID, actor.UserID), attribute.String(cnst.AttrTargetID, targetID))
	defer scope.End()
	ctx = scope.Ctx

	target, err := s.loadTarget(ctx, actor, targetID)
	if err != nil {
		return nil, err
	}
	if target.Status != StatusDisabled {
		return nil, fmt.Errorf("%w: member is %s, not disabled", ErrInvalidState, target.Status)
	}
	if !actor.Outranks(target) {
		return nil, fmt.Errorf("%w: level %d cannot reactivate level %d",
			ErrInsufficientAuthority, actor.MinHierarchyLevel, target.MinHierarchyLevel)
	}

	err = s.store.Transaction(ctx, func(ctx context.Context) error {
		if err := s.store.UpdateUserStatus(ctx, target.UserID, StatusDisabled, StatusActive); err != nil {
			return err
		}
		return s.audit(ctx, actor.UserID, target.UserID, actor.TenantID, ActionReactivate, "")
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, target.UserID)
	s.logger.Info("member reactivated",
		zap.String("actor_id", actor.UserID),
		zap.String("target_id", target.UserID))

	target.Status = StatusActive
	return target, nil
}

// Deactivate disables an active or invited member. The actor must have
// strictly more authority than the target and cannot disable itself.
func (s *Service) Deactivate(ctx context.Context, actor *Principal, targetID string) (_ *Principal, err error) {
	defer func() { s.recorder.Mutation(ActionDeactivate, err) }()

	scope := trace.Tracer(cnst.TraceAuthz).Start(ctx, cnst.SpanDeactivate).
		WithAttrs(attribute.String(cnst.AttrActorID, actor.UserID), attribute.String(cnst.AttrTargetID, targetID))
	defer scope.End()
	ctx = scope.Ctx

	if actor.UserID == targetID {
		return nil, fmt.Errorf("%w: cannot deactivate yourself", ErrInvalidState)
	}
	target, err := s.loadTarget(ctx, actor, targetID)
	if err != nil {
		return nil, err
	}
	if target.Status == StatusDisabled {
		return nil, fmt.Errorf("%w: member is already disabled", ErrInvalidState)
	}
	if !actor.Outranks(target) {
		return nil, fmt.Errorf("%w: level %d cannot deactivate level %d",
			ErrInsufficientAuthority, actor.MinHierarchyLevel, target.MinHierarchyLevel)
	}

	err = s.store.Transaction(ctx, func(ctx context.Context) error {
		if err := s.store.UpdateUserStatus(ctx, target.UserID, target.Status, StatusDisabled); err != nil {
			return err
		}
		return s.audit(ctx, actor.UserID, target.UserID, actor.TenantID, ActionDeactivate, string(target.Status))
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, target.UserID)

	target.Status = StatusDisabled
	return target, nil
}

// TransferOwnership hands the owner flag and Owner role from actor to
// target. All writes happen in one transaction; a failure at any step
// leaves both users as they were.
func (s *Service) TransferOwnership(ctx context.Context, actor *Principal, targetID string) (err error) {
	defer func() { s.recorder.Mutation(ActionTransferOwnership, err) }()

	scope := trace.Tracer(cnst.TraceAuthz).Start(ctx, cnst.SpanTransferOwnership).
		WithAttrs(attribute.String(cnst.AttrActorID, actor.UserID), attribute.String(cnst.AttrTargetID, targetID))
	defer scope.End()
	ctx = scope.Ctx

	if !actor.IsSuperAdmin {
		return fmt.Errorf("%w: only the owner can transfer ownership", ErrInsufficientAuthority)
	}
	if actor.UserID == targetID {
		return fmt.Errorf("%w: already the owner", ErrInvalidState)
	}
	target, err := s.loadTarget(ctx, actor, targetID)
	if err != nil {
		return err
	}
	if target.Status != StatusActive {
		return fmt.Errorf("%w: new owner must be active, is %s", ErrInvalidState, target.Status)
	}

	ownerRole, err := s.systemRole(ctx, SlugOwner)
	if err != nil {
		return err
	}
	adminRole, err := s.systemRole(ctx, SlugAdmin)
	if err != nil {
		return err
	}

	err = s.store.Transaction(ctx, func(ctx context.Context) error {
		if err := s.store.SetSuperAdmin(ctx, actor.UserID, true, false); err != nil {
			return fmt.Errorf("demote current owner: %w", err)
		}
		if err := s.store.PromoteOwner(ctx, target.UserID); err != nil {
			return fmt.Errorf("promote new owner: %w", err)
		}
		if err := s.store.RemoveRole(ctx, actor.UserID, ownerRole.ID); err != nil {
			return fmt.Errorf("remove owner role: %w", err)
		}
		if err := s.store.AssignRole(ctx, actor.UserID, adminRole.ID); err != nil {
			return fmt.Errorf("assign admin role: %w", err)
		}
		if err := s.store.RemoveAllRoles(ctx, target.UserID); err != nil {
			return fmt.Errorf("clear new owner roles: %w", err)
		}
		if err := s.store.AssignRole(ctx, target.UserID, ownerRole.ID); err != nil {
			return fmt.Errorf("assign owner role: %w", err)
		}
		return s.audit(ctx, actor.UserID, target.UserID, actor.TenantID, ActionTransferOwnership, "")
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx, actor.UserID, target.UserID)
	s.logger.Info("ownership transferred",
		zap.String("tenant_id", actor.TenantID),
		zap.String("from", actor.UserID),
		zap.String("to", target.UserID))
	return nil
}

func (s *Service) systemRole(ctx context.Context, slug string) (*Role, error) {
	role, err := s.store.FindSystemRole(ctx, slug)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: system role %q is missing", ErrSystemConfiguration, slug)
		}
		return nil, err
	}
	return role, nil
}

// Invite creates an invited member holding one role the actor may assign.
func (s *Service) Invite(ctx context.Context, actor *Principal, in InviteInput) (_ *User, err error) {
	defer func() { s.recorder.Mutation(ActionInvite, err) }()

	if !actor.Can(PermManageTeam) {
		return nil, fmt.Errorf("%w: %s required", ErrInsufficientAuthority, PermManageTeam)
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrInvalidState)
	}
	role, err := s.store.GetRole(ctx, in.RoleID)
	if err != nil {
		return nil, err
	}
	if err := CanAssign(actor, role); err != nil {
		return nil, err
	}

	var user *User
	err = s.store.Transaction(ctx, func(ctx context.Context) error {
		existing, err := s.store.FindUserByEmail(ctx, actor.TenantID, email)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: %s", ErrDuplicateMember, email)
		}
		now := s.now()
		user = &User{
			TenantID:  actor.TenantID,
			Email:     email,
			Name:      strings.TrimSpace(in.Name),
			Status:    StatusInvited,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.store.CreateUser(ctx, user); err != nil {
			return err
		}
		if err := s.store.AssignRole(ctx, user.ID, role.ID); err != nil {
			return err
		}
		return s.audit(ctx, actor.UserID, user.ID, actor.TenantID, ActionInvite, role.Slug)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// AcceptInvite activates an invited user on their first authenticated visit.
func (s *Service) AcceptInvite(ctx context.Context, userID string) (_ *Principal, err error) {
	defer func() { s.recorder.Mutation(ActionAcceptInvite, err) }()

	p, err := s.resolver.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p.Status != StatusInvited {
		return nil, fmt.Errorf("%w: no pending invitation", ErrInvalidState)
	}
	err = s.store.Transaction(ctx, func(ctx context.Context) error {
		if err := s.store.UpdateUserStatus(ctx, userID, StatusInvited, StatusActive); err != nil {
			return err
		}
		return s.audit(ctx, userID, userID, p.TenantID, ActionAcceptInvite, "")
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, userID)
	p.Status = StatusActive
	return p, nil
}

// ChangeRoles replaces the target's role set.
func (s *Service) ChangeRoles(ctx context.Context, actor *Principal, targetID string, roleIDs []string) (_ *Principal, err error) {
	defer func() { s.recorder.Mutation(ActionChangeRoles, err) }()

	if !actor.Can(PermManageRoles) {
		return nil, fmt.Errorf("%w: %s required", ErrInsufficientAuthority, PermManageRoles)
	}
	if actor.UserID == targetID {
		return nil, fmt.Errorf("%w: cannot change your own roles", ErrInvalidState)
	}
	if len(roleIDs) == 0 {
		return nil, fmt.Errorf("%w: at least one role is required", ErrInvalidState)
	}
	target, err := s.loadTarget(ctx, actor, targetID)
	if err != nil {
		return nil, err
	}
	if !actor.Outranks(target) {
		return nil, fmt.Errorf("%w: level %d cannot change roles of level %d",
			ErrInsufficientAuthority, actor.MinHierarchyLevel, target.MinHierarchyLevel)
	}

	roleIDs = lol.UniqSlice(roleIDs)
	roles := make([]*Role, 0, len(roleIDs))
	for _, id := range roleIDs {
		role, err := s.store.GetRole(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := CanAssign(actor, role); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}

	slugs := make([]string, len(roles))
	for i, role := range roles {
		slugs[i] = role.Slug
	}
	err = s.store.Transaction(ctx, func(ctx context.Context) error {
		if err := s.store.RemoveAllRoles(ctx, target.UserID); err != nil {
			return err
		}
		for _, role := range roles {
			if err := s.store.AssignRole(ctx, target.UserID, role.ID); err != nil {
				return err
			}
		}
		return s.audit(ctx, actor.UserID, target.UserID, actor.TenantID, ActionChangeRoles, strings.Join(slugs, ","))
	})
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, target.UserID)
	return s.resolver.Resolve(ctx, target.UserID)
}

// ListMembers resolves every member of the actor's tenant.
func (s *Service) ListMembers(ctx context.Context, actor *Principal) ([]*Principal, error) {
	users, err := s.store.ListTenantUsers(ctx, actor.TenantID)
	if err != nil {
		return nil, err
	}
	out := make([]*Principal, 0, len(users))
	for _, u := range users {
		roles, err := s.store.ListUserRoles(ctx, u.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, Build(u, roles))
	}
	return out, nil
}

// ListRoles returns the system roles and the actor tenant's custom roles.
func (s *Service) ListRoles(ctx context.Context, actor *Principal) ([]*Role, error) {
	return s.store.ListRoles(ctx, actor.TenantID)
}

// ListAssignableRoles returns the roles the actor may hand out on invite.
func (s *Service) ListAssignableRoles(ctx context.Context, actor *Principal) ([]*Role, error) {
	roles, err := s.store.ListRoles(ctx, actor.TenantID)
	if err != nil {
		return nil, err
	}
	return AssignableRoles(actor, roles), nil
}

// ListAudit returns the newest audit events of the actor's tenant.
func (s *Service) ListAudit(ctx context.Context, actor *Principal, limit int) ([]*AuditEvent, error) {
	if !actor.Can(PermViewAuditLog) {
		return nil, fmt.Errorf("%w: %s required", ErrInsufficientAuthority, PermViewAuditLog)
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.store.ListAudit(ctx, actor.TenantID, limit)
}
