package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/amoylab/atelier/internal/authz"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store implements Database on top of any gorm dialector.
type Store struct {
	db *gorm.DB
}

// NewStore migrates the schema and wraps db.
func NewStore(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(allModels()...); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	// unique violations surface as gorm.ErrDuplicatedKey
	db.Config.TranslateError = true
	return &Store{db: db}, nil
}

var _ Database = (*Store)(nil)

// Close closes the database connection
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return transaction(ctx, s.db, fn)
}

func notFound(err error, what, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s %s", authz.ErrNotFound, what, id)
	}
	return err
}

func (s *Store) CreateTenant(ctx context.Context, tenant *Tenant) error {
	if tenant.ID == "" {
		tenant.ID = uuid.NewString()
	}
	return getDBFromContext(ctx, s.db).Create(tenant).Error
}

func (s *Store) GetUser(ctx context.Context, id string) (*authz.User, error) {
	var u User
	if err := getDBFromContext(ctx, s.db).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, notFound(err, "user", id)
	}
	return u.toDomain(), nil
}

func (s *Store) ListUserRoles(ctx context.Context, userID string) ([]*authz.Role, error) {
	var rows []*Role
	err := getDBFromContext(ctx, s.db).
		Joins("JOIN user_roles ON user_roles.role_id = roles.id").
		Where("user_roles.user_id = ?", userID).
		Order("roles.hierarchy_level asc").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rolesToDomain(rows), nil
}

func (s *Store) GetRole(ctx context.Context, roleID string) (*authz.Role, error) {
	var r Role
	if err := getDBFromContext(ctx, s.db).Where("id = ?", roleID).First(&r).Error; err != nil {
		return nil, notFound(err, "role", roleID)
	}
	return r.toDomain(), nil
}

func (s *Store) FindSystemRole(ctx context.Context, slug string) (*authz.Role, error) {
	var r Role
	err := getDBFromContext(ctx, s.db).
		Where("slug = ? AND tenant_id IS NULL", slug).
		First(&r).Error
	if err != nil {
		return nil, notFound(err, "system role", slug)
	}
	return r.toDomain(), nil
}

func (s *Store) ListRoles(ctx context.Context, tenantID string) ([]*authz.Role, error) {
	var rows []*Role
	err := getDBFromContext(ctx, s.db).
		Where("tenant_id IS NULL OR tenant_id = ?", tenantID).
		Order("hierarchy_level asc, name asc").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rolesToDomain(rows), nil
}

// CreateRole inserts a role, generating its ID when empty.
func (s *Store) CreateRole(ctx context.Context, role *authz.Role) error {
	if role.ID == "" {
		role.ID = uuid.NewString()
	}
	return getDBFromContext(ctx, s.db).Create(&Role{
		ID:             role.ID,
		Name:           role.Name,
		Slug:           role.Slug,
		TenantID:       role.TenantID,
		HierarchyLevel: role.HierarchyLevel,
		IsSystemRole:   role.IsSystemRole,
		IsDefault:      role.IsDefault,
	}).Error
}

func (s *Store) ListTenantUsers(ctx context.Context, tenantID string) ([]*authz.User, error) {
	var rows []*User
	err := getDBFromContext(ctx, s.db).
		Where("tenant_id = ?", tenantID).
		Order("created_at asc, email asc").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]*authz.User, len(rows))
	for i, u := range rows {
		out[i] = u.toDomain()
	}
	return out, nil
}

func (s *Store) FindUserByEmail(ctx context.Context, tenantID, email string) (*authz.User, error) {
	var u User
	err := getDBFromContext(ctx, s.db).
		Where("tenant_id = ? AND email = ?", tenantID, strings.ToLower(email)).
		First(&u).Error
	if err != nil {
		return nil, notFound(err, "user", email)
	}
	return u.toDomain(), nil
}

func (s *Store) CreateUser(ctx context.Context, user *authz.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.Email = strings.ToLower(user.Email)
	if user.Status == "" {
		user.Status = authz.StatusInvited
	}
	row := userFromDomain(user)
	if err := getDBFromContext(ctx, s.db).Create(row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: %s", authz.ErrDuplicateMember, user.Email)
		}
		return err
	}
	user.CreatedAt, user.UpdatedAt = row.CreatedAt, row.UpdatedAt
	return nil
}

// casUpdate applies updates to a user only when every guard column still
// holds its expected value.
func (s *Store) casUpdate(ctx context.Context, userID string, guards map[string]any, updates map[string]any) error {
	db := getDBFromContext(ctx, s.db)
	updates["updated_at"] = time.Now()
	q := db.Model(&User{}).Where("id = ?", userID)
	for column, want := range guards {
		q = q.Where(column+" = ?", want)
	}
	res := q.Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := db.Model(&User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("%w: user %s", authz.ErrNotFound, userID)
	}
	return fmt.Errorf("%w: user %s changed concurrently", authz.ErrConflict, userID)
}

func (s *Store) UpdateUserStatus(ctx context.Context, userID string, from, to authz.UserStatus) error {
	return s.casUpdate(ctx, userID,
		map[string]any{"status": string(from)},
		map[string]any{"status": string(to)})
}

func (s *Store) SetSuperAdmin(ctx context.Context, userID string, from, to bool) error {
	return s.casUpdate(ctx, userID,
		map[string]any{"is_super_admin": from},
		map[string]any{"is_super_admin": to})
}

// PromoteOwner sets the owner flag on a user that is still active and not
// already the owner.
func (s *Store) PromoteOwner(ctx context.Context, userID string) error {
	return s.casUpdate(ctx, userID,
		map[string]any{"status": string(authz.StatusActive), "is_super_admin": false},
		map[string]any{"is_super_admin": true})
}

func (s *Store) AssignRole(ctx context.Context, userID, roleID string) error {
	return getDBFromContext(ctx, s.db).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&UserRole{UserID: userID, RoleID: roleID}).Error
}

func (s *Store) RemoveRole(ctx context.Context, userID, roleID string) error {
	return getDBFromContext(ctx, s.db).
		Where("user_id = ? AND role_id = ?", userID, roleID).
		Delete(&UserRole{}).Error
}

func (s *Store) RemoveAllRoles(ctx context.Context, userID string) error {
	return getDBFromContext(ctx, s.db).
		Where("user_id = ?", userID).
		Delete(&UserRole{}).Error
}

func (s *Store) RecordAudit(ctx context.Context, event *authz.AuditEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	return getDBFromContext(ctx, s.db).Create(&AuditEvent{
		ID:        event.ID,
		TenantID:  event.TenantID,
		ActorID:   event.ActorID,
		TargetID:  event.TargetID,
		Action:    event.Action,
		Detail:    event.Detail,
		CreatedAt: event.CreatedAt,
	}).Error
}

func (s *Store) ListAudit(ctx context.Context, tenantID string, limit int) ([]*authz.AuditEvent, error) {
	var rows []*AuditEvent
	err := getDBFromContext(ctx, s.db).
		Where("tenant_id = ?", tenantID).
		Order("created_at desc, id desc").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]*authz.AuditEvent, len(rows))
	for i, e := range rows {
		out[i] = e.toDomain()
	}
	return out, nil
}

func rolesToDomain(rows []*Role) []*authz.Role {
	out := make([]*authz.Role, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out
}
