package database

import (
	"context"

	"github.com/amoylab/atelier/internal/authz"
)

// Database is the relational store behind the API server.
type Database interface {
	authz.Store

	// CreateTenant inserts a tenant, generating its ID when empty.
	CreateTenant(ctx context.Context, tenant *Tenant) error
	// SeedSystemRoles makes sure every system role row exists with its
	// canonical name and level.
	SeedSystemRoles(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
