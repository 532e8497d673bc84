// Copyright (c) 2026 Plumeria. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package role

import (
	"context"
	"fmt"
	"log/slog"
)

// # Catalog Service

/*
Catalog exposes the seeded role definitions to the rest of the platform.

It orchestrates:
  - Seed: idempotent startup reconciliation of the rule table.
  - ByName / DefaultRole: lookups used during registration and authorization.
  - RoleCan: the capability check consumed by HTTP middleware.
*/
type Catalog struct {
	repo   Repository
	logger *slog.Logger
}

// NewCatalog creates a new role catalog service.
func NewCatalog(repo Repository, logger *slog.Logger) *Catalog {
	return &Catalog{
		repo:   repo,
		logger: logger,
	}
}

/*
Seed reconciles the stored catalog with the built-in rule table.

Description: Each rule is upserted by name, so running Seed on every startup
is safe: new roles are created, existing roles have their capability masks
and default flag refreshed, and rows are never duplicated.

Parameters:
  - ctx: context.Context

Returns:
  - error: First upsert failure encountered
*/
func (catalog *Catalog) Seed(ctx context.Context) error {
	for _, rule := range rules {
		r := rule
		if err := catalog.repo.Upsert(ctx, &r); err != nil {
			return fmt.Errorf("role_catalog_seed_failed: %w", err)
		}

		catalog.logger.Debug("role catalog entry reconciled",
			slog.String("role", r.Name),
			slog.Int("permissions", int(r.Permissions)),
		)
	}

	return nil
}

/*
DefaultRole returns the role assigned to newly registered accounts.

Parameters:
  - ctx: context.Context

Returns:
  - *Role: The catalog entry flagged as default
  - error: apperr.NotFound when the catalog was never seeded
*/
func (catalog *Catalog) DefaultRole(ctx context.Context) (*Role, error) {
	return catalog.repo.FindDefault(ctx)
}

/*
ByName returns the catalog entry with the given name.

Parameters:
  - ctx: context.Context
  - name: string

Returns:
  - *Role: Hydrated catalog entry
  - error: apperr.NotFound for unknown names
*/
func (catalog *Catalog) ByName(ctx context.Context, name string) (*Role, error) {
	return catalog.repo.FindByName(ctx, name)
}

/*
List returns every seeded role ordered by name.

Parameters:
  - ctx: context.Context

Returns:
  - []Role: The full catalog
  - error: Retrieval failures
*/
func (catalog *Catalog) List(ctx context.Context) ([]Role, error) {
	return catalog.repo.List(ctx)
}

/*
RoleCan reports whether the named role grants the given capability.

Description: Unknown role names resolve to false rather than an error, so
the authorization middleware fails closed when an account references a role
that has since been removed from the catalog.

Parameters:
  - ctx: context.Context
  - roleName: string
  - perm: Permission

Returns:
  - bool: true only when the role exists and its mask covers perm
*/
func (catalog *Catalog) RoleCan(ctx context.Context, roleName string, perm Permission) bool {
	r, err := catalog.repo.FindByName(ctx, roleName)
	if err != nil {
		catalog.logger.Warn("capability check against unknown role",
			slog.String("role", roleName),
		)
		return false
	}

	return r.Has(perm)
}
