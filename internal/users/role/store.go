// Copyright (c) 2026 Plumeria. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package role

import "context"

// # Persistence Contract

/*
Repository defines the persistence operations for the role catalog.

Implementations must keep role names unique; Upsert reconciles by name so
the seeding routine stays idempotent across restarts.
*/
type Repository interface {
	// Upsert inserts the role or, when a role with the same name already
	// exists, updates its capability mask and default flag in place.
	Upsert(ctx context.Context, r *Role) error

	// FindByName retrieves a role by its unique name.
	// Returns dberr.ErrNotFound when no such role exists.
	FindByName(ctx context.Context, name string) (*Role, error)

	// FindDefault retrieves the role flagged as the registration default.
	// Returns dberr.ErrNotFound when the catalog has not been seeded.
	FindDefault(ctx context.Context) (*Role, error)

	// List returns the full catalog ordered by name.
	List(ctx context.Context) ([]Role, error)
}
