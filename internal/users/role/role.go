// Copyright (c) 2026 Plumeria. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package role implements the permission catalog for the Plumeria platform.

Every account references exactly one named role, and every role grants a
fixed set of capabilities. The catalog is seeded once at startup and is
read-only to the rest of the system afterwards.

# Architecture

  - Role: the persisted entity (name, capability mask, default flag).
  - Catalog: the service exposing seeding and lookups.
  - Repository: the persistence contract, implemented on PostgreSQL.
*/
package role

// # Capabilities

// Permission is a single named capability encoded as a bit.
//
// Capability masks combine with bitwise OR, so subset relationships between
// roles (a Moderator can do everything a User can) are expressed purely by
// the seeded rule table below.
type Permission int

const (
	// PermFollow allows following other members.
	PermFollow Permission = 1 << iota

	// PermComment allows commenting on posts.
	PermComment

	// PermWrite allows publishing posts.
	PermWrite

	// PermModerate allows moderating other members' content.
	PermModerate

	// PermAdminister allows full administrative access.
	PermAdminister
)

// # Role Names

const (
	// NameUser is the default role assigned to new accounts.
	NameUser = "User"

	// NameModerator extends User with content moderation.
	NameModerator = "Moderator"

	// NameAdministrator holds every capability, including administration.
	NameAdministrator = "Administrator"
)

// # Entity

// Role represents a named set of capabilities.
type Role struct {
	ID          int        `json:"id"`
	Name        string     `json:"name"`
	Permissions Permission `json:"permissions"`
	IsDefault   bool       `json:"is_default"`
}

// Has reports whether the role grants the given capability.
func (r *Role) Has(perm Permission) bool {
	return r.Permissions&perm == perm
}

// # Rule Table

// rules is the fixed catalog definition applied by [Catalog.Seed].
//
// Exactly one entry carries isDefault. Changing a mask here and redeploying
// reconciles the stored catalog on the next startup.
var rules = []Role{
	{
		Name:        NameUser,
		Permissions: PermFollow | PermComment | PermWrite,
		IsDefault:   true,
	},
	{
		Name:        NameModerator,
		Permissions: PermFollow | PermComment | PermWrite | PermModerate,
	},
	{
		Name:        NameAdministrator,
		Permissions: PermFollow | PermComment | PermWrite | PermModerate | PermAdminister,
	},
}
