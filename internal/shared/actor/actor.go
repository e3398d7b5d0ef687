// Package actor describes the authenticated caller as seen by domain services.
package actor

import (
	"homeaccess_backend/platform/httpkit"

	"github.com/google/uuid"
)

const (
	RoleHomeowner  = "homeowner"
	RoleContractor = "contractor"
	RoleAdmin      = "admin"
)

// Actor is the caller of a domain operation.
type Actor struct {
	ID   uuid.UUID
	Role string
}

// IsHomeowner reports whether the caller acts as a homeowner.
func (a Actor) IsHomeowner() bool { return a.Role == RoleHomeowner }

// IsContractor reports whether the caller acts as a contractor.
func (a Actor) IsContractor() bool { return a.Role == RoleContractor }

// IsZero reports whether no caller is present.
func (a Actor) IsZero() bool { return a.ID == uuid.Nil }

// FromIdentity converts an authenticated HTTP identity into an Actor.
// The first role that is a marketplace role wins.
func FromIdentity(id httpkit.Identity) Actor {
	if id == nil || !id.IsAuthenticated() {
		return Actor{}
	}
	role := httpkit.PrimaryRole(id)
	for _, candidate := range []string{RoleHomeowner, RoleContractor, RoleAdmin} {
		if id.HasRole(candidate) {
			role = candidate
			break
		}
	}
	return Actor{ID: id.UserID(), Role: role}
}
