package models

import "github.com/google/uuid"

// Actor is the authenticated caller of a service operation
type Actor struct {
	UserID    uuid.UUID
	IsStaff   bool
	IPAddress string
	UserAgent string
}

// Owns reports whether the actor is the given user
func (a Actor) Owns(userID uuid.UUID) bool {
	return a.UserID == userID
}

// CanAccess reports whether the actor may act on resources of the given user
func (a Actor) CanAccess(userID uuid.UUID) bool {
	return a.IsStaff || a.Owns(userID)
}

// Scope returns the list scope the actor is allowed to see
func (a Actor) Scope() Scope {
	if a.IsStaff {
		return StaffScope()
	}
	return OwnerScope(a.UserID)
}
