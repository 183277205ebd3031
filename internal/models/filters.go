package models

import (
	"time"

	"github.com/google/uuid"
)

// Scope restricts list queries to what the caller may see.
// A nil OwnerID lists every user's rows, which only staff get.
type Scope struct {
	OwnerID *uuid.UUID
}

func StaffScope() Scope {
	return Scope{}
}

func OwnerScope(userID uuid.UUID) Scope {
	return Scope{OwnerID: &userID}
}

type Page struct {
	Number int
	Size   int
}

func (p Page) Offset() int {
	if p.Number < 1 {
		return 0
	}
	return (p.Number - 1) * p.Size
}

type CategoryFilters struct {
	Scope
	Type string
	Page Page
}

type TransactionFilters struct {
	Scope
	UserID     *uuid.UUID
	CategoryID *uuid.UUID
	Type       string
	StartDate  *time.Time
	EndDate    *time.Time
	Page       Page
}

type BudgetFilters struct {
	Scope
	CategoryID *uuid.UUID
	Year       int
	Month      int
	Page       Page
}

// AuditLogFilters narrows the audit trail. Empty fields match everything.
type AuditLogFilters struct {
	UserID     *uuid.UUID
	Action     string
	Resource   string
	ResourceID string
	Page       Page
}
