// Package models defines the records stored by jobstore and their update
// payloads. Struct tags use the po grammar understood by pkg/schema.
package models

import (
	"fmt"

	"github.com/marshallshelly/jobstore/pkg/registry"
)

// Status values shared by postings, résumés and orders.
const (
	StatusActive    = "active"
	StatusExpired   = "expired"
	StatusDraft     = "draft"
	StatusPending   = "pending"
	StatusPaid      = "paid"
	StatusCancelled = "cancelled"
	StatusRefunded  = "refunded"
)

// All returns one zero value of every model in foreign-key order: referenced
// tables come before the tables that reference them.
func All() []any {
	return []any{
		Administrator{},
		Employer{},
		JobSeeker{},
		Resume{},
		Product{},
		JobPosting{},
		Order{},
		Discount{},
		StoreSetting{},
	}
}

// RegisterAll registers every model with the global registry. It is safe to
// call more than once.
func RegisterAll() error {
	for _, m := range All() {
		if _, err := registry.GetOrRegister(m); err != nil {
			return fmt.Errorf("register %T: %w", m, err)
		}
	}
	return nil
}
