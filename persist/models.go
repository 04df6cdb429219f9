/*
Package persist stores the Adaptive Constraint Store's learned weights and
the validation-repair loop's repair history across process restarts
(SPEC_FULL.md §9 "Learning store: explicit snapshot-read / serialized-write").
It is the one piece of CDC that is allowed to touch a database, grounded on
btouchard/gmx's gorm + sqlite stack — persistent memory stores in general
are out of spec.md's scope (§1 Non-goals), but the ACS's own learned
weights are CDC's internal state, not a general-purpose memory store, so
persisting them across restarts is in scope.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2021–2026 The LatticeForge Authors
*/
package persist

import "time"

// SoftConstraintRow is the persisted form of one acs.Store weight entry.
type SoftConstraintRow struct {
	ID          uint `gorm:"primaryKey"`
	GrammarHash string `gorm:"index:idx_soft_constraint_key,unique"`
	Terminal    string `gorm:"index:idx_soft_constraint_key,unique"`
	Weight      float32
	UpdatedAt   time.Time
}

// TableName pins the table name so renaming the Go type doesn't migrate
// data (gorm default would derive it from the type name).
func (SoftConstraintRow) TableName() string { return "soft_constraints" }

// RepairRecordRow is the persisted form of one validation-repair loop
// attempt (§4.5): which strategy was tried, whether it succeeded, and the
// diagnostic that triggered it, kept for later analysis. Nothing in this
// module reads the records back; the repair ladder does not consult them.
type RepairRecordRow struct {
	ID            uint `gorm:"primaryKey"`
	RequestID     string `gorm:"index"`
	GrammarHash   string
	Strategy      string
	AttemptNumber int
	Succeeded     bool
	Diagnostic    string // JSON-encoded validate.Diagnostic
	CreatedAt     time.Time
}

func (RepairRecordRow) TableName() string { return "repair_records" }
