package db

import (
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Connect opens the Postgres connection used by the API.
func Connect(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.Open(dsn), &gorm.Config{})
}

// LockForUpdate adds a SELECT ... FOR UPDATE clause on dialects that support
// it. Task-level serialization relies on this lock under Postgres; sqlite
// (used in tests) allows a single writer at a time anyway.
func LockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}
