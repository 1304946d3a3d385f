// internal/database/testing.go
package database

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/javajoker/brawlrec-backend/internal/config"
)

// NewTestDB opens a migrated, private in-memory SQLite database that is
// closed when the test ends. It is exported for use in other package tests.
func NewTestDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := Initialize(config.DatabaseConfig{
		Driver:   "sqlite",
		Path:     fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
		LogLevel: "silent",
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { Close(db) })

	if err := RunMigrations(db); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	return db
}
