package testutil

import (
	"database/sql"
	"testing"

	"github.com/ndewijer/portfolio-tracker/internal/database"
)

// SetupTestDB creates an in-memory SQLite price cache for testing, with the
// production migrations applied. The database is closed when the test
// completes.
//
// Example usage:
//
//	func TestSomething(t *testing.T) {
//	    db := testutil.SetupTestDB(t)
//	    // db is ready to use with schema created
//	}
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}
