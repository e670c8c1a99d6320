package repository

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/backoffice-api/internal/database"
)

// testDB is a MySQL database the integration tests own.  TEST_DATABASE_URL
// takes a go-sql-driver DSN such as
// "app:secret@tcp(127.0.0.1:3306)/backoffice_test"; every table is
// emptied by the tests.
var testDB *sql.DB

func TestMain(m *testing.M) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		fmt.Println("TEST_DATABASE_URL not set, skipping integration tests")
		os.Exit(0)
	}
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid TEST_DATABASE_URL: %v\n", err)
		os.Exit(1)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC

	testDB, err = sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open test database: %v\n", err)
		os.Exit(1)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = database.Migrate(ctx, testDB)
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to migrate test database: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()
	_ = testDB.Close()
	os.Exit(code)
}

// cleanup empties every table, children first.
func cleanup(t *testing.T) {
	t.Helper()
	for _, table := range []string{
		"returns", "deliveries", "order_items", "orders", "inventory_logs",
		"products", "categories", "refresh_tokens", "users",
	} {
		if _, err := testDB.Exec("DELETE FROM " + table); err != nil {
			t.Fatalf("failed to cleanup table %s: %v", table, err)
		}
	}
}
