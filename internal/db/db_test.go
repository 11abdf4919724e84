package db

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

const failedToInitDB = "Failed to initialize database: %v"

func TestSetLogger(t *testing.T) {
	logger := zerolog.New(os.Stdout).Level(zerolog.InfoLevel)
	SetLogger(logger)

	// This test mainly ensures the function doesn't panic
}

func TestNewSQLite(t *testing.T) {
	db := NewSQLite(":memory:")

	if db == nil {
		t.Fatal("Expected non-nil SQLite instance")
	}

	if db.conn != nil {
		t.Error("Expected connection to be nil initially")
	}

	if err := db.Close(); err != nil {
		t.Errorf("Expected closing an unopened database to succeed, got %v", err)
	}
}

func tableColumns(t *testing.T, db *SQLite, table string) map[string]bool {
	t.Helper()

	rows, err := db.QueryContext(context.Background(), "PRAGMA table_info("+table+")")
	if err != nil {
		t.Fatalf("Failed to get %s table info: %v", table, err)
	}
	defer rows.Close()

	columns := make(map[string]bool)
	for rows.Next() {
		var cid int
		var name, dataType string
		var notNull, pk int
		var defaultValue sql.NullString

		if err := rows.Scan(&cid, &name, &dataType, &notNull, &defaultValue, &pk); err != nil {
			t.Fatalf("Failed to scan column info: %v", err)
		}
		columns[name] = true
	}
	return columns
}

func TestSQLiteSchema(t *testing.T) {
	SetLogger(zerolog.New(os.Stdout).Level(zerolog.ErrorLevel))

	db := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	defer db.Close()

	if err := db.InitDB(); err != nil {
		t.Fatalf(failedToInitDB, err)
	}

	t.Run("InitDB is idempotent", func(t *testing.T) {
		if _, err := db.Get().Exec(schema); err != nil {
			t.Errorf("Expected schema to apply twice, got %v", err)
		}
	})

	t.Run("Posts table columns", func(t *testing.T) {
		columns := tableColumns(t, db, "posts")
		expected := []string{"id", "type", "status", "slug", "title", "content", "content_hash", "user_id", "created_at", "modified_at"}
		for _, col := range expected {
			if !columns[col] {
				t.Errorf("Expected posts table to have column %s", col)
			}
		}
	})

	t.Run("Users table columns", func(t *testing.T) {
		columns := tableColumns(t, db, "users")
		for _, col := range []string{"id", "username", "email", "created_at"} {
			if !columns[col] {
				t.Errorf("Expected users table to have column %s", col)
			}
		}
	})

	t.Run("Slugs are unique per type", func(t *testing.T) {
		ctx := context.Background()
		insert := `INSERT INTO posts (id, type, status, slug) VALUES (?, ?, 'draft', ?)`

		if _, err := db.ExecContext(ctx, insert, "a", "page", "about"); err != nil {
			t.Fatalf("Failed to insert first page: %v", err)
		}
		if _, err := db.ExecContext(ctx, insert, "b", "post", "about"); err != nil {
			t.Errorf("Expected same slug under another type to be accepted, got %v", err)
		}
		if _, err := db.ExecContext(ctx, insert, "c", "page", "about"); err == nil {
			t.Error("Expected duplicate slug for the same type to be rejected")
		}
	})
}

func TestSQLiteInMemory(t *testing.T) {
	SetLogger(zerolog.New(os.Stdout).Level(zerolog.ErrorLevel))

	db := NewSQLite(":memory:")
	defer db.Close()

	if err := db.InitDB(); err != nil {
		t.Fatalf(failedToInitDB, err)
	}

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, `INSERT INTO users (id, username) VALUES (?, ?)`, "u1", "alice"); err != nil {
		t.Fatalf("Failed to insert user: %v", err)
	}

	var username string
	if err := db.QueryRowContext(ctx, `SELECT username FROM users WHERE id = ?`, "u1").Scan(&username); err != nil {
		t.Fatalf("Failed to read user back: %v", err)
	}
	if username != "alice" {
		t.Errorf("Expected username 'alice', got %q", username)
	}
}
