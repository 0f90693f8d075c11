package migrate

import (
	"os"
	"path/filepath"
	"testing"
)

func TestValidateShippedMigrations(t *testing.T) {
	if err := ValidateDir("migrations"); err != nil {
		t.Fatalf("shipped migrations invalid: %v", err)
	}
}

func TestValidateDirRejectsBadFilename(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "001_init.sql")
	if err := os.WriteFile(bad, []byte("-- +goose Up\n-- +goose Down\n"), 0o644); err != nil {
		t.Fatalf("write migration: %v", err)
	}
	if err := ValidateDir(dir); err == nil {
		t.Fatalf("expected filename validation error")
	}
}

func TestValidateDirRejectsMissingDown(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "20250601000000_init.sql")
	if err := os.WriteFile(name, []byte("-- +goose Up\nCREATE TABLE t (id int);\n"), 0o644); err != nil {
		t.Fatalf("write migration: %v", err)
	}
	if err := ValidateDir(dir); err == nil {
		t.Fatalf("expected missing down error")
	}
}
