package repository

import (
	"testing"
)

func TestNewRepositoriesRequiresDatabase(t *testing.T) {
	repos, err := NewRepositories(nil)
	if err == nil {
		t.Fatal("expected error for nil database connection")
	}
	if repos != nil {
		t.Fatal("expected nil repositories on error")
	}
}
