package postgres

import (
	"database/sql"
	"fmt"
	"testing"
)

func TestIsNotFound(t *testing.T) {
	if !isNotFound(sql.ErrNoRows) {
		t.Fatalf("sql.ErrNoRows must be not-found")
	}
	if isNotFound(fmt.Errorf("boom")) {
		t.Fatalf("unrelated error must not be not-found")
	}
	if isNotFound(nil) {
		t.Fatalf("nil must not be not-found")
	}
}
