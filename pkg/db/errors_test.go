package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

func TestIsUniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "ux_inventory_codes_code"}
	pqErr := &pq.Error{Code: "23505", Constraint: "ux_inventory_stocks_owner_location"}

	tests := []struct {
		name       string
		err        error
		constraint string
		want       bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "pgconn any", err: fmt.Errorf("insert: %w", pgErr), want: true},
		{name: "pgconn named", err: pgErr, constraint: "ux_inventory_codes_code", want: true},
		{name: "pgconn other constraint", err: pgErr, constraint: "ux_other", want: false},
		{name: "pq named", err: pqErr, constraint: "ux_inventory_stocks_owner_location", want: true},
		{name: "pgconn other code", err: &pgconn.PgError{Code: "23503"}, want: false},
		{name: "sqlite", err: errors.New("UNIQUE constraint failed: inventory_codes.code"), want: true},
		{name: "sqlite named", err: errors.New("UNIQUE constraint failed: inventory_codes.code"), constraint: "inventory_codes.code", want: true},
		{name: "gorm duplicated", err: gorm.ErrDuplicatedKey, want: true},
		{name: "plain", err: errors.New("boom"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUniqueViolation(tt.err, tt.constraint); got != tt.want {
				t.Fatalf("IsUniqueViolation(%v, %q) = %v want %v", tt.err, tt.constraint, got, tt.want)
			}
		})
	}
}

func TestIsNotFound(t *testing.T) {
	if !IsNotFound(fmt.Errorf("load: %w", gorm.ErrRecordNotFound)) {
		t.Fatal("expected wrapped record-not-found to match")
	}
	if IsNotFound(errors.New("boom")) {
		t.Fatal("unexpected match for plain error")
	}
}
