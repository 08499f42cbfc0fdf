package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		constraint string
		want       bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "pgx match", err: &pgconn.PgError{Code: "23505", ConstraintName: "ux_payments_reference"}, constraint: "ux_payments_reference", want: true},
		{name: "pgx other constraint", err: &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}, constraint: "ux_payments_reference", want: false},
		{name: "pgx other code", err: &pgconn.PgError{Code: "23503"}, want: false},
		{name: "pq wrapped", err: fmt.Errorf("insert: %w", &pq.Error{Code: "23505", Constraint: "ux_payments_reference"}), constraint: "ux_payments_reference", want: true},
		{name: "sqlite", err: errors.New("UNIQUE constraint failed: payments.reference"), constraint: "ux_payments_reference", want: true},
		{name: "message fallback", err: errors.New(`duplicate key value violates unique constraint "ux_payments_reference"`), constraint: "ux_payments_reference", want: true},
		{name: "unrelated", err: errors.New("connection reset"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUniqueViolation(tt.err, tt.constraint); got != tt.want {
				t.Fatalf("IsUniqueViolation() = %v, want %v", got, tt.want)
			}
		})
	}
}
