package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		constraint string
		want       bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "gorm translated", err: fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey), want: true},
		{name: "pgx matching constraint", err: &pgconn.PgError{Code: "23505", ConstraintName: "orders_idempotency_key_key"}, constraint: "orders_idempotency_key_key", want: true},
		{name: "pgx other constraint", err: &pgconn.PgError{Code: "23505", ConstraintName: "warehouses_name_key"}, constraint: "orders_idempotency_key_key", want: false},
		{name: "pgx other code", err: &pgconn.PgError{Code: "23503"}, want: false},
		{name: "pq", err: &pq.Error{Code: "23505", Constraint: "orders_idempotency_key_key"}, want: true},
		{name: "sqlite message", err: errors.New("UNIQUE constraint failed: orders.idempotency_key"), want: true},
		{name: "plain message", err: errors.New("duplicate key value violates unique constraint"), want: true},
		{name: "unrelated", err: errors.New("connection reset"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, IsUniqueViolation(tt.err, tt.constraint))
		})
	}
}
