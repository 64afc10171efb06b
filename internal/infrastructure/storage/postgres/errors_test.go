package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		want      string
		transient bool
	}{
		{"nil", nil, "ok", false},
		{"serialization", &pgconn.PgError{Code: "40001"}, "serialization_failure", true},
		{"deadlock", fmt.Errorf("next: %w", &pgconn.PgError{Code: "40P01"}), "deadlock", true},
		{"lock timeout", &pgconn.PgError{Code: "55P03"}, "lock_timeout", true},
		{"unique", &pgconn.PgError{Code: "23505", ConstraintName: "documents_number_key"}, "unique_violation", false},
		{"other", errors.New("boom"), "unknown", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.err))
			assert.Equal(t, tc.transient, IsTransient(tc.err))
		})
	}

	assert.Equal(t, "documents_number_key", ConstraintName(&pgconn.PgError{Code: "23505", ConstraintName: "documents_number_key"}))
}
