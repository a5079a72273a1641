package task

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestReorderConflictRecognizesAbortCodes(t *testing.T) {
	cases := []struct {
		name string
		code string
		want bool
	}{
		{"serialization failure", "40001", true},
		{"deadlock between crossing moves", "40P01", true},
		{"unique violation", "23505", false},
		{"foreign key violation", "23503", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := fmt.Errorf("move: %w", &pgconn.PgError{Code: tc.code})
			if got := isReorderConflict(err); got != tc.want {
				t.Fatalf("isReorderConflict(%s) = %v, want %v", tc.code, got, tc.want)
			}
		})
	}
}

func TestReorderConflictIgnoresPlainErrors(t *testing.T) {
	if isReorderConflict(errors.New("connection refused")) {
		t.Fatal("plain error must not map to a reorder conflict")
	}
	if isReorderConflict(nil) {
		t.Fatal("nil error must not map to a reorder conflict")
	}
}
