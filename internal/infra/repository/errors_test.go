package repository

import (
	"errors"
	"fmt"
	"testing"

	repo "storefront/internal/repository"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestMapErr(t *testing.T) {
	other := errors.New("connection reset")
	tests := []struct {
		name string
		in   error
		want error
	}{
		{"nil", nil, nil},
		{"record not found", gorm.ErrRecordNotFound, repo.ErrNotFound},
		{"unique violation", &pgconn.PgError{Code: "23505"}, repo.ErrConflict},
		{"invalid uuid", &pgconn.PgError{Code: "22P02", Message: `invalid input syntax for type uuid: "O1"`}, repo.ErrNotFound},
		{"wrapped invalid uuid", fmt.Errorf("find order: %w", &pgconn.PgError{Code: "22P02"}), repo.ErrNotFound},
		{"other pg error", &pgconn.PgError{Code: "40P01"}, nil},
		{"other error", other, other},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapErr(tt.in)
			switch {
			case tt.in == nil:
				assert.NoError(t, got)
			case tt.want == nil:
				// 変換しないものはそのまま返る
				assert.Same(t, tt.in, got)
			default:
				assert.ErrorIs(t, got, tt.want)
			}
		})
	}
}

func TestUUIDsOnly(t *testing.T) {
	valid := "6f1c2a9e-8d4b-4c3a-9f2e-1b7d5e0a3c44"
	assert.Equal(t, []string{valid}, uuidsOnly([]string{"P1", valid, "", "not-a-uuid"}))
	assert.Empty(t, uuidsOnly([]string{"P1"}))
}
