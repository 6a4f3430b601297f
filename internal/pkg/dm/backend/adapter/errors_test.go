package adapter

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	dm "go-duet/internal/pkg/dm/domain"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"nil passes through", nil, nil},
		{"unique violation is rejected", &pgconn.PgError{Code: "23505"}, dm.ErrBackendRejected},
		{"foreign key violation is rejected", &pgconn.PgError{Code: "23503"}, dm.ErrBackendRejected},
		{"wrapped constraint violation is rejected", fmt.Errorf("exec: %w", &pgconn.PgError{Code: "23514"}), dm.ErrBackendRejected},
		{"serialization failure is unavailable", &pgconn.PgError{Code: "40001"}, dm.ErrBackendUnavailable},
		{"transport error is unavailable", errors.New("connection refused"), dm.ErrBackendUnavailable},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := classify(tc.err)
			if tc.want == nil {
				assert.NoError(t, got)
				return
			}
			assert.ErrorIs(t, got, tc.want)
		})
	}
}
