package adapter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	dm "go-duet/internal/pkg/dm/domain"
)

// classify maps a store failure onto the port's two-way taxonomy: SQLSTATE
// class 23 (integrity constraint violations) is a rejection, everything else
// is treated as transient unavailability.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && strings.HasPrefix(pgErr.Code, "23") {
		return fmt.Errorf("%w: %v", dm.ErrBackendRejected, err)
	}
	return fmt.Errorf("%w: %v", dm.ErrBackendUnavailable, err)
}
