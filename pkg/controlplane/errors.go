package controlplane

import (
	"errors"

	"github.com/jackc/pgx/v5"
)

// translateNoRows maps a raw pgx.ErrNoRows to the package-level ErrNotFound
// sentinel, for the handful of read-only queries that bypass the Q-suffixed
// store methods (which already do this translation themselves).
func translateNoRows(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
