package repository

import (
	"database/sql"
	"fmt"
)

// requireAffected maps a write that touched no rows to ErrVersionConflict.
func requireAffected(result sql.Result, op string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if affected == 0 {
		return ErrVersionConflict
	}
	return nil
}
