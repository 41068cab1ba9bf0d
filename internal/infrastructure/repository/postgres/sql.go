package postgres

import (
	"database/sql"
	"errors"
)

// isNotFound lets the Get* repository methods report (zero, false, nil)
// instead of surfacing sql.ErrNoRows.
func isNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
