package db

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/markdave123-py/botdesk/internal/core"
)

// readErr maps a missing row to core.ErrNotFound.
func readErr(what string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, core.ErrNotFound)
	}
	return fmt.Errorf("get %s: %w", what, err)
}

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %v", op, core.ErrStorage, err)
}

// affectedOne turns a zero-row update or delete into core.ErrNotFound.
func affectedOne(what string, res sql.Result, err error) error {
	if err != nil {
		return storageErr("update "+what, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storageErr("update "+what, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, core.ErrNotFound)
	}
	return nil
}
