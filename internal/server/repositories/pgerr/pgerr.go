// Package pgerr translates PostgreSQL driver errors into the sentinel errors
// from package common.
package pgerr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/filevault/internal/common"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"

	// ownerConstraintSuffix names the foreign keys from tree rows to users.
	ownerConstraintSuffix = "_owner_fk"
)

// Map wraps err with the matching sentinel so callers can use errors.Is:
// unique violations become ErrorAlreadyExists, foreign-key violations become
// ErrorInconsistentState, everything else ErrorStoreUnavailable.
func Map(op string, err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return fmt.Errorf("%s: %w", op, common.ErrorAlreadyExists)
		case codeForeignKeyViolation:
			return fmt.Errorf("%s: %w: %s", op, common.ErrorInconsistentState, pgErr.ConstraintName)
		}
	}
	return fmt.Errorf("%s: %w: %v", op, common.ErrorStoreUnavailable, err)
}

// MapInsert is Map for inserts of tree rows. A foreign-key violation there
// means a referenced row is gone: a missing owner is ErrorUnauthorized (the
// account was deleted under a still-valid token), a missing parent folder is
// ErrorNotFound.
func MapInsert(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == codeForeignKeyViolation {
		if strings.HasSuffix(pgErr.ConstraintName, ownerConstraintSuffix) {
			return fmt.Errorf("%s: %w: owner", op, common.ErrorUnauthorized)
		}
		return fmt.Errorf("%s: %w: %s", op, common.ErrorNotFound, pgErr.ConstraintName)
	}
	return Map(op, err)
}
