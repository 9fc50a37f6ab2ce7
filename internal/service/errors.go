package service

import (
	"errors"

	"github.com/fairpipe/fairpipe-api/internal/apperr"
	"github.com/fairpipe/fairpipe-api/internal/db"

	"github.com/google/uuid"
)

// Database is a pool that can both run queries and start transactions.
// *pgxpool.Pool satisfies it.
type Database interface {
	db.DBTX
	db.TxBeginner
}

// ParseID parses a client-supplied identifier.
func ParseID(raw, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperr.BadRequest("invalid " + name)
	}
	return id, nil
}

// notFoundOr maps a repository not-found to a client-facing not-found and
// anything else to an internal error. Errors that already carry a kind pass through.
func notFoundOr(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	if db.IsNotFound(err) {
		return apperr.Wrap(apperr.KindNotFound, message, err)
	}
	return apperr.Internal(err)
}
