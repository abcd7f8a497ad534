// Package handlers exposes the API over HTTP.
package handlers

import (
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/service-desk/internal/apperr"
	"github.com/ukydev/service-desk/internal/db"
	"github.com/ukydev/service-desk/internal/httpx"
)

// storeError converts a collection error into the apperr taxonomy. Unexpected
// errors are logged here and replaced by apperr.ErrInternal.
func storeError(log logrus.FieldLogger, entity string, err error) error {
	switch {
	case apperr.IsDomain(err):
		return err
	case errors.Is(err, db.ErrNotFound):
		return apperr.NotFound(entity)
	case errors.Is(err, db.ErrDuplicateKey):
		return apperr.AlreadyExists(entity)
	case errors.Is(err, db.ErrInsufficientStock):
		return apperr.Validation("insufficient stock")
	default:
		log.WithError(err).WithField("entity", entity).Error("Store operation failed")
		return apperr.ErrInternal
	}
}

func writeStoreError(w http.ResponseWriter, log logrus.FieldLogger, entity string, err error) {
	httpx.WriteAppError(w, storeError(log, entity, err))
}

func loggerOrStandard(log logrus.FieldLogger) logrus.FieldLogger {
	if log == nil {
		return logrus.StandardLogger()
	}
	return log
}
