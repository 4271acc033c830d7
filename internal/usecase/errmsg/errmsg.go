package errmsg

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/simaogato/jellysave-store/internal/domain"
)

// Fallback messages shown when the error carries no detail worth surfacing
const (
	MsgUnknown     = "An unknown error occurred."
	MsgStore       = "The data could not be saved. Nothing was changed."
	MsgConstraint  = "The data conflicts with records already stored. Nothing was changed."
	MsgEmptyBackup = "There are no accounts or goals to back up yet."
)

// Translate logs the original cause and returns a message fit for the user
func Translate(logger *zap.Logger, err error) string {
	if err == nil {
		return ""
	}
	if logger != nil {
		logger.Error("operation failed", zap.Error(err))
	}
	return Message(err)
}

// Message maps an error to a user-facing message without logging
func Message(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, domain.ErrEmptyBackup) {
		return MsgEmptyBackup
	}

	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Error()
	}

	var decodeErr *domain.DecodeError
	if errors.As(err, &decodeErr) {
		if decodeErr.Path != "" {
			return fmt.Sprintf("The backup file is not valid (%s).", decodeErr.Path)
		}
		return "The backup file is not valid."
	}

	var notFoundErr *domain.NotFoundError
	if errors.As(err, &notFoundErr) {
		return fmt.Sprintf("The %s no longer exists.", notFoundErr.Entity)
	}

	var storeErr *domain.StoreError
	if errors.As(err, &storeErr) {
		if storeErr.Constraint {
			return MsgConstraint
		}
		return MsgStore
	}

	return MsgUnknown
}
