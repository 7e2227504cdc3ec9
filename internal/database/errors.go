package database

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/codebuildervaibhav/audio-quiz/internal/apperrors"
)

// isDuplicate matches unique violations from either dialect. Postgres errors arrive
// translated to gorm.ErrDuplicatedKey; modernc sqlite errors only carry their message.
func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, p := range []string{
		"unique constraint failed",
		"duplicate key value violates unique constraint",
		"sqlstate 23505",
	} {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// FromDatabase converts a store error on resource into an AppError.
func FromDatabase(err error, resource string) error {
	if err == nil {
		return nil
	}
	if _, ok := apperrors.As(err); ok {
		return err
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperrors.NotFound(resource, "")
	case isDuplicate(err):
		return apperrors.Conflict(resource).WithCause(err)
	}
	return apperrors.DatabaseError(resource, err)
}
