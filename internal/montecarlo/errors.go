package montecarlo

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrNotFound marks lookups of configurations, experiments or runs that do
// not exist. Handlers translate it to 404.
var ErrNotFound = errors.New("no encontrado")

// ValidationError reports an admission parameter outside its allowed
// range. Handlers translate it to 422.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// PreconditionError reports an operation attempted against the wrong
// lifecycle state, like requesting ANOVA on an unfinished experiment.
// Handlers translate it to 409.
type PreconditionError struct {
	Reason string
}

func (e *PreconditionError) Error() string { return e.Reason }

// wrapNotFound folds gorm's record miss into ErrNotFound so callers deal
// with a single sentinel.
func wrapNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
