package availability

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when no month in the queried year has free capacity.
var ErrNotFound = errors.New("no availability found")

// ValidationError describes a record that cannot take part in a grid.
// The reducers skip such records; the API layer reports them as 400s.
type ValidationError struct {
	Record string
	ID     string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("invalid %s: %s %s", e.Record, e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %s: %s %s", e.Record, e.ID, e.Field, e.Reason)
}

// IsValidation reports whether err is a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
