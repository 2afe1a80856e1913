package store

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrInvalidID is returned for session ids that cannot be used as keys.
var ErrInvalidID = errors.New("store: invalid session id")

var idPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// ValidateID checks that id is safe to use as a file name or database key.
func ValidateID(id string) error {
	if !idPattern.MatchString(id) {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}
