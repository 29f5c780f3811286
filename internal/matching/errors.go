package matching

import (
	"errors"
	"fmt"
)

// ErrInvalidOrganization reports that the organization could not be loaded or its
// profile cannot be matched. It is fatal for the call.
var ErrInvalidOrganization = errors.New("invalid organization")

type InvalidOrganizationError struct {
	ID  string
	Err error
}

func (e *InvalidOrganizationError) Error() string {
	return fmt.Sprintf("organization %q: %v", e.ID, e.Err)
}

func (e *InvalidOrganizationError) Unwrap() error {
	return e.Err
}

func (e *InvalidOrganizationError) Is(target error) bool {
	return target == ErrInvalidOrganization
}
