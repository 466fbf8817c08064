package dice

import (
	"errors"

	apperrors "github.com/louisbranch/roleandroll/internal/platform/errors"
)

// DomainError maps resolver failures to coded domain errors so transports can
// report them with the right status. Unrecognized errors are returned as is.
func DomainError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrRerollLimit):
		return apperrors.Wrap(apperrors.CodeDiceRerollLimit, err.Error(), err)
	case errors.Is(err, ErrInvalidAction),
		errors.Is(err, ErrUnknownCheckType),
		errors.Is(err, ErrInvalidSystem),
		errors.Is(err, ErrInvalidPool),
		errors.Is(err, ErrInvalidDifficulty):
		return apperrors.Wrap(apperrors.CodeDiceInvalidRequest, err.Error(), err)
	default:
		return err
	}
}
